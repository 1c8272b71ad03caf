package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Category splits the storefront into its two tool sections.
type Category string

const (
	CategoryDevelopment Category = "development"
	CategoryMarketing   Category = "marketing"
)

// ParseCategory validates a stored category.
func ParseCategory(raw string) (Category, error) {
	switch Category(raw) {
	case CategoryDevelopment, CategoryMarketing:
		return Category(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

// String returns the stored representation.
func (category Category) String() string {
	return string(category)
}

// Tool is one catalog entry: a generation utility (optionally backed by a
// chat-completion model) or an affiliate redirect.
type Tool struct {
	ID                string
	Name              string
	Description       string
	TicketCost        int64
	URL               string
	IsAffiliate       bool
	PromoCode         string
	IconName          string
	Category          Category
	Model             string
	SystemPrompt      string
	UseAPI            bool
	UsageInstructions string
}

// TicketPackage is a purchasable bundle converting euros into tickets.
type TicketPackage struct {
	ID     string
	Name   string
	Amount int64
	Price  decimal.Decimal
}

// Store is the persistence contract used by the catalog.
type Store interface {
	ListTools(ctx context.Context) ([]Tool, error)
	GetTool(ctx context.Context, toolID string) (Tool, error)
	CreateTool(ctx context.Context, tool Tool) error
	UpdateTool(ctx context.Context, tool Tool) error
	DeleteTool(ctx context.Context, toolID string) error
	UpdateToolCost(ctx context.Context, toolID string, category Category, cost int64) error
	ListPackages(ctx context.Context) ([]TicketPackage, error)
	GetPackage(ctx context.Context, packageID string) (TicketPackage, error)
	UpdatePackage(ctx context.Context, packageID string, amount int64, price decimal.Decimal) error
}
