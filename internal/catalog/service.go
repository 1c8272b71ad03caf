package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/shopspring/decimal"
)

// Service exposes the tool and package catalog. Reads are open; mutations
// require an admin actor. It also implements ledger.Catalog so the ledger
// re-resolves costs at the moment of mutation.
type Service struct {
	store Store
}

// NewService wires a catalog Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ToolPricing implements ledger.Catalog.
func (service *Service) ToolPricing(ctx context.Context, toolID string) (ledger.ToolPricing, error) {
	tool, err := service.store.GetTool(ctx, toolID)
	if err != nil {
		return ledger.ToolPricing{}, err
	}
	cost, err := ledger.NewTicketCount(tool.TicketCost)
	if err != nil {
		return ledger.ToolPricing{}, err
	}
	return ledger.ToolPricing{TicketCost: cost, IsAffiliate: tool.IsAffiliate}, nil
}

// PackageAmount implements ledger.Catalog.
func (service *Service) PackageAmount(ctx context.Context, packageID string) (ledger.TicketCount, error) {
	pkg, err := service.store.GetPackage(ctx, packageID)
	if err != nil {
		return 0, err
	}
	return ledger.NewTicketCount(pkg.Amount)
}

// ListTools returns every tool, both categories.
func (service *Service) ListTools(ctx context.Context) ([]Tool, error) {
	return service.store.ListTools(ctx)
}

// GetTool returns one tool by id.
func (service *Service) GetTool(ctx context.Context, toolID string) (Tool, error) {
	return service.store.GetTool(ctx, toolID)
}

// ListPackages returns every purchasable package.
func (service *Service) ListPackages(ctx context.Context) ([]TicketPackage, error) {
	return service.store.ListPackages(ctx)
}

// GetPackage returns one package by id.
func (service *Service) GetPackage(ctx context.Context, packageID string) (TicketPackage, error) {
	return service.store.GetPackage(ctx, packageID)
}

// AddTool creates a tool; admin only.
func (service *Service) AddTool(ctx context.Context, tool Tool, actor ledger.Actor) error {
	if !actor.IsAdmin {
		return ledger.ErrForbidden
	}
	if err := validateTool(tool); err != nil {
		return err
	}
	return service.store.CreateTool(ctx, tool)
}

// UpdateTool rewrites a tool definition; admin only.
func (service *Service) UpdateTool(ctx context.Context, tool Tool, actor ledger.Actor) error {
	if !actor.IsAdmin {
		return ledger.ErrForbidden
	}
	if err := validateTool(tool); err != nil {
		return err
	}
	return service.store.UpdateTool(ctx, tool)
}

// DeleteTool removes a tool from the catalog; admin only. Ledger events
// referencing the tool id keep their reference.
func (service *Service) DeleteTool(ctx context.Context, toolID string, actor ledger.Actor) error {
	if !actor.IsAdmin {
		return ledger.ErrForbidden
	}
	return service.store.DeleteTool(ctx, toolID)
}

// UpdateToolCost changes a tool's ticket cost within its category; admin only.
func (service *Service) UpdateToolCost(ctx context.Context, toolID string, category Category, cost int64, actor ledger.Actor) error {
	if !actor.IsAdmin {
		return ledger.ErrForbidden
	}
	if cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidToolDefinition)
	}
	return service.store.UpdateToolCost(ctx, toolID, category, cost)
}

// UpdatePackage changes a package's ticket amount and price; admin only.
func (service *Service) UpdatePackage(ctx context.Context, packageID string, amount int64, price decimal.Decimal, actor ledger.Actor) error {
	if !actor.IsAdmin {
		return ledger.ErrForbidden
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPackageUpdate)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidPackageUpdate)
	}
	return service.store.UpdatePackage(ctx, packageID, amount, price)
}

func validateTool(tool Tool) error {
	if strings.TrimSpace(tool.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidToolDefinition)
	}
	if strings.TrimSpace(tool.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidToolDefinition)
	}
	if tool.TicketCost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidToolDefinition)
	}
	if _, err := ParseCategory(tool.Category.String()); err != nil {
		return err
	}
	return nil
}
