package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents the accounts table. Balance is only ever written by
// the ledger's version-checked update; Version increments on every write.
type Account struct {
	AccountID       string  `gorm:"type:uuid;primaryKey"`
	Email           *string `gorm:"uniqueIndex"`
	DisplayName     string  `gorm:"not null"`
	PasswordHash    string  `gorm:"not null"`
	Balance         int64   `gorm:"not null"`
	StartingBalance int64   `gorm:"not null"`
	Version         int64   `gorm:"not null;default:0"`
	IsAdmin         bool    `gorm:"not null;default:false"`
	IsBanned        bool    `gorm:"not null;default:false"`
	AnonymizedAt    *time.Time
	CreatedAt       time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return nil
}

// LedgerEvent mirrors the ledger_events table. The integer primary key
// fixes commit order; EventID is the stable external identifier.
type LedgerEvent struct {
	ID               int64          `gorm:"primaryKey;autoIncrement"`
	EventID          string         `gorm:"type:uuid;not null;uniqueIndex"`
	AccountID        string         `gorm:"type:uuid;not null;index:idx_events_account_created,priority:1"`
	Kind             string         `gorm:"not null"`
	Delta            int64          `gorm:"not null"`
	ResultingBalance int64          `gorm:"not null"`
	Reference        string         `gorm:""`
	ActorID          string         `gorm:"type:uuid;not null"`
	Metadata         datatypes.JSON `gorm:"not null"`
	CreatedAt        time.Time      `gorm:"not null;index:idx_events_account_created,priority:2"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }

func (event *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	return nil
}

// Tool mirrors the tools table of the catalog.
type Tool struct {
	ToolID            string `gorm:"primaryKey"`
	Name              string `gorm:"not null"`
	Description       string `gorm:"not null"`
	TicketCost        int64  `gorm:"not null"`
	URL               string
	IsAffiliate       bool   `gorm:"not null;default:false"`
	PromoCode         string
	IconName          string
	Category          string `gorm:"not null;index"`
	Model             string
	SystemPrompt      string
	UseAPI            bool `gorm:"not null;default:false"`
	UsageInstructions string
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (Tool) TableName() string { return "tools" }

// TicketPackage mirrors the ticket_packages table.
type TicketPackage struct {
	PackageID string          `gorm:"primaryKey"`
	Name      string          `gorm:"not null"`
	Amount    int64           `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (TicketPackage) TableName() string { return "ticket_packages" }

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&Account{}, &LedgerEvent{}, &Tool{}, &TicketPackage{}}
}
