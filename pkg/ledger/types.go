package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TicketCount is a non-negative number of tickets.
type TicketCount int64

// NewTicketCount validates a ticket count (balances and costs are never negative).
func NewTicketCount(raw int64) (TicketCount, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidTicketCount)
	}
	return TicketCount(raw), nil
}

// Int64 returns the raw count.
func (count TicketCount) Int64() int64 {
	return int64(count)
}

// AccountID identifies a ticket account.
type AccountID struct {
	value string
}

// NewAccountID validates and normalizes an account id.
func NewAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AccountID{}, fmt.Errorf("%w: empty value", ErrInvalidAccountID)
	}
	return AccountID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AccountID) String() string {
	return id.value
}

// EventID identifies a ledger event.
type EventID struct {
	value string
}

// NewEventID validates and normalizes an event id.
func NewEventID(raw string) (EventID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EventID{}, fmt.Errorf("%w: empty value", ErrInvalidEventID)
	}
	return EventID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id EventID) String() string {
	return id.value
}

// MetadataJSON stores arbitrary event metadata.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates metadata (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	return metadata.value
}

// Actor is the resolved identity performing an operation.
type Actor struct {
	AccountID AccountID
	IsAdmin   bool
}

// EventKind enumerates ledger event kinds.
type EventKind string

const (
	EventPurchase        EventKind = "purchase"
	EventDebit           EventKind = "debit"
	EventAdminAdjustment EventKind = "admin_adjustment"
	EventRefund          EventKind = "refund"
)

// ParseEventKind validates a stored event kind.
func ParseEventKind(raw string) (EventKind, error) {
	switch EventKind(raw) {
	case EventPurchase, EventDebit, EventAdminAdjustment, EventRefund:
		return EventKind(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEventKind, raw)
}

// String returns the stored representation.
func (kind EventKind) String() string {
	return string(kind)
}

// Event is a single immutable line in the ledger. Delta is the signed
// ticket change; ResultingBalance is the account balance immediately
// after the event was committed.
type Event struct {
	EventID          EventID
	AccountID        AccountID
	Kind             EventKind
	Delta            int64
	ResultingBalance TicketCount
	Reference        string
	ActorID          AccountID
	Metadata         MetadataJSON
	CreatedUnixUTC   int64
}

// Account is the ledger's view of one account row.
type Account struct {
	AccountID       AccountID
	Balance         TicketCount
	StartingBalance TicketCount
	IsAdmin         bool
	IsBanned        bool
	Version         int64
	CreatedUnixUTC  int64
}

// MutationResult reports the outcome of a successful balance mutation.
type MutationResult struct {
	NewBalance TicketCount
	EventID    EventID
}

// ToolPricing is what the ledger needs to know about a tool at debit time.
type ToolPricing struct {
	TicketCost  TicketCount
	IsAffiliate bool
}

// Catalog resolves references at the moment of mutation. Costs supplied by
// callers are never trusted; the ledger always re-resolves here.
type Catalog interface {
	ToolPricing(ctx context.Context, toolID string) (ToolPricing, error)
	PackageAmount(ctx context.Context, packageID string) (TicketCount, error)
}

// EventInput carries the fields of an event to be appended; the store
// assigns the event id.
type EventInput struct {
	AccountID        AccountID
	Kind             EventKind
	Delta            int64
	ResultingBalance TicketCount
	Reference        string
	ActorID          AccountID
	Metadata         MetadataJSON
	CreatedUnixUTC   int64
}

// Store is the persistence contract used by Service. Implementations must
// guarantee that GetAccountForUpdate blocks concurrent writers on the same
// account until the surrounding transaction ends, and that UpdateBalance
// fails with ErrStorageConflict when expectedVersion no longer matches.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetAccount(ctx context.Context, accountID AccountID) (Account, error)
	GetAccountForUpdate(ctx context.Context, accountID AccountID) (Account, error)
	UpdateBalance(ctx context.Context, accountID AccountID, newBalance TicketCount, expectedVersion int64) error
	InsertEvent(ctx context.Context, input EventInput) (EventID, error)
	GetEvent(ctx context.Context, accountID AccountID, eventID EventID) (Event, error)
	RefundExists(ctx context.Context, accountID AccountID, debitEventID EventID) (bool, error)
	ListEvents(ctx context.Context, accountID AccountID, afterUnixUTC int64, limit int) ([]Event, error)
}
