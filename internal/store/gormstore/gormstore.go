package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/autocreateur/ticketd/pkg/ledger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMetadataJSON      = "{}"
	pgUniqueViolationCode    = "23505"
	pgSerializationFailure   = "40001"
	pgDeadlockDetected       = "40P01"
	sqliteConstraintCode     = 19
	sqliteBusyCode           = 5
	sqliteLockedCode         = 6
	errorOperationStore      = "store"
	errorSubjectAccount      = "account"
	errorSubjectBalance      = "balance"
	errorSubjectEvent        = "event"
	errorCodeGet             = "get"
	errorCodeInsert          = "insert"
	errorCodeInvalid         = "invalid"
	errorCodeList            = "list"
	errorCodeUpdate          = "update"
	errorCodeVersionMismatch = "version_mismatch"
)

// Store implements ledger.Store (plus the directory and catalog store
// contracts) using GORM, against sqlite or postgres.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction. Contention surfacing from the
// engine is normalized to ledger.ErrStorageConflict so the service's retry
// policy can recognize it.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
	if isContention(err) {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, ledger.ErrStorageConflict)
	}
	return err
}

// GetAccount reads an account row without locking it.
func (store *Store) GetAccount(ctx context.Context, accountID ledger.AccountID) (ledger.Account, error) {
	return store.getAccount(ctx, accountID, false)
}

// GetAccountForUpdate reads an account row under a FOR UPDATE lock so
// concurrent mutations on the same account serialize.
func (store *Store) GetAccountForUpdate(ctx context.Context, accountID ledger.AccountID) (ledger.Account, error) {
	return store.getAccount(ctx, accountID, true)
}

func (store *Store) getAccount(ctx context.Context, accountID ledger.AccountID, forUpdate bool) (ledger.Account, error) {
	query := store.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model Account
	err := query.Where("account_id = ?", accountID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, ledger.ErrAccountNotFound)
		}
		if isContention(err) {
			return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, ledger.ErrStorageConflict)
		}
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(model)
}

// UpdateBalance writes the new balance guarded by the version read inside
// the same transaction. Zero rows affected means another writer got there
// first.
func (store *Store) UpdateBalance(ctx context.Context, accountID ledger.AccountID, newBalance ledger.TicketCount, expectedVersion int64) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("account_id = ? AND version = ?", accountID.String(), expectedVersion).
		Updates(map[string]any{
			"balance": newBalance.Int64(),
			"version": expectedVersion + 1,
		})
	if result.Error != nil {
		if isContention(result.Error) {
			return wrapStoreError(errorSubjectBalance, errorCodeUpdate, ledger.ErrStorageConflict)
		}
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBalance, errorCodeVersionMismatch, ledger.ErrStorageConflict)
	}
	return nil
}

// InsertEvent appends one immutable ledger event and returns its id.
func (store *Store) InsertEvent(ctx context.Context, input ledger.EventInput) (ledger.EventID, error) {
	createdAt := time.Now().UTC()
	if input.CreatedUnixUTC != 0 {
		createdAt = time.Unix(input.CreatedUnixUTC, 0).UTC()
	}
	model := LedgerEvent{
		AccountID:        input.AccountID.String(),
		Kind:             input.Kind.String(),
		Delta:            input.Delta,
		ResultingBalance: input.ResultingBalance.Int64(),
		Reference:        input.Reference,
		ActorID:          input.ActorID.String(),
		Metadata:         datatypesJSON(input.Metadata.String()),
		CreatedAt:        createdAt,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isContention(err) {
			return ledger.EventID{}, wrapStoreError(errorSubjectEvent, errorCodeInsert, ledger.ErrStorageConflict)
		}
		return ledger.EventID{}, wrapStoreError(errorSubjectEvent, errorCodeInsert, err)
	}
	eventID, err := ledger.NewEventID(model.EventID)
	if err != nil {
		return ledger.EventID{}, wrapStoreError(errorSubjectEvent, errorCodeInvalid, err)
	}
	return eventID, nil
}

// GetEvent fetches one event scoped to an account.
func (store *Store) GetEvent(ctx context.Context, accountID ledger.AccountID, eventID ledger.EventID) (ledger.Event, error) {
	var model LedgerEvent
	err := store.db.WithContext(ctx).
		Where("account_id = ? AND event_id = ?", accountID.String(), eventID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Event{}, wrapStoreError(errorSubjectEvent, errorCodeGet, ledger.ErrUnknownEvent)
		}
		return ledger.Event{}, wrapStoreError(errorSubjectEvent, errorCodeGet, err)
	}
	event, err := mapEvent(model)
	if err != nil {
		return ledger.Event{}, wrapStoreError(errorSubjectEvent, errorCodeInvalid, err)
	}
	return event, nil
}

// RefundExists reports whether a refund referencing the given debit event
// has already been committed for the account.
func (store *Store) RefundExists(ctx context.Context, accountID ledger.AccountID, debitEventID ledger.EventID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&LedgerEvent{}).
		Where("account_id = ? AND kind = ? AND reference = ?",
			accountID.String(), ledger.EventRefund.String(), debitEventID.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectEvent, errorCodeGet, err)
	}
	return count > 0, nil
}

// ListEvents returns events for an account in ascending commit order.
func (store *Store) ListEvents(ctx context.Context, accountID ledger.AccountID, afterUnixUTC int64, limit int) ([]ledger.Event, error) {
	after := time.Unix(afterUnixUTC, 0).UTC()
	query := store.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("id ASC")
	if afterUnixUTC > 0 {
		query = query.Where("created_at > ?", after)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []LedgerEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectEvent, errorCodeList, err)
	}
	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		event, err := mapEvent(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEvent, errorCodeInvalid, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func mapAccount(model Account) (ledger.Account, error) {
	accountID, err := ledger.NewAccountID(model.AccountID)
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	balance, err := ledger.NewTicketCount(model.Balance)
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	starting, err := ledger.NewTicketCount(model.StartingBalance)
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return ledger.Account{
		AccountID:       accountID,
		Balance:         balance,
		StartingBalance: starting,
		IsAdmin:         model.IsAdmin,
		IsBanned:        model.IsBanned,
		Version:         model.Version,
		CreatedUnixUTC:  model.CreatedAt.Unix(),
	}, nil
}

func mapEvent(model LedgerEvent) (ledger.Event, error) {
	eventID, err := ledger.NewEventID(model.EventID)
	if err != nil {
		return ledger.Event{}, err
	}
	accountID, err := ledger.NewAccountID(model.AccountID)
	if err != nil {
		return ledger.Event{}, err
	}
	kind, err := ledger.ParseEventKind(model.Kind)
	if err != nil {
		return ledger.Event{}, err
	}
	resulting, err := ledger.NewTicketCount(model.ResultingBalance)
	if err != nil {
		return ledger.Event{}, err
	}
	actorID, err := ledger.NewAccountID(model.ActorID)
	if err != nil {
		return ledger.Event{}, err
	}
	metadata, err := ledger.NewMetadataJSON(string(model.Metadata))
	if err != nil {
		return ledger.Event{}, err
	}
	return ledger.Event{
		EventID:          eventID,
		AccountID:        accountID,
		Kind:             kind,
		Delta:            model.Delta,
		ResultingBalance: resulting,
		Reference:        model.Reference,
		ActorID:          actorID,
		Metadata:         metadata,
		CreatedUnixUTC:   model.CreatedAt.Unix(),
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isContention(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ledger.ErrStorageConflict) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xFF
		return code == sqliteBusyCode || code == sqliteLockedCode
	}
	return false
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
