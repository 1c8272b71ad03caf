package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service is the single authority over ticket balances. Every mutation runs
// inside one store transaction that locks the account row, re-checks the
// balance, writes the new balance under a version check, and appends the
// event. Storage contention is retried a bounded number of times; every
// other failure is terminal.
type Service struct {
	store           Store
	catalog         Catalog
	nowFn           func() int64
	logger          OperationLogger
	conflictRetries int
	conflictBackoff time.Duration
}

// NewService wires a Service.
func NewService(store Store, catalog Catalog, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:           store,
		catalog:         catalog,
		nowFn:           now,
		conflictRetries: defaultConflictRetries,
		conflictBackoff: defaultConflictBackoff,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Balance returns the current ticket balance for an account.
func (service *Service) Balance(ctx context.Context, accountID AccountID) (TicketCount, error) {
	account, err := service.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, service.finishOperation(ctx, operationBalance, accountID, Actor{}, OperationLog{}, err)
	}
	return account.Balance, service.finishOperation(ctx, operationBalance, accountID, Actor{}, OperationLog{
		ResultingBalance: account.Balance,
	}, nil)
}

// Credit increases the balance by the amount of the referenced package and
// appends a purchase event. The package amount is resolved here, never
// taken from the caller. Credit is invoked only after payment capture has
// been confirmed upstream.
func (service *Service) Credit(ctx context.Context, accountID AccountID, packageID string, actor Actor, metadata MetadataJSON) (MutationResult, error) {
	amount, err := service.catalog.PackageAmount(ctx, packageID)
	if err != nil {
		return MutationResult{}, service.finishOperation(ctx, operationCredit, accountID, actor, OperationLog{Reference: packageID}, err)
	}
	if amount <= 0 {
		err = fmt.Errorf("%w: package %q grants no tickets", ErrInvalidTicketCount, packageID)
		return MutationResult{}, service.finishOperation(ctx, operationCredit, accountID, actor, OperationLog{Reference: packageID}, err)
	}

	var result MutationResult
	var delta int64
	operationError := service.runMutation(ctx, func(ctx context.Context, txStore Store) error {
		account, err := txStore.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account.IsBanned {
			return ErrAccountBanned
		}
		newBalance := account.Balance + amount
		delta = amount.Int64()
		return service.applyMutation(ctx, txStore, account, newBalance, EventInput{
			AccountID:        accountID,
			Kind:             EventPurchase,
			Delta:            delta,
			ResultingBalance: newBalance,
			Reference:        packageID,
			ActorID:          actor.AccountID,
			Metadata:         metadata,
			CreatedUnixUTC:   service.nowFn(),
		}, &result)
	})
	return result, service.finishOperation(ctx, operationCredit, accountID, actor, OperationLog{
		Kind:             EventPurchase,
		Delta:            delta,
		ResultingBalance: result.NewBalance,
		Reference:        packageID,
	}, operationError)
}

// Debit decreases the balance by the referenced tool's cost and appends a
// debit event. The balance check and the write are one indivisible step:
// two concurrent debits racing over the last tickets resolve to exactly one
// success. Affiliate and zero-cost tools succeed with a delta-zero event so
// usage statistics stay complete.
func (service *Service) Debit(ctx context.Context, accountID AccountID, toolID string, actor Actor, metadata MetadataJSON) (MutationResult, error) {
	pricing, err := service.catalog.ToolPricing(ctx, toolID)
	if err != nil {
		return MutationResult{}, service.finishOperation(ctx, operationDebit, accountID, actor, OperationLog{Reference: toolID}, err)
	}
	cost := pricing.TicketCost
	if pricing.IsAffiliate {
		cost = 0
	}

	var result MutationResult
	operationError := service.runMutation(ctx, func(ctx context.Context, txStore Store) error {
		account, err := txStore.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account.IsBanned {
			return ErrAccountBanned
		}
		if account.Balance < cost {
			return ErrInsufficientTickets
		}
		newBalance := account.Balance - cost
		return service.applyMutation(ctx, txStore, account, newBalance, EventInput{
			AccountID:        accountID,
			Kind:             EventDebit,
			Delta:            -cost.Int64(),
			ResultingBalance: newBalance,
			Reference:        toolID,
			ActorID:          actor.AccountID,
			Metadata:         metadata,
			CreatedUnixUTC:   service.nowFn(),
		}, &result)
	})
	return result, service.finishOperation(ctx, operationDebit, accountID, actor, OperationLog{
		Kind:             EventDebit,
		Delta:            -cost.Int64(),
		ResultingBalance: result.NewBalance,
		Reference:        toolID,
	}, operationError)
}

// AdminAdjust sets the balance to an explicit value. The event records the
// delta actually applied so the replay invariant survives the override.
func (service *Service) AdminAdjust(ctx context.Context, accountID AccountID, newBalance TicketCount, actor Actor, metadata MetadataJSON) (MutationResult, error) {
	if !actor.IsAdmin {
		return MutationResult{}, service.finishOperation(ctx, operationAdminAdjust, accountID, actor, OperationLog{}, ErrForbidden)
	}

	var result MutationResult
	var delta int64
	operationError := service.runMutation(ctx, func(ctx context.Context, txStore Store) error {
		account, err := txStore.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		delta = newBalance.Int64() - account.Balance.Int64()
		return service.applyMutation(ctx, txStore, account, newBalance, EventInput{
			AccountID:        accountID,
			Kind:             EventAdminAdjustment,
			Delta:            delta,
			ResultingBalance: newBalance,
			ActorID:          actor.AccountID,
			Metadata:         metadata,
			CreatedUnixUTC:   service.nowFn(),
		}, &result)
	})
	return result, service.finishOperation(ctx, operationAdminAdjust, accountID, actor, OperationLog{
		Kind:             EventAdminAdjustment,
		Delta:            delta,
		ResultingBalance: result.NewBalance,
	}, operationError)
}

// Refund credits back a prior debit, referencing the original event.
// Admin-only; delta-zero debits have nothing to give back, and a debit
// can be refunded at most once.
func (service *Service) Refund(ctx context.Context, accountID AccountID, debitEventID EventID, actor Actor, metadata MetadataJSON) (MutationResult, error) {
	if !actor.IsAdmin {
		return MutationResult{}, service.finishOperation(ctx, operationRefund, accountID, actor, OperationLog{Reference: debitEventID.String()}, ErrForbidden)
	}

	var result MutationResult
	var delta int64
	operationError := service.runMutation(ctx, func(ctx context.Context, txStore Store) error {
		account, err := txStore.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		original, err := txStore.GetEvent(ctx, accountID, debitEventID)
		if err != nil {
			return err
		}
		if original.Kind != EventDebit || original.Delta >= 0 {
			return fmt.Errorf("%w: event %s is a %s", ErrEventNotRefundable, debitEventID, original.Kind)
		}
		alreadyRefunded, err := txStore.RefundExists(ctx, accountID, debitEventID)
		if err != nil {
			return err
		}
		if alreadyRefunded {
			return fmt.Errorf("%w: event %s was already refunded", ErrEventNotRefundable, debitEventID)
		}
		delta = -original.Delta
		newBalance := account.Balance + TicketCount(delta)
		return service.applyMutation(ctx, txStore, account, newBalance, EventInput{
			AccountID:        accountID,
			Kind:             EventRefund,
			Delta:            delta,
			ResultingBalance: newBalance,
			Reference:        debitEventID.String(),
			ActorID:          actor.AccountID,
			Metadata:         metadata,
			CreatedUnixUTC:   service.nowFn(),
		}, &result)
	})
	return result, service.finishOperation(ctx, operationRefund, accountID, actor, OperationLog{
		Kind:             EventRefund,
		Delta:            delta,
		ResultingBalance: result.NewBalance,
		Reference:        debitEventID.String(),
	}, operationError)
}

// ListEvents returns an account's events in ascending commit order.
// Non-admin actors may only list their own account.
func (service *Service) ListEvents(ctx context.Context, accountID AccountID, actor Actor, afterUnixUTC int64, limit int) ([]Event, error) {
	if !actor.IsAdmin && actor.AccountID != accountID {
		return nil, WrapError(operationListEvents, "account", "forbidden", ErrForbidden)
	}
	if _, err := service.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return service.store.ListEvents(ctx, accountID, afterUnixUTC, limit)
}

// applyMutation performs the write half of a mutation: the version-checked
// balance update followed by the event append.
func (service *Service) applyMutation(ctx context.Context, txStore Store, account Account, newBalance TicketCount, input EventInput, result *MutationResult) error {
	if newBalance < 0 {
		return WrapError(input.Kind.String(), "balance", "negative", ErrInvalidBalance)
	}
	if err := txStore.UpdateBalance(ctx, account.AccountID, newBalance, account.Version); err != nil {
		return err
	}
	eventID, err := txStore.InsertEvent(ctx, input)
	if err != nil {
		return err
	}
	result.NewBalance = newBalance
	result.EventID = eventID
	return nil
}

// runMutation executes fn inside a transaction, retrying bounded times on
// storage contention. Only ErrStorageConflict is eligible for retry;
// validation and authorization failures surface immediately.
func (service *Service) runMutation(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	var lastErr error
	for attempt := 0; attempt < service.conflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(service.conflictBackoff * time.Duration(attempt)):
			}
		}
		lastErr = service.store.WithTx(ctx, fn)
		if lastErr == nil || !errors.Is(lastErr, ErrStorageConflict) {
			return lastErr
		}
	}
	return WrapError("mutation", "storage", "retries_exhausted", fmt.Errorf("%w: %v", ErrStorageUnavailable, lastErr))
}

func (service *Service) finishOperation(ctx context.Context, operation string, accountID AccountID, actor Actor, entry OperationLog, operationError error) error {
	entry.Operation = operation
	entry.AccountID = accountID
	entry.ActorID = actor.AccountID
	entry.Error = operationError
	service.logOperation(ctx, entry)
	return operationError
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
