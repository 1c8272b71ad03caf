package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMutationRetriesOnStorageConflict(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 100)
	store.conflictsToInject = 2
	service := mustNewService(test, store, newStubCatalog(test), WithConflictRetryPolicy(3, 0))
	actor := userActor(test)
	metadata := mustMetadata(test, metadataValue)

	result, err := service.Debit(context.Background(), actor.AccountID, basicToolID, actor, metadata)
	if err != nil {
		test.Fatalf("debit after retries: %v", err)
	}
	if result.NewBalance != 90 {
		test.Fatalf("expected balance 90, got %d", result.NewBalance)
	}
	if store.txCalls != 3 {
		test.Fatalf("expected 3 transaction attempts, got %d", store.txCalls)
	}
	if len(store.events) != 1 {
		test.Fatalf("expected one event after retry, got %d", len(store.events))
	}
}

func TestMutationSurfacesUnavailableAfterRetryBudget(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 100)
	store.conflictsToInject = 10
	service := mustNewService(test, store, newStubCatalog(test), WithConflictRetryPolicy(3, 0))
	actor := userActor(test)
	metadata := mustMetadata(test, metadataValue)

	_, err := service.Debit(context.Background(), actor.AccountID, basicToolID, actor, metadata)
	if !errors.Is(err, ErrStorageUnavailable) {
		test.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if store.txCalls != 3 {
		test.Fatalf("expected 3 transaction attempts, got %d", store.txCalls)
	}
	if len(store.events) != 0 || store.account.Balance != 100 {
		test.Fatalf("expected account untouched, got balance %d with %d events", store.account.Balance, len(store.events))
	}
}

func TestMutationDoesNotRetryDomainErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 5)
	service := mustNewService(test, store, newStubCatalog(test), WithConflictRetryPolicy(3, 0))
	actor := userActor(test)
	metadata := mustMetadata(test, metadataValue)

	_, err := service.Debit(context.Background(), actor.AccountID, basicToolID, actor, metadata)
	if !errors.Is(err, ErrInsufficientTickets) {
		test.Fatalf("expected ErrInsufficientTickets, got %v", err)
	}
	if store.txCalls != 1 {
		test.Fatalf("expected a single attempt, got %d", store.txCalls)
	}
}

func TestMutationHonorsContextDuringBackoff(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 100)
	store.conflictsToInject = 10
	service := mustNewService(test, store, newStubCatalog(test), WithConflictRetryPolicy(5, time.Minute))
	actor := userActor(test)
	metadata := mustMetadata(test, metadataValue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Debit(ctx, actor.AccountID, basicToolID, actor, metadata)
	if !errors.Is(err, context.Canceled) {
		test.Fatalf("expected context.Canceled, got %v", err)
	}
}
