package ledger

import (
	"context"
	"errors"
	"testing"
)

const (
	caseAccountLookupError = "account lookup error"
	caseBalanceUpdateError = "balance update error"
	caseInsertEventError   = "insert event error"
	errorMismatchMessage   = "expected %v, got %v"
)

var errStoreFailure = errors.New("store failure")

func TestDebitReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(test *testing.T, store *stubStore)
		wantErr   error
	}{
		{
			name: caseAccountLookupError,
			configure: func(test *testing.T, store *stubStore) {
				store.getAccountError = errStoreFailure
			},
			wantErr: errStoreFailure,
		},
		{
			name: caseBalanceUpdateError,
			configure: func(test *testing.T, store *stubStore) {
				store.updateBalanceError = errStoreFailure
			},
			wantErr: errStoreFailure,
		},
		{
			name: caseInsertEventError,
			configure: func(test *testing.T, store *stubStore) {
				store.insertEventError = errStoreFailure
			},
			wantErr: errStoreFailure,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test, 100)
			testCase.configure(test, store)
			service := mustNewService(test, store, newStubCatalog(test))
			actor := userActor(test)
			metadata := mustMetadata(test, metadataValue)

			_, err := service.Debit(context.Background(), actor.AccountID, basicToolID, actor, metadata)
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
			}
		})
	}
}

func TestCreditReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(test *testing.T, store *stubStore)
		wantErr   error
	}{
		{
			name: caseAccountLookupError,
			configure: func(test *testing.T, store *stubStore) {
				store.getAccountError = errStoreFailure
			},
			wantErr: errStoreFailure,
		},
		{
			name: caseInsertEventError,
			configure: func(test *testing.T, store *stubStore) {
				store.insertEventError = errStoreFailure
			},
			wantErr: errStoreFailure,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test, 100)
			testCase.configure(test, store)
			service := mustNewService(test, store, newStubCatalog(test))
			actor := userActor(test)
			metadata := mustMetadata(test, metadataValue)

			_, err := service.Credit(context.Background(), actor.AccountID, packageFiftyID, actor, metadata)
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
			}
		})
	}
}

func TestBalanceReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 100)
	store.getAccountError = errStoreFailure
	service := mustNewService(test, store, newStubCatalog(test))

	_, err := service.Balance(context.Background(), mustAccountID(test, accountIDValue))
	if !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
}

func TestListEventsReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 100)
	store.listEventsError = errStoreFailure
	service := mustNewService(test, store, newStubCatalog(test))
	actor := userActor(test)

	_, err := service.ListEvents(context.Background(), actor.AccountID, actor, 0, 10)
	if !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
}

func TestRefundReturnsEventLookupErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 100)
	store.getEventError = errStoreFailure
	service := mustNewService(test, store, newStubCatalog(test))
	admin := adminActor(test)
	metadata := mustMetadata(test, metadataValue)
	eventID, err := NewEventID("event-1")
	if err != nil {
		test.Fatalf("event id: %v", err)
	}

	_, err = service.Refund(context.Background(), mustAccountID(test, accountIDValue), eventID, admin, metadata)
	if !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
}

func TestMutationsRejectUnknownAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test, 100)
	service := mustNewService(test, store, newStubCatalog(test))
	metadata := mustMetadata(test, metadataValue)
	stranger := Actor{AccountID: mustAccountID(test, otherAccountValue)}

	_, err := service.Debit(context.Background(), stranger.AccountID, basicToolID, stranger, metadata)
	if !errors.Is(err, ErrAccountNotFound) {
		test.Fatalf(errorMismatchMessage, ErrAccountNotFound, err)
	}
}
