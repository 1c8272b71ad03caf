package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autocreateur/ticketd/internal/directory"
	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testEmail       = "alice@example.com"
	testDisplayName = "Alice"
	testHash        = "$2a$10$placeholderplaceholderplace"
	testBalance     = int64(100)
)

func newTestStore(test *testing.T) *Store {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func createTestAccount(test *testing.T, store *Store) directory.Profile {
	test.Helper()
	profile, err := store.CreateProfile(context.Background(), directory.NewProfile{
		Email:           testEmail,
		DisplayName:     testDisplayName,
		PasswordHash:    testHash,
		StartingBalance: testBalance,
	})
	if err != nil {
		test.Fatalf("create profile: %v", err)
	}
	return profile
}

func mustLedgerAccountID(test *testing.T, raw string) ledger.AccountID {
	test.Helper()
	accountID, err := ledger.NewAccountID(raw)
	if err != nil {
		test.Fatalf("account id: %v", err)
	}
	return accountID
}

func mustEventMetadata(test *testing.T, raw string) ledger.MetadataJSON {
	test.Helper()
	metadata, err := ledger.NewMetadataJSON(raw)
	if err != nil {
		test.Fatalf("metadata: %v", err)
	}
	return metadata
}

func insertTestEvent(test *testing.T, store *Store, accountID ledger.AccountID, kind ledger.EventKind, delta int64, resulting int64, createdAt int64) ledger.EventID {
	test.Helper()
	balance, err := ledger.NewTicketCount(resulting)
	if err != nil {
		test.Fatalf("resulting balance: %v", err)
	}
	eventID, err := store.InsertEvent(context.Background(), ledger.EventInput{
		AccountID:        accountID,
		Kind:             kind,
		Delta:            delta,
		ResultingBalance: balance,
		ActorID:          accountID,
		Metadata:         mustEventMetadata(test, "{}"),
		CreatedUnixUTC:   createdAt,
	})
	if err != nil {
		test.Fatalf("insert event: %v", err)
	}
	return eventID
}

func TestCreateProfileSetsStartingBalance(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)

	if profile.AccountID == "" {
		test.Fatalf("expected generated account id")
	}
	if profile.Tickets != testBalance {
		test.Fatalf("expected %d tickets, got %d", testBalance, profile.Tickets)
	}

	account, err := store.GetAccount(context.Background(), mustLedgerAccountID(test, profile.AccountID))
	if err != nil {
		test.Fatalf("get account: %v", err)
	}
	if account.Balance.Int64() != testBalance || account.StartingBalance.Int64() != testBalance {
		test.Fatalf("unexpected account: %+v", account)
	}
	if account.Version != 0 {
		test.Fatalf("expected version 0, got %d", account.Version)
	}
}

func TestCreateProfileRejectsDuplicateEmail(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	createTestAccount(test, store)

	_, err := store.CreateProfile(context.Background(), directory.NewProfile{
		Email:           testEmail,
		DisplayName:     "Other",
		PasswordHash:    testHash,
		StartingBalance: testBalance,
	})
	if !errors.Is(err, directory.ErrEmailTaken) {
		test.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateBalanceEnforcesVersionCheck(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)
	newBalance, err := ledger.NewTicketCount(90)
	if err != nil {
		test.Fatalf("ticket count: %v", err)
	}

	if err := store.UpdateBalance(context.Background(), accountID, newBalance, 0); err != nil {
		test.Fatalf("first update: %v", err)
	}
	account, err := store.GetAccount(context.Background(), accountID)
	if err != nil {
		test.Fatalf("get account: %v", err)
	}
	if account.Balance.Int64() != 90 || account.Version != 1 {
		test.Fatalf("unexpected account after update: %+v", account)
	}

	// A writer still holding the old version must lose.
	err = store.UpdateBalance(context.Background(), accountID, newBalance, 0)
	if !errors.Is(err, ledger.ErrStorageConflict) {
		test.Fatalf("expected ErrStorageConflict, got %v", err)
	}
}

func TestListEventsReturnsCommitOrder(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)

	// Same created_at second on purpose; the integer key still orders them.
	first := insertTestEvent(test, store, accountID, ledger.EventPurchase, 50, 150, 1000)
	second := insertTestEvent(test, store, accountID, ledger.EventDebit, -10, 140, 1000)
	third := insertTestEvent(test, store, accountID, ledger.EventAdminAdjustment, -140, 0, 1000)

	events, err := store.ListEvents(context.Background(), accountID, 0, 10)
	if err != nil {
		test.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		test.Fatalf("expected 3 events, got %d", len(events))
	}
	got := []ledger.EventID{events[0].EventID, events[1].EventID, events[2].EventID}
	want := []ledger.EventID{first, second, third}
	for i := range want {
		if got[i] != want[i] {
			test.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestListEventsHonorsAfterAndLimit(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)

	insertTestEvent(test, store, accountID, ledger.EventPurchase, 50, 150, 1000)
	insertTestEvent(test, store, accountID, ledger.EventDebit, -10, 140, 2000)
	insertTestEvent(test, store, accountID, ledger.EventDebit, -10, 130, 3000)

	events, err := store.ListEvents(context.Background(), accountID, 1000, 0)
	if err != nil {
		test.Fatalf("list after: %v", err)
	}
	if len(events) != 2 {
		test.Fatalf("expected 2 events after cursor, got %d", len(events))
	}

	events, err = store.ListEvents(context.Background(), accountID, 0, 1)
	if err != nil {
		test.Fatalf("list limited: %v", err)
	}
	if len(events) != 1 || events[0].Kind != ledger.EventPurchase {
		test.Fatalf("expected first event only, got %+v", events)
	}
}

func TestGetEventScopedToAccount(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)
	eventID := insertTestEvent(test, store, accountID, ledger.EventDebit, -10, 90, 1000)

	event, err := store.GetEvent(context.Background(), accountID, eventID)
	if err != nil {
		test.Fatalf("get event: %v", err)
	}
	if event.Delta != -10 || event.Kind != ledger.EventDebit {
		test.Fatalf("unexpected event: %+v", event)
	}

	otherID := mustLedgerAccountID(test, "00000000-0000-0000-0000-000000000000")
	if _, err := store.GetEvent(context.Background(), otherID, eventID); !errors.Is(err, ledger.ErrUnknownEvent) {
		test.Fatalf("expected ErrUnknownEvent for foreign account, got %v", err)
	}
}

func TestRefundExistsMatchesReference(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)
	debitID := insertTestEvent(test, store, accountID, ledger.EventDebit, -10, 90, 1000)

	exists, err := store.RefundExists(context.Background(), accountID, debitID)
	if err != nil {
		test.Fatalf("refund exists: %v", err)
	}
	if exists {
		test.Fatalf("expected no refund before one is recorded")
	}

	restored, err := ledger.NewTicketCount(100)
	if err != nil {
		test.Fatalf("resulting balance: %v", err)
	}
	if _, err := store.InsertEvent(context.Background(), ledger.EventInput{
		AccountID:        accountID,
		Kind:             ledger.EventRefund,
		Delta:            10,
		ResultingBalance: restored,
		Reference:        debitID.String(),
		ActorID:          accountID,
		Metadata:         mustEventMetadata(test, "{}"),
		CreatedUnixUTC:   2000,
	}); err != nil {
		test.Fatalf("insert refund: %v", err)
	}

	exists, err = store.RefundExists(context.Background(), accountID, debitID)
	if err != nil {
		test.Fatalf("refund exists: %v", err)
	}
	if !exists {
		test.Fatalf("expected refund referencing %s to be found", debitID)
	}
}

func TestInsertEventDefaultsCreatedAt(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)

	before := time.Now().Add(-time.Minute).Unix()
	eventID := insertTestEvent(test, store, accountID, ledger.EventDebit, -10, 90, 0)

	event, err := store.GetEvent(context.Background(), accountID, eventID)
	if err != nil {
		test.Fatalf("get event: %v", err)
	}
	if event.CreatedUnixUTC < before {
		test.Fatalf("expected a current timestamp for zero input, got %d", event.CreatedUnixUTC)
	}
}

func TestTransactionRollsBackOnFailure(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)
	failure := errors.New("abort")

	err := store.WithTx(context.Background(), func(ctx context.Context, txStore ledger.Store) error {
		balance, err := ledger.NewTicketCount(0)
		if err != nil {
			return err
		}
		if err := txStore.UpdateBalance(ctx, accountID, balance, 0); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		test.Fatalf("expected injected failure, got %v", err)
	}

	account, err := store.GetAccount(context.Background(), accountID)
	if err != nil {
		test.Fatalf("get account: %v", err)
	}
	if account.Balance.Int64() != testBalance || account.Version != 0 {
		test.Fatalf("expected rollback, got %+v", account)
	}
}

func TestAnonymizeStripsIdentityKeepsEvents(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)
	accountID := mustLedgerAccountID(test, profile.AccountID)
	insertTestEvent(test, store, accountID, ledger.EventDebit, -10, 90, 1000)

	if err := store.Anonymize(context.Background(), profile.AccountID); err != nil {
		test.Fatalf("anonymize: %v", err)
	}

	anonymized, err := store.GetProfile(context.Background(), profile.AccountID)
	if err != nil {
		test.Fatalf("get profile: %v", err)
	}
	if !anonymized.Anonymized || !anonymized.IsBanned {
		test.Fatalf("expected anonymized banned profile, got %+v", anonymized)
	}
	if anonymized.Email != "" || anonymized.DisplayName != "" {
		test.Fatalf("identity not stripped: %+v", anonymized)
	}

	events, err := store.ListEvents(context.Background(), accountID, 0, 10)
	if err != nil {
		test.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		test.Fatalf("expected history preserved, got %d events", len(events))
	}

	// Second anonymize finds nothing left to strip.
	if err := store.Anonymize(context.Background(), profile.AccountID); !errors.Is(err, directory.ErrProfileNotFound) {
		test.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	// The freed email is reusable by a new registration.
	if _, err := store.CreateProfile(context.Background(), directory.NewProfile{
		Email:           testEmail,
		DisplayName:     "New Alice",
		PasswordHash:    testHash,
		StartingBalance: testBalance,
	}); err != nil {
		test.Fatalf("re-register freed email: %v", err)
	}
}

func TestGetCredentialReturnsHash(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	createTestAccount(test, store)

	profile, hash, err := store.GetCredential(context.Background(), testEmail)
	if err != nil {
		test.Fatalf("get credential: %v", err)
	}
	if hash != testHash {
		test.Fatalf("expected stored hash, got %q", hash)
	}
	if profile.Email != testEmail {
		test.Fatalf("unexpected profile: %+v", profile)
	}

	if _, _, err := store.GetCredential(context.Background(), "nobody@example.com"); !errors.Is(err, directory.ErrProfileNotFound) {
		test.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSetBannedFlipsFlag(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	profile := createTestAccount(test, store)

	if err := store.SetBanned(context.Background(), profile.AccountID, true); err != nil {
		test.Fatalf("ban: %v", err)
	}
	banned, err := store.GetProfile(context.Background(), profile.AccountID)
	if err != nil {
		test.Fatalf("get profile: %v", err)
	}
	if !banned.IsBanned {
		test.Fatalf("expected banned profile")
	}

	if err := store.SetBanned(context.Background(), "missing", true); !errors.Is(err, directory.ErrProfileNotFound) {
		test.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
