package gormstore

import (
	"context"
	"errors"
	"testing"

	"github.com/autocreateur/ticketd/internal/catalog"
	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/shopspring/decimal"
)

func seedTool(test *testing.T, store *Store) catalog.Tool {
	test.Helper()
	tool := catalog.Tool{
		ID:           "landing-generator",
		Name:         "Générateur de landing page",
		Description:  "Génère une page d'atterrissage complète.",
		TicketCost:   10,
		Category:     catalog.CategoryDevelopment,
		Model:        "gpt-4",
		SystemPrompt: "Tu es un expert en création de landing pages.",
		UseAPI:       true,
	}
	if err := store.CreateTool(context.Background(), tool); err != nil {
		test.Fatalf("create tool: %v", err)
	}
	return tool
}

func seedPackage(test *testing.T, store *Store, packageID string, amount int64, price string) {
	test.Helper()
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		test.Fatalf("price: %v", err)
	}
	model := TicketPackage{
		PackageID: packageID,
		Name:      "Pack " + packageID,
		Amount:    amount,
		Price:     parsed,
	}
	if err := store.db.Create(&model).Error; err != nil {
		test.Fatalf("create package: %v", err)
	}
}

func TestToolRoundTrip(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	seeded := seedTool(test, store)

	tool, err := store.GetTool(context.Background(), seeded.ID)
	if err != nil {
		test.Fatalf("get tool: %v", err)
	}
	if tool != seeded {
		test.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", seeded, tool)
	}

	if _, err := store.GetTool(context.Background(), "missing"); !errors.Is(err, ledger.ErrUnknownTool) {
		test.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestUpdateToolCostScopedToCategory(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	seeded := seedTool(test, store)

	err := store.UpdateToolCost(context.Background(), seeded.ID, catalog.CategoryMarketing, 99)
	if !errors.Is(err, ledger.ErrUnknownTool) {
		test.Fatalf("expected ErrUnknownTool for wrong category, got %v", err)
	}

	if err := store.UpdateToolCost(context.Background(), seeded.ID, catalog.CategoryDevelopment, 25); err != nil {
		test.Fatalf("update cost: %v", err)
	}
	tool, err := store.GetTool(context.Background(), seeded.ID)
	if err != nil {
		test.Fatalf("get tool: %v", err)
	}
	if tool.TicketCost != 25 {
		test.Fatalf("expected cost 25, got %d", tool.TicketCost)
	}
}

func TestDeleteTool(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	seeded := seedTool(test, store)

	if err := store.DeleteTool(context.Background(), seeded.ID); err != nil {
		test.Fatalf("delete tool: %v", err)
	}
	if _, err := store.GetTool(context.Background(), seeded.ID); !errors.Is(err, ledger.ErrUnknownTool) {
		test.Fatalf("expected ErrUnknownTool after delete, got %v", err)
	}
	if err := store.DeleteTool(context.Background(), seeded.ID); !errors.Is(err, ledger.ErrUnknownTool) {
		test.Fatalf("expected ErrUnknownTool on second delete, got %v", err)
	}
}

func TestListPackagesOrderedByPrice(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	seedPackage(test, store, "pack-pro", 200, "29.99")
	seedPackage(test, store, "pack-decouverte", 50, "9.99")
	seedPackage(test, store, "pack-standard", 100, "19.99")

	packages, err := store.ListPackages(context.Background())
	if err != nil {
		test.Fatalf("list packages: %v", err)
	}
	if len(packages) != 3 {
		test.Fatalf("expected 3 packages, got %d", len(packages))
	}
	if packages[0].ID != "pack-decouverte" || packages[2].ID != "pack-pro" {
		test.Fatalf("unexpected order: %+v", packages)
	}
}

func TestUpdatePackage(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	seedPackage(test, store, "pack-standard", 100, "19.99")
	price, err := decimal.NewFromString("24.99")
	if err != nil {
		test.Fatalf("price: %v", err)
	}

	if err := store.UpdatePackage(context.Background(), "pack-standard", 120, price); err != nil {
		test.Fatalf("update package: %v", err)
	}
	pkg, err := store.GetPackage(context.Background(), "pack-standard")
	if err != nil {
		test.Fatalf("get package: %v", err)
	}
	if pkg.Amount != 120 || !pkg.Price.Equal(price) {
		test.Fatalf("unexpected package: %+v", pkg)
	}

	if err := store.UpdatePackage(context.Background(), "missing", 10, price); !errors.Is(err, ledger.ErrUnknownPackage) {
		test.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}
