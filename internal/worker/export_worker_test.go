package worker

import (
	"context"
	"path/filepath"
	"testing"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/sheets/memory"
	"tally/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHandleSyncMessageExportsTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	acc, err := repo.AddAccount(ctx, "u1", core.AccountParams{
		Name: "Cash", Type: core.AccountCash,
	})
	if err != nil {
		t.Fatalf("AddAccount() error = %v", err)
	}
	tx, err := repo.AddTransaction(ctx, "u1", core.TransactionParams{
		AccountID:   acc.ID,
		Description: "Lunch",
		Category:    core.CategoryFood,
		Amount:      core.Money{Cents: -1200},
	})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}

	dest := memory.New()
	w := NewExportWorker(repo, dest, nil)

	msg := amqp.NewTransactionSyncMessage("u1", tx.ID)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	items := dest.Items()
	if len(items) != 1 {
		t.Fatalf("exported items = %d, want 1", len(items))
	}
	if items[0].Description != "Lunch" || items[0].Amount.Cents != -1200 {
		t.Errorf("exported transaction = %+v", items[0])
	}
}

func TestHandleSyncMessageSkipsMissingTransaction(t *testing.T) {
	repo := newTestRepo(t)
	dest := memory.New()
	w := NewExportWorker(repo, dest, nil)

	msg := amqp.NewTransactionSyncMessage("u1", 9999)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v, want nil for missing transaction", err)
	}
	if len(dest.Items()) != 0 {
		t.Error("exported items should be empty for missing transaction")
	}
}
