// Package worker exports committed transactions to the spreadsheet
// backup, driven by sync messages from the API process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/sheets"
	"tally/internal/storage"
)

// ExportWorker consumes transaction sync messages and appends the
// referenced transactions to the configured backup destination.
type ExportWorker struct {
	storage  *storage.SQLiteRepository
	appender sheets.TransactionAppender
	logger   *slog.Logger
}

func NewExportWorker(st *storage.SQLiteRepository, appender sheets.TransactionAppender, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{
		storage:  st,
		appender: appender,
		logger:   logger,
	}
}

// HandleSyncMessage exports one transaction. A transaction deleted
// between publish and consume is skipped without error so the message
// is not redelivered forever.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID)

	tx, err := w.storage.GetTransaction(ctx, msg.UserID, msg.TransactionID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction gone before export, skipping",
			"transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.appender.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to backup: %w", err)
	}

	w.logger.InfoContext(ctx, "Transaction exported",
		"transaction_id", tx.ID,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents)
	return nil
}

// Run consumes sync messages until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeTransactionSync(ctx, w.HandleSyncMessage)
}
