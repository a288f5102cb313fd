package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"tally/internal/amqp"
	"tally/internal/bus"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/storage"
	"tally/pkg/metrics"
)

// LedgerService orchestrates ledger mutations across SQLite, the balance
// reconciler, the in-process event bus and the AMQP sync bridge. Every
// write goes through here so that the insert and its balance adjustment
// happen as one per-user critical section.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	reconciler *ledger.Reconciler
	events     *bus.Bus
	amqpClient *amqp.Client
	collector  *metrics.Collector
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedgerService(st *storage.SQLiteRepository, rec *ledger.Reconciler, events *bus.Bus, amqpClient *amqp.Client, collector *metrics.Collector, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		storage:    st,
		reconciler: rec,
		events:     events,
		amqpClient: amqpClient,
		collector:  collector,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for one user.
func (s *LedgerService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *LedgerService) Accounts(ctx context.Context, userID string) ([]core.Account, error) {
	return s.storage.GetAccounts(ctx, userID)
}

func (s *LedgerService) Account(ctx context.Context, userID string, accountID int64) (core.Account, error) {
	return s.storage.GetAccount(ctx, userID, accountID)
}

func (s *LedgerService) CreateAccount(ctx context.Context, userID string, params core.AccountParams) (core.Account, error) {
	acc, err := s.storage.AddAccount(ctx, userID, params)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.collector.RecordMutation("account_create")
	s.collector.UpdateAccountBalance(userID, strconv.FormatInt(acc.ID, 10), acc.Balance.Cents)
	s.notifyDataUpdate()
	return acc, nil
}

func (s *LedgerService) UpdateAccount(ctx context.Context, userID string, accountID int64, upd core.AccountUpdate) (core.Account, error) {
	lock := s.userLock(userID)
	lock.Lock()
	acc, err := s.storage.UpdateAccount(ctx, userID, accountID, upd)
	lock.Unlock()
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}

	s.collector.RecordMutation("account_update")
	s.collector.UpdateAccountBalance(userID, strconv.FormatInt(acc.ID, 10), acc.Balance.Cents)
	s.notifyDataUpdate()
	return acc, nil
}

func (s *LedgerService) Transactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.storage.GetTransactions(ctx, userID)
}

// CreateTransaction saves a transaction, applies its amount to the owning
// account and publishes a data-update event. The insert and the balance
// adjustment run under the user's mutation lock so concurrent writers
// never interleave between them.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, params core.TransactionParams) (core.Transaction, error) {
	lock := s.userLock(userID)
	lock.Lock()
	tx, err := s.storage.AddTransaction(ctx, userID, params)
	if err != nil {
		lock.Unlock()
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if err := s.reconciler.ApplyTransactionDelta(ctx, userID, tx.AccountID, tx.Amount); err != nil {
		lock.Unlock()
		return core.Transaction{}, fmt.Errorf("apply balance delta: %w", err)
	}
	lock.Unlock()

	s.collector.RecordMutation("transaction_create")
	s.refreshBalanceGauge(ctx, userID, tx.AccountID)
	s.notifyDataUpdate()
	s.publishSyncMessage(ctx, userID, tx.ID)
	return tx, nil
}

// DeleteTransaction removes a transaction and reverses its effect on the
// account balance. Removing an absent transaction is a no-op and reports
// removed == false.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID string, txID int64) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	tx, removed, err := s.storage.RemoveTransaction(ctx, userID, txID)
	if err != nil {
		lock.Unlock()
		return false, fmt.Errorf("remove transaction: %w", err)
	}
	if !removed {
		lock.Unlock()
		return false, nil
	}
	if err := s.reconciler.ApplyTransactionDelta(ctx, userID, tx.AccountID, core.Money{Cents: -tx.Amount.Cents}); err != nil {
		lock.Unlock()
		return true, fmt.Errorf("reverse balance delta: %w", err)
	}
	lock.Unlock()

	s.collector.RecordMutation("transaction_delete")
	s.refreshBalanceGauge(ctx, userID, tx.AccountID)
	s.notifyDataUpdate()
	return true, nil
}

func (s *LedgerService) SavingsAllocations(ctx context.Context, userID string) ([]core.SavingsAllocation, error) {
	return s.storage.GetSavingsAllocations(ctx, userID)
}

// CreateSavingsAllocation records an allocation and moves the money out of
// (deposit) or back into (withdrawal) the source account.
func (s *LedgerService) CreateSavingsAllocation(ctx context.Context, userID string, params core.AllocationParams) (core.SavingsAllocation, error) {
	lock := s.userLock(userID)
	lock.Lock()
	alloc, err := s.storage.AddSavingsAllocation(ctx, userID, params)
	if err != nil {
		lock.Unlock()
		return core.SavingsAllocation{}, fmt.Errorf("save savings allocation: %w", err)
	}
	if err := s.reconciler.ApplyTransactionDelta(ctx, userID, alloc.FromAccountID, core.Money{Cents: -alloc.Signed()}); err != nil {
		lock.Unlock()
		return core.SavingsAllocation{}, fmt.Errorf("apply balance delta: %w", err)
	}
	lock.Unlock()

	s.collector.RecordMutation("savings_allocation_create")
	s.refreshBalanceGauge(ctx, userID, alloc.FromAccountID)
	s.notifyDataUpdate()
	return alloc, nil
}

// Totals returns the reconciled from-scratch totals for the user.
func (s *LedgerService) Totals(ctx context.Context, userID string) core.Totals {
	return s.reconciler.CalculateTotals(ctx, userID)
}

func (s *LedgerService) notifyDataUpdate() {
	if s.events != nil {
		s.events.Publish(bus.EventDataUpdate)
	}
}

func (s *LedgerService) refreshBalanceGauge(ctx context.Context, userID string, accountID int64) {
	if s.collector == nil {
		return
	}
	acc, err := s.storage.GetAccount(ctx, userID, accountID)
	if err != nil {
		return
	}
	s.collector.UpdateAccountBalance(userID, strconv.FormatInt(accountID, 10), acc.Balance.Cents)
}

func (s *LedgerService) publishSyncMessage(ctx context.Context, userID string, txID int64) {
	if s.amqpClient == nil {
		return
	}
	// Local write already succeeded; a broker failure must not surface.
	if err := s.amqpClient.PublishTransactionSync(ctx, userID, txID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", txID, "user_id", userID, "error", err)
	}
}

// Close closes storage and the AMQP connection.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
