// Package ledger keeps account balances consistent with applied
// transactions and computes aggregate totals on demand.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/core"
)

// Store is the slice of the ledger store the reconciler needs.
type Store interface {
	AddBalanceDelta(ctx context.Context, userID string, accountID int64, cents int64) error
	SumIncome(ctx context.Context, userID string) (int64, error)
	SumExpenses(ctx context.Context, userID string) (int64, error)
	SumSavings(ctx context.Context, userID string) (int64, error)
	CategoryExpenses(ctx context.Context, userID, yearMonth string) (map[string]int64, error)
}

type Reconciler struct {
	store  Store
	logger *slog.Logger
}

func NewReconciler(store Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// ApplyTransactionDelta adds amount to the account's stored balance. It is
// called exactly once per committed transaction: +amount on add, -amount
// of the original on remove. This is the single mutation path for
// balances.
func (r *Reconciler) ApplyTransactionDelta(ctx context.Context, userID string, accountID int64, amount core.Money) error {
	return r.store.AddBalanceDelta(ctx, userID, accountID, amount.Cents)
}

// CalculateTotals recomputes income, expenses and net savings from
// scratch. It never propagates store failures: callers are UI lifecycle
// hooks that may fire before data is ready, so a zeroed Totals is
// returned instead and the failure is logged.
func (r *Reconciler) CalculateTotals(ctx context.Context, userID string) core.Totals {
	if r == nil || r.store == nil {
		return core.Totals{}
	}

	income, err := r.store.SumIncome(ctx, userID)
	if err != nil {
		r.logger.WarnContext(ctx, "Totals unavailable, returning zeroed defaults",
			"user_id", userID, "error", err)
		return core.Totals{}
	}
	expenses, err := r.store.SumExpenses(ctx, userID)
	if err != nil {
		r.logger.WarnContext(ctx, "Totals unavailable, returning zeroed defaults",
			"user_id", userID, "error", err)
		return core.Totals{}
	}
	savings, err := r.store.SumSavings(ctx, userID)
	if err != nil {
		r.logger.WarnContext(ctx, "Totals unavailable, returning zeroed defaults",
			"user_id", userID, "error", err)
		return core.Totals{}
	}

	totals := core.Totals{
		IncomeCents:  income,
		ExpenseCents: expenses,
		SavingsCents: savings,
	}
	if savings < 0 {
		// Reported, not clamped: the UI decides how to surface it.
		totals.SavingsOverdrawn = true
		r.logger.WarnContext(ctx, "Cumulative savings overdrawn",
			"user_id", userID, "savings_cents", savings)
	}
	return totals
}

// CategorySpending returns per-category expense magnitudes for the given
// calendar month. Degrades to an empty map when the store is unavailable.
func (r *Reconciler) CategorySpending(ctx context.Context, userID string, year int, month time.Month) map[string]int64 {
	if r == nil || r.store == nil {
		return map[string]int64{}
	}
	ym := core.NewDate(year, int(month), 1).YearMonth()
	spend, err := r.store.CategoryExpenses(ctx, userID, ym)
	if err != nil {
		r.logger.WarnContext(ctx, "Category spending unavailable",
			"user_id", userID, "period", ym, "error", err)
		return map[string]int64{}
	}
	return spend
}
