package storage

import (
	"context"
	"fmt"
)

// SumIncome returns the sum of positive transaction amounts for the user.
func (r *SQLiteRepository) SumIncome(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND amount_cents > 0`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum income: %w", err)
	}
	return total, nil
}

// SumExpenses returns the absolute value of the negative-amount sum.
func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(-amount_cents), 0) FROM transactions
		WHERE user_id = ? AND amount_cents < 0`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

// SumSavings returns cumulative deposits minus cumulative withdrawals.
// The result may be negative; clamping is the caller's decision to signal,
// not the store's to hide.
func (r *SQLiteRepository) SumSavings(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE type WHEN 'withdrawal' THEN -amount_cents ELSE amount_cents END), 0)
		FROM savings_allocations WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum savings: %w", err)
	}
	return total, nil
}

// SumTransactionsByAccount returns the signed sum of the account's
// currently-present transactions. Used to audit the balance invariant.
func (r *SQLiteRepository) SumTransactionsByAccount(ctx context.Context, userID string, accountID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND account_id = ?`, userID, accountID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum account transactions: %w", err)
	}
	return total, nil
}

// CategoryExpenses returns per-category expense magnitudes for a calendar
// month, keyed by category name. yearMonth is the ISO YYYY-MM prefix.
func (r *SQLiteRepository) CategoryExpenses(ctx context.Context, userID, yearMonth string) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(-amount_cents) FROM transactions
		WHERE user_id = ? AND amount_cents < 0 AND substr(date, 1, 7) = ?
		GROUP BY category`, userID, yearMonth)
	if err != nil {
		return nil, fmt.Errorf("category expenses: %w", err)
	}
	defer rows.Close()

	spend := make(map[string]int64)
	for rows.Next() {
		var (
			category string
			cents    int64
		)
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category expense: %w", err)
		}
		spend[category] = cents
	}
	return spend, rows.Err()
}
