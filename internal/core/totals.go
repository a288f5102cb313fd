package core

// Totals is the aggregate view computed from scratch by the reconciler.
// IncomeCents and ExpenseCents are both non-negative: expenses are
// reported as the absolute value of the negative-amount sum.
type Totals struct {
	IncomeCents  int64
	ExpenseCents int64
	SavingsCents int64
	// SavingsOverdrawn is set when cumulative withdrawals exceed
	// cumulative deposits. The figure is reported as-is, never clamped.
	SavingsOverdrawn bool
}
