// Package storage is the durable ledger store. Every query is scoped by
// user_id before anything is returned or mutated; cross-user leakage is a
// bug here, not in the callers.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the calling user. Lookup-by-owner and ownership failures are deliberately
// indistinguishable.
var ErrNotFound = errors.New("not found")

// FlagPinRequired is the durable per-user flag consulted on startup to
// decide whether the lock screen must be shown.
const FlagPinRequired = "pin_required_on_startup"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetAccounts returns the user's accounts in insertion order.
func (r *SQLiteRepository) GetAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, balance_cents, last_four, is_active, verified, created_at, updated_at
		FROM accounts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetAccount returns a single account owned by the user.
func (r *SQLiteRepository) GetAccount(ctx context.Context, userID string, accountID int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, balance_cents, last_four, is_active, verified, created_at, updated_at
		FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// AddAccount validates and inserts a new account. New accounts start
// active and unverified.
func (r *SQLiteRepository) AddAccount(ctx context.Context, userID string, params core.AccountParams) (core.Account, error) {
	if err := params.Validate(); err != nil {
		return core.Account{}, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, name, type, balance_cents, last_four, is_active, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, 0, ?, ?)`,
		userID, params.Name, string(params.Type), params.Balance.Cents, params.LastFour, now, now)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account id: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"account_id", id,
		"user_id", userID,
		"name", params.Name,
		"type", params.Type)

	return core.Account{
		ID:        id,
		UserID:    userID,
		Name:      params.Name,
		Type:      params.Type,
		Balance:   params.Balance,
		LastFour:  params.LastFour,
		IsActive:  true,
		Verified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateAccount merges the non-nil fields of the update into the account
// and bumps updated_at. Returns ErrNotFound when the account does not
// belong to the user.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, userID string, accountID int64, upd core.AccountUpdate) (core.Account, error) {
	account, err := r.GetAccount(ctx, userID, accountID)
	if err != nil {
		return core.Account{}, err
	}

	if upd.Name != nil {
		account.Name = *upd.Name
	}
	if upd.Type != nil {
		account.Type = *upd.Type
	}
	if upd.Balance != nil {
		account.Balance = *upd.Balance
	}
	if upd.LastFour != nil {
		account.LastFour = *upd.LastFour
	}
	if upd.IsActive != nil {
		account.IsActive = *upd.IsActive
	}
	if upd.Verified != nil {
		account.Verified = *upd.Verified
	}

	if err := (core.AccountParams{Name: account.Name, Type: account.Type, LastFour: account.LastFour}).Validate(); err != nil {
		return core.Account{}, err
	}

	account.UpdatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?, balance_cents = ?, last_four = ?, is_active = ?, verified = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		account.Name, string(account.Type), account.Balance.Cents, account.LastFour,
		account.IsActive, account.Verified, account.UpdatedAt, accountID, userID)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// AddBalanceDelta adds amount to the account's stored balance. This is the
// reconciler's single mutation path; nothing else may touch balance_cents
// except UpdateAccount for corrective resets.
func (r *SQLiteRepository) AddBalanceDelta(ctx context.Context, userID string, accountID int64, cents int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		cents, time.Now().UTC(), accountID, userID)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	return nil
}

// GetTransactions returns the user's transactions most-recent-first by
// date, ties broken by created_at descending.
func (r *SQLiteRepository) GetTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, account_id, description, notes, category, amount_cents, date, created_at
		FROM transactions WHERE user_id = ?
		ORDER BY date DESC, created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// GetTransaction returns a single transaction owned by the user.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID string, txID int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, description, notes, category, amount_cents, date, created_at
		FROM transactions WHERE id = ? AND user_id = ?`, txID, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: transaction %d", ErrNotFound, txID)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// AddTransaction validates and inserts a transaction. The referenced
// account must exist, belong to the user and be active. Date defaults to
// today when zero. Balances are not touched here; the caller reconciles.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, userID string, params core.TransactionParams) (core.Transaction, error) {
	if err := params.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var isActive bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_active FROM accounts WHERE id = ? AND user_id = ?`,
		params.AccountID, userID).Scan(&isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: id %d", core.ErrUnknownAccount, params.AccountID)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve account: %w", err)
	}
	if !isActive {
		return core.Transaction{}, fmt.Errorf("%w: id %d", core.ErrInactiveAccount, params.AccountID)
	}

	date := params.Date
	if date.IsZero() {
		date = core.Today()
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, account_id, description, notes, category, amount_cents, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, params.AccountID, params.Description, params.Notes,
		string(params.Category), params.Amount.Cents, date.ISO(), now)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", id,
		"user_id", userID,
		"account_id", params.AccountID,
		"amount_cents", params.Amount.Cents,
		"category", params.Category)

	return core.Transaction{
		ID:          id,
		UserID:      userID,
		AccountID:   params.AccountID,
		Description: params.Description,
		Notes:       params.Notes,
		Category:    params.Category,
		Amount:      params.Amount,
		Date:        date,
		CreatedAt:   now,
	}, nil
}

// RemoveTransaction deletes a transaction. "Already gone" is an expected
// outcome, so it is reported through the removed flag rather than an
// error. The removed row is returned so the caller can reverse its amount
// during reconciliation.
func (r *SQLiteRepository) RemoveTransaction(ctx context.Context, userID string, txID int64) (core.Transaction, bool, error) {
	tx, err := r.GetTransaction(ctx, userID, txID)
	if errors.Is(err, ErrNotFound) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, err
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, txID, userID)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("delete transaction: %w", err)
	}
	return tx, n > 0, nil
}

// GetSavingsAllocations returns the user's allocations in insertion order.
func (r *SQLiteRepository) GetSavingsAllocations(ctx context.Context, userID string) ([]core.SavingsAllocation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, from_account_id, type, amount_cents, description, date
		FROM savings_allocations WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings allocations: %w", err)
	}
	defer rows.Close()

	var allocs []core.SavingsAllocation
	for rows.Next() {
		var (
			a       core.SavingsAllocation
			typ     string
			dateStr string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.FromAccountID, &typ, &a.Amount.Cents, &a.Description, &dateStr); err != nil {
			return nil, fmt.Errorf("scan savings allocation: %w", err)
		}
		a.Type = core.AllocationType(typ)
		if a.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse allocation date: %w", err)
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

// AddSavingsAllocation validates and inserts a savings allocation. The
// source account must exist and belong to the user.
func (r *SQLiteRepository) AddSavingsAllocation(ctx context.Context, userID string, params core.AllocationParams) (core.SavingsAllocation, error) {
	if err := params.Validate(); err != nil {
		return core.SavingsAllocation{}, err
	}

	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE id = ? AND user_id = ?`,
		params.FromAccountID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsAllocation{}, fmt.Errorf("%w: id %d", core.ErrUnknownAccount, params.FromAccountID)
	}
	if err != nil {
		return core.SavingsAllocation{}, fmt.Errorf("resolve account: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_allocations (user_id, from_account_id, type, amount_cents, description, date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, params.FromAccountID, string(params.Type), params.Amount.Cents,
		params.Description, params.Date.ISO())
	if err != nil {
		return core.SavingsAllocation{}, fmt.Errorf("insert savings allocation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.SavingsAllocation{}, fmt.Errorf("allocation id: %w", err)
	}

	slog.InfoContext(ctx, "Savings allocation saved",
		"allocation_id", id,
		"user_id", userID,
		"type", params.Type,
		"amount_cents", params.Amount.Cents)

	return core.SavingsAllocation{
		ID:            id,
		UserID:        userID,
		FromAccountID: params.FromAccountID,
		Type:          params.Type,
		Amount:        params.Amount,
		Description:   params.Description,
		Date:          params.Date,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a   core.Account
		typ string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &a.Balance.Cents, &a.LastFour,
		&a.IsActive, &a.Verified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	return a, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		cat     string
		dateStr string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &tx.Description, &tx.Notes,
		&cat, &tx.Amount.Cents, &dateStr, &tx.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Category = core.Category(cat)
	tx.Date, err = core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}
