package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

// GetPinRecord returns the user's stored PIN digest record.
func (r *SQLiteRepository) GetPinRecord(ctx context.Context, userID string) (core.PinRecord, error) {
	var rec core.PinRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, pin_hash, created_at FROM pin_records WHERE user_id = ?`,
		userID).Scan(&rec.UserID, &rec.PinHash, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PinRecord{}, fmt.Errorf("%w: pin record for user", ErrNotFound)
	}
	if err != nil {
		return core.PinRecord{}, fmt.Errorf("get pin record: %w", err)
	}
	return rec, nil
}

// PutPinRecord stores the digest, replacing any existing record.
func (r *SQLiteRepository) PutPinRecord(ctx context.Context, userID, pinHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pin_records (user_id, pin_hash, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET pin_hash = excluded.pin_hash, created_at = excluded.created_at`,
		userID, pinHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put pin record: %w", err)
	}
	return nil
}

// DeletePinRecord removes the record; deleting an absent record is not an
// error.
func (r *SQLiteRepository) DeletePinRecord(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pin_records WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("delete pin record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete pin record: %w", err)
	}
	return n > 0, nil
}

// SetFlag durably sets a per-user boolean flag.
func (r *SQLiteRepository) SetFlag(ctx context.Context, userID, name string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_flags (user_id, name, value) VALUES (?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET value = excluded.value`,
		userID, name, v)
	if err != nil {
		return fmt.Errorf("set flag %s: %w", name, err)
	}
	return nil
}

// GetFlag reads a per-user boolean flag; absent flags read as false.
func (r *SQLiteRepository) GetFlag(ctx context.Context, userID, name string) (bool, error) {
	var v int
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_flags WHERE user_id = ? AND name = ?`,
		userID, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get flag %s: %w", name, err)
	}
	return v != 0, nil
}
