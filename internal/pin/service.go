package pin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/storage"
)

// RecordStore persists PIN digest records. Exclusively owned by this
// package; no other component reads the hash.
type RecordStore interface {
	GetPinRecord(ctx context.Context, userID string) (core.PinRecord, error)
	PutPinRecord(ctx context.Context, userID, pinHash string) error
	DeletePinRecord(ctx context.Context, userID string) (bool, error)
}

// FlagStore persists the durable pin-required-on-startup flag.
type FlagStore interface {
	SetFlag(ctx context.Context, userID, name string, value bool) error
	GetFlag(ctx context.Context, userID, name string) (bool, error)
}

// Service drives the per-user PIN lifecycle: NoPin -> PinSet via Setup,
// back to NoPin via Remove (which requires a successful verify first).
type Service struct {
	records RecordStore
	flags   FlagStore
	logger  *slog.Logger
}

func NewService(records RecordStore, flags FlagStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, flags: flags, logger: logger}
}

// Setup stores the digest of a new PIN, replacing any existing record.
// Format failures and weak PINs are both rejected here; call sites that
// prefer warn-and-allow can run CheckStrength themselves before calling.
func (s *Service) Setup(ctx context.Context, userID, pin string) error {
	if err := ValidateFormat(pin); err != nil {
		return err
	}
	if err := CheckStrength(pin); err != nil {
		return err
	}
	if err := s.records.PutPinRecord(ctx, userID, Hash(pin)); err != nil {
		return fmt.Errorf("store pin record: %w", err)
	}
	s.logger.InfoContext(ctx, "PIN set", "user_id", userID)
	return nil
}

// VerifyUser checks the supplied PIN against the stored record. A missing
// record verifies false, never errors.
func (s *Service) VerifyUser(ctx context.Context, userID, pin string) bool {
	rec, err := s.records.GetPinRecord(ctx, userID)
	if err != nil {
		return false
	}
	return Verify(pin, rec.PinHash)
}

// Unlock verifies the PIN and, on success, clears the startup-lock flag.
func (s *Service) Unlock(ctx context.Context, userID, pin string) bool {
	if !s.VerifyUser(ctx, userID, pin) {
		return false
	}
	if err := s.flags.SetFlag(ctx, userID, storage.FlagPinRequired, false); err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear startup flag", "user_id", userID, "error", err)
	}
	return true
}

// HasPin reports whether the user has a PIN configured.
func (s *Service) HasPin(ctx context.Context, userID string) bool {
	_, err := s.records.GetPinRecord(ctx, userID)
	return err == nil
}

// Remove deletes the PIN record after re-verifying the current PIN, and
// clears the startup-lock flag.
func (s *Service) Remove(ctx context.Context, userID, pin string) error {
	rec, err := s.records.GetPinRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: no PIN configured", ErrPinMismatch)
		}
		return fmt.Errorf("load pin record: %w", err)
	}
	if !Verify(pin, rec.PinHash) {
		return ErrPinMismatch
	}
	if _, err := s.records.DeletePinRecord(ctx, userID); err != nil {
		return fmt.Errorf("delete pin record: %w", err)
	}
	if err := s.flags.SetFlag(ctx, userID, storage.FlagPinRequired, false); err != nil {
		return fmt.Errorf("clear startup flag: %w", err)
	}
	s.logger.InfoContext(ctx, "PIN removed", "user_id", userID)
	return nil
}

// MarkBackgrounded records that the app lost foreground focus. With a
// zero lock timeout that means the next startup must present the lock
// screen, so the durable flag is set whenever a PIN exists.
func (s *Service) MarkBackgrounded(ctx context.Context, userID string) error {
	if !s.HasPin(ctx, userID) {
		return nil
	}
	return s.flags.SetFlag(ctx, userID, storage.FlagPinRequired, true)
}

// Required reports whether the lock screen must be shown on startup.
func (s *Service) Required(ctx context.Context, userID string) bool {
	v, err := s.flags.GetFlag(ctx, userID, storage.FlagPinRequired)
	if err != nil {
		// Fail locked rather than open when the flag is unreadable but a
		// PIN exists.
		return s.HasPin(ctx, userID)
	}
	return v
}
