// Package pin protects app access behind a 6-digit PIN. The raw PIN is
// never persisted; only a one-way digest is stored.
package pin

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

const pinLength = 6

// appSalt is a fixed application-level salt mixed into every digest. A
// single constant (rather than per-user random salts) keeps stored records
// a bare hex digest; changing this requires a record migration.
const appSalt = "tally:pin:v1"

var (
	// ErrNotDigits and ErrBadLength are format failures.
	ErrNotDigits = errors.New("PIN must contain only digits")
	ErrBadLength = fmt.Errorf("PIN must be exactly %d digits", pinLength)

	// ErrWeakPin is a policy rejection, distinct from a format failure:
	// call sites may warn-and-allow or hard-block.
	ErrWeakPin = errors.New("PIN is too easy to guess")

	// ErrPinMismatch is the auth failure on privileged actions.
	ErrPinMismatch = errors.New("PIN does not match")
)

// ValidateFormat reports nil for a well-formed PIN: exactly 6 ASCII
// digits. The returned error names the rule that failed.
func ValidateFormat(pin string) error {
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrNotDigits
		}
	}
	if len(pin) != pinLength {
		return ErrBadLength
	}
	return nil
}

// CheckStrength rejects an enumerated set of guessable 6-digit patterns:
// a single repeated digit, ascending or descending runs, and simple
// paired or tripled repeats. Assumes the PIN already passed ValidateFormat.
func CheckStrength(pin string) error {
	if len(pin) != pinLength {
		return ErrWeakPin
	}
	switch {
	case allSame(pin):
		return fmt.Errorf("%w: repeating digit", ErrWeakPin)
	case isRun(pin, 1):
		return fmt.Errorf("%w: ascending sequence", ErrWeakPin)
	case isRun(pin, -1):
		return fmt.Errorf("%w: descending sequence", ErrWeakPin)
	case pin[0:2] == pin[2:4] && pin[2:4] == pin[4:6]:
		return fmt.Errorf("%w: repeated pair", ErrWeakPin)
	case pin[0:3] == pin[3:6]:
		return fmt.Errorf("%w: repeated triple", ErrWeakPin)
	case pin[0] == pin[1] && pin[2] == pin[3] && pin[4] == pin[5]:
		return fmt.Errorf("%w: paired digits", ErrWeakPin)
	case pin[0] == pin[1] && pin[1] == pin[2] && pin[3] == pin[4] && pin[4] == pin[5]:
		return fmt.Errorf("%w: tripled digits", ErrWeakPin)
	}
	return nil
}

// Hash produces the deterministic digest stored for a PIN: hex-encoded
// SHA-256 over the PIN concatenated with the fixed application salt.
func Hash(pin string) string {
	sum := sha256.Sum256([]byte(pin + appSalt))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest and compares in constant time. Malformed
// input is never an error here: it simply does not match.
func Verify(pin, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	computed := Hash(pin)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// LockTimeout is the app re-lock delay after losing foreground focus.
// Zero means lock immediately; this is policy, not a setting.
func LockTimeout() int {
	return 0
}

func allSame(pin string) bool {
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			return false
		}
	}
	return true
}

// isRun reports whether each digit steps by delta from the previous one.
func isRun(pin string, delta int) bool {
	for i := 1; i < len(pin); i++ {
		if int(pin[i])-int(pin[i-1]) != delta {
			return false
		}
	}
	return true
}
