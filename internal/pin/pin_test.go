package pin

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		pin     string
		wantErr error
	}{
		{pin: "482917"},
		{pin: "000000"},
		{pin: "12345", wantErr: ErrBadLength},
		{pin: "1234567", wantErr: ErrBadLength},
		{pin: "12a456", wantErr: ErrNotDigits},
		{pin: "12 456", wantErr: ErrNotDigits},
		{pin: "", wantErr: ErrBadLength},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.pin), func(t *testing.T) {
			err := ValidateFormat(tt.pin)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateFormat(%q) = %v, want %v", tt.pin, err, tt.wantErr)
			}
		})
	}
}

func TestCheckStrength(t *testing.T) {
	weak := []string{
		"111111", // repeating
		"123456", // ascending
		"012345", // ascending from zero
		"654321", // descending
		"987654", // descending
		"121212", // repeated pair
		"123123", // repeated triple
		"112233", // paired digits
		"111222", // tripled digits
	}
	for _, pin := range weak {
		if err := CheckStrength(pin); !errors.Is(err, ErrWeakPin) {
			t.Errorf("CheckStrength(%q) = %v, want ErrWeakPin", pin, err)
		}
	}

	strong := []string{"482917", "730164", "295038"}
	for _, pin := range strong {
		if err := CheckStrength(pin); err != nil {
			t.Errorf("CheckStrength(%q) = %v, want nil", pin, err)
		}
	}
}

func TestStrengthFailureIsNotFormatFailure(t *testing.T) {
	if err := ValidateFormat("123456"); err != nil {
		t.Fatalf("sequential PIN should still be well-formed: %v", err)
	}
	err := CheckStrength("123456")
	if errors.Is(err, ErrNotDigits) || errors.Is(err, ErrBadLength) {
		t.Fatalf("strength failure must not be a format error: %v", err)
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	pins := []string{"482917", "000000", "999999", "104729"}
	for _, p := range pins {
		h := Hash(p)
		if len(h) != 64 {
			t.Fatalf("Hash(%q) length = %d, want 64 hex chars", p, len(h))
		}
		if !Verify(p, h) {
			t.Errorf("Verify(%q, Hash(%q)) = false", p, p)
		}
	}

	h := Hash("482917")
	for _, wrong := range []string{"482918", "482917 ", "", "x"} {
		if Verify(wrong, h) {
			t.Errorf("Verify(%q) against another PIN's hash = true", wrong)
		}
	}
}

func TestHashIsDeterministic(t *testing.T) {
	if Hash("482917") != Hash("482917") {
		t.Fatal("Hash is not deterministic")
	}
	if Hash("482917") == Hash("482918") {
		t.Fatal("distinct PINs collided")
	}
}

func TestVerifyNeverPanicsOnMalformedInput(t *testing.T) {
	if Verify("not-a-pin-at-all", "") {
		t.Error("empty stored hash verified true")
	}
	if Verify("", "zz-not-hex") {
		t.Error("garbage stored hash verified true")
	}
}

func TestLockTimeout(t *testing.T) {
	if got := LockTimeout(); got != 0 {
		t.Fatalf("LockTimeout() = %d, want 0 (lock immediately on backgrounding)", got)
	}
}
