package core

import (
	"errors"
	"testing"
)

func TestAccountParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  AccountParams
		wantErr error
	}{
		{
			name:   "valid cash account",
			params: AccountParams{Name: "Cash", Type: AccountCash},
		},
		{
			name:   "valid bank account with last four",
			params: AccountParams{Name: "Checking", Type: AccountBank, LastFour: "4821"},
		},
		{
			name:    "empty name",
			params:  AccountParams{Name: "   ", Type: AccountCash},
			wantErr: ErrEmptyName,
		},
		{
			name:    "unknown type",
			params:  AccountParams{Name: "Wallet", Type: "abacus"},
			wantErr: ErrUnknownAcctType,
		},
		{
			name:    "last four too long",
			params:  AccountParams{Name: "Card", Type: AccountCredit, LastFour: "12345"},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  TransactionParams
		wantErr error
	}{
		{
			name:   "valid expense",
			params: TransactionParams{AccountID: 1, Description: "Groceries", Category: CategoryFood, Amount: Money{Cents: -2500}},
		},
		{
			name:   "valid income",
			params: TransactionParams{AccountID: 1, Description: "Salary", Category: CategoryIncome, Amount: Money{Cents: 50000}},
		},
		{
			name:    "zero amount",
			params:  TransactionParams{AccountID: 1, Description: "Nothing", Category: CategoryOther},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "empty description",
			params:  TransactionParams{AccountID: 1, Category: CategoryFood, Amount: Money{Cents: -100}},
			wantErr: ErrEmptyDescription,
		},
		{
			name:    "unknown category",
			params:  TransactionParams{AccountID: 1, Description: "x", Category: "Gadgets", Amount: Money{Cents: -100}},
			wantErr: ErrUnknownCategory,
		},
		{
			name:    "missing account",
			params:  TransactionParams{Description: "x", Category: CategoryFood, Amount: Money{Cents: -100}},
			wantErr: ErrUnknownAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() = %v, should wrap ErrValidation", err)
			}
		})
	}
}

func TestAllocationParamsValidate(t *testing.T) {
	valid := AllocationParams{FromAccountID: 2, Type: AllocationDeposit, Amount: Money{Cents: 1000}, Date: NewDate(2026, 8, 1)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid allocation rejected: %v", err)
	}

	negative := valid
	negative.Amount = Money{Cents: -1000}
	if err := negative.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative allocation amount: got %v, want ErrInvalidAmount", err)
	}

	badType := valid
	badType.Type = "transfer"
	if err := badType.Validate(); !errors.Is(err, ErrInvalidAllocation) {
		t.Fatalf("bad allocation type: got %v, want ErrInvalidAllocation", err)
	}
}

func TestSavingsAllocationSigned(t *testing.T) {
	dep := SavingsAllocation{Type: AllocationDeposit, Amount: Money{Cents: 500}}
	if got := dep.Signed(); got != 500 {
		t.Errorf("deposit Signed() = %d, want 500", got)
	}
	wd := SavingsAllocation{Type: AllocationWithdrawal, Amount: Money{Cents: 500}}
	if got := wd.Signed(); got != -500 {
		t.Errorf("withdrawal Signed() = %d, want -500", got)
	}
}
