package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	AccountCash    AccountType = "cash"
	AccountBank    AccountType = "bank"
	AccountEWallet AccountType = "e-wallet"
	AccountCrypto  AccountType = "crypto"
	AccountCredit  AccountType = "credit"
)

const (
	CategoryIncome        Category = "Income"
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryEducation     Category = "Education"
	CategorySavings       Category = "Savings"
	CategoryOther         Category = "Other"
)

const (
	AllocationDeposit    AllocationType = "deposit"
	AllocationWithdrawal AllocationType = "withdrawal"
)

// LimitOverall is the limit type that covers spending across all categories.
const LimitOverall = "overall"

type (
	AccountType    string
	Category       string
	AllocationType string

	Account struct {
		ID        int64
		UserID    string
		Name      string
		Type      AccountType
		Balance   Money
		LastFour  string
		IsActive  bool
		Verified  bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction amounts are signed: positive is income, negative is an
	// expense. The sign is the sole income/expense discriminator, never
	// the category.
	Transaction struct {
		ID          int64
		UserID      string
		AccountID   int64
		Description string
		Notes       string
		Category    Category
		Amount      Money
		Date        Date
		CreatedAt   time.Time
	}

	// SavingsAllocation amounts are always positive; direction is carried
	// by Type.
	SavingsAllocation struct {
		ID            int64
		UserID        string
		FromAccountID int64
		Type          AllocationType
		Amount        Money
		Description   string
		Date          Date
	}

	// PinRecord stores the one-way digest of a user's app-lock PIN. The
	// raw PIN is never persisted.
	PinRecord struct {
		UserID    string
		PinHash   string
		CreatedAt time.Time
	}

	AccountParams struct {
		Name     string
		Type     AccountType
		Balance  Money
		LastFour string
	}

	// AccountUpdate carries a structured partial update: nil fields are
	// left untouched.
	AccountUpdate struct {
		Name     *string
		Type     *AccountType
		Balance  *Money
		LastFour *string
		IsActive *bool
		Verified *bool
	}

	TransactionParams struct {
		AccountID   int64
		Description string
		Notes       string
		Category    Category
		Amount      Money
		Date        Date // zero value defaults to today
	}

	AllocationParams struct {
		FromAccountID int64
		Type          AllocationType
		Amount        Money
		Description   string
		Date          Date
	}
)

var (
	// ErrValidation is the base class for malformed-input failures; all
	// validation sentinels wrap it so callers can test with errors.Is.
	ErrValidation = errors.New("validation failed")

	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyName         = fmt.Errorf("%w: empty name", ErrValidation)
	ErrEmptyDescription  = fmt.Errorf("%w: empty description", ErrValidation)
	ErrUnknownCategory   = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrUnknownAccount    = fmt.Errorf("%w: unknown account", ErrValidation)
	ErrInactiveAccount   = fmt.Errorf("%w: inactive account", ErrValidation)
	ErrInvalidAllocation = fmt.Errorf("%w: invalid allocation type", ErrValidation)
	ErrUnknownAcctType   = fmt.Errorf("%w: unknown account type", ErrValidation)
)

var categories = map[Category]bool{
	CategoryIncome:        true,
	CategoryFood:          true,
	CategoryTransport:     true,
	CategoryShopping:      true,
	CategoryBills:         true,
	CategoryEntertainment: true,
	CategoryHealth:        true,
	CategoryEducation:     true,
	CategorySavings:       true,
	CategoryOther:         true,
}

// Categories returns the closed category set in display order.
func Categories() []Category {
	return []Category{
		CategoryIncome, CategoryFood, CategoryTransport, CategoryShopping,
		CategoryBills, CategoryEntertainment, CategoryHealth,
		CategoryEducation, CategorySavings, CategoryOther,
	}
}

func (c Category) Valid() bool { return categories[c] }

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountBank, AccountEWallet, AccountCrypto, AccountCredit:
		return true
	}
	return false
}

func (t AllocationType) Valid() bool {
	return t == AllocationDeposit || t == AllocationWithdrawal
}

func (p AccountParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 100 {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrValidation)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAcctType, p.Type)
	}
	if len(p.LastFour) > 4 {
		return fmt.Errorf("%w: last four must be at most 4 characters", ErrValidation)
	}
	return nil
}

func (p TransactionParams) Validate() error {
	if strings.TrimSpace(p.Description) == "" {
		return ErrEmptyDescription
	}
	if len(p.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	}
	if p.Amount.Cents == 0 {
		// A zero amount has no sign and therefore no income/expense
		// meaning.
		return ErrInvalidAmount
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, p.Category)
	}
	if p.AccountID <= 0 {
		return fmt.Errorf("%w: id %d", ErrUnknownAccount, p.AccountID)
	}
	return nil
}

func (p AllocationParams) Validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAllocation, p.Type)
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if p.FromAccountID <= 0 {
		return fmt.Errorf("%w: id %d", ErrUnknownAccount, p.FromAccountID)
	}
	if p.Date.IsZero() {
		return fmt.Errorf("%w: date required", ErrValidation)
	}
	return nil
}

// Signed returns the allocation's effect on cumulative savings.
func (a SavingsAllocation) Signed() int64 {
	if a.Type == AllocationWithdrawal {
		return -a.Amount.Cents
	}
	return a.Amount.Cents
}
