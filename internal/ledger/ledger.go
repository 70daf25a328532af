// Package ledger owns financial accounts, transactions and budget categories,
// and keeps account balances consistent with completed transactions.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrNotCompleted    = errors.New("transaction is not completed")
	// ErrDuplicateLink is returned when a transaction already links the same source document.
	ErrDuplicateLink = errors.New("transaction already linked to source document")
	// ErrStale is returned when a transaction changed between reading it and
	// locking it for a write.
	ErrStale = errors.New("transaction changed concurrently")
)

// Type represents the direction of a transaction.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool { return t == TypeIncome || t == TypeExpense }

// Status represents the lifecycle state of a transaction. Only completed
// transactions affect balances and budget spend.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool { return s == StatusPending || s == StatusCompleted }

// AccountType classifies a financial account.
type AccountType string

const (
	AccountBank  AccountType = "bank"
	AccountCash  AccountType = "cash"
	AccountOther AccountType = "other"
)

// Account is a bank, cash or other account. Balance is maintained exclusively
// by the balance maintainer.
type Account struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Type      AccountType
	Currency  string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Transaction is a financial movement. Amount is always positive; Type gives the sign.
type Transaction struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Currency    string
	Type        Type
	Status      Status
	CategoryID  *uuid.UUID
	AccountID   *uuid.UUID
	ProjectID   *uuid.UUID
	RelatedTo   *string // opaque id of the source document
	Notes       string
	Reference   string

	// AppliedAccountID and AppliedAmount are set while the transaction's effect
	// is part of an account balance. AppliedAmount is in the account currency.
	AppliedAccountID *uuid.UUID
	AppliedAmount    *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Applied reports whether the transaction's effect is currently part of a balance.
func (t *Transaction) Applied() bool {
	return t.AppliedAmount != nil && t.AppliedAccountID != nil
}

// BookedAccount returns the account whose lock guards the transaction's
// balance effect: the account it is applied to, or else the one it references.
func (t *Transaction) BookedAccount() *uuid.UUID {
	if t.Applied() {
		return t.AppliedAccountID
	}

	return t.AccountID
}

// Signed returns amount with the transaction's sign: positive for income, negative for expense.
func (t *Transaction) Signed(amount decimal.Decimal) decimal.Decimal {
	if t.Type == TypeExpense {
		return amount.Neg()
	}

	return amount
}

// Category buckets transactions for budget tracking.
type Category struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Name        string
	Type        Type
	Description string
	CreatedAt   time.Time
}
