// Package budget tracks spending against budgets. Spend is always derived
// from completed expense transactions at read time and is never stored.
package budget

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("budget not found")
	ErrInvalid       = errors.New("invalid budget")
	ErrInvalidPeriod = errors.New("invalid comparison period")
)

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Budget is a spending plan over the inclusive date window [StartDate, EndDate].
type Budget struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Name        string
	Type        string
	Status      Status
	StartDate   time.Time
	EndDate     time.Time
	TotalBudget decimal.Decimal
	TotalSpent  decimal.Decimal // derived
	Currency    string
	Items       []Item
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Contains reports whether t falls on a day inside the budget window.
func (b *Budget) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(truncateDay(b.StartDate)) && !day.After(truncateDay(b.EndDate))
}

// Item allocates part of a budget to a category. A nil CategoryID allocates
// to uncategorized spend.
type Item struct {
	ID         uuid.UUID
	CategoryID *uuid.UUID
	Name       string
	Amount     decimal.Decimal
	Spent      decimal.Decimal // derived
}

// Expense is a completed expense transaction as seen by budget tracking.
type Expense struct {
	CategoryID   *uuid.UUID
	CategoryName string
	Date         time.Time
	Amount       decimal.Decimal
	Currency     string
}

const UncategorizedName = "Uncategorized"

type categoryKey = uuid.UUID

// keyOf maps a nil category to uuid.Nil, the uncategorized bucket.
func keyOf(id *uuid.UUID) categoryKey {
	if id == nil {
		return uuid.Nil
	}

	return *id
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var hundred = decimal.NewFromInt(100)

// percent returns part/whole*100 rounded to two places, or zero when whole is not positive.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}

	return part.Mul(hundred).DivRound(whole, 2)
}
