package budget

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ComparisonStatus string

const (
	StatusGood       ComparisonStatus = "good"
	StatusWarning    ComparisonStatus = "warning"
	StatusOverBudget ComparisonStatus = "over-budget"
)

var warningPercent = decimal.NewFromInt(90)

// Period narrows a comparison to the calendar period containing now,
// clipped to the budget window. The zero value and PeriodBudget use the
// whole window.
type Period string

const (
	PeriodBudget  Period = "budget"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "", PeriodBudget:
		return PeriodBudget, nil
	case PeriodMonth, PeriodQuarter, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// window returns the [start, end] days of period at now, clipped to b.
func (p Period) window(b *Budget, now time.Time) (time.Time, time.Time) {
	start, end := truncateDay(b.StartDate), truncateDay(b.EndDate)
	if p == PeriodBudget {
		return start, end
	}

	y, m, _ := now.Date()

	var from, to time.Time

	switch p {
	case PeriodMonth:
		from = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	case PeriodQuarter:
		q := (int(m) - 1) / 3
		from = time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 3, -1)
	case PeriodYear:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	}

	if from.After(start) {
		start = from
	}

	if to.Before(end) {
		end = to
	}

	return start, end
}

type CategoryComparison struct {
	CategoryID   *uuid.UUID
	CategoryName string
	Budgeted     decimal.Decimal
	Actual       decimal.Decimal
	Variance     decimal.Decimal
	PercentUsed  decimal.Decimal
}

type Summary struct {
	TotalBudgeted    decimal.Decimal
	TotalActual      decimal.Decimal
	TotalVariance    decimal.Decimal
	TotalPercentUsed decimal.Decimal
	Status           ComparisonStatus
}

type Comparison struct {
	BudgetID   uuid.UUID
	BudgetName string
	Currency   string
	Period     Period
	StartDate  time.Time
	EndDate    time.Time
	Summary    Summary
	Categories []CategoryComparison
}

func comparisonKey(companyID, budgetID uuid.UUID, period Period) string {
	return companyPrefix(companyID) + "comparison:" + budgetID.String() + ":" + string(period)
}

// Comparison compares budgeted amounts against actual spend per category.
// Results are cached until the company's transactions change.
func (s *Service) Comparison(ctx context.Context, companyID, budgetID uuid.UUID, period Period) (*Comparison, error) {
	if period == "" {
		period = PeriodBudget
	}

	key := comparisonKey(companyID, budgetID, period)
	if v, ok := s.cache.Get(key); ok {
		return v.(*Comparison), nil
	}

	gen := s.generation(companyID)

	b, err := s.repo.GetBudget(ctx, companyID, budgetID)
	if err != nil {
		return nil, err
	}

	start, end := period.window(b, s.now())

	spend, names, err := s.spendByCategory(ctx, b, start, end)
	if err != nil {
		return nil, err
	}

	c := compare(b, spend, names)
	c.Period = period
	c.StartDate = start
	c.EndDate = end

	s.store(companyID, gen, key, c)

	return c, nil
}

func compare(b *Budget, spend map[categoryKey]decimal.Decimal, names map[categoryKey]string) *Comparison {
	budgeted := make(map[categoryKey]decimal.Decimal)
	order := make([]categoryKey, 0, len(b.Items)+len(spend))
	seen := make(map[categoryKey]bool)

	add := func(k categoryKey) {
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	for _, it := range b.Items {
		k := keyOf(it.CategoryID)
		budgeted[k] = budgeted[k].Add(it.Amount)

		if _, ok := names[k]; !ok {
			names[k] = it.Name
			if k == uuid.Nil {
				names[k] = UncategorizedName
			}
		}

		add(k)
	}

	for k := range spend {
		add(k)
	}

	c := &Comparison{
		BudgetID:   b.ID,
		BudgetName: b.Name,
		Currency:   b.Currency,
		Categories: make([]CategoryComparison, 0, len(order)),
	}

	totalActual := decimal.Zero

	for _, k := range order {
		actual := spend[k]
		cc := CategoryComparison{
			CategoryName: names[k],
			Budgeted:     budgeted[k],
			Actual:       actual,
			Variance:     actual.Sub(budgeted[k]),
			PercentUsed:  percent(actual, budgeted[k]),
		}

		if k != uuid.Nil {
			id := k
			cc.CategoryID = &id
		}

		c.Categories = append(c.Categories, cc)
		totalActual = totalActual.Add(actual)
	}

	slices.SortStableFunc(c.Categories, func(a, b CategoryComparison) int {
		if d := b.Variance.Cmp(a.Variance); d != 0 {
			return d
		}

		return cmp.Compare(a.CategoryName, b.CategoryName)
	})

	c.Summary = Summary{
		TotalBudgeted:    b.TotalBudget,
		TotalActual:      totalActual,
		TotalVariance:    totalActual.Sub(b.TotalBudget),
		TotalPercentUsed: percent(totalActual, b.TotalBudget),
	}

	switch {
	case c.Summary.TotalPercentUsed.GreaterThanOrEqual(hundred):
		c.Summary.Status = StatusOverBudget
	case c.Summary.TotalPercentUsed.GreaterThanOrEqual(warningPercent):
		c.Summary.Status = StatusWarning
	default:
		c.Summary.Status = StatusGood
	}

	return c
}
