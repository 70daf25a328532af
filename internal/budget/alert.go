package budget

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

func (s Severity) Valid() bool { return s == SeverityCritical || s == SeverityWarning }

// DefaultAlertThreshold is the percent-spent at which alerts are raised.
var DefaultAlertThreshold = decimal.NewFromInt(90)

// Alert is a threshold breach of a whole budget (ItemID nil) or one of its items.
// Computing alerts has no side effects.
type Alert struct {
	BudgetID     uuid.UUID
	BudgetName   string
	ItemID       *uuid.UUID
	ItemName     string
	Severity     Severity
	Message      string
	Spent        decimal.Decimal
	Allocated    decimal.Decimal
	PercentSpent decimal.Decimal
	Threshold    decimal.Decimal
	Currency     string
	Timestamp    time.Time
}

// Alerts evaluates every active budget whose window contains now. Critical
// alerts sort first, then by percent spent descending.
func (s *Service) Alerts(ctx context.Context, companyID uuid.UUID, threshold decimal.Decimal) ([]Alert, error) {
	now := s.now()

	budgets, err := s.repo.ListBudgets(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var alerts []Alert

	for _, b := range budgets {
		if b.Status != StatusActive || !b.Contains(now) {
			continue
		}

		if err := s.derive(ctx, b); err != nil {
			return nil, err
		}

		alerts = append(alerts, evaluate(b, threshold, now)...)
	}

	slices.SortStableFunc(alerts, func(a, b Alert) int {
		if a.Severity != b.Severity {
			if a.Severity == SeverityCritical {
				return -1
			}

			return 1
		}

		return b.PercentSpent.Cmp(a.PercentSpent)
	})

	return alerts, nil
}

func evaluate(b *Budget, threshold decimal.Decimal, now time.Time) []Alert {
	var alerts []Alert

	breach := func(spent, allocated decimal.Decimal) (decimal.Decimal, bool) {
		if !allocated.IsPositive() {
			return decimal.Zero, false
		}

		p := percent(spent, allocated)

		return p, p.GreaterThanOrEqual(threshold)
	}

	if p, ok := breach(b.TotalSpent, b.TotalBudget); ok {
		alerts = append(alerts, Alert{
			BudgetID:     b.ID,
			BudgetName:   b.Name,
			Severity:     severity(p),
			Message:      fmt.Sprintf("Budget %q has used %s%% of %s %s", b.Name, p.StringFixed(1), b.TotalBudget.StringFixed(2), b.Currency),
			Spent:        b.TotalSpent,
			Allocated:    b.TotalBudget,
			PercentSpent: p,
			Threshold:    threshold,
			Currency:     b.Currency,
			Timestamp:    now,
		})
	}

	for _, it := range b.Items {
		p, ok := breach(it.Spent, it.Amount)
		if !ok {
			continue
		}

		id := it.ID
		alerts = append(alerts, Alert{
			BudgetID:     b.ID,
			BudgetName:   b.Name,
			ItemID:       &id,
			ItemName:     it.Name,
			Severity:     severity(p),
			Message:      fmt.Sprintf("%q in budget %q has used %s%% of %s %s", it.Name, b.Name, p.StringFixed(1), it.Amount.StringFixed(2), b.Currency),
			Spent:        it.Spent,
			Allocated:    it.Amount,
			PercentSpent: p,
			Threshold:    threshold,
			Currency:     b.Currency,
			Timestamp:    now,
		})
	}

	return alerts
}

func severity(p decimal.Decimal) Severity {
	if p.GreaterThanOrEqual(hundred) {
		return SeverityCritical
	}

	return SeverityWarning
}

// FilterSeverity keeps only alerts of the given severity.
func FilterSeverity(alerts []Alert, sev Severity) []Alert {
	return slices.DeleteFunc(slices.Clone(alerts), func(a Alert) bool { return a.Severity != sev })
}
