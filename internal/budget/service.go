package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/cache"
	"github.com/MrJamesThe3rd/erpledger/internal/currency"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=budget
type Repository interface {
	CreateBudget(ctx context.Context, b *Budget) error
	GetBudget(ctx context.Context, companyID, id uuid.UUID) (*Budget, error)
	ListBudgets(ctx context.Context, companyID uuid.UUID) ([]*Budget, error)
	// ListExpenses returns completed expense transactions dated within [start, end].
	ListExpenses(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]Expense, error)
	CategoryExists(ctx context.Context, companyID, id uuid.UUID) (bool, error)
}

// Currency converts spend into the budget currency and supplies the
// company default for new budgets.
type Currency interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	DefaultCurrency(ctx context.Context, companyID uuid.UUID) (string, error)
}

type Service struct {
	repo     Repository
	currency Currency
	cache    *cache.Cache
	now      func() time.Time

	// generations counts transaction changes per company. A result computed
	// across a change is not cached.
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

type Option func(*Service)

// WithClock overrides the time source used for alerts and periods.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, currency Currency, c *cache.Cache, opts ...Option) *Service {
	s := &Service{repo: repo, currency: currency, cache: c, now: time.Now, generations: make(map[uuid.UUID]uint64)}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	Name        string
	Type        string
	StartDate   time.Time
	EndDate     time.Time
	TotalBudget decimal.Decimal
	Currency    string
	Items       []ItemParams
}

type ItemParams struct {
	CategoryID *uuid.UUID
	Name       string
	Amount     decimal.Decimal
}

func (s *Service) Create(ctx context.Context, companyID uuid.UUID, params CreateParams) (*Budget, error) {
	if params.EndDate.Before(params.StartDate) {
		return nil, fmt.Errorf("%w: end date %s before start date %s", ErrInvalid, params.EndDate.Format(time.DateOnly), params.StartDate.Format(time.DateOnly))
	}

	if params.TotalBudget.IsNegative() {
		return nil, fmt.Errorf("%w: total budget must not be negative", ErrInvalid)
	}

	if err := s.checkItems(ctx, companyID, params.Items); err != nil {
		return nil, err
	}

	cur := params.Currency
	if cur == "" {
		var err error

		cur, err = s.currency.DefaultCurrency(ctx, companyID)
		if err != nil {
			return nil, err
		}
	}

	cur, err := currency.Normalize(cur)
	if err != nil {
		return nil, err
	}

	b := &Budget{
		CompanyID:   companyID,
		Name:        params.Name,
		Type:        params.Type,
		Status:      StatusActive,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		TotalBudget: params.TotalBudget,
		Currency:    cur,
		Items:       make([]Item, 0, len(params.Items)),
	}

	allocated := decimal.Zero

	for _, p := range params.Items {
		b.Items = append(b.Items, Item{CategoryID: p.CategoryID, Name: p.Name, Amount: p.Amount})
		allocated = allocated.Add(p.Amount)
	}

	if b.TotalBudget.IsZero() {
		b.TotalBudget = allocated
	}

	if err := s.repo.CreateBudget(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

// checkItems rejects negative allocations and categories of other companies.
func (s *Service) checkItems(ctx context.Context, companyID uuid.UUID, items []ItemParams) error {
	for _, it := range items {
		if it.Amount.IsNegative() {
			return fmt.Errorf("%w: item %q has a negative amount", ErrInvalid, it.Name)
		}

		if it.CategoryID == nil {
			continue
		}

		ok, err := s.repo.CategoryExists(ctx, companyID, *it.CategoryID)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("%w: unknown category %s", ErrInvalid, *it.CategoryID)
		}
	}

	return nil
}

// Get returns the budget with Spent and TotalSpent derived from its window.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Budget, error) {
	b, err := s.repo.GetBudget(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if err := s.derive(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]*Budget, error) {
	budgets, err := s.repo.ListBudgets(ctx, companyID)
	if err != nil {
		return nil, err
	}

	for _, b := range budgets {
		if err := s.derive(ctx, b); err != nil {
			return nil, err
		}
	}

	return budgets, nil
}

// derive fills item and total spend. Every item of a category receives the
// category's full spend; TotalSpent is the sum over items.
func (s *Service) derive(ctx context.Context, b *Budget) error {
	spend, _, err := s.spendByCategory(ctx, b, b.StartDate, b.EndDate)
	if err != nil {
		return err
	}

	b.TotalSpent = decimal.Zero

	for i := range b.Items {
		b.Items[i].Spent = spend[keyOf(b.Items[i].CategoryID)]
		b.TotalSpent = b.TotalSpent.Add(b.Items[i].Spent)
	}

	return nil
}

// spendByCategory sums expenses in [start, end] per category, converted to
// the budget currency, and returns the category names seen.
func (s *Service) spendByCategory(ctx context.Context, b *Budget, start, end time.Time) (map[categoryKey]decimal.Decimal, map[categoryKey]string, error) {
	spend := make(map[categoryKey]decimal.Decimal)
	names := make(map[categoryKey]string)

	if end.Before(start) {
		return spend, names, nil
	}

	expenses, err := s.repo.ListExpenses(ctx, b.CompanyID, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("listing expenses: %w", err)
	}

	for _, e := range expenses {
		amount, err := s.currency.Convert(e.Amount, e.Currency, b.Currency)
		if err != nil {
			return nil, nil, fmt.Errorf("converting expense: %w", err)
		}

		k := keyOf(e.CategoryID)
		spend[k] = spend[k].Add(amount)

		if e.CategoryID == nil {
			names[k] = UncategorizedName
		} else if e.CategoryName != "" {
			names[k] = e.CategoryName
		}
	}

	return spend, names, nil
}

func companyPrefix(companyID uuid.UUID) string {
	return "budget:" + companyID.String() + ":"
}

func (s *Service) generation(companyID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generations[companyID]
}

// store caches v unless the company's transactions changed after gen was read.
func (s *Service) store(companyID uuid.UUID, gen uint64, key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[companyID] == gen {
		s.cache.Set(key, v)
	}
}

// TransactionsChanged drops every cached computation for the company.
func (s *Service) TransactionsChanged(companyID uuid.UUID) {
	s.mu.Lock()
	s.generations[companyID]++
	s.mu.Unlock()

	s.cache.InvalidatePrefix(companyPrefix(companyID))
}
