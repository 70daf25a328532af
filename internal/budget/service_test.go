package budget_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/erpledger/internal/budget"
	"github.com/MrJamesThe3rd/erpledger/internal/cache"
	"github.com/MrJamesThe3rd/erpledger/internal/currency"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

type fixture struct {
	svc      *budget.Service
	repo     *budget.MockRepository
	currency *budget.MockCurrency
	cache    *cache.Cache
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := fixture{
		repo:     budget.NewMockRepository(ctrl),
		currency: budget.NewMockCurrency(ctrl),
		cache:    cache.New(100, time.Minute),
	}

	// Same-currency conversions are identity; EUR spend is worth 1.1 USD.
	f.currency.EXPECT().
		Convert(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
			if from == "EUR" && to == "USD" {
				return amount.Mul(dec("1.1")), nil
			}

			return amount, nil
		}).
		AnyTimes()

	f.svc = budget.NewService(f.repo, f.currency, f.cache, budget.WithClock(func() time.Time { return now }))

	return f
}

func TestService_Comparison_OverBudget(t *testing.T) {
	companyID := uuid.New()
	office := uuid.New()
	f := newFixture(t, day(2024, 1, 20))

	b := &budget.Budget{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Name:        "January",
		Status:      budget.StatusActive,
		StartDate:   day(2024, 1, 1),
		EndDate:     day(2024, 1, 31),
		TotalBudget: dec("1000"),
		Currency:    "USD",
		Items:       []budget.Item{{ID: uuid.New(), CategoryID: &office, Name: "Office", Amount: dec("1000")}},
	}

	f.repo.EXPECT().GetBudget(gomock.Any(), companyID, b.ID).Return(b, nil)
	f.repo.EXPECT().
		ListExpenses(gomock.Any(), companyID, day(2024, 1, 1), day(2024, 1, 31)).
		Return([]budget.Expense{
			{CategoryID: &office, CategoryName: "Office", Date: day(2024, 1, 5), Amount: dec("700"), Currency: "USD"},
			{CategoryID: &office, CategoryName: "Office", Date: day(2024, 1, 18), Amount: dec("500"), Currency: "USD"},
		}, nil)

	got, err := f.svc.Comparison(context.Background(), companyID, b.ID, budget.PeriodBudget)
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)

	cat := got.Categories[0]
	assert.Equal(t, "Office", cat.CategoryName)
	assertDecimal(t, "1200", cat.Actual)
	assertDecimal(t, "1000", cat.Budgeted)
	assertDecimal(t, "200", cat.Variance)
	assertDecimal(t, "120", cat.PercentUsed)

	assertDecimal(t, "1200", got.Summary.TotalActual)
	assertDecimal(t, "200", got.Summary.TotalVariance)
	assertDecimal(t, "120", got.Summary.TotalPercentUsed)
	assert.Equal(t, budget.StatusOverBudget, got.Summary.Status)
}

func TestService_Comparison_CategoriesAndOrdering(t *testing.T) {
	companyID := uuid.New()
	office, travel, rent := uuid.New(), uuid.New(), uuid.New()
	f := newFixture(t, day(2024, 1, 20))

	b := &budget.Budget{
		ID:          uuid.New(),
		CompanyID:   companyID,
		StartDate:   day(2024, 1, 1),
		EndDate:     day(2024, 1, 31),
		TotalBudget: dec("3000"),
		Currency:    "USD",
		Items: []budget.Item{
			{CategoryID: &office, Name: "Office", Amount: dec("1000")},
			{CategoryID: &rent, Name: "Rent", Amount: dec("2000")},
		},
	}

	f.repo.EXPECT().GetBudget(gomock.Any(), companyID, b.ID).Return(b, nil)
	f.repo.EXPECT().
		ListExpenses(gomock.Any(), companyID, gomock.Any(), gomock.Any()).
		Return([]budget.Expense{
			{CategoryID: &office, CategoryName: "Office", Amount: dec("100"), Currency: "EUR"},
			{CategoryID: &travel, CategoryName: "Travel", Amount: dec("300"), Currency: "USD"},
			{Amount: dec("50"), Currency: "USD"},
		}, nil)

	got, err := f.svc.Comparison(context.Background(), companyID, b.ID, "")
	require.NoError(t, err)

	names := make([]string, 0, len(got.Categories))
	for _, c := range got.Categories {
		names = append(names, c.CategoryName)
	}

	// Unbudgeted spend has positive variance; item-only categories appear with zero actual.
	assert.Equal(t, []string{"Travel", budget.UncategorizedName, "Office", "Rent"}, names)

	// EUR spend is converted to the budget currency.
	assertDecimal(t, "110", got.Categories[2].Actual)
	assertDecimal(t, "0", got.Categories[3].Actual)
	assertDecimal(t, "0", got.Categories[0].PercentUsed)
	assertDecimal(t, "460", got.Summary.TotalActual)
	assert.Equal(t, budget.StatusGood, got.Summary.Status)
	assert.Nil(t, got.Categories[1].CategoryID)
}

func TestService_Comparison_CachedUntilTransactionsChange(t *testing.T) {
	companyID := uuid.New()
	f := newFixture(t, day(2024, 1, 20))

	b := &budget.Budget{
		ID:          uuid.New(),
		CompanyID:   companyID,
		StartDate:   day(2024, 1, 1),
		EndDate:     day(2024, 1, 31),
		TotalBudget: dec("100"),
		Currency:    "USD",
	}

	f.repo.EXPECT().GetBudget(gomock.Any(), companyID, b.ID).Return(b, nil).Times(2)
	f.repo.EXPECT().ListExpenses(gomock.Any(), companyID, gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	ctx := context.Background()

	first, err := f.svc.Comparison(ctx, companyID, b.ID, budget.PeriodBudget)
	require.NoError(t, err)

	second, err := f.svc.Comparison(ctx, companyID, b.ID, budget.PeriodBudget)
	require.NoError(t, err)
	assert.Same(t, first, second)

	f.svc.TransactionsChanged(uuid.New())
	_, err = f.svc.Comparison(ctx, companyID, b.ID, budget.PeriodBudget)
	require.NoError(t, err, "other companies' changes keep the entry")

	f.svc.TransactionsChanged(companyID)

	third, err := f.svc.Comparison(ctx, companyID, b.ID, budget.PeriodBudget)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestService_Comparison_ChangeDuringComputeIsNotCached(t *testing.T) {
	companyID := uuid.New()
	f := newFixture(t, day(2024, 1, 20))

	b := &budget.Budget{
		ID:          uuid.New(),
		CompanyID:   companyID,
		StartDate:   day(2024, 1, 1),
		EndDate:     day(2024, 1, 31),
		TotalBudget: dec("100"),
		Currency:    "USD",
	}

	office := uuid.New()
	late := budget.Expense{CategoryID: &office, CategoryName: "Office", Date: day(2024, 1, 10), Amount: dec("30"), Currency: "USD"}

	f.repo.EXPECT().GetBudget(gomock.Any(), companyID, b.ID).Return(b, nil).Times(2)
	gomock.InOrder(
		// A transaction lands after the expenses were read.
		f.repo.EXPECT().
			ListExpenses(gomock.Any(), companyID, gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, uuid.UUID, time.Time, time.Time) ([]budget.Expense, error) {
				f.svc.TransactionsChanged(companyID)
				return nil, nil
			}),
		f.repo.EXPECT().
			ListExpenses(gomock.Any(), companyID, gomock.Any(), gomock.Any()).
			Return([]budget.Expense{late}, nil),
	)

	ctx := context.Background()

	stale, err := f.svc.Comparison(ctx, companyID, b.ID, budget.PeriodBudget)
	require.NoError(t, err)
	assertDecimal(t, "0", stale.Summary.TotalActual)

	fresh, err := f.svc.Comparison(ctx, companyID, b.ID, budget.PeriodBudget)
	require.NoError(t, err)
	assertDecimal(t, "30", fresh.Summary.TotalActual)
}

func TestService_Comparison_Period(t *testing.T) {
	companyID := uuid.New()

	b := &budget.Budget{
		ID:        uuid.New(),
		CompanyID: companyID,
		StartDate: day(2024, 1, 15),
		EndDate:   day(2024, 12, 31),
		Currency:  "USD",
	}

	type testCase struct {
		name      string
		now       time.Time
		period    budget.Period
		wantStart time.Time
		wantEnd   time.Time
	}

	tests := []testCase{
		{name: "Month", now: day(2024, 2, 10), period: budget.PeriodMonth, wantStart: day(2024, 2, 1), wantEnd: day(2024, 2, 29)},
		{name: "MonthClippedToStart", now: day(2024, 1, 20), period: budget.PeriodMonth, wantStart: day(2024, 1, 15), wantEnd: day(2024, 1, 31)},
		{name: "Quarter", now: day(2024, 5, 3), period: budget.PeriodQuarter, wantStart: day(2024, 4, 1), wantEnd: day(2024, 6, 30)},
		{name: "Year", now: day(2024, 5, 3), period: budget.PeriodYear, wantStart: day(2024, 1, 15), wantEnd: day(2024, 12, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.now)

			f.repo.EXPECT().GetBudget(gomock.Any(), companyID, b.ID).Return(b, nil)
			f.repo.EXPECT().ListExpenses(gomock.Any(), companyID, tt.wantStart, tt.wantEnd).Return(nil, nil)

			got, err := f.svc.Comparison(context.Background(), companyID, b.ID, tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, got.StartDate)
			assert.Equal(t, tt.wantEnd, got.EndDate)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := budget.ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, budget.PeriodBudget, p)

	_, err = budget.ParsePeriod("fortnight")
	assert.ErrorIs(t, err, budget.ErrInvalidPeriod)
}

func TestService_Alerts(t *testing.T) {
	companyID := uuid.New()
	marketing, payroll := uuid.New(), uuid.New()
	f := newFixture(t, day(2024, 3, 15))

	window := func(b *budget.Budget) *budget.Budget {
		b.CompanyID = companyID
		b.StartDate = day(2024, 3, 1)
		b.EndDate = day(2024, 3, 31)
		b.Currency = "USD"
		return b
	}

	nearly := window(&budget.Budget{
		ID: uuid.New(), Name: "Marketing", Status: budget.StatusActive, TotalBudget: dec("1000"),
		Items: []budget.Item{{ID: uuid.New(), CategoryID: &marketing, Name: "Ads", Amount: dec("1000")}},
	})
	over := window(&budget.Budget{
		ID: uuid.New(), Name: "Payroll", Status: budget.StatusActive, TotalBudget: dec("1000"),
		Items: []budget.Item{{ID: uuid.New(), CategoryID: &payroll, Name: "Contractors", Amount: dec("1000")}},
	})
	closed := window(&budget.Budget{ID: uuid.New(), Name: "Closed", Status: budget.StatusClosed, TotalBudget: dec("1")})
	past := &budget.Budget{
		ID: uuid.New(), CompanyID: companyID, Name: "February", Status: budget.StatusActive,
		StartDate: day(2024, 2, 1), EndDate: day(2024, 2, 29), TotalBudget: dec("1"), Currency: "USD",
	}

	f.repo.EXPECT().ListBudgets(gomock.Any(), companyID).Return([]*budget.Budget{nearly, closed, past, over}, nil)
	f.repo.EXPECT().
		ListExpenses(gomock.Any(), companyID, day(2024, 3, 1), day(2024, 3, 31)).
		Return([]budget.Expense{
			{CategoryID: &marketing, Amount: dec("950"), Currency: "USD"},
			{CategoryID: &payroll, Amount: dec("1500"), Currency: "USD"},
		}, nil).
		Times(2)

	alerts, err := f.svc.Alerts(context.Background(), companyID, budget.DefaultAlertThreshold)
	require.NoError(t, err)
	require.Len(t, alerts, 4)

	assert.Equal(t, over.ID, alerts[0].BudgetID)
	assert.Equal(t, budget.SeverityCritical, alerts[0].Severity)
	assertDecimal(t, "150", alerts[0].PercentSpent)

	assert.Equal(t, budget.SeverityCritical, alerts[1].Severity)
	assert.Equal(t, budget.SeverityWarning, alerts[2].Severity)
	assertDecimal(t, "95", alerts[2].PercentSpent)
	assert.Equal(t, nearly.ID, alerts[3].BudgetID)

	for _, a := range alerts {
		assertDecimal(t, "90", a.Threshold)
		assert.NotEmpty(t, a.Message)
		assert.Equal(t, day(2024, 3, 15), a.Timestamp)
	}

	warnings := budget.FilterSeverity(alerts, budget.SeverityWarning)
	assert.Len(t, warnings, 2)
	assert.Len(t, alerts, 4, "filtering leaves the input intact")
}

func TestService_Alerts_BelowThreshold(t *testing.T) {
	companyID := uuid.New()
	f := newFixture(t, day(2024, 3, 15))

	b := &budget.Budget{
		ID: uuid.New(), CompanyID: companyID, Status: budget.StatusActive,
		StartDate: day(2024, 3, 1), EndDate: day(2024, 3, 31), TotalBudget: dec("1000"), Currency: "USD",
		Items: []budget.Item{{Name: "Misc", Amount: dec("1000")}},
	}

	f.repo.EXPECT().ListBudgets(gomock.Any(), companyID).Return([]*budget.Budget{b}, nil)
	f.repo.EXPECT().ListExpenses(gomock.Any(), companyID, gomock.Any(), gomock.Any()).
		Return([]budget.Expense{{Amount: dec("899"), Currency: "USD"}}, nil)

	alerts, err := f.svc.Alerts(context.Background(), companyID, budget.DefaultAlertThreshold)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestService_Get_DerivesSpend(t *testing.T) {
	companyID := uuid.New()
	office := uuid.New()
	f := newFixture(t, day(2024, 1, 20))

	b := &budget.Budget{
		ID: uuid.New(), CompanyID: companyID, StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 31),
		TotalBudget: dec("1500"), Currency: "USD",
		Items: []budget.Item{
			{CategoryID: &office, Name: "Office", Amount: dec("1000")},
			{Name: "Other", Amount: dec("500")},
		},
	}

	f.repo.EXPECT().GetBudget(gomock.Any(), companyID, b.ID).Return(b, nil)
	f.repo.EXPECT().ListExpenses(gomock.Any(), companyID, gomock.Any(), gomock.Any()).
		Return([]budget.Expense{
			{CategoryID: &office, Amount: dec("300"), Currency: "USD"},
			{Amount: dec("20"), Currency: "EUR"},
		}, nil)

	got, err := f.svc.Get(context.Background(), companyID, b.ID)
	require.NoError(t, err)
	assertDecimal(t, "300", got.Items[0].Spent)
	assertDecimal(t, "22", got.Items[1].Spent)
	assertDecimal(t, "322", got.TotalSpent)
}

func TestService_Create(t *testing.T) {
	companyID := uuid.New()
	ownCategory, foreignCategory := uuid.New(), uuid.New()

	type testCase struct {
		name      string
		params    budget.CreateParams
		setupMock func(f fixture)
		wantErr   error
		verify    func(t *testing.T, b *budget.Budget)
	}

	tests := []testCase{
		{
			name: "DefaultsCurrencyAndTotal",
			params: budget.CreateParams{
				Name:      "Q1",
				StartDate: day(2024, 1, 1),
				EndDate:   day(2024, 3, 31),
				Items: []budget.ItemParams{
					{Name: "Office", Amount: dec("100")},
					{Name: "Travel", Amount: dec("250")},
				},
			},
			setupMock: func(f fixture) {
				f.currency.EXPECT().DefaultCurrency(gomock.Any(), companyID).Return("EUR", nil)
				f.repo.EXPECT().CreateBudget(gomock.Any(), gomock.Any()).Return(nil)
			},
			verify: func(t *testing.T, b *budget.Budget) {
				assert.Equal(t, "EUR", b.Currency)
				assert.Equal(t, budget.StatusActive, b.Status)
				assertDecimal(t, "350", b.TotalBudget)
				assert.Equal(t, "Travel", b.Items[1].Name)
			},
		},
		{
			name: "NormalizesCurrencyAndChecksCategories",
			params: budget.CreateParams{
				Name:      "Ops",
				StartDate: day(2024, 1, 1),
				EndDate:   day(2024, 1, 31),
				Currency:  "usd",
				Items:     []budget.ItemParams{{CategoryID: &ownCategory, Name: "Office", Amount: dec("40")}},
			},
			setupMock: func(f fixture) {
				f.repo.EXPECT().CategoryExists(gomock.Any(), companyID, ownCategory).Return(true, nil)
				f.repo.EXPECT().CreateBudget(gomock.Any(), gomock.Any()).Return(nil)
			},
			verify: func(t *testing.T, b *budget.Budget) {
				assert.Equal(t, "USD", b.Currency)
				assertDecimal(t, "40", b.TotalBudget)
			},
		},
		{
			name: "UnsupportedCurrency",
			params: budget.CreateParams{
				Name:      "Odd",
				StartDate: day(2024, 1, 1),
				EndDate:   day(2024, 1, 31),
				Currency:  "XYZ",
			},
			wantErr: currency.ErrUnsupportedCurrency,
		},
		{
			name: "CategoryOfAnotherCompany",
			params: budget.CreateParams{
				Name:      "Foreign",
				StartDate: day(2024, 1, 1),
				EndDate:   day(2024, 1, 31),
				Currency:  "USD",
				Items:     []budget.ItemParams{{CategoryID: &foreignCategory, Name: "Theirs", Amount: dec("10")}},
			},
			setupMock: func(f fixture) {
				f.repo.EXPECT().CategoryExists(gomock.Any(), companyID, foreignCategory).Return(false, nil)
			},
			wantErr: budget.ErrInvalid,
		},
		{
			name: "NegativeItem",
			params: budget.CreateParams{
				Name:      "Refund",
				StartDate: day(2024, 1, 1),
				EndDate:   day(2024, 1, 31),
				Currency:  "USD",
				Items:     []budget.ItemParams{{Name: "Office", Amount: dec("-5")}},
			},
			wantErr: budget.ErrInvalid,
		},
		{
			name: "NegativeTotal",
			params: budget.CreateParams{
				Name:        "Refund",
				StartDate:   day(2024, 1, 1),
				EndDate:     day(2024, 1, 31),
				Currency:    "USD",
				TotalBudget: dec("-1"),
			},
			wantErr: budget.ErrInvalid,
		},
		{
			name: "EndBeforeStart",
			params: budget.CreateParams{
				Name:      "Backwards",
				StartDate: day(2024, 3, 1),
				EndDate:   day(2024, 1, 1),
			},
			wantErr: budget.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, day(2024, 1, 1))
			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			got, err := f.svc.Create(context.Background(), companyID, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.verify(t, got)
		})
	}
}
