package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/erpledger/internal/currency"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

type serviceMocks struct {
	repo     *ledger.MockRepository
	balances *ledger.MockBalanceMaintainer
	notifier *ledger.MockChangeNotifier
}

func newTestService(t *testing.T) (*ledger.Service, serviceMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := serviceMocks{
		repo:     ledger.NewMockRepository(ctrl),
		balances: ledger.NewMockBalanceMaintainer(ctrl),
		notifier: ledger.NewMockChangeNotifier(ctrl),
	}

	return ledger.NewService(m.repo, m.balances, currency.Codes{}, m.notifier), m
}

func appliedTx(companyID, accountID uuid.UUID, amount string) *ledger.Transaction {
	a := decimal.RequireFromString(amount)

	return &ledger.Transaction{
		ID:               uuid.New(),
		CompanyID:        companyID,
		Date:             time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:           a,
		Currency:         "USD",
		Type:             ledger.TypeIncome,
		Status:           ledger.StatusCompleted,
		AccountID:        &accountID,
		AppliedAccountID: &accountID,
		AppliedAmount:    &a,
	}
}

var errDB = errors.New("db down")

// rewriteLocked stands in for Balances.Rewrite: it runs the change against
// locked and returns the result, keeping the applied marker only when keep is set.
func rewriteLocked(locked *ledger.Transaction, keep bool) func(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, func(*ledger.Transaction) (*ledger.Transaction, error)) (*ledger.Transaction, error) {
	return func(_ context.Context, _, _, _ uuid.UUID, change func(*ledger.Transaction) (*ledger.Transaction, error)) (*ledger.Transaction, error) {
		c := *locked

		next, err := change(&c)
		if err != nil {
			return nil, err
		}

		if !keep {
			next.AppliedAccountID, next.AppliedAmount = nil, nil
		}

		return next, nil
	}
}

func TestService_Create(t *testing.T) {
	companyID := uuid.New()
	accountID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name      string
		params    ledger.CreateParams
		setupMock func(m serviceMocks)
		wantErr   error
		verify    func(t *testing.T, tx *ledger.Transaction)
	}

	tests := []testCase{
		{
			name: "CompletedIsApplied",
			params: ledger.CreateParams{
				Date:      date,
				Amount:    decimal.NewFromInt(250),
				Type:      ledger.TypeIncome,
				Status:    ledger.StatusCompleted,
				AccountID: &accountID,
			},
			setupMock: func(m serviceMocks) {
				txID := uuid.New()

				m.repo.EXPECT().
					GetAccount(gomock.Any(), companyID, accountID).
					Return(&ledger.Account{ID: accountID, CompanyID: companyID, Currency: "EUR"}, nil)
				m.balances.EXPECT().
					Book(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *ledger.Transaction) error {
						assert.Equal(t, "EUR", tx.Currency, "currency defaults to the account's")
						tx.ID = txID
						tx.AppliedAccountID, tx.AppliedAmount = &accountID, &tx.Amount
						return nil
					})
				m.notifier.EXPECT().TransactionsChanged(companyID)
			},
			verify: func(t *testing.T, tx *ledger.Transaction) {
				assert.Equal(t, ledger.StatusCompleted, tx.Status)
				assert.True(t, tx.Applied())
			},
		},
		{
			name: "BookFailureReportsNothingChanged",
			params: ledger.CreateParams{
				Date:      date,
				Amount:    decimal.NewFromInt(5),
				Currency:  "USD",
				Type:      ledger.TypeExpense,
				Status:    ledger.StatusCompleted,
				AccountID: &accountID,
			},
			setupMock: func(m serviceMocks) {
				m.repo.EXPECT().
					GetAccount(gomock.Any(), companyID, accountID).
					Return(&ledger.Account{ID: accountID, CompanyID: companyID, Currency: "USD"}, nil)
				m.balances.EXPECT().Book(gomock.Any(), gomock.Any()).Return(errDB)
			},
			wantErr: errDB,
		},
		{
			name: "UnsupportedCurrency",
			params: ledger.CreateParams{
				Date:     date,
				Amount:   decimal.NewFromInt(10),
				Currency: "XYZ",
				Type:     ledger.TypeIncome,
				Status:   ledger.StatusCompleted,
			},
			wantErr: currency.ErrUnsupportedCurrency,
		},
		{
			name: "UnsupportedCurrencyWithAccount",
			params: ledger.CreateParams{
				Date:      date,
				Amount:    decimal.NewFromInt(10),
				Currency:  "xyz",
				Type:      ledger.TypeIncome,
				Status:    ledger.StatusCompleted,
				AccountID: &accountID,
			},
			setupMock: func(m serviceMocks) {
				m.repo.EXPECT().
					GetAccount(gomock.Any(), companyID, accountID).
					Return(&ledger.Account{ID: accountID, CompanyID: companyID, Currency: "USD"}, nil)
			},
			wantErr: currency.ErrUnsupportedCurrency,
		},
		{
			name: "PendingIsNotApplied",
			params: ledger.CreateParams{
				Date:     date,
				Amount:   decimal.NewFromInt(10),
				Currency: "usd",
				Type:     ledger.TypeExpense,
			},
			setupMock: func(m serviceMocks) {
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
				m.notifier.EXPECT().TransactionsChanged(companyID)
			},
			verify: func(t *testing.T, tx *ledger.Transaction) {
				assert.Equal(t, ledger.StatusPending, tx.Status)
				assert.Equal(t, "USD", tx.Currency)
			},
		},
		{
			name: "AccountNotFound",
			params: ledger.CreateParams{
				Date:      date,
				Amount:    decimal.NewFromInt(10),
				Type:      ledger.TypeExpense,
				Status:    ledger.StatusCompleted,
				AccountID: &accountID,
			},
			setupMock: func(m serviceMocks) {
				m.repo.EXPECT().
					GetAccount(gomock.Any(), companyID, accountID).
					Return(nil, ledger.ErrAccountNotFound)
			},
			wantErr: ledger.ErrAccountNotFound,
		},
		{
			name: "NonPositiveAmount",
			params: ledger.CreateParams{
				Date:     date,
				Amount:   decimal.Zero,
				Currency: "USD",
				Type:     ledger.TypeExpense,
			},
			wantErr: ledger.ErrInvalid,
		},
		{
			name: "DuplicateLink",
			params: ledger.CreateParams{
				Date:      date,
				Amount:    decimal.NewFromInt(10),
				Currency:  "USD",
				Type:      ledger.TypeIncome,
				RelatedTo: new("sale-1"),
			},
			setupMock: func(m serviceMocks) {
				m.repo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(ledger.ErrDuplicateLink)
			},
			wantErr: ledger.ErrDuplicateLink,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService(t)
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			got, err := svc.Create(context.Background(), companyID, tt.params)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)

			if tt.verify != nil {
				tt.verify(t, got)
			}
		})
	}
}

func TestService_UpdateStatus_PendingToCompletedAppliesInRewrite(t *testing.T) {
	svc, m := newTestService(t)
	companyID, accountID := uuid.New(), uuid.New()

	tx := &ledger.Transaction{
		ID:        uuid.New(),
		CompanyID: companyID,
		Date:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.NewFromInt(90),
		Currency:  "USD",
		Type:      ledger.TypeIncome,
		Status:    ledger.StatusPending,
		AccountID: &accountID,
	}

	gomock.InOrder(
		m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, tx.ID).Return(tx, nil),
		m.balances.EXPECT().
			Rewrite(gomock.Any(), companyID, accountID, tx.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _, _ uuid.UUID, change func(*ledger.Transaction) (*ledger.Transaction, error)) (*ledger.Transaction, error) {
				c := *tx

				next, err := change(&c)
				require.NoError(t, err)
				assert.Equal(t, ledger.StatusCompleted, next.Status)

				next.AppliedAccountID, next.AppliedAmount = &accountID, &next.Amount

				return next, nil
			}),
	)
	m.balances.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	m.notifier.EXPECT().TransactionsChanged(companyID)

	got, err := svc.UpdateStatus(context.Background(), companyID, tx.ID, ledger.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, got.Applied())
}

func TestService_UpdateStatus_LeavingCompleted(t *testing.T) {
	svc, m := newTestService(t)
	companyID, accountID := uuid.New(), uuid.New()
	tx := appliedTx(companyID, accountID, "90")

	gomock.InOrder(
		m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, tx.ID).Return(tx, nil),
		m.balances.EXPECT().
			Rewrite(gomock.Any(), companyID, accountID, tx.ID, gomock.Any()).
			DoAndReturn(rewriteLocked(tx, false)),
	)
	m.notifier.EXPECT().TransactionsChanged(companyID)

	got, err := svc.UpdateStatus(context.Background(), companyID, tx.ID, ledger.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, got.Status)
	assert.False(t, got.Applied())
}

func TestService_Update_MovedAccountAppliesToNewAccount(t *testing.T) {
	svc, m := newTestService(t)
	companyID, oldAccount, newAccount := uuid.New(), uuid.New(), uuid.New()
	tx := appliedTx(companyID, oldAccount, "90")

	gomock.InOrder(
		m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, tx.ID).Return(tx, nil),
		m.repo.EXPECT().
			GetAccount(gomock.Any(), companyID, newAccount).
			Return(&ledger.Account{ID: newAccount, CompanyID: companyID, Currency: "USD"}, nil),
		m.balances.EXPECT().
			Rewrite(gomock.Any(), companyID, oldAccount, tx.ID, gomock.Any()).
			DoAndReturn(rewriteLocked(tx, false)),
		m.balances.EXPECT().Apply(gomock.Any(), companyID, tx.ID, newAccount).Return(nil),
		m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, tx.ID).Return(tx, nil),
	)
	m.notifier.EXPECT().TransactionsChanged(companyID)

	_, err := svc.Update(context.Background(), companyID, tx.ID, ledger.UpdateParams{AccountID: &newAccount})
	require.NoError(t, err)
}

func TestService_Update_DescriptionKeepsBalance(t *testing.T) {
	svc, m := newTestService(t)
	companyID, accountID := uuid.New(), uuid.New()
	tx := appliedTx(companyID, accountID, "90")

	m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, tx.ID).Return(tx, nil)
	m.balances.EXPECT().
		Rewrite(gomock.Any(), companyID, accountID, tx.ID, gomock.Any()).
		DoAndReturn(rewriteLocked(tx, true))
	m.balances.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	m.notifier.EXPECT().TransactionsChanged(companyID)

	got, err := svc.Update(context.Background(), companyID, tx.ID, ledger.UpdateParams{Description: new("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Description)
	assert.True(t, got.Applied())
}

func TestService_Update_RetriesWhenAccountChanged(t *testing.T) {
	svc, m := newTestService(t)
	companyID, first, second := uuid.New(), uuid.New(), uuid.New()
	before := appliedTx(companyID, first, "40")
	after := *before
	after.AccountID, after.AppliedAccountID = &second, &second

	gomock.InOrder(
		m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, before.ID).Return(before, nil),
		m.balances.EXPECT().
			Rewrite(gomock.Any(), companyID, first, before.ID, gomock.Any()).
			Return(nil, ledger.ErrStale),
		m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, before.ID).Return(&after, nil),
		m.balances.EXPECT().
			Rewrite(gomock.Any(), companyID, second, before.ID, gomock.Any()).
			DoAndReturn(rewriteLocked(&after, true)),
	)
	m.notifier.EXPECT().TransactionsChanged(companyID)

	got, err := svc.Update(context.Background(), companyID, before.ID, ledger.UpdateParams{Notes: new("checked")})
	require.NoError(t, err)
	assert.Equal(t, second, *got.AccountID)
}

func TestService_Update_Unbooked(t *testing.T) {
	svc, m := newTestService(t)
	companyID := uuid.New()
	tx := &ledger.Transaction{
		ID:        uuid.New(),
		CompanyID: companyID,
		Date:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.NewFromInt(12),
		Currency:  "USD",
		Type:      ledger.TypeExpense,
		Status:    ledger.StatusCompleted,
	}

	gomock.InOrder(
		m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, tx.ID).Return(tx, nil),
		m.repo.EXPECT().
			UpdateTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, next *ledger.Transaction) error {
				assert.Equal(t, "EUR", next.Currency)
				return nil
			}),
	)
	m.notifier.EXPECT().TransactionsChanged(companyID)

	_, err := svc.Update(context.Background(), companyID, tx.ID, ledger.UpdateParams{Currency: new("eur")})
	require.NoError(t, err)
}

func TestService_Update_UnsupportedCurrency(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), ledger.UpdateParams{Currency: new("XYZ")})
	assert.ErrorIs(t, err, currency.ErrUnsupportedCurrency)
}

func TestService_Delete(t *testing.T) {
	companyID, accountID := uuid.New(), uuid.New()

	type testCase struct {
		name      string
		tx        *ledger.Transaction
		setupMock func(m serviceMocks, tx *ledger.Transaction)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "BookedRemovedUnderAccountLock",
			tx:   appliedTx(companyID, accountID, "15"),
			setupMock: func(m serviceMocks, tx *ledger.Transaction) {
				m.balances.EXPECT().Remove(gomock.Any(), companyID, accountID, tx.ID).Return(nil)
				m.notifier.EXPECT().TransactionsChanged(companyID)
			},
		},
		{
			name: "Unbooked",
			tx: &ledger.Transaction{
				ID:        uuid.New(),
				CompanyID: companyID,
				Status:    ledger.StatusPending,
			},
			setupMock: func(m serviceMocks, tx *ledger.Transaction) {
				m.repo.EXPECT().DeleteTransaction(gomock.Any(), companyID, tx.ID).Return(nil)
				m.notifier.EXPECT().TransactionsChanged(companyID)
			},
		},
		{
			name: "RemoveFailureKeepsTransaction",
			tx:   appliedTx(companyID, accountID, "15"),
			setupMock: func(m serviceMocks, tx *ledger.Transaction) {
				m.balances.EXPECT().Remove(gomock.Any(), companyID, accountID, tx.ID).Return(errDB)
			},
			wantErr: errDB,
		},
		{
			name: "GivesUpAfterRepeatedRaces",
			tx:   appliedTx(companyID, accountID, "15"),
			setupMock: func(m serviceMocks, tx *ledger.Transaction) {
				m.balances.EXPECT().Remove(gomock.Any(), companyID, accountID, tx.ID).Return(ledger.ErrStale).Times(3)
			},
			wantErr: ledger.ErrStale,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService(t)
			m.repo.EXPECT().GetTransaction(gomock.Any(), companyID, tt.tx.ID).Return(tt.tx, nil).AnyTimes()
			tt.setupMock(m, tt.tx)

			err := svc.Delete(context.Background(), companyID, tt.tx.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestService_LinkProject(t *testing.T) {
	svc, m := newTestService(t)
	companyID := uuid.New()
	projectID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	_, err := svc.LinkProject(context.Background(), companyID, nil, &projectID)
	assert.ErrorIs(t, err, ledger.ErrInvalid)

	m.repo.EXPECT().LinkProject(gomock.Any(), companyID, ids, &projectID).Return(int64(2), nil)

	n, err := svc.LinkProject(context.Background(), companyID, ids, &projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestService_CreateAccount(t *testing.T) {
	svc, m := newTestService(t)
	companyID := uuid.New()

	_, err := svc.CreateAccount(context.Background(), companyID, ledger.CreateAccountParams{Name: "X", Type: "vault", Currency: "USD"})
	assert.ErrorIs(t, err, ledger.ErrInvalid)

	_, err = svc.CreateAccount(context.Background(), companyID, ledger.CreateAccountParams{Name: "X", Type: ledger.AccountBank, Currency: "XYZ"})
	assert.ErrorIs(t, err, currency.ErrUnsupportedCurrency)

	m.repo.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(nil)

	acc, err := svc.CreateAccount(context.Background(), companyID, ledger.CreateAccountParams{Name: "Till", Type: ledger.AccountCash, Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", acc.Currency)
	assert.True(t, acc.Balance.IsZero())
}
