package ledgersync_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/erpledger/internal/auth"
	syncHandler "github.com/MrJamesThe3rd/erpledger/internal/http/ledgersync"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
	"github.com/MrJamesThe3rd/erpledger/internal/ledgersync"
)

type fixture struct {
	companyID uuid.UUID
	ledger    *ledgersync.MockLedger
	currency  *ledgersync.MockCurrency
	router    chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		companyID: uuid.New(),
		ledger:    ledgersync.NewMockLedger(ctrl),
		currency:  ledgersync.NewMockCurrency(ctrl),
		router:    chi.NewRouter(),
	}

	f.router.Route("/sync", syncHandler.NewHandler(ledgersync.NewService(f.ledger, f.currency)).Routes)

	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.WithCompany(req.Context(), f.companyID))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func TestHandler_SaleCreated_UsesCallerCompany(t *testing.T) {
	f := newFixture(t)
	account := &ledger.Account{ID: uuid.New(), CompanyID: f.companyID, Type: ledger.AccountBank, Currency: "USD"}

	f.ledger.EXPECT().FindByRelatedTo(gomock.Any(), f.companyID, "sale-1").Return(nil, ledger.ErrNotFound)
	f.ledger.EXPECT().ListAccounts(gomock.Any(), f.companyID).Return([]*ledger.Account{account}, nil)
	f.ledger.EXPECT().ListCategories(gomock.Any(), f.companyID).Return(nil, nil)
	f.currency.EXPECT().DefaultCurrency(gomock.Any(), f.companyID).Return("USD", nil)
	f.ledger.EXPECT().Create(gomock.Any(), f.companyID, gomock.Any()).DoAndReturn(
		func(_ context.Context, companyID uuid.UUID, p ledger.CreateParams) (*ledger.Transaction, error) {
			assert.Equal(t, "Sale to Ada - Invoice #INV-9", p.Description)
			assert.Equal(t, ledger.StatusCompleted, p.Status)
			require.NotNil(t, p.RelatedTo)
			assert.Equal(t, "sale-1", *p.RelatedTo)

			return &ledger.Transaction{ID: uuid.New(), CompanyID: companyID, Amount: p.Amount, Currency: p.Currency, Status: p.Status}, nil
		})

	// The payload names a different company; it must be ignored.
	body := `{"event":"created","sale":{"id":"sale-1","companyId":"` + uuid.NewString() + `","date":"2024-05-02","total":"120","status":"completed","invoiceNumber":"INV-9","customerName":"Ada"}}`

	rec := f.do(http.MethodPost, "/sync/sales", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"synced":true`)
}

func TestHandler_SaleValidation(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/sync/sales", `{"event":"archived","sale":{"id":"s","date":"2024-05-02","status":"completed"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/sync/sales", `{"event":"created","sale":{"date":"2024-05-02","status":"completed"}}`).Code)
}

func TestHandler_SaleNoAccount(t *testing.T) {
	f := newFixture(t)

	f.ledger.EXPECT().FindByRelatedTo(gomock.Any(), f.companyID, "sale-2").Return(nil, ledger.ErrNotFound)
	f.ledger.EXPECT().ListAccounts(gomock.Any(), f.companyID).Return(nil, nil)

	rec := f.do(http.MethodPost, "/sync/sales", `{"event":"updated","sale":{"id":"sale-2","date":"2024-05-02","total":"10","status":"pending"}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no bank or cash account")
}

func TestHandler_SaleDeleted(t *testing.T) {
	f := newFixture(t)

	f.ledger.EXPECT().FindByRelatedTo(gomock.Any(), f.companyID, "sale-3").Return(nil, ledger.ErrNotFound)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/sync/sales/sale-3", "").Code)
}

func TestHandler_InventoryDecrease(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/sync/inventory", `{"item":{"id":"item-1","name":"Widget","price":"3","quantity":4},"previousQuantity":9,"eventId":"evt-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"synced":false}`, rec.Body.String())
}

func TestHandler_InventoryRequiresEventID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/sync/inventory", `{"item":{"id":"item-1","name":"Widget","price":"3","quantity":9},"previousQuantity":4}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"eventId"`)
}

func TestHandler_SaleUnsupportedCurrency(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/sync/sales", `{"event":"created","sale":{"id":"sale-5","date":"2024-05-02","total":"10","status":"completed","currency":"XYZ"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported currency")
}
