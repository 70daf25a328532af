package account

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/http/render"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

// Currency supplies the currency of accounts opened without one.
type Currency interface {
	DefaultCurrency(ctx context.Context, companyID uuid.UUID) (string, error)
}

type Handler struct {
	svc      *ledger.Service
	balances *ledger.Balances
	currency Currency
}

func NewHandler(svc *ledger.Service, balances *ledger.Balances, currency Currency) *Handler {
	return &Handler{svc: svc, balances: balances, currency: currency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/recalculate", h.recalculate)
	r.Get("/{id}", h.get)
}

type accountResponse struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Currency  string             `json:"currency"`
	Balance   decimal.Decimal    `json:"balance"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

func toResponse(a *ledger.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      a.Type,
		Currency:  a.Currency,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	accounts, err := h.svc.ListAccounts(r.Context(), companyID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toResponse(a)
	}

	render.JSON(w, http.StatusOK, resp)
}

type createAccountRequest struct {
	Name     string             `json:"name" validate:"required,max=200"`
	Type     ledger.AccountType `json:"type" validate:"required,oneof=bank cash other"`
	Currency string             `json:"currency" validate:"omitempty,len=3"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req createAccountRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	cur := req.Currency
	if cur == "" {
		var err error

		cur, err = h.currency.DefaultCurrency(r.Context(), companyID)
		if err != nil {
			render.Error(w, r, err)
			return
		}
	}

	acc, err := h.svc.CreateAccount(r.Context(), companyID, ledger.CreateAccountParams{
		Name:     req.Name,
		Type:     req.Type,
		Currency: cur,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(acc))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, r, &render.ValidationError{Fields: []render.FieldError{{Field: "id", Message: "must be a UUID"}}})
		return
	}

	acc, err := h.svc.GetAccount(r.Context(), companyID, id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(acc))
}

type recalculateRequest struct {
	AccountID *uuid.UUID `json:"accountId"`
}

type recalcResponse struct {
	AccountID   uuid.UUID        `json:"accountId"`
	AccountName string           `json:"accountName"`
	Success     bool             `json:"success"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	Error       string           `json:"error,omitempty"`
}

func toRecalcResponse(res ledger.RecalcResult) recalcResponse {
	out := recalcResponse{
		AccountID:   res.AccountID,
		AccountName: res.AccountName,
		Success:     res.Success,
		Error:       res.Error,
	}

	if res.Success {
		out.Balance = &res.Balance
	}

	return out
}

// recalculate rebuilds one account when accountId is given, otherwise every
// account of the company. An empty body means all accounts.
func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req recalculateRequest
	if r.ContentLength != 0 {
		if err := render.Decode(r, &req); err != nil {
			render.Error(w, r, err)
			return
		}
	}

	if req.AccountID == nil {
		results, err := h.balances.RecalculateAll(r.Context(), companyID)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		resp := make([]recalcResponse, len(results))
		for i, res := range results {
			resp[i] = toRecalcResponse(res)
		}

		render.JSON(w, http.StatusOK, resp)

		return
	}

	acc, err := h.svc.GetAccount(r.Context(), companyID, *req.AccountID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	balance, err := h.balances.Recalculate(r.Context(), companyID, acc.ID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, []recalcResponse{toRecalcResponse(ledger.RecalcResult{
		AccountID:   acc.ID,
		AccountName: acc.Name,
		Success:     true,
		Balance:     balance,
	})})
}
