package transaction

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

// Currency supplies the company currency for entries made without an account.
type Currency interface {
	DefaultCurrency(ctx context.Context, companyID uuid.UUID) (string, error)
}

type Handler struct {
	svc      *ledger.Service
	currency Currency
}

func NewHandler(svc *ledger.Service, currency Currency) *Handler {
	return &Handler{svc: svc, currency: currency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/count", h.count)
	r.Post("/link-project", h.linkProject)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.updateStatus)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"max=500"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
	Type        ledger.Type     `json:"type" validate:"required,oneof=income expense"`
	Status      ledger.Status   `json:"status" validate:"omitempty,oneof=pending completed"`
	CategoryID  *uuid.UUID      `json:"categoryId"`
	AccountID   *uuid.UUID      `json:"accountId"`
	ProjectID   *uuid.UUID      `json:"projectId"`
	Notes       string          `json:"notes"`
	Reference   string          `json:"reference"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	date, _ := time.Parse(time.DateOnly, req.Date)

	cur := req.Currency
	if cur == "" && req.AccountID == nil {
		var err error

		cur, err = h.currency.DefaultCurrency(r.Context(), companyID)
		if err != nil {
			render.Error(w, r, err)
			return
		}
	}

	tx, err := h.svc.Create(r.Context(), companyID, ledger.CreateParams{
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    cur,
		Type:        req.Type,
		Status:      req.Status,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		ProjectID:   req.ProjectID,
		Notes:       req.Notes,
		Reference:   req.Reference,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), companyID, filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(txs))
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	n, err := h.svc.Count(r.Context(), companyID, filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, countResponse{Count: n})
}

type linkProjectRequest struct {
	TransactionIDs []uuid.UUID `json:"transactionIds" validate:"required,min=1"`
	ProjectID      *uuid.UUID  `json:"projectId"`
}

type linkProjectResponse struct {
	Updated int64 `json:"updated"`
}

func (h *Handler) linkProject(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req linkProjectRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	n, err := h.svc.LinkProject(r.Context(), companyID, req.TransactionIDs, req.ProjectID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, linkProjectResponse{Updated: n})
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &render.ValidationError{Fields: []render.FieldError{{Field: "id", Message: "must be a UUID"}}}
	}

	return id, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	id, err := parseID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), companyID, id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	id, err := parseID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), companyID, id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateTransactionRequest struct {
	Date        *string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    *string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Type        *ledger.Type     `json:"type,omitempty" validate:"omitempty,oneof=income expense"`
	Status      *ledger.Status   `json:"status,omitempty" validate:"omitempty,oneof=pending completed"`
	CategoryID  *uuid.UUID       `json:"categoryId,omitempty"`
	AccountID   *uuid.UUID       `json:"accountId,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	Reference   *string          `json:"reference,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	id, err := parseID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	params := ledger.UpdateParams{
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Type:        req.Type,
		Status:      req.Status,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		Notes:       req.Notes,
		Reference:   req.Reference,
	}

	if req.Date != nil {
		date, _ := time.Parse(time.DateOnly, *req.Date)
		params.Date = &date
	}

	tx, err := h.svc.Update(r.Context(), companyID, id, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

type updateStatusRequest struct {
	Status ledger.Status `json:"status" validate:"required,oneof=pending completed"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	id, err := parseID(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	tx, err := h.svc.UpdateStatus(r.Context(), companyID, id, req.Status)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}
