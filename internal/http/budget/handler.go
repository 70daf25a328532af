package budget

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/budget"
	"github.com/MrJamesThe3rd/erpledger/internal/http/render"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
	"github.com/MrJamesThe3rd/erpledger/internal/notification"
)

type Handler struct {
	budgets       *budget.Service
	ledger        *ledger.Service
	notifications *notification.Service
	threshold     decimal.Decimal
}

// NewHandler serves budgets and their categories. threshold is the alert
// percentage used when a request does not name one.
func NewHandler(budgets *budget.Service, l *ledger.Service, notifications *notification.Service, threshold decimal.Decimal) *Handler {
	return &Handler{budgets: budgets, ledger: l, notifications: notifications, threshold: threshold}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Get("/alerts", h.alerts)
	r.Post("/alerts/notify", h.notify)
	r.Get("/comparison", h.comparison)
	r.Get("/{id}", h.get)
}

type itemRequest struct {
	CategoryID *uuid.UUID      `json:"categoryId"`
	Name       string          `json:"name" validate:"required,max=200"`
	Amount     decimal.Decimal `json:"amount" validate:"gte=0"`
}

type createBudgetRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Type        string          `json:"type" validate:"max=50"`
	StartDate   string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string          `json:"endDate" validate:"required,datetime=2006-01-02"`
	TotalBudget decimal.Decimal `json:"totalBudget" validate:"gte=0"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
	Items       []itemRequest   `json:"items" validate:"dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req createBudgetRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)

	params := budget.CreateParams{
		Name:        req.Name,
		Type:        req.Type,
		StartDate:   start,
		EndDate:     end,
		TotalBudget: req.TotalBudget,
		Currency:    req.Currency,
		Items:       make([]budget.ItemParams, len(req.Items)),
	}

	for i, it := range req.Items {
		params.Items[i] = budget.ItemParams{CategoryID: it.CategoryID, Name: it.Name, Amount: it.Amount}
	}

	b, err := h.budgets.Create(r.Context(), companyID, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toBudgetResponse(b))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	budgets, err := h.budgets.List(r.Context(), companyID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		resp[i] = toBudgetResponse(b)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, r, invalidField("id", "must be a UUID"))
		return
	}

	b, err := h.budgets.Get(r.Context(), companyID, id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toBudgetResponse(b))
}

type createCategoryRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Type        ledger.Type `json:"type" validate:"required,oneof=income expense"`
	Description string      `json:"description" validate:"max=500"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req createCategoryRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	c, err := h.ledger.CreateCategory(r.Context(), companyID, ledger.CreateCategoryParams{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toCategoryResponse(c))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	categories, err := h.ledger.ListCategories(r.Context(), companyID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}

	render.JSON(w, http.StatusOK, resp)
}

func invalidField(field, message string) error {
	return &render.ValidationError{Fields: []render.FieldError{{Field: field, Message: message}}}
}

func (h *Handler) parseThreshold(s string) (decimal.Decimal, error) {
	if s == "" {
		return h.threshold, nil
	}

	t, err := decimal.NewFromString(s)
	if err != nil || !t.IsPositive() {
		return decimal.Zero, invalidField("threshold", "must be a positive number")
	}

	return t, nil
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	threshold, err := h.parseThreshold(q.Get("threshold"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	sev := budget.Severity(q.Get("status"))
	if sev != "" && !sev.Valid() {
		render.Error(w, r, invalidField("status", "must be one of: critical warning"))
		return
	}

	alerts, err := h.budgets.Alerts(r.Context(), companyID, threshold)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if sev != "" {
		alerts = budget.FilterSeverity(alerts, sev)
	}

	resp := make([]alertResponse, len(alerts))
	for i, a := range alerts {
		resp[i] = toAlertResponse(a)
	}

	render.JSON(w, http.StatusOK, resp)
}

type notifyRequest struct {
	Threshold     *decimal.Decimal `json:"threshold"`
	RecipientID   string           `json:"recipientId" validate:"required"`
	RecipientType string           `json:"recipientType" validate:"required,oneof=user employee"`
}

func (h *Handler) notify(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req notifyRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	threshold := h.threshold
	if req.Threshold != nil {
		if !req.Threshold.IsPositive() {
			render.Error(w, r, invalidField("threshold", "must be a positive number"))
			return
		}

		threshold = *req.Threshold
	}

	alerts, err := h.budgets.Alerts(r.Context(), companyID, threshold)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	created, err := h.notifications.NotifyAlerts(r.Context(), companyID, alerts, notification.Recipient{
		ID:   req.RecipientID,
		Type: req.RecipientType,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]notificationResponse, len(created))
	for i, n := range created {
		resp[i] = toNotificationResponse(n)
	}

	render.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) comparison(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	budgetID, err := uuid.Parse(q.Get("budgetId"))
	if err != nil {
		render.Error(w, r, invalidField("budgetId", "must be a UUID"))
		return
	}

	period, err := budget.ParsePeriod(q.Get("period"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	c, err := h.budgets.Comparison(r.Context(), companyID, budgetID, period)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toComparisonResponse(c))
}
