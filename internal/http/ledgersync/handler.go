package ledgersync

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/http/render"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
	"github.com/MrJamesThe3rd/erpledger/internal/ledgersync"
)

const (
	eventCreated = "created"
	eventUpdated = "updated"
)

// Handler receives change hooks from the sales and inventory modules. The
// company always comes from the caller, never from the payload.
type Handler struct {
	svc *ledgersync.Service
}

func NewHandler(svc *ledgersync.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/sales", h.sale)
	r.Delete("/sales/{saleId}", h.saleDeleted)
	r.Post("/inventory", h.inventory)
}

type saleItemRequest struct {
	Product string `json:"product"`
}

type saleRequest struct {
	ID            string            `json:"id" validate:"required"`
	Date          string            `json:"date" validate:"required,datetime=2006-01-02"`
	Total         decimal.Decimal   `json:"total"`
	Currency      string            `json:"currency" validate:"omitempty,len=3"`
	Status        string            `json:"status" validate:"required"`
	InvoiceNumber string            `json:"invoiceNumber"`
	CustomerName  string            `json:"customerName"`
	EmployeeID    string            `json:"employeeId"`
	Items         []saleItemRequest `json:"items"`
}

type saleEventRequest struct {
	Event string      `json:"event" validate:"required,oneof=created updated"`
	Sale  saleRequest `json:"sale"`
}

func (h *Handler) sale(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req saleEventRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	date, _ := time.Parse(time.DateOnly, req.Sale.Date)

	sale := ledgersync.Sale{
		ID:            req.Sale.ID,
		CompanyID:     companyID,
		Date:          date,
		Total:         req.Sale.Total,
		Currency:      req.Sale.Currency,
		Status:        req.Sale.Status,
		InvoiceNumber: req.Sale.InvoiceNumber,
		CustomerName:  req.Sale.CustomerName,
		EmployeeID:    req.Sale.EmployeeID,
		Items:         make([]ledgersync.SaleItem, len(req.Sale.Items)),
	}

	for i, it := range req.Sale.Items {
		sale.Items[i] = ledgersync.SaleItem{Product: it.Product}
	}

	var (
		tx  *ledger.Transaction
		err error
	)

	switch req.Event {
	case eventCreated:
		tx, err = h.svc.SaleCreated(r.Context(), sale)
	case eventUpdated:
		tx, err = h.svc.SaleUpdated(r.Context(), sale)
	}

	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSyncResponse(tx))
}

func (h *Handler) saleDeleted(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	if err := h.svc.SaleDeleted(r.Context(), companyID, chi.URLParam(r, "saleId")); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type inventoryItemRequest struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity" validate:"gte=0"`
}

type inventoryRequest struct {
	Item             inventoryItemRequest `json:"item"`
	PreviousQuantity int64                `json:"previousQuantity" validate:"gte=0"`
	EventID          string               `json:"eventId" validate:"required"`
	Date             string               `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req inventoryRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	change := ledgersync.QuantityChange{
		Item: ledgersync.InventoryItem{
			ID:        req.Item.ID,
			CompanyID: companyID,
			Name:      req.Item.Name,
			SKU:       req.Item.SKU,
			Price:     req.Item.Price,
			Quantity:  req.Item.Quantity,
		},
		PreviousQuantity: req.PreviousQuantity,
		EventID:          req.EventID,
	}

	if req.Date != "" {
		change.Date, _ = time.Parse(time.DateOnly, req.Date)
	}

	tx, err := h.svc.TrackQuantityChange(r.Context(), change)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSyncResponse(tx))
}

type syncResponse struct {
	Synced        bool             `json:"synced"`
	TransactionID string           `json:"transactionId,omitempty"`
	Status        ledger.Status    `json:"status,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      string           `json:"currency,omitempty"`
}

// toSyncResponse reports whether a transaction is linked after the event. A
// nil transaction means the event booked nothing.
func toSyncResponse(tx *ledger.Transaction) syncResponse {
	if tx == nil {
		return syncResponse{}
	}

	return syncResponse{
		Synced:        true,
		TransactionID: tx.ID.String(),
		Status:        tx.Status,
		Amount:        &tx.Amount,
		Currency:      tx.Currency,
	}
}
