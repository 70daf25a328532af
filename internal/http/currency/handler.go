package currency

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/currency"
	"github.com/MrJamesThe3rd/erpledger/internal/http/render"
)

type Handler struct {
	svc *currency.Service
}

func NewHandler(svc *currency.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.settings)
	r.Post("/", h.setDefault)
	r.Put("/", h.convert)
}

type settingsResponse struct {
	DefaultCurrency     string              `json:"defaultCurrency"`
	SupportedCurrencies []currency.Currency `json:"supportedCurrencies"`
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	def, err := h.svc.DefaultCurrency(r.Context(), companyID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, settingsResponse{
		DefaultCurrency:     def,
		SupportedCurrencies: h.svc.Supported(),
	})
}

type setDefaultRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

type setDefaultResponse struct {
	DefaultCurrency string `json:"defaultCurrency"`
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	var req setDefaultRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	code, err := h.svc.SetDefaultCurrency(r.Context(), companyID, req.Currency)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, setDefaultResponse{DefaultCurrency: code})
}

type convertRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	From   string          `json:"from" validate:"required,len=3"`
	To     string          `json:"to" validate:"required,len=3"`
}

type conversionResponse struct {
	OriginalAmount  decimal.Decimal `json:"originalAmount"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	FromCurrency    string          `json:"fromCurrency"`
	ToCurrency      string          `json:"toCurrency"`
	ExchangeRate    decimal.Decimal `json:"exchangeRate"`
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	if _, ok := render.Company(w, r); !ok {
		return
	}

	var req convertRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	conv, err := h.svc.ConvertDetailed(req.Amount, req.From, req.To)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, conversionResponse{
		OriginalAmount:  conv.OriginalAmount,
		ConvertedAmount: conv.ConvertedAmount,
		FromCurrency:    conv.FromCurrency,
		ToCurrency:      conv.ToCurrency,
		ExchangeRate:    conv.ExchangeRate,
	})
}
