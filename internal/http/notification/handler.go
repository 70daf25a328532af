package notification

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/http/render"
	"github.com/MrJamesThe3rd/erpledger/internal/notification"
)

type Handler struct {
	svc *notification.Service
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

type notificationResponse struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Type            string    `json:"type"`
	Category        string    `json:"category"`
	RecipientID     string    `json:"recipientId"`
	RecipientType   string    `json:"recipientType"`
	RelatedItemID   string    `json:"relatedItemId,omitempty"`
	RelatedItemType string    `json:"relatedItemType,omitempty"`
	ActionURL       string    `json:"actionUrl,omitempty"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, ok := render.Company(w, r)
	if !ok {
		return
	}

	limit := 0

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			render.Error(w, r, &render.ValidationError{Fields: []render.FieldError{{Field: "limit", Message: "must be a positive integer"}}})
			return
		}

		limit = n
	}

	list, err := h.svc.List(r.Context(), companyID, limit)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]notificationResponse, len(list))
	for i, n := range list {
		resp[i] = notificationResponse{
			ID:              n.ID,
			Title:           n.Title,
			Message:         n.Message,
			Type:            n.Type,
			Category:        n.Category,
			RecipientID:     n.RecipientID,
			RecipientType:   n.RecipientType,
			RelatedItemID:   n.RelatedItemID,
			RelatedItemType: n.RelatedItemType,
			ActionURL:       n.ActionURL,
			Read:            n.Read,
			CreatedAt:       n.CreatedAt,
		}
	}

	render.JSON(w, http.StatusOK, resp)
}
