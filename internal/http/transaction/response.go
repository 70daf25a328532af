package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

type transactionResponse struct {
	ID            uuid.UUID        `json:"id"`
	Date          string           `json:"date"`
	Description   string           `json:"description"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	Type          ledger.Type      `json:"type"`
	Status        ledger.Status    `json:"status"`
	CategoryID    *uuid.UUID       `json:"categoryId,omitempty"`
	AccountID     *uuid.UUID       `json:"accountId,omitempty"`
	ProjectID     *uuid.UUID       `json:"projectId,omitempty"`
	RelatedTo     *string          `json:"relatedTo,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Reference     string           `json:"reference,omitempty"`
	Applied       bool             `json:"applied"`
	AppliedAmount *decimal.Decimal `json:"appliedAmount,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     *time.Time       `json:"updatedAt,omitempty"`
}

func toResponse(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		Date:          tx.Date.Format(time.DateOnly),
		Description:   tx.Description,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Type:          tx.Type,
		Status:        tx.Status,
		CategoryID:    tx.CategoryID,
		AccountID:     tx.AccountID,
		ProjectID:     tx.ProjectID,
		RelatedTo:     tx.RelatedTo,
		Notes:         tx.Notes,
		Reference:     tx.Reference,
		Applied:       tx.Applied(),
		AppliedAmount: tx.AppliedAmount,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

func toResponseList(txs []*ledger.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
