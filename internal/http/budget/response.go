package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/budget"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
	"github.com/MrJamesThe3rd/erpledger/internal/notification"
)

type itemResponse struct {
	ID         uuid.UUID       `json:"id"`
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Spent      decimal.Decimal `json:"spent"`
}

type budgetResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type,omitempty"`
	Status      budget.Status   `json:"status"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	TotalBudget decimal.Decimal `json:"totalBudget"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	Currency    string          `json:"currency"`
	Items       []itemResponse  `json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

func toBudgetResponse(b *budget.Budget) budgetResponse {
	resp := budgetResponse{
		ID:          b.ID,
		Name:        b.Name,
		Type:        b.Type,
		Status:      b.Status,
		StartDate:   b.StartDate.Format(time.DateOnly),
		EndDate:     b.EndDate.Format(time.DateOnly),
		TotalBudget: b.TotalBudget,
		TotalSpent:  b.TotalSpent,
		Currency:    b.Currency,
		Items:       make([]itemResponse, len(b.Items)),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}

	for i, it := range b.Items {
		resp.Items[i] = itemResponse{
			ID:         it.ID,
			CategoryID: it.CategoryID,
			Name:       it.Name,
			Amount:     it.Amount,
			Spent:      it.Spent,
		}
	}

	return resp
}

type categoryResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Type        ledger.Type `json:"type"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func toCategoryResponse(c *ledger.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Type:        c.Type,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

type alertResponse struct {
	BudgetID     uuid.UUID       `json:"budgetId"`
	BudgetName   string          `json:"budgetName"`
	ItemID       *uuid.UUID      `json:"itemId,omitempty"`
	ItemName     string          `json:"itemName,omitempty"`
	Severity     budget.Severity `json:"severity"`
	Message      string          `json:"message"`
	Spent        decimal.Decimal `json:"spent"`
	Allocated    decimal.Decimal `json:"allocated"`
	PercentSpent decimal.Decimal `json:"percentSpent"`
	Threshold    decimal.Decimal `json:"threshold"`
	Currency     string          `json:"currency"`
	Timestamp    time.Time       `json:"timestamp"`
}

func toAlertResponse(a budget.Alert) alertResponse {
	return alertResponse{
		BudgetID:     a.BudgetID,
		BudgetName:   a.BudgetName,
		ItemID:       a.ItemID,
		ItemName:     a.ItemName,
		Severity:     a.Severity,
		Message:      a.Message,
		Spent:        a.Spent,
		Allocated:    a.Allocated,
		PercentSpent: a.PercentSpent,
		Threshold:    a.Threshold,
		Currency:     a.Currency,
		Timestamp:    a.Timestamp,
	}
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

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
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

type categoryComparisonResponse struct {
	CategoryID   *uuid.UUID      `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Budgeted     decimal.Decimal `json:"budgeted"`
	Actual       decimal.Decimal `json:"actual"`
	Variance     decimal.Decimal `json:"variance"`
	PercentUsed  decimal.Decimal `json:"percentUsed"`
}

type summaryResponse struct {
	TotalBudgeted    decimal.Decimal         `json:"totalBudgeted"`
	TotalActual      decimal.Decimal         `json:"totalActual"`
	TotalVariance    decimal.Decimal         `json:"totalVariance"`
	TotalPercentUsed decimal.Decimal         `json:"totalPercentUsed"`
	Status           budget.ComparisonStatus `json:"status"`
}

type comparisonResponse struct {
	BudgetID   uuid.UUID                    `json:"budgetId"`
	BudgetName string                       `json:"budgetName"`
	Currency   string                       `json:"currency"`
	Period     budget.Period                `json:"period"`
	StartDate  string                       `json:"startDate"`
	EndDate    string                       `json:"endDate"`
	Summary    summaryResponse              `json:"summary"`
	Categories []categoryComparisonResponse `json:"categories"`
}

func toComparisonResponse(c *budget.Comparison) comparisonResponse {
	resp := comparisonResponse{
		BudgetID:   c.BudgetID,
		BudgetName: c.BudgetName,
		Currency:   c.Currency,
		Period:     c.Period,
		StartDate:  c.StartDate.Format(time.DateOnly),
		EndDate:    c.EndDate.Format(time.DateOnly),
		Summary: summaryResponse{
			TotalBudgeted:    c.Summary.TotalBudgeted,
			TotalActual:      c.Summary.TotalActual,
			TotalVariance:    c.Summary.TotalVariance,
			TotalPercentUsed: c.Summary.TotalPercentUsed,
			Status:           c.Summary.Status,
		},
		Categories: make([]categoryComparisonResponse, len(c.Categories)),
	}

	for i, cc := range c.Categories {
		resp.Categories[i] = categoryComparisonResponse{
			CategoryID:   cc.CategoryID,
			CategoryName: cc.CategoryName,
			Budgeted:     cc.Budgeted,
			Actual:       cc.Actual,
			Variance:     cc.Variance,
			PercentUsed:  cc.PercentUsed,
		}
	}

	return resp
}
