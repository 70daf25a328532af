// Package notification persists notifications produced by finance events.
// Delivery is left to whoever reads them.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/budget"
)

var ErrInvalid = errors.New("invalid notification")

type Notification struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	Title           string
	Message         string
	Type            string
	Category        string
	RecipientID     string
	RecipientType   string
	RelatedItemID   string
	RelatedItemType string
	ActionURL       string
	Read            bool
	CreatedAt       time.Time
}

// Recipient addresses a notification to a user or employee.
type Recipient struct {
	ID   string
	Type string
}

//go:generate mockgen -source=notification.go -destination=repository_mock.go -package=notification
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, companyID uuid.UUID, limit int) ([]*Notification, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, n *Notification) (*Notification, error) {
	if n.Title == "" || n.Message == "" {
		return nil, fmt.Errorf("%w: title and message are required", ErrInvalid)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	return n, nil
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	return s.repo.List(ctx, companyID, limit)
}

// FromAlert builds the notification for a budget alert.
func FromAlert(companyID uuid.UUID, a budget.Alert, to Recipient) *Notification {
	n := &Notification{
		CompanyID:       companyID,
		Title:           "Budget alert: " + a.BudgetName,
		Message:         a.Message,
		Type:            string(a.Severity),
		Category:        "finance",
		RecipientID:     to.ID,
		RecipientType:   to.Type,
		RelatedItemID:   a.BudgetID.String(),
		RelatedItemType: "budget",
		ActionURL:       "/finance/budgets/" + a.BudgetID.String(),
	}

	if a.ItemID != nil {
		n.Title = fmt.Sprintf("Budget alert: %s / %s", a.BudgetName, a.ItemName)
		n.RelatedItemID = a.ItemID.String()
		n.RelatedItemType = "budget_item"
	}

	return n
}

// NotifyAlerts persists one notification per alert. It stops at the first failure.
func (s *Service) NotifyAlerts(ctx context.Context, companyID uuid.UUID, alerts []budget.Alert, to Recipient) ([]*Notification, error) {
	out := make([]*Notification, 0, len(alerts))

	for _, a := range alerts {
		n, err := s.Create(ctx, FromAlert(companyID, a, to))
		if err != nil {
			return out, err
		}

		out = append(out, n)
	}

	return out, nil
}
