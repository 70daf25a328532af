package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/erpledger/internal/budget"
	"github.com/MrJamesThe3rd/erpledger/internal/notification"
)

func TestFromAlert(t *testing.T) {
	companyID := uuid.New()
	itemID := uuid.New()
	to := notification.Recipient{ID: "user-1", Type: "user"}

	base := budget.Alert{
		BudgetID:     uuid.New(),
		BudgetName:   "Q1",
		Severity:     budget.SeverityCritical,
		Message:      "over",
		PercentSpent: decimal.NewFromInt(120),
	}

	type testCase struct {
		name            string
		alert           budget.Alert
		wantTitle       string
		wantRelatedType string
		wantRelatedID   string
	}

	item := base
	item.ItemID = &itemID
	item.ItemName = "Office"

	tests := []testCase{
		{name: "Budget", alert: base, wantTitle: "Budget alert: Q1", wantRelatedType: "budget", wantRelatedID: base.BudgetID.String()},
		{name: "Item", alert: item, wantTitle: "Budget alert: Q1 / Office", wantRelatedType: "budget_item", wantRelatedID: itemID.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := notification.FromAlert(companyID, tt.alert, to)

			assert.Equal(t, companyID, n.CompanyID)
			assert.Equal(t, tt.wantTitle, n.Title)
			assert.Equal(t, "over", n.Message)
			assert.Equal(t, "critical", n.Type)
			assert.Equal(t, "user-1", n.RecipientID)
			assert.Equal(t, tt.wantRelatedType, n.RelatedItemType)
			assert.Equal(t, tt.wantRelatedID, n.RelatedItemID)
			assert.Contains(t, n.ActionURL, base.BudgetID.String())
		})
	}
}

func TestService_NotifyAlerts(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := notification.NewMockRepository(ctrl)
	svc := notification.NewService(repo)
	companyID := uuid.New()

	alerts := []budget.Alert{
		{BudgetID: uuid.New(), BudgetName: "A", Severity: budget.SeverityCritical, Message: "a"},
		{BudgetID: uuid.New(), BudgetName: "B", Severity: budget.SeverityWarning, Message: "b"},
	}

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *notification.Notification) error {
			n.ID = uuid.New()
			return nil
		}).
		Times(2)

	got, err := svc.NotifyAlerts(context.Background(), companyID, alerts, notification.Recipient{ID: "u", Type: "user"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "warning", got[1].Type)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
}

func TestService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := notification.NewMockRepository(ctrl)
	svc := notification.NewService(repo)

	_, err := svc.Create(context.Background(), &notification.Notification{Title: "only title"})
	assert.ErrorIs(t, err, notification.ErrInvalid)

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("boom"))

	_, err = svc.Create(context.Background(), &notification.Notification{Title: "t", Message: "m"})
	assert.Error(t, err)
}
