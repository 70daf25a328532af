package ledgersync_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
	"github.com/MrJamesThe3rd/erpledger/internal/ledgersync"
)

func TestTrackQuantityChange(t *testing.T) {
	inventory := category("Inventory", ledger.TypeExpense, "")

	type testCase struct {
		name       string
		previous   int64
		quantity   int64
		price      string
		wantAmount string
	}

	tests := []testCase{
		{name: "Increase", previous: 10, quantity: 14, price: "12.50", wantAmount: "50"},
		{name: "FromZero", previous: 0, quantity: 3, price: "0.99", wantAmount: "2.97"},
		{name: "Decrease", previous: 10, quantity: 4, price: "12.50"},
		{name: "Unchanged", previous: 10, quantity: 10, price: "12.50"},
		{name: "NoPrice", previous: 1, quantity: 5, price: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := newFakeLedger(
				[]*ledger.Account{{ID: uuid.New(), Type: ledger.AccountBank}},
				[]*ledger.Category{category("Sales", ledger.TypeIncome, ""), inventory},
			)
			svc := ledgersync.NewService(fl, staticCurrency("USD"))

			change := ledgersync.QuantityChange{
				Item: ledgersync.InventoryItem{
					ID:        "item-7",
					CompanyID: uuid.New(),
					Name:      "Widget",
					SKU:       "W-7",
					Price:     decimal.RequireFromString(tt.price),
					Quantity:  tt.quantity,
				},
				PreviousQuantity: tt.previous,
				EventID:          "evt-" + tt.name,
			}

			tx, err := svc.TrackQuantityChange(context.Background(), change)
			require.NoError(t, err)

			if tt.wantAmount == "" {
				assert.Nil(t, tx)
				assert.Empty(t, fl.txs)

				return
			}

			require.NotNil(t, tx)
			assert.True(t, decimal.RequireFromString(tt.wantAmount).Equal(tx.Amount), "amount %s", tx.Amount)
			assert.Equal(t, ledger.TypeExpense, tx.Type)
			assert.Equal(t, ledger.StatusCompleted, tx.Status)
			assert.Equal(t, inventory.ID, *tx.CategoryID)
			assert.Equal(t, "Inventory purchase: Widget (W-7) x"+decimal.NewFromInt(tt.quantity-tt.previous).String(), tx.Description)
			assert.True(t, tx.Signed(tx.Amount).Equal(fl.balance()))
		})
	}
}

func TestTrackQuantityChange_RetryWithEventID(t *testing.T) {
	fl := newFakeLedger([]*ledger.Account{{ID: uuid.New(), Type: ledger.AccountCash}}, nil)
	svc := ledgersync.NewService(fl, staticCurrency("USD"))

	change := ledgersync.QuantityChange{
		Item:             ledgersync.InventoryItem{ID: "item-1", CompanyID: uuid.New(), Name: "Bolt", Price: decimal.NewFromInt(2), Quantity: 20},
		PreviousQuantity: 10,
		EventID:          "evt-9",
	}

	first, err := svc.TrackQuantityChange(context.Background(), change)
	require.NoError(t, err)

	second, err := svc.TrackQuantityChange(context.Background(), change)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fl.linked("inventory:item-1:evt-9"), 1)
	assert.Nil(t, first.CategoryID, "no inventory category means uncategorized")
	assert.True(t, decimal.NewFromInt(-20).Equal(fl.balance()))
}

func TestTrackQuantityChange_NoAccount(t *testing.T) {
	fl := newFakeLedger(nil, nil)
	svc := ledgersync.NewService(fl, staticCurrency("USD"))

	_, err := svc.TrackQuantityChange(context.Background(), ledgersync.QuantityChange{
		Item:             ledgersync.InventoryItem{ID: "x", Price: decimal.NewFromInt(1), Quantity: 2},
		PreviousQuantity: 1,
		EventID:          "evt-1",
	})
	assert.ErrorIs(t, err, ledgersync.ErrNoAccountConfigured)
}

func TestTrackQuantityChange_RepeatedRestockBooksEachEvent(t *testing.T) {
	fl := newFakeLedger([]*ledger.Account{{ID: uuid.New(), Type: ledger.AccountBank}}, nil)
	svc := ledgersync.NewService(fl, staticCurrency("USD"))
	companyID := uuid.New()

	restock := func(eventID string) ledgersync.QuantityChange {
		return ledgersync.QuantityChange{
			Item:             ledgersync.InventoryItem{ID: "item-3", CompanyID: companyID, Name: "Nut", Price: decimal.NewFromInt(2), Quantity: 10},
			PreviousQuantity: 5,
			EventID:          eventID,
		}
	}

	// 5 -> 10, sold back down to 5, then 5 -> 10 again.
	first, err := svc.TrackQuantityChange(context.Background(), restock("evt-a"))
	require.NoError(t, err)

	second, err := svc.TrackQuantityChange(context.Background(), restock("evt-b"))
	require.NoError(t, err)

	retried, err := svc.TrackQuantityChange(context.Background(), restock("evt-b"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, second.ID, retried.ID)
	assert.True(t, decimal.NewFromInt(-20).Equal(fl.balance()), "balance %s", fl.balance())
}

func TestTrackQuantityChange_RequiresEventID(t *testing.T) {
	fl := newFakeLedger([]*ledger.Account{{ID: uuid.New(), Type: ledger.AccountBank}}, nil)
	svc := ledgersync.NewService(fl, staticCurrency("USD"))

	_, err := svc.TrackQuantityChange(context.Background(), ledgersync.QuantityChange{
		Item:             ledgersync.InventoryItem{ID: "item-3", Price: decimal.NewFromInt(2), Quantity: 10},
		PreviousQuantity: 5,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalid)
	assert.Empty(t, fl.txs)
}
