package ledgersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

type InventoryItem struct {
	ID        string
	CompanyID uuid.UUID
	Name      string
	SKU       string
	Price     decimal.Decimal
	Quantity  int64
}

// QuantityChange is an inventory item after a change together with its
// quantity before it. EventID identifies the change: a retried event books
// nothing new, while separate events with the same quantities each book.
type QuantityChange struct {
	Item             InventoryItem
	PreviousQuantity int64
	EventID          string
	Date             time.Time
}

func (c QuantityChange) added() int64 { return c.Item.Quantity - c.PreviousQuantity }

func (c QuantityChange) relatedTo() string {
	return fmt.Sprintf("inventory:%s:%s", c.Item.ID, c.EventID)
}

// TrackQuantityChange books an expense of price × added quantity for a stock
// increase. Decreases and unchanged quantities book nothing and return nil.
func (s *Service) TrackQuantityChange(ctx context.Context, change QuantityChange) (*ledger.Transaction, error) {
	if strings.TrimSpace(change.EventID) == "" {
		return nil, fmt.Errorf("%w: inventory change needs an event id", ledger.ErrInvalid)
	}

	added := change.added()
	if added <= 0 {
		return nil, nil
	}

	item := change.Item

	amount := item.Price.Mul(decimal.NewFromInt(added))
	if !amount.IsPositive() {
		slog.Warn("skipping inventory purchase without price", "item_id", item.ID, "added", added)
		return nil, nil
	}

	relatedTo := change.relatedTo()

	tx, err := s.existing(ctx, item.CompanyID, relatedTo)
	if err != nil {
		return nil, err
	}

	if tx != nil {
		return tx, nil
	}

	t, err := s.resolve(ctx, item.CompanyID, ledger.TypeExpense, InventoryCategories)
	if err != nil {
		return nil, err
	}

	cur, err := s.currency.DefaultCurrency(ctx, item.CompanyID)
	if err != nil {
		return nil, err
	}

	date := change.Date
	if date.IsZero() {
		date = time.Now()
	}

	desc := fmt.Sprintf("Inventory purchase: %s x%d", item.Name, added)
	if item.SKU != "" {
		desc = fmt.Sprintf("Inventory purchase: %s (%s) x%d", item.Name, item.SKU, added)
	}

	tx, err = s.ledger.Create(ctx, item.CompanyID, ledger.CreateParams{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Currency:    cur,
		Type:        ledger.TypeExpense,
		Status:      ledger.StatusCompleted,
		CategoryID:  categoryID(t.category),
		AccountID:   &t.account.ID,
		RelatedTo:   &relatedTo,
		Notes:       fmt.Sprintf("Unit price %s, quantity %d -> %d", item.Price.String(), change.PreviousQuantity, item.Quantity),
		Reference:   item.SKU,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateLink) {
			return s.ledger.FindByRelatedTo(ctx, item.CompanyID, relatedTo)
		}

		return nil, fmt.Errorf("creating inventory transaction: %w", err)
	}

	return tx, nil
}
