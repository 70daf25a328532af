// Package ledgersync derives ledger transactions from sales and inventory
// events. Every derived transaction links back to its source through
// RelatedTo, so repeated events update rather than duplicate.
package ledgersync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

// ErrNoAccountConfigured means the company has no bank or cash account to back
// derived transactions.
var ErrNoAccountConfigured = errors.New("no bank or cash account configured")

//go:generate mockgen -source=ledgersync.go -destination=ledger_mock.go -package=ledgersync
type Ledger interface {
	Create(ctx context.Context, companyID uuid.UUID, params ledger.CreateParams) (*ledger.Transaction, error)
	Update(ctx context.Context, companyID, id uuid.UUID, params ledger.UpdateParams) (*ledger.Transaction, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	FindByRelatedTo(ctx context.Context, companyID uuid.UUID, relatedTo string) (*ledger.Transaction, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]*ledger.Account, error)
	ListCategories(ctx context.Context, companyID uuid.UUID) ([]*ledger.Category, error)
}

type Currency interface {
	DefaultCurrency(ctx context.Context, companyID uuid.UUID) (string, error)
}

type Service struct {
	ledger   Ledger
	currency Currency
}

func NewService(l Ledger, currency Currency) *Service {
	return &Service{ledger: l, currency: currency}
}

// target is where a derived transaction is booked.
type target struct {
	account  *ledger.Account
	category *ledger.Category
}

func (s *Service) resolve(ctx context.Context, companyID uuid.UUID, typ ledger.Type, table []Canonical) (target, error) {
	accounts, err := s.ledger.ListAccounts(ctx, companyID)
	if err != nil {
		return target{}, fmt.Errorf("listing accounts: %w", err)
	}

	acc := ResolveAccount(accounts)
	if acc == nil {
		return target{}, ErrNoAccountConfigured
	}

	categories, err := s.ledger.ListCategories(ctx, companyID)
	if err != nil {
		return target{}, fmt.Errorf("listing categories: %w", err)
	}

	return target{account: acc, category: ResolveCategory(categories, typ, table)}, nil
}

// existing returns the transaction linked to relatedTo, or nil when none is.
func (s *Service) existing(ctx context.Context, companyID uuid.UUID, relatedTo string) (*ledger.Transaction, error) {
	tx, err := s.ledger.FindByRelatedTo(ctx, companyID, relatedTo)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding linked transaction: %w", err)
	}

	return tx, nil
}

func categoryID(c *ledger.Category) *uuid.UUID {
	if c == nil {
		return nil
	}

	return &c.ID
}
