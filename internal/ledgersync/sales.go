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

	"github.com/MrJamesThe3rd/erpledger/internal/currency"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

const SaleCompleted = "completed"

type SaleItem struct {
	Product string
}

// Sale is the part of a sales document the ledger cares about.
type Sale struct {
	ID            string
	CompanyID     uuid.UUID
	Date          time.Time
	Total         decimal.Decimal
	Currency      string // optional, defaults to the company currency
	Status        string
	InvoiceNumber string
	CustomerName  string
	EmployeeID    string
	Items         []SaleItem
}

func (s Sale) status() ledger.Status {
	if s.Status == SaleCompleted {
		return ledger.StatusCompleted
	}

	return ledger.StatusPending
}

func (s Sale) description() string {
	customer := s.CustomerName
	if customer == "" {
		customer = "walk-in customer"
	}

	if s.InvoiceNumber == "" {
		return "Sale to " + customer
	}

	return fmt.Sprintf("Sale to %s - Invoice #%s", customer, s.InvoiceNumber)
}

func (s Sale) notes() string {
	products := make([]string, 0, len(s.Items))

	for _, it := range s.Items {
		if it.Product != "" {
			products = append(products, it.Product)
		}
	}

	if len(products) == 0 {
		return ""
	}

	return "Items: " + strings.Join(products, ", ")
}

// SaleCreated books the income transaction for a sale. Calling it again for
// the same sale updates the linked transaction instead of adding one.
func (s *Service) SaleCreated(ctx context.Context, sale Sale) (*ledger.Transaction, error) {
	if sale.Currency != "" {
		code, err := currency.Normalize(sale.Currency)
		if err != nil {
			return nil, err
		}

		sale.Currency = code
	}

	tx, err := s.existing(ctx, sale.CompanyID, sale.ID)
	if err != nil {
		return nil, err
	}

	if tx != nil {
		return s.updateSale(ctx, tx, sale)
	}

	return s.createSale(ctx, sale)
}

// SaleUpdated propagates sale changes to the linked transaction, creating it
// if the sale was never booked.
func (s *Service) SaleUpdated(ctx context.Context, sale Sale) (*ledger.Transaction, error) {
	return s.SaleCreated(ctx, sale)
}

// SaleDeleted removes the linked transaction. A sale without one is not an error.
func (s *Service) SaleDeleted(ctx context.Context, companyID uuid.UUID, saleID string) error {
	tx, err := s.existing(ctx, companyID, saleID)
	if err != nil {
		return err
	}

	if tx == nil {
		slog.Debug("no transaction linked to deleted sale", "sale_id", saleID)
		return nil
	}

	if err := s.ledger.Delete(ctx, companyID, tx.ID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("deleting sale transaction: %w", err)
	}

	return nil
}

func (s *Service) saleCurrency(ctx context.Context, sale Sale) (string, error) {
	if sale.Currency != "" {
		return sale.Currency, nil
	}

	return s.currency.DefaultCurrency(ctx, sale.CompanyID)
}

func (s *Service) createSale(ctx context.Context, sale Sale) (*ledger.Transaction, error) {
	t, err := s.resolve(ctx, sale.CompanyID, ledger.TypeIncome, SalesCategories)
	if err != nil {
		return nil, err
	}

	cur, err := s.saleCurrency(ctx, sale)
	if err != nil {
		return nil, err
	}

	relatedTo := sale.ID

	tx, err := s.ledger.Create(ctx, sale.CompanyID, ledger.CreateParams{
		Date:        sale.Date,
		Description: sale.description(),
		Amount:      sale.Total,
		Currency:    cur,
		Type:        ledger.TypeIncome,
		Status:      sale.status(),
		CategoryID:  categoryID(t.category),
		AccountID:   &t.account.ID,
		RelatedTo:   &relatedTo,
		Notes:       sale.notes(),
		Reference:   sale.InvoiceNumber,
	})
	if err != nil {
		if !errors.Is(err, ledger.ErrDuplicateLink) {
			return nil, fmt.Errorf("creating sale transaction: %w", err)
		}

		// A concurrent sync booked the sale first.
		existing, err := s.existing(ctx, sale.CompanyID, sale.ID)
		if err != nil {
			return nil, err
		}

		if existing == nil {
			return nil, fmt.Errorf("sale %s: linked transaction vanished", sale.ID)
		}

		return s.updateSale(ctx, existing, sale)
	}

	slog.Info("booked sale", "sale_id", sale.ID, "transaction_id", tx.ID, "status", tx.Status)

	return tx, nil
}

// updateSale rewrites the linked transaction. The ledger applies the balance
// effect on entering completed and reverses it on leaving completed.
func (s *Service) updateSale(ctx context.Context, tx *ledger.Transaction, sale Sale) (*ledger.Transaction, error) {
	status := sale.status()
	desc := sale.description()
	notes := sale.notes()
	params := ledger.UpdateParams{
		Description: &desc,
		Amount:      &sale.Total,
		Status:      &status,
		Notes:       &notes,
		Reference:   &sale.InvoiceNumber,
	}

	if !sale.Date.IsZero() {
		params.Date = &sale.Date
	}

	if sale.Currency != "" {
		params.Currency = &sale.Currency
	}

	if tx.AccountID == nil {
		accounts, err := s.ledger.ListAccounts(ctx, sale.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}

		acc := ResolveAccount(accounts)
		if acc == nil {
			return nil, ErrNoAccountConfigured
		}

		params.AccountID = &acc.ID
	}

	updated, err := s.ledger.Update(ctx, sale.CompanyID, tx.ID, params)
	if err != nil {
		return nil, fmt.Errorf("updating sale transaction: %w", err)
	}

	return updated, nil
}
