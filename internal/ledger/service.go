package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalid marks input that violates transaction, account or category rules.
var ErrInvalid = errors.New("invalid input")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, companyID, id uuid.UUID) (*Transaction, error)
	FindByRelatedTo(ctx context.Context, companyID uuid.UUID, relatedTo string) (*Transaction, error)
	// UpdateTransaction and DeleteTransaction only write transactions that
	// are not booked on an account, and return ErrStale otherwise.
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, companyID, id uuid.UUID) error
	ListTransactions(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]*Transaction, error)
	CountTransactions(ctx context.Context, companyID uuid.UUID, filter ListFilter) (int64, error)
	LinkProject(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID, projectID *uuid.UUID) (int64, error)

	CreateAccount(ctx context.Context, acc *Account) error
	GetAccount(ctx context.Context, companyID, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]*Account, error)

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, companyID, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, companyID uuid.UUID) ([]*Category, error)
}

// BalanceMaintainer writes transactions that reference an account together
// with their balance effect. See Balances.
type BalanceMaintainer interface {
	Book(ctx context.Context, tx *Transaction) error
	Apply(ctx context.Context, companyID, txID, accountID uuid.UUID) error
	Rewrite(ctx context.Context, companyID, accountID, id uuid.UUID, change func(*Transaction) (*Transaction, error)) (*Transaction, error)
	Remove(ctx context.Context, companyID, accountID, id uuid.UUID) error
}

// Currencies checks currency codes against the supported set.
type Currencies interface {
	Normalize(code string) (string, error)
}

// ChangeNotifier is told after a company's transactions change.
type ChangeNotifier interface {
	TransactionsChanged(companyID uuid.UUID)
}

// maxAttempts bounds the retries of a write that raced a change of the
// transaction's account.
const maxAttempts = 3

type Service struct {
	repo       Repository
	balances   BalanceMaintainer
	currencies Currencies
	notifiers  []ChangeNotifier
}

func NewService(repo Repository, balances BalanceMaintainer, currencies Currencies, notifiers ...ChangeNotifier) *Service {
	return &Service{repo: repo, balances: balances, currencies: currencies, notifiers: notifiers}
}

type CreateParams struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Currency    string // defaults to the account currency
	Type        Type
	Status      Status
	CategoryID  *uuid.UUID
	AccountID   *uuid.UUID
	ProjectID   *uuid.UUID
	RelatedTo   *string
	Notes       string
	Reference   string
}

// UpdateParams holds the fields to change; nil fields are left as they are.
type UpdateParams struct {
	Date        *time.Time
	Description *string
	Amount      *decimal.Decimal
	Currency    *string
	Type        *Type
	Status      *Status
	CategoryID  *uuid.UUID
	AccountID   *uuid.UUID
	Notes       *string
	Reference   *string
}

type ListFilter struct {
	CategoryID *uuid.UUID
	AccountID  *uuid.UUID
	ProjectID  *uuid.UUID
	Type       *Type
	Status     *Status
	StartDate  *time.Time
	EndDate    *time.Time
}

func validate(tx *Transaction) error {
	switch {
	case !tx.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	case !tx.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, tx.Type)
	case !tx.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, tx.Status)
	case tx.Currency == "":
		return fmt.Errorf("%w: currency is required", ErrInvalid)
	case tx.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}

	return nil
}

// normalize validates tx and replaces its currency with the supported code.
func (s *Service) normalize(tx *Transaction) error {
	if err := validate(tx); err != nil {
		return err
	}

	code, err := s.currencies.Normalize(tx.Currency)
	if err != nil {
		return err
	}

	tx.Currency = code

	return nil
}

func (s *Service) Create(ctx context.Context, companyID uuid.UUID, params CreateParams) (*Transaction, error) {
	tx := &Transaction{
		CompanyID:   companyID,
		Date:        params.Date,
		Description: params.Description,
		Amount:      params.Amount,
		Currency:    strings.ToUpper(params.Currency),
		Type:        params.Type,
		Status:      params.Status,
		CategoryID:  params.CategoryID,
		AccountID:   params.AccountID,
		ProjectID:   params.ProjectID,
		RelatedTo:   params.RelatedTo,
		Notes:       params.Notes,
		Reference:   params.Reference,
	}

	if tx.Status == "" {
		tx.Status = StatusPending
	}

	if err := s.checkReferences(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.normalize(tx); err != nil {
		return nil, err
	}

	if tx.AccountID == nil {
		if err := s.repo.CreateTransaction(ctx, tx); err != nil {
			return nil, err
		}
	} else if err := s.balances.Book(ctx, tx); err != nil {
		return nil, err
	}

	s.changed(companyID)

	return tx, nil
}

// checkReferences verifies account and category ownership and fills the
// currency from the account when it is not set.
func (s *Service) checkReferences(ctx context.Context, tx *Transaction) error {
	if tx.AccountID != nil {
		acc, err := s.repo.GetAccount(ctx, tx.CompanyID, *tx.AccountID)
		if err != nil {
			return err
		}

		if tx.Currency == "" {
			tx.Currency = acc.Currency
		}
	}

	if tx.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, tx.CompanyID, *tx.CategoryID); err != nil {
			return err
		}
	}

	return nil
}

// settle applies a completed transaction that a write left unapplied, which
// happens when it moved to another account. Applying is idempotent, so a
// failed settle is repaired by retrying the write or by recalculating.
func (s *Service) settle(ctx context.Context, tx *Transaction) (*Transaction, error) {
	if tx.Status != StatusCompleted || tx.AccountID == nil || tx.Applied() {
		return tx, nil
	}

	if err := s.balances.Apply(ctx, tx.CompanyID, tx.ID, *tx.AccountID); err != nil {
		return nil, fmt.Errorf("applying transaction %s: %w", tx.ID, err)
	}

	return s.repo.GetTransaction(ctx, tx.CompanyID, tx.ID)
}

func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, companyID, id)
}

func (s *Service) FindByRelatedTo(ctx context.Context, companyID uuid.UUID, relatedTo string) (*Transaction, error) {
	return s.repo.FindByRelatedTo(ctx, companyID, relatedTo)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, companyID, filter)
}

func (s *Service) Count(ctx context.Context, companyID uuid.UUID, filter ListFilter) (int64, error) {
	return s.repo.CountTransactions(ctx, companyID, filter)
}

// Update changes a transaction and keeps its balance effect consistent:
// a completed transaction whose status, amount, type, currency or account
// changes is reversed, and the new state is applied if it is completed.
// Transactions tied to an account are rewritten under that account's lock.
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	if params.Currency != nil {
		code, err := s.currencies.Normalize(*params.Currency)
		if err != nil {
			return nil, err
		}

		params.Currency = &code
	}

	for range maxAttempts {
		cur, err := s.repo.GetTransaction(ctx, companyID, id)
		if err != nil {
			return nil, err
		}

		next := *cur
		apply(&next, params)

		if params.AccountID != nil || params.CategoryID != nil {
			if err := s.checkReferences(ctx, &next); err != nil {
				return nil, err
			}
		}

		if err := validate(&next); err != nil {
			return nil, err
		}

		var written *Transaction

		if booked := cur.BookedAccount(); booked == nil {
			err = s.repo.UpdateTransaction(ctx, &next)
			written = &next
		} else {
			written, err = s.balances.Rewrite(ctx, companyID, *booked, id, func(locked *Transaction) (*Transaction, error) {
				apply(locked, params)
				return locked, validate(locked)
			})
		}

		if errors.Is(err, ErrStale) {
			slog.Debug("transaction changed during update, retrying", "transaction_id", id)
			continue
		}

		if err != nil {
			return nil, err
		}

		s.changed(companyID)

		return s.settle(ctx, written)
	}

	return nil, fmt.Errorf("updating transaction %s: %w", id, ErrStale)
}

func (s *Service) UpdateStatus(ctx context.Context, companyID, id uuid.UUID, status Status) (*Transaction, error) {
	return s.Update(ctx, companyID, id, UpdateParams{Status: &status})
}

func apply(tx *Transaction, p UpdateParams) {
	if p.Date != nil {
		tx.Date = *p.Date
	}

	if p.Description != nil {
		tx.Description = *p.Description
	}

	if p.Amount != nil {
		tx.Amount = *p.Amount
	}

	if p.Currency != nil {
		tx.Currency = strings.ToUpper(*p.Currency)
	}

	if p.Type != nil {
		tx.Type = *p.Type
	}

	if p.Status != nil {
		tx.Status = *p.Status
	}

	if p.CategoryID != nil {
		tx.CategoryID = p.CategoryID
	}

	if p.AccountID != nil {
		tx.AccountID = p.AccountID
	}

	if p.Notes != nil {
		tx.Notes = *p.Notes
	}

	if p.Reference != nil {
		tx.Reference = *p.Reference
	}
}

// Delete reverses a transaction's balance effect and removes it. Both happen
// under the lock of the account the transaction is booked on.
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	for range maxAttempts {
		tx, err := s.repo.GetTransaction(ctx, companyID, id)
		if err != nil {
			return err
		}

		if booked := tx.BookedAccount(); booked == nil {
			err = s.repo.DeleteTransaction(ctx, companyID, id)
		} else {
			err = s.balances.Remove(ctx, companyID, *booked, id)
		}

		if errors.Is(err, ErrStale) {
			slog.Debug("transaction changed during delete, retrying", "transaction_id", id)
			continue
		}

		if err != nil {
			return fmt.Errorf("deleting transaction %s: %w", id, err)
		}

		s.changed(companyID)

		return nil
	}

	return fmt.Errorf("deleting transaction %s: %w", id, ErrStale)
}

// LinkProject sets (or clears, when projectID is nil) the project of the
// given transactions and returns how many were updated.
func (s *Service) LinkProject(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID, projectID *uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no transactions given", ErrInvalid)
	}

	return s.repo.LinkProject(ctx, companyID, ids, projectID)
}

type CreateAccountParams struct {
	Name     string
	Type     AccountType
	Currency string
}

func (s *Service) CreateAccount(ctx context.Context, companyID uuid.UUID, params CreateAccountParams) (*Account, error) {
	switch params.Type {
	case AccountBank, AccountCash, AccountOther:
	default:
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalid, params.Type)
	}

	code, err := s.currencies.Normalize(params.Currency)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		CompanyID: companyID,
		Name:      params.Name,
		Type:      params.Type,
		Currency:  code,
		Balance:   decimal.Zero,
	}

	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

func (s *Service) GetAccount(ctx context.Context, companyID, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, companyID, id)
}

func (s *Service) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, companyID)
}

type CreateCategoryParams struct {
	Name        string
	Type        Type
	Description string
}

func (s *Service) CreateCategory(ctx context.Context, companyID uuid.UUID, params CreateCategoryParams) (*Category, error) {
	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown category type %q", ErrInvalid, params.Type)
	}

	c := &Category{
		CompanyID:   companyID,
		Name:        strings.TrimSpace(params.Name),
		Type:        params.Type,
		Description: params.Description,
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, companyID uuid.UUID) ([]*Category, error) {
	return s.repo.ListCategories(ctx, companyID)
}

func (s *Service) changed(companyID uuid.UUID) {
	for _, n := range s.notifiers {
		n.TransactionsChanged(companyID)
	}

	slog.Debug("transactions changed", "company_id", companyID)
}
