package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Converter converts amounts between currency codes.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type BalanceRepository interface {
	// BeginBalance opens a database transaction holding an exclusive lock on
	// the account row. It returns ErrAccountNotFound when the account does not
	// exist or belongs to another company.
	BeginBalance(ctx context.Context, companyID, accountID uuid.UUID) (BalanceTx, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]*Account, error)
}

// BalanceTx is the unit of work of a balance mutation. Everything it touches
// is serialized behind the account row lock.
type BalanceTx interface {
	Account() *Account
	// LockTransaction locks and returns a transaction of the account's company.
	LockTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// CompletedTransactions locks and returns the completed transactions that reference the account.
	CompletedTransactions(ctx context.Context) ([]*Transaction, error)
	// SetApplied records amount as applied to the locked account, or clears the marker when amount is nil.
	SetApplied(ctx context.Context, txID uuid.UUID, amount *decimal.Decimal) error
	// ClearStale clears markers pointing at the account from transactions that
	// are no longer completed or no longer reference it.
	ClearStale(ctx context.Context) (int64, error)
	AddBalance(ctx context.Context, delta decimal.Decimal) error
	SetBalance(ctx context.Context, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, tx *Transaction) error
	// UpdateTransaction writes the editable fields of a locked transaction.
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	Commit() error
	Rollback() error
}

// Balances applies transaction effects to account balances. Each transaction
// carries an applied marker, so applying twice is a no-op and reversing
// subtracts exactly what was added.
type Balances struct {
	repo BalanceRepository
	conv Converter
}

func NewBalances(repo BalanceRepository, conv Converter) *Balances {
	return &Balances{repo: repo, conv: conv}
}

// Apply adds a completed transaction's effect to the account balance,
// converting into the account currency first. Re-applying to the same account
// is skipped.
func (b *Balances) Apply(ctx context.Context, companyID, txID, accountID uuid.UUID) error {
	btx, err := b.repo.BeginBalance(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	defer btx.Rollback()

	tx, err := btx.LockTransaction(ctx, txID)
	if err != nil {
		return fmt.Errorf("locking transaction: %w", err)
	}

	if tx.Status != StatusCompleted {
		return ErrNotCompleted
	}

	if tx.AccountID == nil || *tx.AccountID != accountID {
		return ErrStale
	}

	if tx.Applied() {
		if *tx.AppliedAccountID == accountID {
			slog.Debug("transaction already applied", "transaction_id", txID, "account_id", accountID)
			return nil
		}

		return fmt.Errorf("transaction %s is applied to account %s", txID, *tx.AppliedAccountID)
	}

	amount, err := b.conv.Convert(tx.Amount, tx.Currency, btx.Account().Currency)
	if err != nil {
		return fmt.Errorf("converting amount: %w", err)
	}

	if err := add(ctx, btx, tx, amount); err != nil {
		return err
	}

	if err := btx.Commit(); err != nil {
		return fmt.Errorf("committing balance: %w", err)
	}

	return nil
}

// Book inserts a transaction that references an account and applies it in the
// same unit of work when it is completed. Nothing is stored when the amount
// cannot be converted into the account currency.
func (b *Balances) Book(ctx context.Context, tx *Transaction) error {
	if tx.AccountID == nil {
		return fmt.Errorf("%w: transaction has no account", ErrInvalid)
	}

	btx, err := b.repo.BeginBalance(ctx, tx.CompanyID, *tx.AccountID)
	if err != nil {
		return err
	}
	defer btx.Rollback()

	var amount *decimal.Decimal

	if tx.Status == StatusCompleted {
		converted, err := b.conv.Convert(tx.Amount, tx.Currency, btx.Account().Currency)
		if err != nil {
			return fmt.Errorf("converting amount: %w", err)
		}

		amount = &converted
	}

	if err := btx.InsertTransaction(ctx, tx); err != nil {
		return err
	}

	if amount != nil {
		if err := add(ctx, btx, tx, *amount); err != nil {
			return err
		}
	}

	if err := btx.Commit(); err != nil {
		return fmt.Errorf("committing balance: %w", err)
	}

	return nil
}

// Rewrite locks accountID, re-reads the transaction and stores change applied
// to it. An effect the change invalidates is reversed, and a result completed
// on the locked account is applied, in the same unit of work. accountID must
// be the account the transaction is booked on; ErrStale is returned when it
// moved since the caller read it.
func (b *Balances) Rewrite(ctx context.Context, companyID, accountID, id uuid.UUID, change func(*Transaction) (*Transaction, error)) (*Transaction, error) {
	btx, err := b.repo.BeginBalance(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}
	defer btx.Rollback()

	cur, err := btx.LockTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("locking transaction: %w", err)
	}

	if !bookedOn(cur, accountID) {
		return nil, ErrStale
	}

	locked := *cur

	next, err := change(&locked)
	if err != nil {
		return nil, err
	}

	if cur.Applied() && affectsBalance(cur, next) {
		if err := subtract(ctx, btx, cur); err != nil {
			return nil, err
		}

		next.AppliedAccountID = nil
		next.AppliedAmount = nil
	}

	if err := btx.UpdateTransaction(ctx, next); err != nil {
		return nil, err
	}

	if next.Status == StatusCompleted && !next.Applied() && bookedOn(next, accountID) {
		amount, err := b.conv.Convert(next.Amount, next.Currency, btx.Account().Currency)
		if err != nil {
			return nil, fmt.Errorf("converting amount: %w", err)
		}

		if err := add(ctx, btx, next, amount); err != nil {
			return nil, err
		}
	}

	if err := btx.Commit(); err != nil {
		return nil, fmt.Errorf("committing balance: %w", err)
	}

	return next, nil
}

// Remove locks accountID, reverses the transaction's effect and deletes it in
// one unit of work. It returns ErrStale on the same terms as Rewrite.
func (b *Balances) Remove(ctx context.Context, companyID, accountID, id uuid.UUID) error {
	btx, err := b.repo.BeginBalance(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	defer btx.Rollback()

	cur, err := btx.LockTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("locking transaction: %w", err)
	}

	if !bookedOn(cur, accountID) {
		return ErrStale
	}

	if cur.Applied() {
		if err := subtract(ctx, btx, cur); err != nil {
			return err
		}
	}

	if err := btx.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if err := btx.Commit(); err != nil {
		return fmt.Errorf("committing balance: %w", err)
	}

	return nil
}

// add applies amount, in the account currency, to the locked account and
// records it as the transaction's applied marker.
func add(ctx context.Context, btx BalanceTx, tx *Transaction, amount decimal.Decimal) error {
	if err := btx.AddBalance(ctx, tx.Signed(amount)); err != nil {
		return fmt.Errorf("adjusting balance: %w", err)
	}

	if err := btx.SetApplied(ctx, tx.ID, &amount); err != nil {
		return fmt.Errorf("marking transaction applied: %w", err)
	}

	accountID := btx.Account().ID
	tx.AppliedAccountID, tx.AppliedAmount = &accountID, &amount

	return nil
}

// subtract takes exactly the applied amount back out of the locked account.
func subtract(ctx context.Context, btx BalanceTx, tx *Transaction) error {
	if err := btx.AddBalance(ctx, tx.Signed(*tx.AppliedAmount).Neg()); err != nil {
		return fmt.Errorf("adjusting balance: %w", err)
	}

	if err := btx.SetApplied(ctx, tx.ID, nil); err != nil {
		return fmt.Errorf("clearing applied marker: %w", err)
	}

	tx.AppliedAccountID, tx.AppliedAmount = nil, nil

	return nil
}

func bookedOn(tx *Transaction, accountID uuid.UUID) bool {
	booked := tx.BookedAccount()
	return booked != nil && *booked == accountID
}

// affectsBalance reports whether moving an applied transaction from cur to
// next changes its balance effect.
func affectsBalance(cur, next *Transaction) bool {
	return next.Status != StatusCompleted ||
		!next.Amount.Equal(cur.Amount) ||
		next.Type != cur.Type ||
		next.Currency != cur.Currency ||
		next.AccountID == nil ||
		*next.AccountID != *cur.AppliedAccountID
}

// Recalculate rebuilds the account balance from its completed transactions
// and overwrites the stored value. Amounts already applied keep their recorded
// conversion; the rest are converted at the current rate and marked applied.
// The result is independent of ordering and of how often it runs.
func (b *Balances) Recalculate(ctx context.Context, companyID, accountID uuid.UUID) (decimal.Decimal, error) {
	btx, err := b.repo.BeginBalance(ctx, companyID, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	defer btx.Rollback()

	acc := btx.Account()

	if _, err := btx.ClearStale(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("clearing stale markers: %w", err)
	}

	txs, err := btx.CompletedTransactions(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("listing completed transactions: %w", err)
	}

	balance := decimal.Zero

	for _, tx := range txs {
		if tx.Applied() && *tx.AppliedAccountID == acc.ID {
			balance = balance.Add(tx.Signed(*tx.AppliedAmount))
			continue
		}

		amount, err := b.conv.Convert(tx.Amount, tx.Currency, acc.Currency)
		if err != nil {
			return decimal.Zero, fmt.Errorf("converting transaction %s: %w", tx.ID, err)
		}

		if err := btx.SetApplied(ctx, tx.ID, &amount); err != nil {
			return decimal.Zero, fmt.Errorf("marking transaction applied: %w", err)
		}

		balance = balance.Add(tx.Signed(amount))
	}

	if err := btx.SetBalance(ctx, balance); err != nil {
		return decimal.Zero, fmt.Errorf("setting balance: %w", err)
	}

	if err := btx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("committing recalculation: %w", err)
	}

	return balance, nil
}

// RecalcResult is the outcome of recalculating one account.
type RecalcResult struct {
	AccountID   uuid.UUID
	AccountName string
	Success     bool
	Balance     decimal.Decimal
	Error       string
}

// RecalculateAll recalculates every account of the company. A failing account
// is reported and does not stop the others.
func (b *Balances) RecalculateAll(ctx context.Context, companyID uuid.UUID) ([]RecalcResult, error) {
	accounts, err := b.repo.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	results := make([]RecalcResult, 0, len(accounts))

	for _, acc := range accounts {
		res := RecalcResult{AccountID: acc.ID, AccountName: acc.Name}

		balance, err := b.Recalculate(ctx, companyID, acc.ID)
		if err != nil {
			slog.Error("failed to recalculate account balance", "account_id", acc.ID, "error", err)
			res.Error = err.Error()
		} else {
			res.Success = true
			res.Balance = balance
		}

		results = append(results, res)
	}

	return results, nil
}
