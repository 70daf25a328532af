package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

type balanceTx struct {
	tx      *sql.Tx
	account *ledger.Account
}

// BeginBalance starts a database transaction and takes a row lock on the
// account. Concurrent balance mutations on the same account queue behind it.
func (s *Store) BeginBalance(ctx context.Context, companyID, accountID uuid.UUID) (ledger.BalanceTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning balance tx: %w", err)
	}

	query := `SELECT ` + selectAccountColumns + `
		FROM financial_accounts a
		WHERE a.id = $1 AND a.company_id = $2
		FOR UPDATE`

	acc, err := scanAccount(dbTx.QueryRowContext(ctx, query, accountID, companyID))
	if err != nil {
		dbTx.Rollback()

		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}

		return nil, fmt.Errorf("locking account: %w", err)
	}

	return &balanceTx{tx: dbTx, account: acc}, nil
}

func (b *balanceTx) Account() *ledger.Account { return b.account }
func (b *balanceTx) Commit() error             { return b.tx.Commit() }
func (b *balanceTx) Rollback() error           { return b.tx.Rollback() }

func (b *balanceTx) LockTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.company_id = $2 AND t.deleted_at IS NULL
		FOR UPDATE`

	tx, err := scanTransaction(b.tx.QueryRowContext(ctx, query, id, b.account.CompanyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, err
	}

	return tx, nil
}

func (b *balanceTx) CompletedTransactions(ctx context.Context) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.account_id = $1 AND t.company_id = $2 AND t.status = $3 AND t.deleted_at IS NULL
		ORDER BY t.date ASC, t.id ASC
		FOR UPDATE`

	rows, err := b.tx.QueryContext(ctx, query, b.account.ID, b.account.CompanyID, ledger.StatusCompleted)
	if err != nil {
		return nil, err
	}

	return scanTransactions(rows)
}

func (b *balanceTx) SetApplied(ctx context.Context, txID uuid.UUID, amount *decimal.Decimal) error {
	var (
		accountID *uuid.UUID
		applied   decimal.NullDecimal
	)

	if amount != nil {
		accountID = &b.account.ID
		applied = decimal.NewNullDecimal(*amount)
	}

	query := `
		UPDATE transactions
		SET applied_account_id = $1, applied_amount = $2
		WHERE id = $3
	`

	_, err := b.tx.ExecContext(ctx, query, accountID, applied, txID)

	return err
}

func (b *balanceTx) ClearStale(ctx context.Context) (int64, error) {
	query := `
		UPDATE transactions
		SET applied_account_id = NULL, applied_amount = NULL
		WHERE applied_account_id = $1
			AND (status <> $2 OR deleted_at IS NOT NULL OR account_id IS DISTINCT FROM $1)
	`

	res, err := b.tx.ExecContext(ctx, query, b.account.ID, ledger.StatusCompleted)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (b *balanceTx) AddBalance(ctx context.Context, delta decimal.Decimal) error {
	query := `
		UPDATE financial_accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
	`

	_, err := b.tx.ExecContext(ctx, query, delta, b.account.ID)

	return err
}

func (b *balanceTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	query := `
		UPDATE financial_accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	_, err := b.tx.ExecContext(ctx, query, balance, b.account.ID)

	return err
}

func (b *balanceTx) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	return insertTransaction(ctx, b.tx, tx)
}

func (b *balanceTx) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	n, err := updateTransaction(ctx, b.tx, tx, "")
	if err != nil {
		return err
	}

	if n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

func (b *balanceTx) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	n, err := deleteTransaction(ctx, b.tx, b.account.CompanyID, id, "")
	if err != nil {
		return err
	}

	if n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}
