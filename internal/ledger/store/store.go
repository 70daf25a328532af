package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.company_id, t.date, t.description, t.amount, t.currency, t.type, t.status,
	t.category_id, t.account_id, t.project_id, t.related_to, t.notes, t.reference,
	t.applied_account_id, t.applied_amount, t.created_at, t.updated_at
`

func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	var typeStr, statusStr string

	if err := s.Scan(
		&tx.ID, &tx.CompanyID, &tx.Date, &tx.Description, &tx.Amount, &tx.Currency, &typeStr, &statusStr,
		&tx.CategoryID, &tx.AccountID, &tx.ProjectID, &tx.RelatedTo, &tx.Notes, &tx.Reference,
		&tx.AppliedAccountID, &tx.AppliedAmount, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = ledger.Type(typeStr)
	tx.Status = ledger.Status(statusStr)

	return &tx, nil
}

func scanTransactions(rows *sql.Rows) ([]*ledger.Transaction, error) {
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertTransaction(ctx context.Context, q querier, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (
			company_id, date, description, amount, currency, type, status,
			category_id, account_id, project_id, related_to, notes, reference,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		tx.CompanyID,
		tx.Date,
		tx.Description,
		tx.Amount,
		tx.Currency,
		tx.Type,
		tx.Status,
		tx.CategoryID,
		tx.AccountID,
		tx.ProjectID,
		tx.RelatedTo,
		tx.Notes,
		tx.Reference,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateLink
		}

		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

// updateTransaction writes the editable fields. The applied marker is owned
// by the balance path and never written here. guard narrows the rows that may
// be written.
func updateTransaction(ctx context.Context, q querier, tx *ledger.Transaction, guard string) (int64, error) {
	query := `
		UPDATE transactions
		SET date = $1, description = $2, amount = $3, currency = $4, type = $5, status = $6,
			category_id = $7, account_id = $8, notes = $9, reference = $10, updated_at = NOW()
		WHERE id = $11 AND company_id = $12 AND deleted_at IS NULL` + guard

	res, err := q.ExecContext(ctx, query,
		tx.Date,
		tx.Description,
		tx.Amount,
		tx.Currency,
		tx.Type,
		tx.Status,
		tx.CategoryID,
		tx.AccountID,
		tx.Notes,
		tx.Reference,
		tx.ID,
		tx.CompanyID,
	)
	if err != nil {
		return 0, fmt.Errorf("updating transaction: %w", err)
	}

	return res.RowsAffected()
}

func deleteTransaction(ctx context.Context, q querier, companyID, id uuid.UUID, guard string) (int64, error) {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL` + guard

	res, err := q.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return 0, fmt.Errorf("deleting transaction: %w", err)
	}

	return res.RowsAffected()
}

// unbooked limits writes to rows no balance depends on. Rows tied to an
// account are written through the balance path under the account lock.
const unbooked = ` AND account_id IS NULL AND applied_account_id IS NULL`

func (s *Store) CreateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	return insertTransaction(ctx, s.db, tx)
}

func (s *Store) GetTransaction(ctx context.Context, companyID, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.company_id = $2 AND t.deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) FindByRelatedTo(ctx context.Context, companyID uuid.UUID, relatedTo string) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.company_id = $1 AND t.related_to = $2 AND t.deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, companyID, relatedTo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("finding transaction by source: %w", err)
	}

	return tx, nil
}

// filterClause appends the filter conditions to a query whose first
// placeholder ($1) is the company id.
func filterClause(filter ledger.ListFilter) (string, []any) {
	var clause string

	var args []any

	argIdx := 2

	add := func(cond string, v any) {
		clause += fmt.Sprintf(" AND "+cond, argIdx)

		args = append(args, v)
		argIdx++
	}

	if filter.CategoryID != nil {
		add("t.category_id = $%d", *filter.CategoryID)
	}

	if filter.AccountID != nil {
		add("t.account_id = $%d", *filter.AccountID)
	}

	if filter.ProjectID != nil {
		add("t.project_id = $%d", *filter.ProjectID)
	}

	if filter.Type != nil {
		add("t.type = $%d", *filter.Type)
	}

	if filter.Status != nil {
		add("t.status = $%d", *filter.Status)
	}

	if filter.StartDate != nil {
		add("t.date >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		add("t.date <= $%d", *filter.EndDate)
	}

	return clause, args
}

func (s *Store) ListTransactions(ctx context.Context, companyID uuid.UUID, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	clause, args := filterClause(filter)

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.company_id = $1 AND t.deleted_at IS NULL` + clause + `
		ORDER BY t.date ASC, t.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, append([]any{companyID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return scanTransactions(rows)
}

func (s *Store) CountTransactions(ctx context.Context, companyID uuid.UUID, filter ledger.ListFilter) (int64, error) {
	clause, args := filterClause(filter)

	query := `SELECT COUNT(*) FROM transactions t
		WHERE t.company_id = $1 AND t.deleted_at IS NULL` + clause

	var n int64
	if err := s.db.QueryRowContext(ctx, query, append([]any{companyID}, args...)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}

	return n, nil
}

// UpdateTransaction writes a transaction that is not tied to an account. It
// returns ErrStale when the stored row is missing or gained an account since
// it was read.
func (s *Store) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	n, err := updateTransaction(ctx, s.db, tx, unbooked)
	if err != nil {
		return err
	}

	if n == 0 {
		return ledger.ErrStale
	}

	return nil
}

// DeleteTransaction soft-deletes a transaction that is not tied to an account,
// with the same ErrStale contract as UpdateTransaction.
func (s *Store) DeleteTransaction(ctx context.Context, companyID, id uuid.UUID) error {
	n, err := deleteTransaction(ctx, s.db, companyID, id, unbooked)
	if err != nil {
		return err
	}

	if n == 0 {
		return ledger.ErrStale
	}

	return nil
}

func (s *Store) LinkProject(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID, projectID *uuid.UUID) (int64, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	query := `
		UPDATE transactions
		SET project_id = $1, updated_at = NOW()
		WHERE company_id = $2 AND id = ANY($3::uuid[]) AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, projectID, companyID, strIDs)
	if err != nil {
		return 0, fmt.Errorf("linking project: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("linking project: %w", err)
	}

	return n, nil
}
