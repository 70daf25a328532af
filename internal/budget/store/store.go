package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/budget"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectBudgetColumns = `id, company_id, name, type, status, start_date, end_date, total_budget, currency, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(s scanner) (*budget.Budget, error) {
	var b budget.Budget

	var status string

	if err := s.Scan(
		&b.ID, &b.CompanyID, &b.Name, &b.Type, &status, &b.StartDate, &b.EndDate,
		&b.TotalBudget, &b.Currency, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.Status = budget.Status(status)

	return &b, nil
}

func (s *Store) CreateBudget(ctx context.Context, b *budget.Budget) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO budgets (company_id, name, type, status, start_date, end_date, total_budget, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := dbTx.QueryRowContext(ctx, query,
		b.CompanyID, b.Name, b.Type, b.Status, b.StartDate, b.EndDate, b.TotalBudget, b.Currency,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("creating budget: %w", err)
	}

	itemQuery := `
		INSERT INTO budget_items (budget_id, category_id, name, amount, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for i := range b.Items {
		it := &b.Items[i]
		if err := dbTx.QueryRowContext(ctx, itemQuery, b.ID, it.CategoryID, it.Name, it.Amount, i).Scan(&it.ID); err != nil {
			return fmt.Errorf("creating budget item %d: %w", i, err)
		}
	}

	return dbTx.Commit()
}

func (s *Store) GetBudget(ctx context.Context, companyID, id uuid.UUID) (*budget.Budget, error) {
	query := `SELECT ` + selectBudgetColumns + ` FROM budgets WHERE id = $1 AND company_id = $2`

	b, err := scanBudget(s.db.QueryRowContext(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrNotFound
		}

		return nil, fmt.Errorf("getting budget: %w", err)
	}

	items, err := s.listItems(ctx, []uuid.UUID{b.ID})
	if err != nil {
		return nil, err
	}

	b.Items = items[b.ID]

	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context, companyID uuid.UUID) ([]*budget.Budget, error) {
	query := `SELECT ` + selectBudgetColumns + `
		FROM budgets
		WHERE company_id = $1
		ORDER BY start_date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	defer rows.Close()

	var (
		budgets []*budget.Budget
		ids     []uuid.UUID
	)

	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning budget: %w", err)
		}

		budgets = append(budgets, b)
		ids = append(ids, b.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budgets: %w", err)
	}

	if len(ids) == 0 {
		return budgets, nil
	}

	items, err := s.listItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, b := range budgets {
		b.Items = items[b.ID]
	}

	return budgets, nil
}

func (s *Store) listItems(ctx context.Context, budgetIDs []uuid.UUID) (map[uuid.UUID][]budget.Item, error) {
	ids := make([]string, len(budgetIDs))
	for i, id := range budgetIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT budget_id, id, category_id, name, amount
		FROM budget_items
		WHERE budget_id = ANY($1::uuid[])
		ORDER BY budget_id, position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("listing budget items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]budget.Item, len(budgetIDs))

	for rows.Next() {
		var (
			budgetID uuid.UUID
			it       budget.Item
		)

		if err := rows.Scan(&budgetID, &it.ID, &it.CategoryID, &it.Name, &it.Amount); err != nil {
			return nil, fmt.Errorf("scanning budget item: %w", err)
		}

		items[budgetID] = append(items[budgetID], it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget items: %w", err)
	}

	return items, nil
}

func (s *Store) ListExpenses(ctx context.Context, companyID uuid.UUID, start, end time.Time) ([]budget.Expense, error) {
	query := `
		SELECT t.category_id, COALESCE(c.name, ''), t.date, t.amount, t.currency
		FROM transactions t
		LEFT JOIN budget_categories c ON c.id = t.category_id
		WHERE t.company_id = $1
			AND t.type = 'expense'
			AND t.status = 'completed'
			AND t.deleted_at IS NULL
			AND t.date >= $2 AND t.date <= $3
		ORDER BY t.date ASC, t.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	var expenses []budget.Expense

	for rows.Next() {
		var e budget.Expense
		if err := rows.Scan(&e.CategoryID, &e.CategoryName, &e.Date, &e.Amount, &e.Currency); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	return expenses, nil
}

func (s *Store) CategoryExists(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM budget_categories WHERE id = $1 AND company_id = $2)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, id, companyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking category: %w", err)
	}

	return exists, nil
}
