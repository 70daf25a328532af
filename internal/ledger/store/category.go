package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

const selectCategoryColumns = `id, company_id, name, type, description, created_at`

func scanCategory(s scanner) (*ledger.Category, error) {
	var c ledger.Category

	var typeStr string

	if err := s.Scan(&c.ID, &c.CompanyID, &c.Name, &typeStr, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}

	c.Type = ledger.Type(typeStr)

	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *ledger.Category) error {
	query := `
		INSERT INTO budget_categories (company_id, name, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.CompanyID, c.Name, c.Type, c.Description).
		Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, companyID, id uuid.UUID) (*ledger.Category, error) {
	query := `SELECT ` + selectCategoryColumns + ` FROM budget_categories WHERE id = $1 AND company_id = $2`

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %w", ledger.ErrNotFound)
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, companyID uuid.UUID) ([]*ledger.Category, error) {
	query := `SELECT ` + selectCategoryColumns + `
		FROM budget_categories
		WHERE company_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*ledger.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	return categories, nil
}
