package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/company"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectCompanyColumns = `id, name, owner_id, default_currency, created_at, updated_at`

func scanCompany(row *sql.Row) (*company.Company, error) {
	var c company.Company

	err := row.Scan(&c.ID, &c.Name, &c.OwnerID, &c.DefaultCurrency, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, company.ErrNotFound
		}

		return nil, fmt.Errorf("scanning company: %w", err)
	}

	return &c, nil
}

func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	query := `SELECT ` + selectCompanyColumns + ` FROM companies WHERE id = $1`

	return scanCompany(s.db.QueryRowContext(ctx, query, id))
}

// GetCompanyByOwner returns the oldest company owned by the user.
func (s *Store) GetCompanyByOwner(ctx context.Context, ownerID uuid.UUID) (*company.Company, error) {
	query := `SELECT ` + selectCompanyColumns + ` FROM companies
		WHERE owner_id = $1
		ORDER BY created_at ASC
		LIMIT 1`

	return scanCompany(s.db.QueryRowContext(ctx, query, ownerID))
}

func (s *Store) UpdateDefaultCurrency(ctx context.Context, id uuid.UUID, currency string) error {
	query := `
		UPDATE companies
		SET default_currency = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := s.db.ExecContext(ctx, query, currency, id)
	if err != nil {
		return fmt.Errorf("updating default currency: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating default currency: %w", err)
	}

	if n == 0 {
		return company.ErrNotFound
	}

	return nil
}
