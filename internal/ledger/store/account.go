package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

const selectAccountColumns = `a.id, a.company_id, a.name, a.type, a.currency, a.balance, a.created_at, a.updated_at`

func scanAccount(s scanner) (*ledger.Account, error) {
	var acc ledger.Account

	var typeStr string

	if err := s.Scan(
		&acc.ID, &acc.CompanyID, &acc.Name, &typeStr, &acc.Currency, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	acc.Type = ledger.AccountType(typeStr)

	return &acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *ledger.Account) error {
	query := `
		INSERT INTO financial_accounts (company_id, name, type, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		acc.CompanyID, acc.Name, acc.Type, acc.Currency, acc.Balance,
	).Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, companyID, id uuid.UUID) (*ledger.Account, error) {
	query := `SELECT ` + selectAccountColumns + `
		FROM financial_accounts a
		WHERE a.id = $1 AND a.company_id = $2`

	acc, err := scanAccount(s.db.QueryRowContext(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return acc, nil
}

// ListAccounts returns the company's accounts in creation order.
func (s *Store) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]*ledger.Account, error) {
	query := `SELECT ` + selectAccountColumns + `
		FROM financial_accounts a
		WHERE a.company_id = $1
		ORDER BY a.created_at ASC, a.id ASC`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*ledger.Account

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}
