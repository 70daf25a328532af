package company

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("company not found")

// Company is the tenant root. Every finance entity is owned by exactly one company.
type Company struct {
	ID              uuid.UUID
	Name            string
	OwnerID         uuid.UUID
	DefaultCurrency string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

//go:generate mockgen -source=company.go -destination=repository_mock.go -package=company
type Repository interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*Company, error)
	GetCompanyByOwner(ctx context.Context, ownerID uuid.UUID) (*Company, error)
	UpdateDefaultCurrency(ctx context.Context, id uuid.UUID, currency string) error
}
