package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/notification"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (
			company_id, title, message, type, category, recipient_id, recipient_type,
			related_item_id, related_item_type, action_url, read, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, NOW())
		RETURNING id, created_at
	`

	return s.db.QueryRowContext(ctx, query,
		n.CompanyID, n.Title, n.Message, n.Type, n.Category, n.RecipientID, n.RecipientType,
		n.RelatedItemID, n.RelatedItemType, n.ActionURL,
	).Scan(&n.ID, &n.CreatedAt)
}

func (s *Store) List(ctx context.Context, companyID uuid.UUID, limit int) ([]*notification.Notification, error) {
	query := `
		SELECT id, company_id, title, message, type, category, recipient_id, recipient_type,
			related_item_id, related_item_type, action_url, read, created_at
		FROM notifications
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification

	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(
			&n.ID, &n.CompanyID, &n.Title, &n.Message, &n.Type, &n.Category, &n.RecipientID, &n.RecipientType,
			&n.RelatedItemID, &n.RelatedItemType, &n.ActionURL, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}

		out = append(out, &n)
	}

	return out, rows.Err()
}
