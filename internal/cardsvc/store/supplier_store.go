package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitepass/card-services/internal/cardsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SupplierStore struct {
	db *pgxpool.Pool
}

func NewSupplierStore(db *pgxpool.Pool) *SupplierStore {
	return &SupplierStore{db: db}
}

func (s *SupplierStore) GetSupplierByID(ctx context.Context, id int64) (*models.Supplier, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM suppliers
		WHERE id = $1
		LIMIT 1
	`

	var sup models.Supplier
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sup.ID,
		&sup.Name,
		&sup.CreatedAt,
		&sup.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get supplier by id: %w", err)
	}

	return &sup, nil
}
