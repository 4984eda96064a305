package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitepass/card-services/internal/cardsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VisitorStore struct {
	db *pgxpool.Pool
}

func NewVisitorStore(db *pgxpool.Pool) *VisitorStore {
	return &VisitorStore{db: db}
}

func (s *VisitorStore) GetVisitorByID(ctx context.Context, id int64) (*models.Visitor, error) {
	query := `
		SELECT id, name, state, card_id, created_at, updated_at
		FROM visitors
		WHERE id = $1
		LIMIT 1
	`

	var v models.Visitor
	err := s.db.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.Name,
		&v.State,
		&v.CardID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get visitor by id: %w", err)
	}

	return &v, nil
}

// SetStateAndCard writes the visitor side of the assignment link: the
// state transition and the card reference move together.
func (s *VisitorStore) SetStateAndCard(ctx context.Context, id int64, state string, cardID *int64) error {
	res, err := s.db.Exec(ctx, `
		UPDATE visitors
		SET state = $2, card_id = $3, updated_at = now()
		WHERE id = $1
	`, id, state, cardID)
	if err != nil {
		return fmt.Errorf("failed to update visitor: %w", err)
	}
	if res.RowsAffected() != 1 {
		return fmt.Errorf("visitor %d not found", id)
	}
	return nil
}
