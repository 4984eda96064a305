package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitepass/card-services/internal/cardsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LocationStore struct {
	db *pgxpool.Pool
}

func NewLocationStore(db *pgxpool.Pool) *LocationStore {
	return &LocationStore{db: db}
}

// CreateHistory appends one reading, timestamped by the database.
// History rows are never updated or deleted after this insert.
func (s *LocationStore) CreateHistory(ctx context.Context, cardID int64, latitude, longitude float64, accuracy *float64) (*models.CardLocationHistory, error) {
	query := `
		INSERT INTO card_location_history (card_id, latitude, longitude, accuracy, timestamp)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, card_id, latitude, longitude, accuracy, timestamp
	`

	var h models.CardLocationHistory
	err := s.db.QueryRow(ctx, query, cardID, latitude, longitude, accuracy).Scan(
		&h.ID,
		&h.CardID,
		&h.Latitude,
		&h.Longitude,
		&h.Accuracy,
		&h.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create location history: %w", err)
	}

	return &h, nil
}

// GetLatestByCardID returns the most recent reading, nil when the card
// has no history yet.
func (s *LocationStore) GetLatestByCardID(ctx context.Context, cardID int64) (*models.CardLocationHistory, error) {
	query := `
		SELECT id, card_id, latitude, longitude, accuracy, timestamp
		FROM card_location_history
		WHERE card_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var h models.CardLocationHistory
	err := s.db.QueryRow(ctx, query, cardID).Scan(
		&h.ID,
		&h.CardID,
		&h.Latitude,
		&h.Longitude,
		&h.Accuracy,
		&h.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest location: %w", err)
	}

	return &h, nil
}

func (s *LocationStore) ListByCardID(ctx context.Context, cardID int64, limit int) ([]*models.CardLocationHistory, error) {
	query := `
		SELECT id, card_id, latitude, longitude, accuracy, timestamp
		FROM card_location_history
		WHERE card_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list location history: %w", err)
	}
	defer rows.Close()

	var history []*models.CardLocationHistory
	for rows.Next() {
		var h models.CardLocationHistory
		err := rows.Scan(
			&h.ID,
			&h.CardID,
			&h.Latitude,
			&h.Longitude,
			&h.Accuracy,
			&h.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return history, nil
}
