package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitepass/card-services/internal/cardsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

const cardColumns = `id, card_sn, is_active, supplier_id, visitor_id, issued_at,
	       latitude, longitude, accuracy, created_at, updated_at`

func scanCard(row pgx.Row) (*models.Card, error) {
	var card models.Card
	err := row.Scan(
		&card.ID,
		&card.CardSN,
		&card.IsActive,
		&card.SupplierID,
		&card.VisitorID,
		&card.IssuedAt,
		&card.Latitude,
		&card.Longitude,
		&card.Accuracy,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *CardStore) GetCardByID(ctx context.Context, id int64) (*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE id = $1
		LIMIT 1
	`

	card, err := scanCard(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card by id: %w", err)
	}

	return card, nil
}

func (s *CardStore) GetCardBySN(ctx context.Context, sn string) (*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE card_sn = $1
		LIMIT 1
	`

	card, err := scanCard(s.db.QueryRow(ctx, query, sn))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card by sn: %w", err)
	}

	return card, nil
}

// CreateCard fails with an error if the card_sn is already taken
// (unique_card_sn constraint) or the supplier reference is invalid.
func (s *CardStore) CreateCard(ctx context.Context, cardSN string, supplierID int64) (*models.Card, error) {
	if cardSN == "" {
		return nil, fmt.Errorf("card serial number cannot be empty")
	}
	if supplierID <= 0 {
		return nil, fmt.Errorf("invalid supplier ID: %d", supplierID)
	}

	query := `
		INSERT INTO cards (card_sn, is_active, supplier_id)
		VALUES ($1, true, $2)
		RETURNING ` + cardColumns + `
	`

	card, err := scanCard(s.db.QueryRow(ctx, query, cardSN, supplierID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, fmt.Errorf("card %s already exists", cardSN)
			case "23503":
				return nil, fmt.Errorf("invalid reference: %s", pgErr.Message)
			}
		}
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	return card, nil
}

func (s *CardStore) UpdateCardActive(ctx context.Context, id int64, isActive bool) (*models.Card, error) {
	query := `
		UPDATE cards
		SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + cardColumns + `
	`

	card, err := scanCard(s.db.QueryRow(ctx, query, id, isActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update card: %w", err)
	}

	return card, nil
}

func (s *CardStore) DeleteCard(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete card: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

// UpdateCardPosition refreshes the denormalized last-reading columns so
// last-location reads stay O(1) without a history join.
func (s *CardStore) UpdateCardPosition(ctx context.Context, id int64, latitude, longitude float64, accuracy *float64) error {
	res, err := s.db.Exec(ctx, `
		UPDATE cards
		SET latitude = $2, longitude = $3, accuracy = $4, updated_at = now()
		WHERE id = $1
	`, id, latitude, longitude, accuracy)
	if err != nil {
		return fmt.Errorf("failed to update card position: %w", err)
	}
	if res.RowsAffected() != 1 {
		return fmt.Errorf("card %d not found", id)
	}
	return nil
}

// SetVisitor writes the card side of the assignment link. A nil
// visitorID clears the link and issued_at together.
func (s *CardStore) SetVisitor(ctx context.Context, id int64, visitorID *int64, issuedAt *time.Time) error {
	res, err := s.db.Exec(ctx, `
		UPDATE cards
		SET visitor_id = $2, issued_at = $3, updated_at = now()
		WHERE id = $1
	`, id, visitorID, issuedAt)
	if err != nil {
		return fmt.Errorf("failed to set card visitor: %w", err)
	}
	if res.RowsAffected() != 1 {
		return fmt.Errorf("card %d not found", id)
	}
	return nil
}

// GetCardsInBoundingBox selects cards whose raw stored position falls
// inside the box. Corner candidates outside the true circle are kept;
// the caller annotates exact distances.
func (s *CardStore) GetCardsInBoundingBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64, limit int) ([]*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE latitude IS NOT NULL
		  AND longitude IS NOT NULL
		  AND latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		LIMIT $5
	`

	rows, err := s.db.Query(ctx, query, minLat, maxLat, minLng, maxLng, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards in bounding box: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cards, nil
}
