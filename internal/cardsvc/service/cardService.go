package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sitepass/card-services/internal/cardsvc/cache"
	"github.com/sitepass/card-services/internal/cardsvc/models"
)

const cardRecordTTL = 5 * time.Minute

// CardService owns card CRUD and the card↔visitor assignment state
// machine. Visitor rows move waiting → in_progress → completed and
// never leave completed; cards move between unassigned and assigned
// freely. The two link columns are kept mutually consistent.
type CardService struct {
	cards     CardRepo
	visitors  VisitorRepo
	suppliers SupplierRepo
	records   *cache.Cache // card-record cache, advisory
}

func NewCardService(cards CardRepo, visitors VisitorRepo, suppliers SupplierRepo, records *cache.Cache) *CardService {
	return &CardService{
		cards:     cards,
		visitors:  visitors,
		suppliers: suppliers,
		records:   records,
	}
}

func cardRecordKey(id int64) string {
	return fmt.Sprintf("card-%d", id)
}

func (s *CardService) dropCardRecord(ctx context.Context, id int64) {
	if err := s.records.Delete(ctx, cardRecordKey(id)); err != nil {
		log.Warnf("card record cache invalidation failed for %d: %v", id, err)
	}
}

// CreateCard pre-checks the serial number; the unique_card_sn
// constraint still backstops concurrent registrations.
func (s *CardService) CreateCard(ctx context.Context, cardSN string, supplierID int64) (*models.Card, error) {
	supplier, err := s.suppliers.GetSupplierByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, ErrSupplierNotFound
	}

	existing, err := s.cards.GetCardBySN(ctx, cardSN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCardSNTaken
	}

	return s.cards.CreateCard(ctx, cardSN, supplierID)
}

// GetCard serves the card record through the generic cache; cache
// trouble degrades silently to the store.
func (s *CardService) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	var cached models.Card
	hit, err := s.records.Get(ctx, cardRecordKey(id), &cached)
	if err != nil {
		log.Warnf("card record cache read failed for %d: %v", id, err)
	} else if hit {
		return &cached, nil
	}

	card, err := s.cards.GetCardByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	if err := s.records.Set(ctx, cardRecordKey(id), card, cardRecordTTL); err != nil {
		log.Warnf("card record cache write failed for %d: %v", id, err)
	}

	return card, nil
}

func (s *CardService) SetCardActive(ctx context.Context, id int64, isActive bool) (*models.Card, error) {
	card, err := s.cards.UpdateCardActive(ctx, id, isActive)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	s.dropCardRecord(ctx, id)
	return card, nil
}

func (s *CardService) RemoveCard(ctx context.Context, id int64) error {
	deleted, err := s.cards.DeleteCard(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrCardNotFound
	}

	s.dropCardRecord(ctx, id)
	return nil
}

// AssignToVisitor checks every business rule against an uncontested
// read, then saves the visitor row first and the card row second.
// There is no transaction around the two writes; a failure in between
// leaves the visitor in_progress without a card.
func (s *CardService) AssignToVisitor(ctx context.Context, cardID, visitorID int64) (*models.Card, error) {
	visitor, err := s.visitors.GetVisitorByID(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if visitor == nil {
		return nil, ErrVisitorNotFound
	}
	if visitor.State == models.VisitorCompleted {
		return nil, ErrVisitorCompleted
	}
	if visitor.CardID != nil {
		return nil, ErrVisitorHasCard
	}

	card, err := s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if !card.IsActive {
		return nil, ErrCardInactive
	}
	if card.VisitorID != nil {
		return nil, ErrCardAssigned
	}

	if err := s.visitors.SetStateAndCard(ctx, visitorID, models.VisitorInProgress, &cardID); err != nil {
		return nil, err
	}

	issuedAt := time.Now()
	if err := s.cards.SetVisitor(ctx, cardID, &visitorID, &issuedAt); err != nil {
		return nil, err
	}

	s.dropCardRecord(ctx, cardID)

	card.VisitorID = &visitorID
	card.IssuedAt = &issuedAt
	return card, nil
}

// UnassignFromVisitor completes the attached visitor and clears the
// card's visitor link and issued_at.
func (s *CardService) UnassignFromVisitor(ctx context.Context, cardID int64) (*models.Card, error) {
	card, err := s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if card.VisitorID == nil {
		return nil, ErrCardUnassigned
	}

	if err := s.visitors.SetStateAndCard(ctx, *card.VisitorID, models.VisitorCompleted, nil); err != nil {
		return nil, err
	}

	if err := s.cards.SetVisitor(ctx, cardID, nil, nil); err != nil {
		return nil, err
	}

	s.dropCardRecord(ctx, cardID)

	card.VisitorID = nil
	card.IssuedAt = nil
	return card, nil
}
