package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/sitepass/card-services/internal/cardsvc/cache"
	"github.com/sitepass/card-services/internal/cardsvc/models"
	"github.com/sitepass/card-services/internal/comm"
)

// LocationService persists card GPS readings and serves last-known
// locations. The relational store is the source of truth; the cache,
// archive and event stream are all best-effort and only ever cost
// latency when they are down.
type LocationService struct {
	cards    CardRepo
	history  LocationRepo
	geoCache *cache.GeoCache
	archive  Archiver       // optional
	events   EventPublisher // optional
}

func NewLocationService(cards CardRepo, history LocationRepo, geoCache *cache.GeoCache, archive Archiver, events EventPublisher) *LocationService {
	return &LocationService{
		cards:    cards,
		history:  history,
		geoCache: geoCache,
		archive:  archive,
		events:   events,
	}
}

func validateReading(latitude, longitude float64, accuracy *float64) error {
	if latitude < -90 || latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidLocation, latitude)
	}
	if longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidLocation, longitude)
	}
	if accuracy != nil && (*accuracy < 0 || *accuracy > 1000) {
		return fmt.Errorf("%w: accuracy %v out of range", ErrInvalidLocation, *accuracy)
	}
	return nil
}

// RecordLocation appends a history row and refreshes the card's
// denormalized position. Both store writes commit before any cache
// write is attempted; cache, archive and event failures are logged as
// warnings and never fail the call.
func (s *LocationService) RecordLocation(ctx context.Context, cardID int64, latitude, longitude float64, accuracy *float64) (*models.CardLocationHistory, error) {
	if err := validateReading(latitude, longitude, accuracy); err != nil {
		return nil, err
	}

	card, err := s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	h, err := s.history.CreateHistory(ctx, cardID, latitude, longitude, accuracy)
	if err != nil {
		return nil, err
	}

	if err := s.cards.UpdateCardPosition(ctx, cardID, latitude, longitude, accuracy); err != nil {
		return nil, err
	}

	acc := 0.0
	if accuracy != nil {
		acc = *accuracy
	}

	// store committed, everything below is best-effort
	loc := cache.CardLocation{
		HistoryID: h.ID,
		CardID:    cardID,
		CardSN:    card.CardSN,
		Latitude:  latitude,
		Longitude: longitude,
		Accuracy:  acc,
	}
	if err := s.geoCache.SaveCardLocation(ctx, loc, cache.DefaultLocationTTL); err != nil {
		log.Warnf("cache write failed for card %d, serving from store only: %v", cardID, err)
	}

	if s.archive != nil {
		report := comm.LocationReport{CardID: cardID, Latitude: latitude, Longitude: longitude, Accuracy: accuracy}
		if err := s.archive.StoreReport(ctx, report, h.Timestamp); err != nil {
			log.Warnf("report archive write failed for card %d: %v", cardID, err)
		}
	}

	if s.events != nil {
		event := comm.LocationEvent{
			CardID:     cardID,
			CardSN:     card.CardSN,
			SupplierID: card.SupplierID,
			Latitude:   latitude,
			Longitude:  longitude,
			Accuracy:   acc,
			Timestamp:  h.Timestamp,
		}
		if err := s.events.PublishLocation(event); err != nil {
			log.Warnf("location event publish failed for card %d: %v", cardID, err)
		}
	}

	return h, nil
}

// GetLastLocation prefers the cache, falls back to the store and
// repopulates the cache on a miss. A cache error counts as a miss.
// Returns (nil, nil) when the card exists but has no reading yet.
func (s *LocationService) GetLastLocation(ctx context.Context, cardID int64) (*cache.CardLocation, error) {
	loc, err := s.geoCache.GetCardLocation(ctx, cardID)
	if err != nil {
		log.Warnf("cache read failed for card %d, falling back to store: %v", cardID, err)
	} else if loc != nil {
		return loc, nil
	}

	card, err := s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	h, err := s.history.GetLatestByCardID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}

	acc := 0.0
	if h.Accuracy != nil {
		acc = *h.Accuracy
	}
	loc = &cache.CardLocation{
		HistoryID: h.ID,
		CardID:    cardID,
		CardSN:    card.CardSN,
		Latitude:  h.Latitude,
		Longitude: h.Longitude,
		Accuracy:  acc,
		UpdatedAt: h.Timestamp,
	}

	if err := s.geoCache.SaveCardLocation(ctx, *loc, cache.DefaultLocationTTL); err != nil {
		log.Warnf("cache repopulate failed for card %d: %v", cardID, err)
	}

	return loc, nil
}

// GetLocationHistory lists recent readings, newest first.
func (s *LocationService) GetLocationHistory(ctx context.Context, cardID int64, limit int) ([]*models.CardLocationHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	card, err := s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	return s.history.ListByCardID(ctx, cardID, limit)
}
