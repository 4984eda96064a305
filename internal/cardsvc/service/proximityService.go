package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sitepass/card-services/internal/cardsvc/cache"
)

const (
	// DefaultRadiusMeters applies when the caller passes no radius.
	DefaultRadiusMeters = 100.0

	maxNearbyResults = 50
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type NearbyCard struct {
	CardID         int64       `json:"card_id"`
	CardSN         string      `json:"card_sn"`
	Accuracy       float64     `json:"accuracy"`
	UpdatedAt      time.Time   `json:"updated_at"`
	DistanceMeters float64     `json:"distance_meters"`
	Coordinates    Coordinates `json:"coordinates"`
}

// ProximityService answers "cards near this point". The geospatial
// index is the fast path; when the cache layer errors the query
// degrades to a bounding-box scan of the card table with exact
// haversine distances annotated per row.
type ProximityService struct {
	cards    CardRepo
	geoCache *cache.GeoCache
}

func NewProximityService(cards CardRepo, geoCache *cache.GeoCache) *ProximityService {
	return &ProximityService{cards: cards, geoCache: geoCache}
}

func (s *ProximityService) GetNearbyCards(ctx context.Context, latitude, longitude, radiusMeters float64) ([]*NearbyCard, error) {
	if !validCoordinates(latitude, longitude) {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidLocation, latitude, longitude)
	}
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	results, err := s.nearbyFromCache(ctx, latitude, longitude, radiusMeters)
	if err == nil {
		return results, nil
	}
	log.Warnf("geo index query failed, falling back to store scan: %v", err)

	return s.nearbyFromStore(ctx, latitude, longitude, radiusMeters)
}

func (s *ProximityService) nearbyFromCache(ctx context.Context, latitude, longitude, radiusMeters float64) ([]*NearbyCard, error) {
	members, err := s.geoCache.SearchNearby(ctx, latitude, longitude, radiusMeters, maxNearbyResults)
	if err != nil {
		return nil, err
	}

	results := make([]*NearbyCard, 0, len(members))
	for _, m := range members {
		cardID, err := strconv.ParseInt(m.Member, 10, 64)
		if err != nil {
			log.Warnf("skipping malformed geo index member %q", m.Member)
			continue
		}

		detail, err := s.geoCache.GetCardLocation(ctx, cardID)
		if err != nil {
			return nil, err
		}
		if detail == nil {
			// detail key expired while the index entry lives on
			continue
		}

		results = append(results, &NearbyCard{
			CardID:         detail.CardID,
			CardSN:         detail.CardSN,
			Accuracy:       detail.Accuracy,
			UpdatedAt:      detail.UpdatedAt,
			DistanceMeters: m.DistM,
			Coordinates:    Coordinates{Latitude: m.Latitude, Longitude: m.Longitude},
		})
	}

	return results, nil
}

// nearbyFromStore keeps every bounding-box candidate, including the
// corners outside the true circle; the distance annotation is exact.
func (s *ProximityService) nearbyFromStore(ctx context.Context, latitude, longitude, radiusMeters float64) ([]*NearbyCard, error) {
	minLat, maxLat, minLng, maxLng := boundingBox(latitude, longitude, radiusMeters)

	cards, err := s.cards.GetCardsInBoundingBox(ctx, minLat, maxLat, minLng, maxLng, maxNearbyResults)
	if err != nil {
		return nil, err
	}

	results := make([]*NearbyCard, 0, len(cards))
	for _, card := range cards {
		if card.Latitude == nil || card.Longitude == nil {
			continue
		}

		acc := 0.0
		if card.Accuracy != nil {
			acc = *card.Accuracy
		}

		dist := math.Round(haversineMeters(latitude, longitude, *card.Latitude, *card.Longitude))
		results = append(results, &NearbyCard{
			CardID:         card.ID,
			CardSN:         card.CardSN,
			Accuracy:       acc,
			UpdatedAt:      card.UpdatedAt,
			DistanceMeters: dist,
			Coordinates:    Coordinates{Latitude: *card.Latitude, Longitude: *card.Longitude},
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	return results, nil
}
