package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sitepass/card-services/internal/cardsvc/crypto"
)

const (
	// DefaultLocationTTL bounds how long a last-known location serves
	// from the cache without a fresh report.
	DefaultLocationTTL = time.Hour

	geoIndexKey       = "card-locations:geo"
	locationKeyPrefix = "card-location:"
)

// CardLocation is the decrypted cached detail record for one card.
type CardLocation struct {
	HistoryID int64     `json:"id"`
	CardID    int64     `json:"card_id"`
	CardSN    string    `json:"card_sn"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	UpdatedAt time.Time `json:"updated_at"`
}

// cachedLocation is the wire form: latitude and longitude are each
// encrypted individually, the rest stays clear.
type cachedLocation struct {
	HistoryID int64     `json:"id"`
	CardID    int64     `json:"card_id"`
	CardSN    string    `json:"card_sn"`
	Latitude  string    `json:"latitude"`
	Longitude string    `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeoCache keeps one last-known-location record per card plus a shared
// geospatial index of card positions. It is advisory: the relational
// store stays the source of truth and every caller must tolerate a
// miss or an error here.
type GeoCache struct {
	kv    KVStore
	geo   GeoStore
	codec *crypto.Codec
}

func NewGeoCache(kv KVStore, geo GeoStore, codec *crypto.Codec) *GeoCache {
	return &GeoCache{kv: kv, geo: geo, codec: codec}
}

func locationKey(cardID int64) string {
	return locationKeyPrefix + strconv.FormatInt(cardID, 10)
}

// SaveCardLocation writes the per-card detail key with the TTL and then
// inserts the card into the shared geo index. The two writes are
// independent; the index entry carries no expiry of its own.
func (g *GeoCache) SaveCardLocation(ctx context.Context, loc CardLocation, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLocationTTL
	}

	encLat, err := g.codec.Encrypt(strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	if err != nil {
		return fmt.Errorf("failed to encrypt latitude: %w", err)
	}
	encLng, err := g.codec.Encrypt(strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	if err != nil {
		return fmt.Errorf("failed to encrypt longitude: %w", err)
	}

	record := cachedLocation{
		HistoryID: loc.HistoryID,
		CardID:    loc.CardID,
		CardSN:    loc.CardSN,
		Latitude:  encLat,
		Longitude: encLng,
		Accuracy:  loc.Accuracy,
		UpdatedAt: time.Now(),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal location record: %w", err)
	}

	if err := g.kv.Set(ctx, locationKey(loc.CardID), string(raw), ttl); err != nil {
		return fmt.Errorf("failed to set location key: %w", err)
	}

	member := strconv.FormatInt(loc.CardID, 10)
	if err := g.geo.GeoAdd(ctx, geoIndexKey, member, loc.Longitude, loc.Latitude); err != nil {
		return fmt.Errorf("failed to index location: %w", err)
	}

	return nil
}

// GetCardLocation returns (nil, nil) on a cache miss; the caller
// decides whether to query the store.
func (g *GeoCache) GetCardLocation(ctx context.Context, cardID int64) (*CardLocation, error) {
	raw, err := g.kv.Get(ctx, locationKey(cardID))
	if err != nil {
		if err == ErrCacheMiss {
			return nil, nil
		}
		return nil, err
	}

	var record cachedLocation
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal location record: %w", err)
	}

	loc := &CardLocation{
		HistoryID: record.HistoryID,
		CardID:    record.CardID,
		CardSN:    record.CardSN,
		Accuracy:  record.Accuracy,
		UpdatedAt: record.UpdatedAt,
	}

	// Legacy records may hold plain coordinates; the codec hands those
	// back unchanged.
	lat := record.Latitude
	if crypto.IsEncrypted(lat) {
		lat = g.codec.Decrypt(lat)
	}
	lng := record.Longitude
	if crypto.IsEncrypted(lng) {
		lng = g.codec.Decrypt(lng)
	}

	loc.Latitude, err = strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached latitude: %w", err)
	}
	loc.Longitude, err = strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached longitude: %w", err)
	}

	return loc, nil
}

// SearchNearby queries the shared geo index, ascending by distance.
func (g *GeoCache) SearchNearby(ctx context.Context, latitude, longitude, radiusMeters float64, limit int) ([]GeoMember, error) {
	return g.geo.GeoSearch(ctx, geoIndexKey, longitude, latitude, radiusMeters, limit)
}
