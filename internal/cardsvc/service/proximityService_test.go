package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitepass/card-services/internal/cardsvc/cache"
	"github.com/sitepass/card-services/internal/cardsvc/crypto"
	"github.com/sitepass/card-services/internal/cardsvc/models"
	"github.com/sitepass/card-services/internal/cardsvc/service"
)

type proximityFixture struct {
	svc      *service.ProximityService
	cards    *fakeCardRepo
	kv       *fakeKVStore
	geo      *fakeGeoStore
	geoCache *cache.GeoCache
}

func newProximityFixture() *proximityFixture {
	cards := newFakeCardRepo()
	kv := newFakeKVStore()
	geo := newFakeGeoStore()
	geoCache := cache.NewGeoCache(kv, geo, crypto.NewCodec("unit-test-secret"))

	return &proximityFixture{
		svc:      service.NewProximityService(cards, geoCache),
		cards:    cards,
		kv:       kv,
		geo:      geo,
		geoCache: geoCache,
	}
}

func (f *proximityFixture) cacheCard(t *testing.T, id int64, sn string, lat, lng float64) {
	t.Helper()
	loc := cache.CardLocation{CardID: id, CardSN: sn, Latitude: lat, Longitude: lng}
	require.NoError(t, f.geoCache.SaveCardLocation(context.Background(), loc, time.Hour))
}

func (f *proximityFixture) storeCard(id int64, sn string, lat, lng float64) {
	f.cards.put(&models.Card{ID: id, CardSN: sn, IsActive: true, SupplierID: 1, Latitude: &lat, Longitude: &lng})
}

func TestGetNearbyCards_CachePathSortedAscending(t *testing.T) {
	f := newProximityFixture()

	// on the equator 0.0003 deg of longitude is roughly 33 m
	f.cacheCard(t, 1, "SN-0001", 0, 0.0006)
	f.cacheCard(t, 2, "SN-0002", 0, 0.0003)
	f.cacheCard(t, 3, "SN-0003", 0, 0.002) // ~222 m, outside the radius

	results, err := f.svc.GetNearbyCards(context.Background(), 0, 0, 100)

	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, int64(2), results[0].CardID)
	require.Equal(t, int64(1), results[1].CardID)
	require.Equal(t, "SN-0002", results[0].CardSN)

	wantNear := greatCircleMeters(0, 0, 0, 0.0003)
	require.InDelta(t, wantNear, results[0].DistanceMeters, 0.01)
	require.InDelta(t, 0.0003, results[0].Coordinates.Longitude, 1e-9)
}

func TestGetNearbyCards_SkipsExpiredDetailKeys(t *testing.T) {
	f := newProximityFixture()

	f.cacheCard(t, 1, "SN-0001", 0, 0.0003)
	f.cacheCard(t, 2, "SN-0002", 0, 0.0006)

	// detail key expired while the index entry lives on
	require.NoError(t, f.kv.Delete(context.Background(), "card-location:1"))

	results, err := f.svc.GetNearbyCards(context.Background(), 0, 0, 100)

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(2), results[0].CardID)
}

func TestGetNearbyCards_FallbackUsesBoundingBox(t *testing.T) {
	f := newProximityFixture()
	f.geo.failSearch = errors.New("connection refused")

	f.storeCard(1, "SN-0001", 0, 0.0003)  // ~33 m, inside the circle
	f.storeCard(2, "SN-0002", 0, 0.002)   // outside the box entirely
	f.storeCard(3, "SN-0003", 0, -0.0006) // ~67 m

	results, err := f.svc.GetNearbyCards(context.Background(), 0, 0, 100)

	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, int64(1), results[0].CardID)
	require.Equal(t, int64(3), results[1].CardID)

	want := math.Round(greatCircleMeters(0, 0, 0, 0.0003))
	require.Equal(t, want, results[0].DistanceMeters)
}

func TestGetNearbyCards_FallbackKeepsBoxCorners(t *testing.T) {
	f := newProximityFixture()
	f.geo.failSearch = errors.New("connection refused")

	// the corner of a 100 m box sits inside the box but roughly 126 m
	// from the center; the fallback keeps it, with the true distance
	f.storeCard(1, "SN-0001", 0.0008, 0.0008)

	results, err := f.svc.GetNearbyCards(context.Background(), 0, 0, 100)

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Greater(t, results[0].DistanceMeters, 100.0)

	want := math.Round(greatCircleMeters(0, 0, 0.0008, 0.0008))
	require.Equal(t, want, results[0].DistanceMeters)
}

func TestGetNearbyCards_FallbackSkipsCardsWithoutPosition(t *testing.T) {
	f := newProximityFixture()
	f.geo.failSearch = errors.New("connection refused")

	f.cards.put(&models.Card{ID: 1, CardSN: "SN-0001", IsActive: true, SupplierID: 1})

	results, err := f.svc.GetNearbyCards(context.Background(), 0, 0, 100)

	require.NoError(t, err)
	require.Empty(t, results)
}

func TestGetNearbyCards_DefaultRadius(t *testing.T) {
	f := newProximityFixture()

	f.cacheCard(t, 1, "SN-0001", 0, 0.0006) // ~67 m, inside the 100 m default
	f.cacheCard(t, 2, "SN-0002", 0, 0.002)  // ~222 m, outside

	results, err := f.svc.GetNearbyCards(context.Background(), 0, 0, 0)

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(1), results[0].CardID)
}

func TestGetNearbyCards_RejectsInvalidCenter(t *testing.T) {
	f := newProximityFixture()

	_, err := f.svc.GetNearbyCards(context.Background(), 91, 0, 100)
	require.ErrorIs(t, err, service.ErrInvalidLocation)

	_, err = f.svc.GetNearbyCards(context.Background(), 0, 181, 100)
	require.ErrorIs(t, err, service.ErrInvalidLocation)
}

func TestGetNearbyCards_BothPathsDown(t *testing.T) {
	f := newProximityFixture()
	f.geo.failSearch = errors.New("connection refused")
	f.cards.failBoundingBox = errors.New("db down")

	_, err := f.svc.GetNearbyCards(context.Background(), 0, 0, 100)
	require.Error(t, err)
}
