package service_test

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sitepass/card-services/internal/cardsvc/cache"
	"github.com/sitepass/card-services/internal/cardsvc/models"
	"github.com/sitepass/card-services/internal/comm"
)

// In-memory stand-ins for the pg stores and the redis client, so the
// service properties are checked without live backends.

type fakeKVStore struct {
	mu   sync.Mutex
	data map[string]string

	failGet error
	failSet error
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: make(map[string]string)}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	if f.failGet != nil {
		return "", f.failGet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return value, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKVStore) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeKVStore) FlushAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = make(map[string]string)
	return nil
}

type fakeGeoStore struct {
	mu      sync.Mutex
	members map[string][2]float64 // member -> (lng, lat), single shared index

	failAdd    error
	failSearch error
}

func newFakeGeoStore() *fakeGeoStore {
	return &fakeGeoStore{members: make(map[string][2]float64)}
}

func (f *fakeGeoStore) GeoAdd(ctx context.Context, key, member string, longitude, latitude float64) error {
	if f.failAdd != nil {
		return f.failAdd
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[member] = [2]float64{longitude, latitude}
	return nil
}

func (f *fakeGeoStore) GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64, limit int) ([]cache.GeoMember, error) {
	if f.failSearch != nil {
		return nil, f.failSearch
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []cache.GeoMember
	for member, coords := range f.members {
		dist := greatCircleMeters(latitude, longitude, coords[1], coords[0])
		if dist <= radiusMeters {
			out = append(out, cache.GeoMember{Member: member, DistM: dist, Longitude: coords[0], Latitude: coords[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistM < out[j].DistM })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func greatCircleMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

type fakeCardRepo struct {
	mu     sync.Mutex
	cards  map[int64]*models.Card
	nextID int64

	failBoundingBox error
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: make(map[int64]*models.Card), nextID: 1}
}

func (f *fakeCardRepo) put(card *models.Card) *models.Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	if card.ID == 0 {
		card.ID = f.nextID
		f.nextID++
	} else if card.ID >= f.nextID {
		f.nextID = card.ID + 1
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now()
	}
	card.UpdatedAt = time.Now()
	f.cards[card.ID] = card
	return card
}

func (f *fakeCardRepo) snapshot(id int64) models.Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.cards[id]
}

func (f *fakeCardRepo) GetCardByID(ctx context.Context, id int64) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return nil, nil
	}
	copied := *card
	return &copied, nil
}

func (f *fakeCardRepo) GetCardBySN(ctx context.Context, sn string) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, card := range f.cards {
		if card.CardSN == sn {
			copied := *card
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeCardRepo) CreateCard(ctx context.Context, cardSN string, supplierID int64) (*models.Card, error) {
	return f.put(&models.Card{CardSN: cardSN, IsActive: true, SupplierID: supplierID}), nil
}

func (f *fakeCardRepo) UpdateCardActive(ctx context.Context, id int64, isActive bool) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return nil, nil
	}
	card.IsActive = isActive
	card.UpdatedAt = time.Now()
	copied := *card
	return &copied, nil
}

func (f *fakeCardRepo) DeleteCard(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cards[id]; !ok {
		return false, nil
	}
	delete(f.cards, id)
	return true, nil
}

func (f *fakeCardRepo) UpdateCardPosition(ctx context.Context, id int64, latitude, longitude float64, accuracy *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card := f.cards[id]
	card.Latitude = &latitude
	card.Longitude = &longitude
	card.Accuracy = accuracy
	card.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCardRepo) SetVisitor(ctx context.Context, id int64, visitorID *int64, issuedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card := f.cards[id]
	card.VisitorID = visitorID
	card.IssuedAt = issuedAt
	card.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCardRepo) GetCardsInBoundingBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64, limit int) ([]*models.Card, error) {
	if f.failBoundingBox != nil {
		return nil, f.failBoundingBox
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Card
	for _, card := range f.cards {
		if card.Latitude == nil || card.Longitude == nil {
			continue
		}
		if *card.Latitude < minLat || *card.Latitude > maxLat {
			continue
		}
		if *card.Longitude < minLng || *card.Longitude > maxLng {
			continue
		}
		copied := *card
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeLocationRepo struct {
	mu      sync.Mutex
	history []*models.CardLocationHistory
	nextID  int64

	failCreate error
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{nextID: 1}
}

func (f *fakeLocationRepo) CreateHistory(ctx context.Context, cardID int64, latitude, longitude float64, accuracy *float64) (*models.CardLocationHistory, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	h := &models.CardLocationHistory{
		ID:        f.nextID,
		CardID:    cardID,
		Latitude:  latitude,
		Longitude: longitude,
		Accuracy:  accuracy,
		Timestamp: time.Now(),
	}
	f.nextID++
	f.history = append(f.history, h)
	return h, nil
}

func (f *fakeLocationRepo) GetLatestByCardID(ctx context.Context, cardID int64) (*models.CardLocationHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *models.CardLocationHistory
	for _, h := range f.history {
		if h.CardID != cardID {
			continue
		}
		if latest == nil || h.Timestamp.After(latest.Timestamp) || (h.Timestamp.Equal(latest.Timestamp) && h.ID > latest.ID) {
			latest = h
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeLocationRepo) ListByCardID(ctx context.Context, cardID int64, limit int) ([]*models.CardLocationHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.CardLocationHistory
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].CardID != cardID {
			continue
		}
		copied := *f.history[i]
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLocationRepo) countForCard(cardID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.history {
		if h.CardID == cardID {
			n++
		}
	}
	return n
}

type fakeVisitorRepo struct {
	mu       sync.Mutex
	visitors map[int64]*models.Visitor

	failSet error
}

func newFakeVisitorRepo() *fakeVisitorRepo {
	return &fakeVisitorRepo{visitors: make(map[int64]*models.Visitor)}
}

func (f *fakeVisitorRepo) put(v *models.Visitor) *models.Visitor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visitors[v.ID] = v
	return v
}

func (f *fakeVisitorRepo) snapshot(id int64) models.Visitor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.visitors[id]
}

func (f *fakeVisitorRepo) GetVisitorByID(ctx context.Context, id int64) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[id]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVisitorRepo) SetStateAndCard(ctx context.Context, id int64, state string, cardID *int64) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.visitors[id]
	v.State = state
	v.CardID = cardID
	v.UpdatedAt = time.Now()
	return nil
}

type fakeSupplierRepo struct {
	suppliers map[int64]*models.Supplier
}

func newFakeSupplierRepo(ids ...int64) *fakeSupplierRepo {
	f := &fakeSupplierRepo{suppliers: make(map[int64]*models.Supplier)}
	for _, id := range ids {
		f.suppliers[id] = &models.Supplier{ID: id, Name: "supplier"}
	}
	return f
}

func (f *fakeSupplierRepo) GetSupplierByID(ctx context.Context, id int64) (*models.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []comm.LocationEvent

	fail error
}

func (f *fakePublisher) PublishLocation(event comm.LocationEvent) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	reports []comm.LocationReport

	fail error
}

func (f *fakeArchiver) StoreReport(ctx context.Context, report comm.LocationReport, receivedAt time.Time) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}
