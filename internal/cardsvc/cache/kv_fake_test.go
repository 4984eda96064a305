package cache_test

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sitepass/card-services/internal/cardsvc/cache"
)

// fakeKVStore is an in-memory KV with TTL for unit tests.
type fakeKVStore struct {
	mu   sync.Mutex
	data map[string]fakeKVItem

	failGet error // when set, Get returns this error
	failSet error // when set, Set returns this error
}

type fakeKVItem struct {
	value   string
	expires time.Time // zero = no ttl
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{
		data: make(map[string]fakeKVItem),
	}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	if f.failGet != nil {
		return "", f.failGet
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(f.data, key)
		return "", cache.ErrCacheMiss
	}
	return item.value, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if f.failSet != nil {
		return f.failSet
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: value, expires: exp}
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

	f.data = make(map[string]fakeKVItem)
	return nil
}

// raw reads the stored value without decryption, for at-rest checks.
func (f *fakeKVStore) raw(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.data[key]
	return item.value, ok
}

// fakeGeoStore is an in-memory geo index answering radius queries with
// great-circle distances, like the redis GEOSEARCH it stands in for.
type fakeGeoStore struct {
	mu      sync.Mutex
	indexes map[string]map[string][2]float64 // key -> member -> (lng, lat)

	failAdd    error
	failSearch error
}

func newFakeGeoStore() *fakeGeoStore {
	return &fakeGeoStore{
		indexes: make(map[string]map[string][2]float64),
	}
}

func (f *fakeGeoStore) GeoAdd(ctx context.Context, key, member string, longitude, latitude float64) error {
	if f.failAdd != nil {
		return f.failAdd
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	idx, ok := f.indexes[key]
	if !ok {
		idx = make(map[string][2]float64)
		f.indexes[key] = idx
	}
	idx[member] = [2]float64{longitude, latitude}
	return nil
}

func (f *fakeGeoStore) GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64, limit int) ([]cache.GeoMember, error) {
	if f.failSearch != nil {
		return nil, f.failSearch
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var members []cache.GeoMember
	for member, coords := range f.indexes[key] {
		dist := greatCircleMeters(latitude, longitude, coords[1], coords[0])
		if dist <= radiusMeters {
			members = append(members, cache.GeoMember{
				Member:    member,
				DistM:     dist,
				Longitude: coords[0],
				Latitude:  coords[1],
			})
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].DistM < members[j].DistM })
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}
	return members, nil
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
