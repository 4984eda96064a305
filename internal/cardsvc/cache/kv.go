package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss marks an absent key.
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the key-value surface the caches are written against, so
// unit tests can substitute an in-memory fake for redis.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	FlushAll(ctx context.Context) error
}

// GeoMember is one result of a radius search on a geo index.
type GeoMember struct {
	Member    string
	DistM     float64 // distance from the query point, meters
	Longitude float64
	Latitude  float64
}

// GeoStore is the geospatial index surface: insert a member at a
// coordinate, query members within a radius of a point.
type GeoStore interface {
	GeoAdd(ctx context.Context, key, member string, longitude, latitude float64) error
	GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64, limit int) ([]GeoMember, error)
}

// RedisStore implements KVStore and GeoStore on go-redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	return r.client.FlushAll(ctx).Err()
}

func (r *RedisStore) GeoAdd(ctx context.Context, key, member string, longitude, latitude float64) error {
	return r.client.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      member,
		Longitude: longitude,
		Latitude:  latitude,
	}).Err()
}

func (r *RedisStore) GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64, limit int) ([]GeoMember, error) {
	locs, err := r.client.GeoSearchLocation(ctx, key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  longitude,
			Latitude:   latitude,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}

	members := make([]GeoMember, 0, len(locs))
	for _, loc := range locs {
		members = append(members, GeoMember{
			Member:    loc.Name,
			DistM:     loc.Dist,
			Longitude: loc.Longitude,
			Latitude:  loc.Latitude,
		})
	}
	return members, nil
}
