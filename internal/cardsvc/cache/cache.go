package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sitepass/card-services/internal/cardsvc/crypto"
)

// Keys with these prefixes hold personal or security material and are
// encrypted at rest; everything else passes through in clear so one
// code path serves both kinds of data.
var sensitivePrefixes = []string{
	"card-",
	"user-",
	"auth-",
	"chat-message-",
	"payment-",
}

func isSensitiveKey(key string) bool {
	for _, p := range sensitivePrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Cache is the generic helper shared by the domain caches and ad-hoc
// callers: JSON serialization plus conditional whole-value encryption
// driven by the key prefix.
type Cache struct {
	kv    KVStore
	codec *crypto.Codec
}

func NewCache(kv KVStore, codec *crypto.Codec) *Cache {
	return &Cache{kv: kv, codec: codec}
}

func (c *Cache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}

	value := string(raw)
	if isSensitiveKey(key) {
		value, err = c.codec.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt cache value for %s: %w", key, err)
		}
	}

	return c.kv.Set(ctx, key, value, ttl)
}

// Get unmarshals the cached value into dest. It returns (false, nil) on
// a miss so the caller decides whether to fall back to the store.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	value, err := c.kv.Get(ctx, key)
	if err != nil {
		if err == ErrCacheMiss {
			return false, nil
		}
		return false, err
	}

	if isSensitiveKey(key) {
		value = c.codec.Decrypt(value)
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value for %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.kv.Delete(ctx, keys...)
}

// FlushAll wipes the entire cache. Non-production tooling only.
func (c *Cache) FlushAll(ctx context.Context) error {
	return c.kv.FlushAll(ctx)
}
