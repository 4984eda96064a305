package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	config "github.com/sitepass/card-services/configs"
	"github.com/sitepass/card-services/internal/cardsvc/cache"
	svcconfig "github.com/sitepass/card-services/internal/cardsvc/config"
	"github.com/sitepass/card-services/internal/cardsvc/crypto"
)

const SERVICE_NAME = "cachectl"

func init() {
	config.LoadEnv(SERVICE_NAME)
}

// cachectl flush wipes the whole cache. Non-production tooling only:
// the services rebuild entries lazily but every read pays the store
// round trip until they do.
func main() {
	if len(os.Args) < 2 || os.Args[1] != "flush" {
		log.Fatal("usage: cachectl flush")
	}

	cfg := svcconfig.Load()

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, 0)
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := cache.Ping(ctx, redisClient); err != nil {
		log.Fatalf("unable to reach redis at %s: %v", cfg.RedisAddr, err)
	}

	c := cache.NewCache(cache.NewRedisStore(redisClient), crypto.NewCodec(cfg.CacheSecret))
	if err := c.FlushAll(ctx); err != nil {
		log.Fatalf("cache flush failed: %v", err)
	}

	log.Infof("cache flushed at %s", cfg.RedisAddr)
}
