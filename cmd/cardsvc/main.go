package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	log "github.com/sirupsen/logrus"
	config "github.com/sitepass/card-services/configs"
	"github.com/sitepass/card-services/internal/cardsvc/archive"
	"github.com/sitepass/card-services/internal/cardsvc/broker"
	"github.com/sitepass/card-services/internal/cardsvc/cache"
	svcconfig "github.com/sitepass/card-services/internal/cardsvc/config"
	"github.com/sitepass/card-services/internal/cardsvc/crypto"
	"github.com/sitepass/card-services/internal/cardsvc/db"
	handlers "github.com/sitepass/card-services/internal/cardsvc/handlers"
	"github.com/sitepass/card-services/internal/cardsvc/service"
	"github.com/sitepass/card-services/internal/cardsvc/store"
	nats "github.com/sitepass/card-services/internal/nats"
)

const SERVICE_NAME = "card"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	cfg := svcconfig.Load()

	// pg connection
	dbpool, err := db.Connect(cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// redis connection, the cache is advisory so a dead redis only
	// costs latency after startup
	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, 0)
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(ctxPing, redisClient); err != nil {
		log.Warnf("redis not reachable at startup, serving from store only: %v", err)
	}
	cancelPing()
	defer redisClient.Close()

	codec := crypto.NewCodec(cfg.CacheSecret)
	kv := cache.NewRedisStore(redisClient)
	recordCache := cache.NewCache(kv, codec)
	geoCache := cache.NewGeoCache(kv, kv, codec)

	cardStore := store.NewCardStore(dbpool)
	locationStore := store.NewLocationStore(dbpool)
	visitorStore := store.NewVisitorStore(dbpool)
	supplierStore := store.NewSupplierStore(dbpool)

	cardService := service.NewCardService(cardStore, visitorStore, supplierStore, recordCache)
	proximityService := service.NewProximityService(cardStore, geoCache)

	// optional raw report archive
	var reportArchive service.Archiver
	if cfg.MongoURI != "" {
		mongoDB, cancelMongo, err := db.ConnectToMongo()
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer cancelMongo()
		db.CreateTTLIndexForCollection(mongoDB, archive.CollectionName)
		reportArchive = archive.NewArchive(mongoDB)
		log.Printf("mongo report archive enabled")
	}

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// the broker both consumes field reports and publishes committed
	// location events, so wire it to the location service both ways
	b := broker.NewBroker(n.Conn, nil)
	locationService := service.NewLocationService(cardStore, locationStore, geoCache, reportArchive, b)
	b.LocationService = locationService

	sub, err := b.SubscribeReports()
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(cardService, locationService, proximityService)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("CARD_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("server shutdown error: %v", err)
	}
}
