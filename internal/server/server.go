package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"itinerary-planner/internal/broadcast"
	"itinerary-planner/internal/config"
	"itinerary-planner/internal/database"
	"itinerary-planner/internal/geocoding"
	"itinerary-planner/internal/handlers"
	"itinerary-planner/internal/itinerary"
	"itinerary-planner/internal/metrics"
	"itinerary-planner/internal/mongostore"
	"itinerary-planner/internal/routing"
	"itinerary-planner/internal/sqlite"
	"itinerary-planner/internal/travel"
)

const mongoConnectTimeout = 10 * time.Second

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer  *http.Server
	handler     *handlers.Handler
	db          database.DataStore
	hub         *broadcast.Hub
	broadcaster broadcast.Broadcaster
	recorder    metrics.Recorder
	listener    net.Listener
	addr        string
}

// New creates and initializes a new server (does not start it)
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Initializing data store: driver=%s", cfg.StoreDriver)
	db, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}

	recorder := newRecorder(cfg)

	log.Printf("Initializing travel providers...")
	assembler := NewAssembler(cfg, db.TravelCache(), recorder)

	geocoder := geocoding.NewNominatimGeocoder(cfg.NominatimURL)

	hub := broadcast.NewHub()
	go hub.Run()

	handler := &handlers.Handler{
		DB:              db,
		Geocoder:        geocoder,
		Enricher:        geocoding.NewEnricher(geocoder),
		Optimizer:       itinerary.NewOptimizer(assembler, cfg.Location()),
		Broadcaster:     newBroadcaster(cfg, hub),
		Metrics:         recorder,
		Queue:           handlers.NewMutationQueue(),
		DefaultDayStart: cfg.DefaultDayStart,
	}

	router := setupRoutes(handler, hub, newRateLimiter(cfg.RateLimitRPS))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           loggingMiddleware(corsHandler.Handler(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(hub.Stop)

	return &Server{
		httpServer:  httpServer,
		handler:     handler,
		db:          db,
		hub:         hub,
		broadcaster: handler.Broadcaster,
		recorder:    recorder,
		addr:        cfg.ServerAddr,
	}, nil
}

func openStore(cfg *config.Config) (database.DataStore, error) {
	if cfg.StoreDriver == config.StoreMongo {
		ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
		defer cancel()
		return mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	}

	dataDir, err := database.ResolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	if cfg.StoreDriver == config.StoreSQLite {
		return sqlite.New(database.SQLitePath(dataDir))
	}

	cachePath, err := database.TravelCachePath(dataDir)
	if err != nil {
		return nil, err
	}
	travelCache, err := database.NewFileTravelCache(cachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize travel cache: %w", err)
	}
	return database.NewJSONStore(database.DataFilePath(dataDir), travelCache)
}

func newRecorder(cfg *config.Config) metrics.Recorder {
	if !cfg.InfluxEnabled() {
		return metrics.Noop()
	}
	return metrics.NewInfluxRecorder(metrics.InfluxConfig{
		URL:    cfg.InfluxURL,
		Token:  cfg.InfluxToken,
		Org:    cfg.InfluxOrg,
		Bucket: cfg.InfluxBucket,
	})
}

// NewAssembler stacks breaker and cache around each live provider. Transit is
// skipped entirely when no planner URL is configured. cache may be nil.
func NewAssembler(cfg *config.Config, cache database.TravelCacheRepository, recorder metrics.Recorder) routing.LegAssembler {
	walking := travel.NewCachedProvider(
		travel.NewBreakerProvider("osrm", travel.NewOSRMProvider(cfg.OSRMWalkURL, cfg.OSRMDriveURL)),
		cache, 0)

	var transit travel.Provider
	if cfg.TransitURL != "" {
		transit = travel.NewCachedProvider(
			travel.NewBreakerProvider("transit", travel.NewTransitProvider(cfg.TransitURL, cfg.Location())),
			cache, 0)
	} else {
		log.Printf("[ROUTING] No transit planner configured, walking legs only")
	}

	fallback := travel.NewHaversineEstimator(cfg.FallbackSpeedKmh, travel.DefaultFallbackWait)

	return routing.NewAssembler(walking, transit, fallback, cfg.LegTimeout, recorder)
}

// newBroadcaster fans trip events out to websocket clients and any configured
// brokers. A broker that cannot be reached at startup is skipped.
func newBroadcaster(cfg *config.Config, hub *broadcast.Hub) broadcast.Broadcaster {
	var redisPub, amqpPub broadcast.Broadcaster

	if cfg.RedisAddr != "" {
		redisPub = broadcast.NewRedisPublisher(&redis.Options{Addr: cfg.RedisAddr}, cfg.RedisChannel)
		log.Printf("[BROADCAST] Redis publisher enabled: addr=%s", cfg.RedisAddr)
	}

	if cfg.AMQPURL != "" {
		pub, err := broadcast.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("[ERROR] AMQP publisher disabled: err=%v", err)
		} else {
			amqpPub = pub
			log.Printf("[BROADCAST] AMQP publisher enabled: exchange=%s", cfg.AMQPExchange)
		}
	}

	return broadcast.Multi(hub, redisPub, amqpPub)
}

func setupRoutes(h *handlers.Handler, hub *broadcast.Hub, rl *rateLimiter) *httprouter.Router {
	router := httprouter.New()
	limit := rl.Limit

	router.GET("/api/v1/health", h.HandleHealthCheck)

	router.GET("/api/v1/trips", limit(h.HandleListTrips))
	router.POST("/api/v1/trips", limit(h.HandleCreateTrip))
	router.GET("/api/v1/trips/:id", limit(h.HandleGetTrip))
	router.PUT("/api/v1/trips/:id", limit(h.HandleUpdateTrip))
	router.DELETE("/api/v1/trips/:id", limit(h.HandleDeleteTrip))

	router.POST("/api/v1/trips/:id/days/:day/activities", limit(h.HandleAddActivity))
	router.DELETE("/api/v1/trips/:id/days/:day/activities/:activityId", limit(h.HandleDeleteActivity))
	router.POST("/api/v1/trips/:id/days/:day/activities/:activityId/move", limit(h.HandleMoveActivity))
	router.POST("/api/v1/trips/:id/days/:day/activities/:activityId/split", limit(h.HandleSplitActivity))
	router.POST("/api/v1/trips/:id/days/:day/suggestions", limit(h.HandleAcceptSuggestion))
	router.POST("/api/v1/trips/:id/days/:day/reorder", limit(h.HandleReorder))
	router.POST("/api/v1/trips/:id/days/:day/sort", limit(h.HandleSortByTime))
	router.POST("/api/v1/trips/:id/days/:day/recalculate", limit(h.HandleRecalculate))
	router.POST("/api/v1/trips/:id/days/:day/optimize", limit(h.HandleOptimize))

	router.GET("/api/v1/geocode/search", limit(h.HandlePlaceSearch))

	router.GET("/ws/trips/:id", broadcast.ServeWS(hub))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Route not found"}}`))
	})

	return router
}

// Start begins listening. It returns the bound address, which differs from
// the configured one when the port is 0.
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown stops accepting requests, then releases brokers, metrics and the store
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.httpServer.Shutdown(ctx)
	s.hub.Stop()

	err := errors.Join(httpErr, s.broadcaster.Close())
	s.recorder.Close()
	return errors.Join(err, s.db.Close())
}
