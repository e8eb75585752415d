package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/pythia/internal/api/rest"
	"github.com/fortuna/pythia/internal/api/websocket"
	"github.com/fortuna/pythia/internal/cache"
	"github.com/fortuna/pythia/internal/config"
	"github.com/fortuna/pythia/internal/dataset"
	"github.com/fortuna/pythia/internal/model"
	"github.com/fortuna/pythia/internal/publisher"
	"github.com/fortuna/pythia/internal/service"
	"github.com/fortuna/pythia/internal/store"
	"github.com/fortuna/pythia/internal/store/repository"
	log "github.com/sirupsen/logrus"
)

const (
	serviceName    = "pythia"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	setLogLevel(cfg.LogLevel)

	log.Printf("Starting %s v%s - Football Match Predictor", serviceName, serviceVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection when matches are imported into Postgres
	var db *store.Database
	if cfg.DataSource == config.SourcePostgres {
		db, err = store.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer db.Close()
		log.Println("✓ Connected to Postgres")

		// Run migrations
		if err := db.RunMigrations(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	table, err := loadTable(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("✓ Dataset loaded (%d matches)", table.Len())

	models, err := model.Build(ctx, table, cfg.Forest())
	if err != nil {
		log.Fatalf("Failed to build models: %v", err)
	}

	// Redis is optional: it backs the prediction cache and event stream
	var redisCache *cache.RedisCache
	var predictionCache service.Cache
	var predictionPublisher service.Publisher
	if cfg.RedisURL != "" {
		redisCache, err = connectRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		predictionCache = redisCache
		predictionPublisher = publisher.NewRedisStreamPublisher(redisCache.Client())
		log.Println("✓ Connected to Redis")
	} else {
		log.Println("⊘ REDIS_URL not set, prediction cache disabled")
	}

	predictions := service.NewPredictionService(service.NewPredictor(models), predictionCache, predictionPublisher)

	// Initialize REST API server
	handler := rest.NewHandler(predictions)
	if db != nil {
		handler.AddHealthCheck("postgres", db)
	}
	if redisCache != nil {
		handler.AddHealthCheck("redis", redisCache)
	}
	restServer := rest.NewServer(cfg.RESTPort, handler)
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("REST server error: %v", err)
		}
	}()
	log.Printf("✓ REST API server listening on :%s", cfg.RESTPort)

	// Initialize WebSocket server
	wsServer := websocket.NewServer(cfg.WSPort, predictions)
	go func() {
		if err := wsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("WebSocket server error: %v", err)
		}
	}()

	log.Printf("✓ Pythia v%s started successfully", serviceVersion)
	log.Printf("  Form:      http://0.0.0.0:%s/", cfg.RESTPort)
	log.Printf("  REST API:  http://0.0.0.0:%s/api/v1", cfg.RESTPort)
	log.Printf("  WebSocket: ws://0.0.0.0:%s/ws/predict", cfg.WSPort)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	log.Println("Shutting down Pythia gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("REST API server shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket server shutdown error: %v", err)
	}

	log.Println("Pythia stopped")
}

// loadTable reads matches from Postgres when db is set, else from the CSV file
func loadTable(ctx context.Context, cfg config.Config, db *store.Database) (*dataset.Table, error) {
	if db == nil {
		return dataset.Load(cfg.DataPath)
	}
	return repository.NewMatchRepository(db).LoadTable(ctx)
}

func connectRedis(cfg config.Config) (*cache.RedisCache, error) {
	maxRetries := 10
	retryDelay := 2 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err == nil {
			return redisCache, nil
		}
		lastErr = err
		if i < maxRetries-1 {
			log.Printf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		}
	}
	return nil, lastErr
}

func setLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
