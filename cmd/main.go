package main

import (
	"context"
	"log"

	"imagecache-service/internal/config"
	"imagecache-service/internal/handlers"
	"imagecache-service/internal/imagecache"
	"imagecache-service/internal/metrics"
	"imagecache-service/internal/persistence"
	"imagecache-service/internal/snapshot"
	"imagecache-service/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := InitConfig()
	backend := InitBackend(cfg)

	service := imagecache.New(imagecache.Config{
		MaxSizeBytes:    cfg.MaxSizeBytes,
		MaxItems:        cfg.MaxItems,
		TTL:             cfg.TTL,
		CleanupInterval: cfg.CleanupInterval,
	}, backend)
	defer service.Close()

	WarmStart(cfg, service)

	cache := imagecache.NewInstrumentedService(service, metrics.New(nil))

	app := fiber.New()

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Set up routes for cache operations
	h := handlers.NewCacheHandler(cache)
	api := app.Group("/api/imagecache")
	api.Get("/entries", h.LookupEntry)
	api.Post("/entries", h.StoreEntry)
	api.Delete("/entries/:key", h.RemoveEntry)
	api.Get("/stats", h.GetStats)
	api.Post("/preload", h.Preload)
	api.Post("/prefetch", h.Prefetch)
	api.Post("/pressure", h.MemoryPressure)
	api.Post("/clear", h.ClearCache)
	api.Get("/export", h.ExportCache)
	api.Post("/maintenance", h.Maintenance)

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Add Health check endpoint
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	routes := app.GetRoutes()
	log.Println("Registered routes:")
	for _, r := range routes {
		log.Printf("  %s %s\n", r.Method, r.Path)
	}

	// Start the Fiber server
	port := cfg.AppPort
	if port == "" {
		port = "8080"
		log.Printf("Defaulting to port %s", port)
	}
	log.Printf("Server listening on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func InitBackend(cfg *config.Config) persistence.Backend {
	switch cfg.PersistenceBackend {
	case config.BackendMemory:
		return persistence.NewMemoryBackend()

	case config.BackendFile:
		backend, err := persistence.NewFileBackend(cfg.FileBackendPath)
		if err != nil {
			log.Fatalf("File backend initialization failed: %v", err)
		}
		return backend

	case config.BackendRedis:
		client, err := storage.NewRedisClient(cfg.RedisHost, cfg.RedisPort)
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		return persistence.NewRedisBackend(client, 0)

	case config.BackendPostgres:
		db, err := config.ConnectDatabase(cfg)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		backend, err := persistence.NewGormBackend(db)
		if err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		return backend

	case config.BackendMinio:
		client, err := storage.NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioSSL)
		if err != nil {
			log.Fatalf("MinIO client initialization failed: %v", err)
		}
		return persistence.NewMinioBackend(client, cfg.MinioBucket)

	default:
		log.Fatalf("Unknown persistence backend %q", cfg.PersistenceBackend)
		return nil
	}
}

// WarmStart seeds an empty cache from an archived snapshot when one is
// configured. A bad archive is logged and skipped; warm-start is an
// optimization, never a requirement.
func WarmStart(cfg *config.Config, service *imagecache.Service) {
	if cfg.SnapshotArchive == "" {
		return
	}
	if service.Stats().ItemCount > 0 {
		log.Printf("Skipping warm-start: cache already has entries")
		return
	}

	export, err := snapshot.Load(context.Background(), cfg.SnapshotArchive)
	if err != nil {
		log.Printf("Warm-start skipped: %v", err)
		return
	}

	seeded := service.Seed(export.Entries)
	log.Printf("Warm-start seeded %d entries from %s", seeded, cfg.SnapshotArchive)
}
