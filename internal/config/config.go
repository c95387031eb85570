package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Backend names accepted in PERSISTENCE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMinio    = "minio"
)

// Config holds all configuration values from environment.
type Config struct {
	AppPort string

	// Cache budgets and timing
	MaxSizeBytes    int64
	MaxItems        int
	TTL             time.Duration
	CleanupInterval time.Duration

	// Persistence backend selection
	PersistenceBackend string
	FileBackendPath    string
	SnapshotArchive    string // optional warm-start archive

	RedisHost string
	RedisPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	maxSizeBytes := int64(100 << 20)
	if sizeEnv := os.Getenv("CACHE_MAX_SIZE_BYTES"); sizeEnv != "" {
		val, err := strconv.ParseInt(sizeEnv, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_MAX_SIZE_BYTES value: %v", err)
		}
		maxSizeBytes = val
	}

	maxItems := 500
	if itemsEnv := os.Getenv("CACHE_MAX_ITEMS"); itemsEnv != "" {
		val, err := strconv.Atoi(itemsEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_MAX_ITEMS value: %v", err)
		}
		maxItems = val
	}

	ttl := 7 * 24 * time.Hour
	if ttlEnv := os.Getenv("CACHE_TTL"); ttlEnv != "" {
		val, err := time.ParseDuration(ttlEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL value: %v", err)
		}
		ttl = val
	}

	cleanupInterval := 30 * time.Minute
	if intervalEnv := os.Getenv("CACHE_CLEANUP_INTERVAL"); intervalEnv != "" {
		val, err := time.ParseDuration(intervalEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_CLEANUP_INTERVAL value: %v", err)
		}
		cleanupInterval = val
	}

	minioSSL := false
	if sslEnv := os.Getenv("MINIO_SSL"); sslEnv != "" {
		val, err := strconv.ParseBool(sslEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		minioSSL = val
	}

	backend := os.Getenv("PERSISTENCE_BACKEND")
	if backend == "" {
		backend = BackendFile
	}

	filePath := os.Getenv("FILE_BACKEND_PATH")
	if filePath == "" {
		filePath = "/var/lib/imagecache"
	}

	cfg := &Config{
		AppPort: os.Getenv("IMAGECACHE_PORT"),

		MaxSizeBytes:    maxSizeBytes,
		MaxItems:        maxItems,
		TTL:             ttl,
		CleanupInterval: cleanupInterval,

		PersistenceBackend: backend,
		FileBackendPath:    filePath,
		SnapshotArchive:    os.Getenv("SNAPSHOT_ARCHIVE"),

		RedisHost: os.Getenv("REDIS_HOST"),
		RedisPort: os.Getenv("REDIS_PORT"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    os.Getenv("MINIO_BUCKET"),
		MinioSSL:       minioSSL,
	}

	// Validate only what the selected backend actually needs.
	switch cfg.PersistenceBackend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if cfg.RedisHost == "" || cfg.RedisPort == "" {
			return nil, fmt.Errorf("redis configuration is incomplete")
		}
	case BackendPostgres:
		if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
			return nil, fmt.Errorf("database configuration is incomplete")
		}
	case BackendMinio:
		if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return nil, fmt.Errorf("minio configuration is incomplete")
		}
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.PersistenceBackend)
	}

	return cfg, nil
}

// ConnectDatabase initializes a GORM database connection to PostgreSQL.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
