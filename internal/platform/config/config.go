package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Profile store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

const devVoterTokenKey = "dev-voter-token-key-change-in-production"

// Config is the full process configuration.
type Config struct {
	Server     Server
	Upstream   Upstream
	Store      Store
	Redis      RedisConfig
	Database   DatabaseConfig
	Audit      AuditConfig
	VoterToken VoterTokenConfig
	Log        LogConfig

	// QuickRoutes mounts the voter API a second time under /quick, where
	// every ballot skips verification and key checks. Off by default.
	QuickRoutes bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	AdminAPIToken string
	ProfileCookie string
}

// Upstream points at the election backend and the identity capture service.
type Upstream struct {
	BaseURL    string
	Timeout    time.Duration
	CaptureURL string
}

// Store selects the durable profile store.
type Store struct {
	Backend string
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the SQL profile store (postgres or sqlite).
type DatabaseConfig struct {
	URL          string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

// AuditConfig enables the Kafka audit publisher when Brokers is non-empty.
type AuditConfig struct {
	Brokers []string
	Topic   string
}

// VoterTokenConfig configures voter-scoped credential minting.
type VoterTokenConfig struct {
	SigningKey string
	TTL        time.Duration
	Issuer     string
}

type LogConfig struct {
	Level  string
	Format string
}

// IsProduction reports whether the process runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads an optional .env file and then the environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return n
	}
	boolean := func(key string) bool {
		raw := os.Getenv(key)
		if raw == "" {
			return false
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return false
		}
		return b
	}

	cfg := Config{
		Server: Server{
			Addr:          getenv("SAFEBALLOT_ADDR", ":8080"),
			Environment:   getenv("SAFEBALLOT_ENV", "development"),
			AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
			ProfileCookie: getenv("PROFILE_COOKIE_NAME", "sb_profile"),
		},
		Upstream: Upstream{
			BaseURL:    strings.TrimRight(getenv("UPSTREAM_API_URL", "http://localhost:5000/api"), "/"),
			Timeout:    duration("UPSTREAM_TIMEOUT", 10*time.Second),
			CaptureURL: strings.TrimRight(os.Getenv("CAPTURE_API_URL"), "/"),
		},
		Store: Store{
			Backend: strings.ToLower(getenv("PROFILE_STORE", StoreMemory)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   getenv("SQLITE_PATH", "safeballot.db"),
			MaxOpenConns: integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: integer("DB_MAX_IDLE_CONNS", 5),
		},
		Audit: AuditConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("AUDIT_TOPIC", "safeballot.audit"),
		},
		VoterToken: VoterTokenConfig{
			SigningKey: os.Getenv("VOTER_TOKEN_SIGNING_KEY"),
			TTL:        duration("VOTER_TOKEN_TTL", 15*time.Minute),
			Issuer:     getenv("VOTER_TOKEN_ISSUER", "safeballot"),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", ""),
		},
		QuickRoutes: boolean("QUICK_BALLOT_ROUTES"),
	}

	if cfg.VoterToken.SigningKey == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("VOTER_TOKEN_SIGNING_KEY is required in production"))
		}
		// Use a default for development - should be overridden in production
		cfg.VoterToken.SigningKey = devVoterTokenKey
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
		if cfg.IsProduction() {
			cfg.Log.Format = "json"
		}
	}

	switch cfg.Store.Backend {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if cfg.Redis.URL == "" {
			errs = append(errs, errors.New("PROFILE_STORE=redis requires REDIS_URL"))
		}
	case StorePostgres:
		if cfg.Database.URL == "" {
			errs = append(errs, errors.New("PROFILE_STORE=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("PROFILE_STORE: unknown backend %q", cfg.Store.Backend))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
