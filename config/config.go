package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Embedding     EmbeddingConfig
	Guardrails    GuardrailsConfig
	AuditDatabase *DatabaseConfig // Optional: PostgreSQL sink for violations. When nil, the ledger is memory-only.
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	JWTSecret       string // empty disables bearer-token identity resolution
}

// StoreConfig holds vector store configuration
type StoreConfig struct {
	// Dimension fixes the vector dimension. Zero lets the first insert fix it.
	Dimension int

	// MinScore drops search results scoring below the floor. Zero disables it.
	MinScore float64

	// BoltPath is the bbolt database file. Empty disables durability.
	BoltPath string

	DefaultTopK int
	MaxTopK     int

	ChunkSize    int
	ChunkOverlap int
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	Provider   string // "openai" (any OpenAI-compatible endpoint) or "mock"
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// GuardrailsConfig holds safety engine configuration
type GuardrailsConfig struct {
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	LedgerTTL            time.Duration
	LedgerPurgeInterval  time.Duration
	ExcerptMaxLen        int
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL_AUDIT) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			JWTSecret:       getEnv("JWT_SECRET", ""),
		},
		Store: StoreConfig{
			Dimension:    getEnvAsInt("STORE_DIMENSION", 0),
			MinScore:     getEnvAsFloat("STORE_MIN_SCORE", 0),
			BoltPath:     getEnv("STORE_BOLT_PATH", "data/vectors.db"),
			DefaultTopK:  getEnvAsInt("STORE_DEFAULT_TOP_K", 5),
			MaxTopK:      getEnvAsInt("STORE_MAX_TOP_K", 50),
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Embedding: EmbeddingConfig{
			Provider:   getEnv("EMBEDDING_PROVIDER", "openai"),
			BaseURL:    getEnv("EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
			APIKey:     getEnv("EMBEDDING_API_KEY", ""),
			Model:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Dimension:  getEnvAsInt("EMBEDDING_DIMENSION", 768),
			Timeout:    getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvAsInt("EMBEDDING_MAX_RETRIES", 2),
		},
		Guardrails: GuardrailsConfig{
			RateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 30),
			RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			LedgerTTL:            getEnvAsDuration("LEDGER_TTL", 720*time.Hour),
			LedgerPurgeInterval:  getEnvAsDuration("LEDGER_PURGE_INTERVAL", time.Hour),
			ExcerptMaxLen:        getEnvAsInt("EXCERPT_MAX_LEN", 80),
		},
		AuditDatabase: loadAuditDatabaseConfig(),
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Store.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.Store.ChunkOverlap < 0 || c.Store.ChunkOverlap >= c.Store.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size)")
	}
	if c.Store.MinScore < -1 || c.Store.MinScore > 1 {
		return fmt.Errorf("store min score must be within [-1, 1]")
	}
	if c.Store.DefaultTopK <= 0 || c.Store.MaxTopK < c.Store.DefaultTopK {
		return fmt.Errorf("top-k bounds are inconsistent")
	}

	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("embedding base URL is required for the openai provider")
		}
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding model is required for the openai provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}

	if c.Guardrails.RateLimitMaxRequests > 0 && c.Guardrails.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window must be positive when limiting is enabled")
	}

	if c.IsProduction() && c.Server.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required in production")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL_AUDIT) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL_AUDIT>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadAuditDatabaseConfig loads the optional violation sink config from
// DATABASE_URL_AUDIT. Returns nil when not set (ledger stays memory-only).
func loadAuditDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL_AUDIT", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
