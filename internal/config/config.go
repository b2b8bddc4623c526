// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// Storage drivers for the key-value persistence surface
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Variant resolution strategies for the commerce backend
const (
	VariantResolverNone   = "none"
	VariantResolverRemote = "remote"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Session  SessionConfig
	Security SecurityConfig
	Commerce CommerceConfig
	Pricing  PricingConfig
	Catalog  CatalogConfig
	Viewer   ViewerConfig
	Quote    QuoteConfig
	Logging  LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig selects the backing store for carts and preferences
type StorageConfig struct {
	Driver    string
	KeyPrefix string
	TTL       time.Duration // zero keeps entries forever
}

// DatabaseConfig contains postgres connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// SQLiteConfig contains the sqlite database file location
type SQLiteConfig struct {
	Path string
}

// SessionConfig contains shopper session token configuration
type SessionConfig struct {
	Secret     string
	TokenTTL   time.Duration
	CookieName string
	Secure     bool
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// CommerceConfig contains the optional external commerce backend configuration
type CommerceConfig struct {
	BaseURL         string
	RegionID        string
	Timeout         time.Duration
	SyncTimeout     time.Duration
	VariantResolver string
}

// PricingConfig contains shipping rules and display settings
type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Locale                string
	CurrencySymbol        string
}

// CatalogConfig points at an optional catalog file replacing the embedded one
type CatalogConfig struct {
	Path string
}

// ViewerConfig contains 3D viewer bridge settings
type ViewerConfig struct {
	MetaSuffix       string
	CameraMultiplier float64
	MetaFetchTimeout time.Duration
	AssetBaseURL     string
	MaxSessions      int
	IdleTimeout      time.Duration
}

// QuoteConfig contains the company block printed on cart quotes
type QuoteConfig struct {
	CompanyName    string
	CompanyAddress string
	CompanyEmail   string
	CompanyWebsite string
	ValidityDays   int
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Storefront"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
		},
		Server: ServerConfig{
			Port:            getEnv("APP_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", StorageMemory),
			KeyPrefix: getEnv("STORAGE_KEY_PREFIX", "storefront:"),
			TTL:       getEnvAsDuration("STORAGE_TTL", 30*24*time.Hour),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "storefront"),
			User:         getEnv("DB_USER", "storefront"),
			Password:     getEnv("DB_PASSWORD", "storefront"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "data/storefront.db"),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", "change-me-storefront-session-secret-key"),
			TokenTTL:   getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
			CookieName: getEnv("SESSION_COOKIE", "storefront_session"),
			Secure:     getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 300),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		Commerce: CommerceConfig{
			BaseURL:         getEnv("COMMERCE_URL", ""),
			RegionID:        getEnv("COMMERCE_REGION_ID", ""),
			Timeout:         getEnvAsDuration("COMMERCE_TIMEOUT", 10*time.Second),
			SyncTimeout:     getEnvAsDuration("COMMERCE_SYNC_TIMEOUT", 20*time.Second),
			VariantResolver: getEnv("COMMERCE_VARIANT_RESOLVER", VariantResolverNone),
		},
		Pricing: PricingConfig{
			FreeShippingThreshold: getEnvAsDecimal("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(100)),
			FlatShippingFee:       getEnvAsDecimal("FLAT_SHIPPING_FEE", decimal.RequireFromString("9.99")),
			Locale:                getEnv("DISPLAY_LOCALE", "fr"),
			CurrencySymbol:        getEnv("CURRENCY_SYMBOL", "€"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		Viewer: ViewerConfig{
			MetaSuffix:       getEnv("VIEWER_META_SUFFIX", "_meta.json"),
			CameraMultiplier: getEnvAsFloat("VIEWER_CAMERA_MULTIPLIER", 2.2),
			MetaFetchTimeout: getEnvAsDuration("VIEWER_META_TIMEOUT", 5*time.Second),
			AssetBaseURL:     getEnv("VIEWER_ASSET_BASE_URL", ""),
			MaxSessions:      getEnvAsInt("VIEWER_MAX_SESSIONS", 1000),
			IdleTimeout:      getEnvAsDuration("VIEWER_IDLE_TIMEOUT", 30*time.Minute),
		},
		Quote: QuoteConfig{
			CompanyName:    getEnv("COMPANY_NAME", "Storefront"),
			CompanyAddress: getEnv("COMPANY_ADDRESS", ""),
			CompanyEmail:   getEnv("COMPANY_EMAIL", "contact@example.com"),
			CompanyWebsite: getEnv("COMPANY_WEBSITE", ""),
			ValidityDays:   getEnvAsInt("QUOTE_VALIDITY_DAYS", 30),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	switch c.Storage.Driver {
	case StorageMemory, StorageRedis, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters long")
	}

	if !c.Pricing.FreeShippingThreshold.IsPositive() {
		return fmt.Errorf("FREE_SHIPPING_THRESHOLD must be positive")
	}
	if c.Pricing.FlatShippingFee.IsNegative() {
		return fmt.Errorf("FLAT_SHIPPING_FEE cannot be negative")
	}
	if _, err := language.Parse(c.Pricing.Locale); err != nil {
		return fmt.Errorf("invalid DISPLAY_LOCALE %q: %w", c.Pricing.Locale, err)
	}

	if c.Viewer.CameraMultiplier <= 0 {
		return fmt.Errorf("VIEWER_CAMERA_MULTIPLIER must be positive")
	}
	if c.Viewer.MaxSessions < 0 {
		return fmt.Errorf("VIEWER_MAX_SESSIONS cannot be negative")
	}

	switch c.Commerce.VariantResolver {
	case VariantResolverNone, VariantResolverRemote:
	default:
		return fmt.Errorf("unknown COMMERCE_VARIANT_RESOLVER %q", c.Commerce.VariantResolver)
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Enabled reports whether a commerce backend is configured
func (c CommerceConfig) Enabled() bool {
	return c.BaseURL != ""
}

// DisplayLocale returns the parsed display locale, French when unparsable
func (c *Config) DisplayLocale() language.Tag {
	tag, err := language.Parse(c.Pricing.Locale)
	if err != nil {
		return language.French
	}
	return tag
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
