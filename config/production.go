// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
	TariffAPI  TariffAPIConfig  `json:"tariff_api"`
	AdminAPI   AdminAPIConfig   `json:"admin_api"`
	Geo        GeoConfig        `json:"geo"`
	Site       SiteConfig       `json:"site"`
	Import     ImportConfig     `json:"import"`
	Wizard     WizardConfig     `json:"wizard"`
}

type DatabaseConfig struct {
	Enabled         bool          `json:"enabled"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableCompression bool          `json:"enable_compression"`

	// Peers allowed to set ProxyHeader; an empty list means the socket address is the client
	TrustedProxies []string `json:"trusted_proxies"`
	ProxyHeader    string   `json:"proxy_header"`
}

type SecurityConfig struct {
	HSTSMaxAge int `json:"hsts_max_age"`

	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per minute
	LeadRateLimit   int           `json:"lead_rate_limit"`   // requests per minute
	AuthRateLimit   int           `json:"auth_rate_limit"`   // requests per minute
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	// Cookies
	CookieSecure   bool   `json:"cookie_secure"`
	CookieSameSite string `json:"cookie_same_site"`
}

type JWTConfig struct {
	SecretKey string        `json:"secret_key"`
	TokenTTL  time.Duration `json:"token_ttl"`
	Issuer    string        `json:"issuer"`
	Audience  string        `json:"audience"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, console
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`

	EnableCaller    bool `json:"enable_caller"`
	EnableAccessLog bool `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	Provider    string        `json:"provider"` // redis, memory
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	// ResponseTTL bounds the in-process HTTP response cache of read-only lookups
	ResponseTTL time.Duration `json:"response_ttl"`
	RegionsTTL  time.Duration `json:"regions_ttl"`
	// RegionsRefreshSpec is a cron spec for refreshing the region directory
	RegionsRefreshSpec string `json:"regions_refresh_spec"`
}

type DeploymentConfig struct {
	Domain      string `json:"domain"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// TariffAPIConfig points at the public tariff backend
type TariffAPIConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// AdminAPIConfig points at the admin backend that accepts writes
type AdminAPIConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

type GeoConfig struct {
	RedirectEnabled bool          `json:"redirect_enabled"`
	BaseURL         string        `json:"base_url"`
	Timeout         time.Duration `json:"timeout"`
	Language        string        `json:"language"`
	RateLimit       int           `json:"rate_limit"` // provider calls per minute, 0 = unlimited
}

type SiteConfig struct {
	DefaultCity    string `json:"default_city"`
	DefaultService string `json:"default_service"`
	Timezone       string `json:"timezone"`
}

type ImportConfig struct {
	ChunkSize      int           `json:"chunk_size"`
	ChunkDelay     time.Duration `json:"chunk_delay"`
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxErrors      int           `json:"max_errors"`
	MaxFileSize    int           `json:"max_file_size"`
}

type WizardConfig struct {
	StateTTL time.Duration `json:"state_ttl"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", true),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "storefront"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    getEnvDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 16*1024*1024), // 16MB, excel uploads
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1", "::1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		Security: SecurityConfig{
			HSTSMaxAge:       getEnvInt("HSTS_MAX_AGE", 31536000), // 1 year
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			LeadRateLimit:    getEnvInt("LEAD_RATE_LIMIT", 10),
			AuthRateLimit:    getEnvInt("AUTH_RATE_LIMIT", 20),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			CookieSecure:     getEnvBool("COOKIE_SECURE", true),
			CookieSameSite:   getEnvString("COOKIE_SAMESITE", "Lax"),
		},
		JWT: JWTConfig{
			SecretKey: getEnvString("JWT_SECRET_KEY", ""),
			TokenTTL:  getEnvDuration("JWT_TOKEN_TTL", 12*time.Hour),
			Issuer:    getEnvString("JWT_ISSUER", "tariff-storefront"),
			Audience:  getEnvString("JWT_AUDIENCE", "tariff-storefront-admin"),
		},
		Logging: LoggingConfig{
			Level:           getEnvString("LOG_LEVEL", "info"),
			Format:          getEnvString("LOG_FORMAT", "json"),
			Output:          getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:        getEnvString("LOG_FILE_PATH", "/var/log/storefront/app.log"),
			MaxSize:         getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:      getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:          getEnvInt("LOG_MAX_AGE", 30),
			Compress:        getEnvBool("LOG_COMPRESS", true),
			EnableCaller:    getEnvBool("LOG_ENABLE_CALLER", false),
			EnableAccessLog: getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:            getEnvBool("CACHE_ENABLED", true),
			Provider:           getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:           getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:            getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:        getEnvString("CACHE_REDIS_PREFIX", "storefront:"),
			ResponseTTL:        getEnvDuration("CACHE_RESPONSE_TTL", 5*time.Minute),
			RegionsTTL:         getEnvDuration("REGIONS_CACHE_TTL", 1*time.Hour),
			RegionsRefreshSpec: getEnvString("REGIONS_REFRESH_SPEC", "@every 30m"),
		},
		Deployment: DeploymentConfig{
			Domain:      getEnvString("DOMAIN", "localhost"),
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
		TariffAPI: TariffAPIConfig{
			BaseURL: getEnvString("TARIFF_API_URL", "http://localhost:4000"),
			Timeout: getEnvDuration("TARIFF_API_TIMEOUT", 10*time.Second),
		},
		AdminAPI: AdminAPIConfig{
			BaseURL: getEnvString("ADMIN_API_URL", "http://localhost:4001"),
			Timeout: getEnvDuration("ADMIN_API_TIMEOUT", 30*time.Second),
		},
		Geo: GeoConfig{
			RedirectEnabled: getEnvBool("GEO_REDIRECT_ENABLED", true),
			BaseURL:         getEnvString("GEO_API_URL", "http://ip-api.com/json"),
			Timeout:         getEnvDuration("GEO_API_TIMEOUT", 10*time.Second),
			Language:        getEnvString("GEO_API_LANG", "ru"),
			RateLimit:       getEnvInt("GEO_API_RATE_LIMIT", 45),
		},
		Site: SiteConfig{
			DefaultCity:    getEnvString("DEFAULT_CITY", "moskva"),
			DefaultService: getEnvString("DEFAULT_SERVICE", "internet"),
			Timezone:       getEnvString("SITE_TIMEZONE", "Europe/Moscow"),
		},
		Import: ImportConfig{
			ChunkSize:      getEnvInt("IMPORT_CHUNK_SIZE", 1000),
			ChunkDelay:     getEnvDuration("IMPORT_CHUNK_DELAY", 1000*time.Millisecond),
			RequestTimeout: getEnvDuration("IMPORT_REQUEST_TIMEOUT", 30*time.Second),
			MaxErrors:      getEnvInt("IMPORT_MAX_ERRORS", 10),
			MaxFileSize:    getEnvInt("IMPORT_MAX_FILE_SIZE", 10*1024*1024),
		},
		Wizard: WizardConfig{
			StateTTL: getEnvDuration("WIZARD_TTL", 2*time.Hour),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
// Variables already present in the environment win.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration if enabled
	if cfg.Database.Enabled {
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.Name == "" {
			errors = append(errors, "DB_NAME is required")
		}
		if cfg.Database.User == "" {
			errors = append(errors, "DB_USER is required")
		}
	}

	// Validate JWT configuration
	if len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.TokenTTL <= 0 {
		errors = append(errors, "JWT_TOKEN_TTL must be positive")
	}
	if cfg.JWT.Issuer == "" {
		errors = append(errors, "JWT_ISSUER is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	for _, proxy := range cfg.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				errors = append(errors, fmt.Sprintf("SERVER_TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy))
			}
		}
	}
	if len(cfg.Server.TrustedProxies) > 0 && cfg.Server.ProxyHeader == "" {
		errors = append(errors, "SERVER_PROXY_HEADER is required when SERVER_TRUSTED_PROXIES is set")
	}

	// Validate upstream services
	if cfg.TariffAPI.BaseURL == "" {
		errors = append(errors, "TARIFF_API_URL is required")
	}
	if cfg.AdminAPI.BaseURL == "" {
		errors = append(errors, "ADMIN_API_URL is required")
	}
	if cfg.Geo.RedirectEnabled && cfg.Geo.BaseURL == "" {
		errors = append(errors, "GEO_API_URL is required when GEO_REDIRECT_ENABLED is true")
	}

	// Validate site defaults
	if cfg.Site.DefaultCity == "" {
		errors = append(errors, "DEFAULT_CITY is required")
	}
	if cfg.Site.DefaultService == "" {
		errors = append(errors, "DEFAULT_SERVICE is required")
	}

	// Validate import configuration
	if cfg.Import.ChunkSize <= 0 {
		errors = append(errors, "IMPORT_CHUNK_SIZE must be positive")
	}
	if cfg.Import.ChunkDelay < 0 {
		errors = append(errors, "IMPORT_CHUNK_DELAY must not be negative")
	}
	if cfg.Import.RequestTimeout <= 0 {
		errors = append(errors, "IMPORT_REQUEST_TIMEOUT must be positive")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, cfg.Logging.Level) {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
