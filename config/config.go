// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kairan-app/kairan/utils"
)

// Config holds all configuration for the relay engine
type Config struct {
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Security SecurityConfig `json:"security"`
	JWT      JWTConfig      `json:"jwt"`
	Gateway  GatewayConfig  `json:"gateway"`
	Storage  StorageConfig  `json:"storage"`
	Media    MediaConfig    `json:"media"`
	Reaction ReactionConfig `json:"reaction"`
	Summary  SummaryConfig  `json:"summary"`
	Retry    RetryConfig    `json:"retry"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	Cache    CacheConfig    `json:"cache"`
	Admin    AdminConfig    `json:"admin"`
}

type DatabaseConfig struct {
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
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	ProxyHeader     string        `json:"proxy_header"`
	TrustedProxies  []string      `json:"trusted_proxies"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

type JWTConfig struct {
	SecretKey string        `json:"secret_key"`
	TokenTTL  time.Duration `json:"token_ttl"`
	Issuer    string        `json:"issuer"`
	Audience  string        `json:"audience"`
}

// GatewayConfig configures the outbound SMS provider
type GatewayConfig struct {
	ProviderDomain string        `json:"provider_domain"`
	APIKey         string        `json:"api_key"`
	SourceNumber   string        `json:"source_number"`
	ValidityPeriod int           `json:"validity_period"` // seconds
	Timeout        time.Duration `json:"timeout"`
}

// StorageConfig configures the object store used for media rehosting
type StorageConfig struct {
	Endpoint      string        `json:"endpoint"`
	Bucket        string        `json:"bucket"`
	APIKey        string        `json:"api_key"`
	PublicBaseURL string        `json:"public_base_url"`
	Timeout       time.Duration `json:"timeout"`
}

// MediaConfig bounds attachment handling
type MediaConfig struct {
	DownloadTimeout time.Duration `json:"download_timeout"`
	MaxSizeBytes    int64         `json:"max_size_bytes"`
}

// ReactionConfig tunes the tiered resolver. The thresholds have no deeper
// derivation than field experience; they are configuration, not invariants.
type ReactionConfig struct {
	FuzzyThreshold        float64       `json:"fuzzy_threshold"`
	KeywordConfidence     float64       `json:"keyword_confidence"`
	KeywordMaxFragmentLen int           `json:"keyword_max_fragment_len"`
	KeywordMinWordLen     int           `json:"keyword_min_word_len"`
	MatchWindow           time.Duration `json:"match_window"`
}

// SummaryConfig drives the two digest triggers: a daily cron expression
// and a periodic silence check
type SummaryConfig struct {
	CheckInterval       time.Duration `json:"check_interval"`
	SilenceThreshold    time.Duration `json:"silence_threshold"`
	MinPendingReactions int           `json:"min_pending_reactions"`
	DailyCron           string        `json:"daily_cron"`
}

// RetryConfig bounds per-recipient delivery attempts
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	BackoffBase time.Duration `json:"backoff_base"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled       bool   `json:"enabled"`
	RedisURL      string `json:"redis_url"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"redis_password"`
	RedisPrefix   string `json:"redis_prefix"`
}

// AdminConfig holds the shared secret exchanged for admin API tokens
type AdminConfig struct {
	APISecret string `json:"api_secret"`
}

// LoadConfig reads configuration from the environment, with a .env file as
// fallback for unset variables
func LoadConfig() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "kairan"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			TrustedProxies:  getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://admin.kairan.app"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey: getEnvString("JWT_SECRET_KEY", ""),
			TokenTTL:  getEnvDuration("JWT_TOKEN_TTL", 12*time.Hour),
			Issuer:    getEnvString("JWT_ISSUER", "kairan"),
			Audience:  getEnvString("JWT_AUDIENCE", "kairan-admin"),
		},
		Gateway: GatewayConfig{
			ProviderDomain: getEnvString("GATEWAY_PROVIDER_DOMAIN", ""),
			APIKey:         getEnvString("GATEWAY_API_KEY", ""),
			SourceNumber:   getEnvString("GATEWAY_SOURCE_NUMBER", ""),
			ValidityPeriod: getEnvInt("GATEWAY_VALIDITY_PERIOD", 3600),
			Timeout:        getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Endpoint:      getEnvString("STORAGE_ENDPOINT", ""),
			Bucket:        getEnvString("STORAGE_BUCKET", "kairan-media"),
			APIKey:        getEnvString("STORAGE_API_KEY", ""),
			PublicBaseURL: getEnvString("STORAGE_PUBLIC_BASE_URL", ""),
			Timeout:       getEnvDuration("STORAGE_TIMEOUT", 60*time.Second),
		},
		Media: MediaConfig{
			DownloadTimeout: getEnvDuration("MEDIA_DOWNLOAD_TIMEOUT", 60*time.Second),
			MaxSizeBytes:    int64(getEnvInt("MEDIA_MAX_SIZE_BYTES", 25*1024*1024)), // 25MB
		},
		Reaction: ReactionConfig{
			FuzzyThreshold:        getEnvFloat("REACTION_FUZZY_THRESHOLD", utils.FuzzyMatchThreshold),
			KeywordConfidence:     getEnvFloat("REACTION_KEYWORD_CONFIDENCE", utils.KeywordMatchConfidence),
			KeywordMaxFragmentLen: getEnvInt("REACTION_KEYWORD_MAX_FRAGMENT_LEN", utils.KeywordMaxFragmentLen),
			KeywordMinWordLen:     getEnvInt("REACTION_KEYWORD_MIN_WORD_LEN", utils.KeywordMinWordLen),
			MatchWindow:           getEnvDuration("REACTION_MATCH_WINDOW", utils.ReactionMatchWindow),
		},
		Summary: SummaryConfig{
			CheckInterval:       getEnvDuration("SUMMARY_CHECK_INTERVAL", utils.SummaryCheckInterval),
			SilenceThreshold:    getEnvDuration("SUMMARY_SILENCE_THRESHOLD", utils.SummarySilenceThreshold),
			MinPendingReactions: getEnvInt("SUMMARY_MIN_PENDING_REACTIONS", utils.SummaryMinPendingReactions),
			DailyCron:           getEnvString("SUMMARY_DAILY_CRON", "0 20 * * *"),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", utils.DeliveryMaxAttempts),
			BackoffBase: getEnvDuration("RETRY_BACKOFF_BASE", utils.DeliveryBackoffBase),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			File:       getEnvString("LOG_FILE", "logs/kairan.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 7),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", false),
			RedisURL:      getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:       getEnvInt("CACHE_REDIS_DB", 0),
			RedisPassword: getEnvString("CACHE_REDIS_PASSWORD", ""),
			RedisPrefix:   getEnvString("CACHE_REDIS_PREFIX", "kairan:"),
		},
		Admin: AdminConfig{
			APISecret: getEnvString("ADMIN_API_SECRET", ""),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}
				// Real environment wins over the .env file
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
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

// ValidateConfig validates the loaded configuration
func ValidateConfig(cfg *Config) error {
	var errs []string

	if cfg.Database.Host == "" {
		errs = append(errs, "database host is required")
	}
	if cfg.Database.Name == "" {
		errs = append(errs, "database name is required")
	}
	if cfg.Database.User == "" {
		errs = append(errs, "database user is required")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}
	if cfg.JWT.SecretKey == "" {
		errs = append(errs, "JWT secret key is required")
	} else if len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT secret key must be at least 32 characters")
	}
	if cfg.Gateway.ProviderDomain == "" {
		errs = append(errs, "gateway provider domain is required")
	}
	if cfg.Gateway.SourceNumber == "" {
		errs = append(errs, "gateway source number is required")
	}
	if cfg.Storage.Endpoint == "" {
		errs = append(errs, "storage endpoint is required")
	}
	if cfg.Storage.PublicBaseURL == "" {
		errs = append(errs, "storage public base URL is required")
	}
	if cfg.Reaction.FuzzyThreshold <= 0 || cfg.Reaction.FuzzyThreshold >= 1 {
		errs = append(errs, "reaction fuzzy threshold must be in (0, 1)")
	}
	if cfg.Reaction.MatchWindow <= 0 {
		errs = append(errs, "reaction match window must be positive")
	}
	if cfg.Summary.MinPendingReactions < 1 {
		errs = append(errs, "summary minimum pending reactions must be at least 1")
	}
	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry max attempts must be at least 1")
	}
	if cfg.Admin.APISecret == "" {
		errs = append(errs, "admin API secret is required")
	} else if len(cfg.Admin.APISecret) < 16 {
		errs = append(errs, "admin API secret must be at least 16 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
