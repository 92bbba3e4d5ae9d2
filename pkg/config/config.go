package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Metrics  MetricsConfig
	Ratings  RatingsConfig
	Reports  ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs Redis-backed read caching.
type CacheConfig struct {
	Enabled bool
	WorkTTL time.Duration
}

// MetricsConfig toggles Prometheus exposure.
type MetricsConfig struct {
	Enabled bool
}

// RatingsConfig controls the asynchronous rating recompute queue.
type RatingsConfig struct {
	AsyncRecompute    bool
	WorkerConcurrency int
	WorkerRetries     int
}

// ReportsConfig controls PDF work-summary generation.
type ReportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		WorkTTL: parseDuration(v.GetString("CACHE_WORK_TTL"), 5*time.Minute),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	cfg.Ratings = RatingsConfig{
		AsyncRecompute:    v.GetBool("RATINGS_ASYNC_RECOMPUTE"),
		WorkerConcurrency: v.GetInt("RATINGS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("RATINGS_WORKER_RETRIES"),
	}

	cfg.Reports = ReportsConfig{
		Enabled:         v.GetBool("ENABLE_REPORTS"),
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "melo")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "melo-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_WORK_TTL", "5m")

	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("RATINGS_ASYNC_RECOMPUTE", false)
	v.SetDefault("RATINGS_WORKER_CONCURRENCY", 1)
	v.SetDefault("RATINGS_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_REPORTS", false)
	v.SetDefault("REPORTS_STORAGE_DIR", "./reports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "30m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
