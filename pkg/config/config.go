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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Cache        CacheConfig
	Attendance   AttendanceConfig
	Verification VerificationConfig
	Reports      ReportsConfig
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
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes the read-through redis cache.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// AttendanceConfig carries the admission policy knobs. Late limit and strict
// mode are defaults only; per-organization settings override them at runtime.
type AttendanceConfig struct {
	ScanWindow              time.Duration
	DefaultLateLimitMinutes int
	DefaultStrictLateMode   bool
	DefaultRadiusMeters     float64
	DefaultUTCOffsetMinutes int
}

// VerificationConfig points at the external location verification provider.
// An empty BaseURL or APIKey leaves the verifier unconfigured; required
// sessions then reject rather than fall back.
type VerificationConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxAccuracyMeters float64
	MinConfidence     float64
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// defaults maps every known key to its development fallback. Durations are
// declared as strings so they can be overridden through the environment in
// the same format.
var defaults = map[string]interface{}{
	"ENV":        EnvDevelopment,
	"PORT":       8080,
	"API_PREFIX": "/api/v1",

	"DB_HOST":           "localhost",
	"DB_PORT":           5432,
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "attendance",
	"DB_SSL_MODE":       "disable",
	"DB_MAX_OPEN_CONNS": 10,
	"DB_MAX_IDLE_CONNS": 5,

	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     6379,
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET":               "dev_secret",
	"JWT_EXPIRATION":           "24h",
	"REFRESH_TOKEN_EXPIRATION": "168h",

	"ALLOWED_ORIGINS": "",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",

	"ENABLE_CACHE":      false,
	"CACHE_DEFAULT_TTL": "5m",

	"ATTENDANCE_SCAN_WINDOW":           "2h",
	"ATTENDANCE_LATE_LIMIT_MINUTES":    30,
	"ATTENDANCE_STRICT_LATE_MODE":      false,
	"ATTENDANCE_DEFAULT_RADIUS_METERS": 100,
	// IST (+05:30); organizations override per row.
	"ATTENDANCE_DEFAULT_UTC_OFFSET_MINUTES": 330,

	"VERIFY_BASE_URL":            "",
	"VERIFY_API_KEY":             "",
	"VERIFY_TIMEOUT":             "5s",
	"VERIFY_MAX_ACCURACY_METERS": 50,
	"VERIFY_MIN_CONFIDENCE":      0.7,

	"ENABLE_REPORTS":             false,
	"REPORTS_STORAGE_DIR":        "./exports",
	"REPORTS_SIGNED_URL_SECRET":  "dev_reports_secret",
	"REPORTS_SIGNED_URL_TTL":     "24h",
	"REPORTS_CLEANUP_INTERVAL":   "1h",
	"REPORTS_WORKER_CONCURRENCY": 1,
	"REPORTS_WORKER_RETRIES":     3,
}

// Load reads .env (when present) and the process environment, falling back
// to the defaults table for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		Env:       v.GetString("ENV"),
		Port:      v.GetInt("PORT"),
		APIPrefix: v.GetString("API_PREFIX"),
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
			RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		},
		CORS: CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Enabled:    v.GetBool("ENABLE_CACHE"),
			DefaultTTL: parseDuration(v.GetString("CACHE_DEFAULT_TTL"), 5*time.Minute),
		},
		Attendance: AttendanceConfig{
			ScanWindow:              parseDuration(v.GetString("ATTENDANCE_SCAN_WINDOW"), 2*time.Hour),
			DefaultLateLimitMinutes: v.GetInt("ATTENDANCE_LATE_LIMIT_MINUTES"),
			DefaultStrictLateMode:   v.GetBool("ATTENDANCE_STRICT_LATE_MODE"),
			DefaultRadiusMeters:     v.GetFloat64("ATTENDANCE_DEFAULT_RADIUS_METERS"),
			DefaultUTCOffsetMinutes: v.GetInt("ATTENDANCE_DEFAULT_UTC_OFFSET_MINUTES"),
		},
		Verification: VerificationConfig{
			BaseURL:           v.GetString("VERIFY_BASE_URL"),
			APIKey:            v.GetString("VERIFY_API_KEY"),
			Timeout:           parseDuration(v.GetString("VERIFY_TIMEOUT"), 5*time.Second),
			MaxAccuracyMeters: v.GetFloat64("VERIFY_MAX_ACCURACY_METERS"),
			MinConfidence:     v.GetFloat64("VERIFY_MIN_CONFIDENCE"),
		},
		Reports: ReportsConfig{
			Enabled:           v.GetBool("ENABLE_REPORTS"),
			StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
			SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
			SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
			CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
			WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
			WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
		},
	}, nil
}

// parseDuration falls back on empty or malformed values rather than failing
// startup over a single knob.
func parseDuration(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	var result []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
