package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストレージ・セッションのバックエンド種別。
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageBackend string
	DatabaseURL    string
	MongoURI       string
	MongoDatabase  string
	StoreTimeout   time.Duration

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	OAuthTimeout       time.Duration

	// Session
	SessionBackend         string
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration
	RedisAddr              string
	RedisPassword          string
	RedisDB                int

	// Events
	NATSURL string

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string
	BaseURL    string
	UIOrigin   string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.StorageBackend = getEnvString("STORAGE_BACKEND", BackendPostgres)
	defaultSessionBackend := BackendPostgres
	if cfg.StorageBackend != BackendPostgres {
		defaultSessionBackend = BackendMemory
	}
	cfg.SessionBackend = getEnvString("SESSION_BACKEND", defaultSessionBackend)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && (cfg.StorageBackend == BackendPostgres || cfg.SessionBackend == BackendPostgres) {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.MongoURI = os.Getenv("MONGODB_URI")
	if cfg.MongoURI == "" && cfg.StorageBackend == BackendMongo {
		missing = append(missing, "MONGODB_URI")
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" && cfg.SessionBackend == BackendRedis {
		missing = append(missing, "REDIS_ADDR")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if err := validateBackends(cfg.StorageBackend, cfg.SessionBackend); err != nil {
		return nil, err
	}

	// Optional fields with defaults
	cfg.MongoDatabase = getEnvString("MONGODB_DATABASE", "printpress")
	cfg.StoreTimeout = getEnvDuration("STORE_TIMEOUT", 5*time.Second)
	cfg.OAuthTimeout = getEnvDuration("OAUTH_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.LogLevel = getEnvLogLevel("LOG_LEVEL", slog.LevelInfo)
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.UIOrigin = strings.TrimRight(getEnvString("UI_ORIGIN", "http://localhost:3000"), "/")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", strings.HasPrefix(cfg.BaseURL, "https://"))
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// validateBackends はバックエンドの組み合わせを検証する。
// sessionsテーブルはusersへの外部キーを持つため、postgresセッションはpostgresストレージとのみ組み合わせられる。
func validateBackends(storage, session string) error {
	switch storage {
	case BackendPostgres, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %q", storage)
	}
	switch session {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND: %q", session)
	}
	if session == BackendPostgres && storage != BackendPostgres {
		return fmt.Errorf("SESSION_BACKEND=postgres requires STORAGE_BACKEND=postgres, got %q", storage)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvLogLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
