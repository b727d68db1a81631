package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend はデータの保存先となるバックエンドの種類を表す。
type Backend string

const (
	// BackendSupabase はSupabase（PostgREST + GoTrue）をバックエンドとして使う。
	BackendSupabase Backend = "supabase"
	// BackendPostgres はPostgreSQLに直接接続し、Google OAuthで認証する。
	BackendPostgres Backend = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	Backend Backend

	// Supabase
	SupabaseURL     string
	SupabaseAnonKey string

	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Backend calls
	BackendTimeout time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral  int
	RateLimitMutation int

	// Display
	DisplayTimezone string

	// Error reporting
	SentryDSN string
	AppEnv    string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// LoadDotEnv は.envファイルが存在すれば環境変数に読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが無い場合は何もしない。
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定の変数名をまとめたエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string
	require := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.Backend = Backend(strings.ToLower(getEnvString("BACKEND", string(BackendSupabase))))
	switch cfg.Backend {
	case BackendSupabase:
		cfg.SupabaseURL = strings.TrimRight(require("SUPABASE_URL"), "/")
		cfg.SupabaseAnonKey = require("SUPABASE_ANON_KEY")
	case BackendPostgres:
		cfg.DatabaseURL = require("DATABASE_URL")
		cfg.GoogleClientID = require("GOOGLE_CLIENT_ID")
		cfg.GoogleClientSecret = require("GOOGLE_CLIENT_SECRET")
	default:
		return nil, fmt.Errorf("unsupported BACKEND %q (use %q or %q)", cfg.Backend, BackendSupabase, BackendPostgres)
	}

	cfg.SessionSecret = require("SESSION_SECRET")
	cfg.BaseURL = strings.TrimRight(require("BASE_URL"), "/")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GoogleRedirectURL = getEnvString("GOOGLE_REDIRECT_URL", cfg.BaseURL+"/auth/callback")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 7*24*60*60)
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 240)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 60)
	cfg.DisplayTimezone = getEnvString("DISPLAY_TIMEZONE", "Asia/Tokyo")
	cfg.SentryDSN = getEnvString("SENTRY_DSN", "")
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
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
