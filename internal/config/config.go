package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	APIURL              string
	RequestTimeout      time.Duration
	PageSize            int
	BlockPrivateBackend bool

	// Profile store
	ProfileStoreURL string
	ProfileScope    string

	// Rate Limit
	RateLimitCreate  int
	RateLimitLike    int
	RateLimitGeneral int

	// Watch
	WatchInterval time.Duration
	MetricsAddr   string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIURL = strings.TrimRight(os.Getenv("WISHWALL_API_URL"), "/")
	if cfg.APIURL == "" {
		missing = append(missing, "WISHWALL_API_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	cfg.PageSize = getEnvInt("PAGE_SIZE", 100)
	cfg.BlockPrivateBackend = getEnvBool("BLOCK_PRIVATE_BACKEND", false)
	cfg.ProfileStoreURL = getEnvString("PROFILE_STORE_URL", defaultProfileStoreURL())
	cfg.ProfileScope = getEnvString("PROFILE_SCOPE", "default")
	cfg.RateLimitCreate = getEnvInt("RATE_LIMIT_CREATE", 10)
	cfg.RateLimitLike = getEnvInt("RATE_LIMIT_LIKE", 50)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.WatchInterval = getEnvDuration("WATCH_INTERVAL", 30*time.Second)
	cfg.MetricsAddr = getEnvString("METRICS_ADDR", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	return cfg, nil
}

// defaultProfileStoreURL はホームディレクトリ配下のSQLiteファイルを指すURLを返す。
// ホームディレクトリが分からない場合はカレントディレクトリに置く。
func defaultProfileStoreURL() string {
	dir := ".wishwall"
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dir = filepath.Join(home, ".wishwall")
	}
	return "sqlite3://" + filepath.Join(dir, "profile.db")
}

func getEnvString(key, defaultVal string) string {
	return getEnv(key, defaultVal, func(v string) (string, error) { return v, nil })
}

func getEnvInt(key string, defaultVal int) int {
	return getEnv(key, defaultVal, strconv.Atoi)
}

func getEnvBool(key string, defaultVal bool) bool {
	return getEnv(key, defaultVal, strconv.ParseBool)
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	return getEnv(key, defaultVal, time.ParseDuration)
}

// getEnv は環境変数を読み、未設定または解釈できない場合はdefaultValを返す。
func getEnv[T any](key string, defaultVal T, parse func(string) (T, error)) T {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := parse(v)
	if err != nil {
		return defaultVal
	}
	return parsed
}
