package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	BotToken     string
	AdminUserIDs map[int64]bool

	// Database
	DBPath string

	// Logging
	LogLevel slog.Level

	// Loops
	IngestInterval time.Duration
	MatchInterval  time.Duration
	SendDelay      time.Duration

	// Matching
	DefaultMinProfit float64
	TaxonomyPath     string

	// Row receiver
	RowsPort       int
	RowsStaleAfter time.Duration

	// TonAPI
	TonAPIKey     string
	TonAPIBaseURL string

	// Subscription payments
	ServiceWalletAddr    string
	SubscriptionPriceTON float64
	SubscriptionDays     int
	PaymentCheckInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		// Telegram
		BotToken:     getEnv("BOT_TOKEN", ""),
		AdminUserIDs: parseIDs(getEnv("ADMIN_USER_IDS", "")),

		// Database
		DBPath: getEnv("DB_PATH", "./surebets.db"),

		// Logging
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		// Loops
		IngestInterval: getEnvDuration("INGEST_INTERVAL", 10*time.Second),
		MatchInterval:  getEnvDuration("MATCH_INTERVAL", 5*time.Second),
		SendDelay:      getEnvDuration("SEND_DELAY", 50*time.Millisecond),

		// Matching
		DefaultMinProfit: getEnvFloat("DEFAULT_MIN_PROFIT", 1.0),
		TaxonomyPath:     getEnv("TAXONOMY_PATH", ""),

		// Row receiver
		RowsPort:       getEnvInt("ROWS_PORT", 8080),
		RowsStaleAfter: getEnvDuration("ROWS_STALE_AFTER", 0),

		// TonAPI
		TonAPIKey:     getEnv("TONAPI_API_KEY", ""),
		TonAPIBaseURL: strings.TrimSuffix(getEnv("TONAPI_BASE_URL", "https://tonapi.io/v2"), "/"),

		// Subscription payments
		ServiceWalletAddr:    getEnv("SERVICE_WALLET_ADDR", ""),
		SubscriptionPriceTON: getEnvFloat("SUBSCRIPTION_PRICE_TON", 5.0),
		SubscriptionDays:     getEnvInt("SUBSCRIPTION_DAYS", 30),
		PaymentCheckInterval: getEnvDuration("PAYMENT_CHECK_INTERVAL", 10*time.Second),
	}

	return cfg
}

// IsAdmin reports whether userID may run admin commands
func (c *Config) IsAdmin(userID int64) bool {
	return c.AdminUserIDs[userID]
}

func parseIDs(csv string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, idStr := range strings.Split(csv, ",") {
		idStr = strings.TrimSpace(idStr)
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids[id] = true
		}
	}
	return ids
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d >= 0 {
			return d
		}
	}
	return defaultVal
}
