package config

import (
	"os"
	"strconv"
	"time"

	infraconfig "cryptoquote-service/internal/infrastructure/config"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// HTTP facade
	Port string
	// Market source
	MarketAPIBase  string
	MarketWSURL    string
	RequestTimeout time.Duration
	// Fee cache
	FeeCacheBackend string
	FeeCacheTTL     time.Duration
	// Price polling (0 disables)
	PricePoll time.Duration
	// Redis (fee cache backend "redis")
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func durMS(key string, def time.Duration) time.Duration {
	ms := atoiDef(getEnv(key, ""), int(def/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:             getEnv("ENV", "local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnv("PORT", infraconfig.DefaultHTTPPort),
		MarketAPIBase:   getEnv("MARKET_API_BASE", "http://localhost:3001"),
		MarketWSURL:     getEnv("MARKET_WS_URL", "ws://localhost:3001"),
		RequestTimeout:  durMS("REQUEST_TIMEOUT_MS", infraconfig.DefaultRequestTimeout),
		FeeCacheBackend: getEnv("FEE_CACHE_BACKEND", "memory"),
		FeeCacheTTL:     durMS("FEE_CACHE_TTL_MS", infraconfig.DefaultFeeCacheTTL),
		PricePoll:       durMS("PRICE_POLL_MS", 0),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         atoiDef(getEnv("REDIS_DB", "0"), 0),
	}
}
