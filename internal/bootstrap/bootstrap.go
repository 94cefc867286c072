package bootstrap

import (
	"net/http"

	"cryptoquote-service/internal/application"
	"cryptoquote-service/internal/config"
	"cryptoquote-service/internal/formula"
	"cryptoquote-service/internal/infrastructure/cache"
	"cryptoquote-service/internal/infrastructure/feed"
	"cryptoquote-service/internal/infrastructure/logx"
	"cryptoquote-service/internal/infrastructure/market"
	"cryptoquote-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildFeeCache builds the fee cache per FEE_CACHE_BACKEND ("memory" or
// "redis"). The cleanup func closes the redis client when there is one.
func BuildFeeCache(cfg config.Config) (application.FeeCache, func(), error) {
	log := logx.L()
	switch cfg.FeeCacheBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		c := cache.NewRedis(rdb, cfg.FeeCacheTTL, cache.WithRedisLogger(log))
		cleanup := func() {
			log.Info("closing redis")
			_ = rdb.Close()
		}
		return c, cleanup, nil
	default:
		return cache.NewMemory(cfg.FeeCacheTTL), func() {}, nil
	}
}

// BuildMarket builds the market data gateway. MARKET_API_BASE="fake"
// selects the in-memory market for local runs without a remote source.
func BuildMarket(cfg config.Config, feeCache application.FeeCache) (application.MarketData, application.Trader) {
	if cfg.MarketAPIBase == "fake" {
		f := market.NewFake()
		return f, f
	}
	c := market.NewClient(cfg.MarketAPIBase, feeCache)
	c.HTTP = &http.Client{Timeout: cfg.RequestTimeout}
	return c, c
}

func BuildEngine(md application.MarketData, feeCache application.FeeCache) *application.QuoteEngine {
	return application.NewQuoteEngine(md, feeCache, formula.NewRegistry(),
		application.WithLogger(logx.L()))
}

// BuildFeed wires the live fee channel to the engine's health flag. The
// caller connects it with the engine's update callback.
func BuildFeed(cfg config.Config, engine *application.QuoteEngine) *feed.Channel {
	ch := feed.NewChannel(cfg.MarketWSURL, logx.L())
	ch.OnHealth = engine.SetChannelHealth
	return ch
}

// BuildPricePoller returns nil when polling is disabled (PRICE_POLL_MS=0).
func BuildPricePoller(cfg config.Config, md application.MarketData, engine *application.QuoteEngine) application.Worker {
	if cfg.PricePoll <= 0 {
		return nil
	}
	return &worker.PricePoller{
		Market:    md,
		Engine:    engine,
		PollEvery: cfg.PricePoll,
		Log:       logx.L().With(zap.String("worker", "price_poller")),
	}
}
