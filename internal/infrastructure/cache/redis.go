package cache

import (
	"context"
	"encoding/json"
	"time"

	"cryptoquote-service/internal/application"
	"cryptoquote-service/internal/domain"
	infraconfig "cryptoquote-service/internal/infrastructure/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ application.FeeCache = (*Redis)(nil)

// Redis stores each fee entry as a JSON value carrying its own cachedAt,
// so staleness stays a client-side read check and a live patch can keep
// the polled timestamp. Keys get a generous janitorial expiry only to
// keep the keyspace from growing unbounded; it plays no role in
// freshness.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	clock  application.Clock
	log    *zap.Logger
}

const redisKeyRetention = 24 * time.Hour

type redisEntry struct {
	Fee      domain.FeeQuote `json:"fee"`
	CachedAt time.Time       `json:"cached_at"`
}

type RedisOption func(*Redis)

func WithRedisClock(c application.Clock) RedisOption {
	return func(r *Redis) { r.clock = c }
}

func WithRedisLogger(l *zap.Logger) RedisOption {
	return func(r *Redis) { r.log = l }
}

func NewRedis(client *redis.Client, ttl time.Duration, opts ...RedisOption) *Redis {
	if ttl <= 0 {
		ttl = infraconfig.DefaultFeeCacheTTL
	}
	r := &Redis{client: client, ttl: ttl}
	for _, opt := range opts {
		opt(r)
	}
	if r.clock == nil {
		r.clock = application.SystemClock{}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

func feeKey(symbol string) string { return "fee:" + symbol }

func (r *Redis) Get(symbol string) (domain.FeeQuote, bool) {
	raw, err := r.client.Get(context.Background(), feeKey(symbol)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("fee_cache_get_failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return domain.FeeQuote{}, false
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		r.log.Warn("fee_cache_decode_failed", zap.String("symbol", symbol), zap.Error(err))
		return domain.FeeQuote{}, false
	}
	if r.clock.Now().Sub(e.CachedAt) >= r.ttl {
		return domain.FeeQuote{}, false
	}
	return e.Fee, true
}

func (r *Redis) Put(symbol string, fee domain.FeeQuote) {
	raw, err := json.Marshal(redisEntry{Fee: fee, CachedAt: r.clock.Now()})
	if err != nil {
		r.log.Warn("fee_cache_encode_failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	if err := r.client.Set(context.Background(), feeKey(symbol), raw, redisKeyRetention).Err(); err != nil {
		r.log.Warn("fee_cache_put_failed", zap.String("symbol", symbol), zap.Error(err))
	}
}

// PatchLive rewrites the stored entry with a new fee percent but the old
// cachedAt, preserving the polled freshness window. No-op when the symbol
// has no entry.
func (r *Redis) PatchLive(symbol, feePercent string) {
	ctx := context.Background()
	raw, err := r.client.Get(ctx, feeKey(symbol)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("fee_cache_patch_read_failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		r.log.Warn("fee_cache_patch_decode_failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	e.Fee.FeePercent = feePercent
	out, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, feeKey(symbol), out, redis.KeepTTL).Err(); err != nil {
		r.log.Warn("fee_cache_patch_failed", zap.String("symbol", symbol), zap.Error(err))
	}
}
