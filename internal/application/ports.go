package application

import (
	"context"
	"time"

	"cryptoquote-service/internal/domain"
)

// MarketData is the remote market source. GetPrice is always a fresh
// fetch, never cached; GetFee is cache-through against the fee cache.
// None of the calls retry: retry policy belongs to the caller.
type MarketData interface {
	ListPairs(ctx context.Context) ([]domain.Pair, error)
	GetPrice(ctx context.Context, symbol string) (domain.Price, error)
	GetFee(ctx context.Context, symbol string) (domain.FeeQuote, error)
}

// Trader executes a trade on the remote side. It sits outside the pricing
// path and is invoked only after the caller is satisfied with the preview.
type Trader interface {
	Exchange(ctx context.Context, symbol, amount string) (domain.TradeConfirmation, error)
}

// FeeCache is the time-bounded fee store, the single source of truth for
// "is this fee fresh". Get reports ok=false for missing and stale entries
// alike. PatchLive overwrites only the fee percent of an existing entry
// without refreshing its age, and never creates one.
type FeeCache interface {
	Get(symbol string) (domain.FeeQuote, bool)
	Put(symbol string, fee domain.FeeQuote)
	PatchLive(symbol string, feePercent string)
}

// FeeFeed is the push channel delivering live fee updates. It is best
// effort: the polled fee path stays the baseline when the feed degrades.
type FeeFeed interface {
	Connect(ctx context.Context, onUpdate func(feePercent string)) error
	Disconnect()
	Errored() bool
}

// Worker represents a background processor.
// Implementations must run until the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}

type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
