package application

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"cryptoquote-service/internal/domain"
	"cryptoquote-service/internal/formula"

	"go.uber.org/zap"
)

// LiveFeeError is the token the feed delivers in place of a fee when the
// push channel degrades. It must never be fed into arithmetic or rendered
// as a numeric fee.
const LiveFeeError = "error"

// EngineState is the reactive state of a quoting session. There is exactly
// one per engine; every field transition goes through one of the mutators
// below and is followed by a synchronous recompute of DerivedAmount.
type EngineState struct {
	SelectedSymbol string
	InputAmount    string
	Price          string
	FeePercent     string
	MinAmount      string
	MaxAmount      string
	DerivedAmount  string
	ChannelHealthy bool
}

// QuoteEngine recomputes the derived "amount received" whenever the
// selection, input amount, price or fee changes, dispatching to the
// formula registry for pair-specific rules. It owns its EngineState
// exclusively: mutators run to completion under a single lock, so no
// partial state is ever observed.
type QuoteEngine struct {
	market   MarketData
	cache    FeeCache
	formulas *formula.Registry
	log      *zap.Logger

	mu    sync.Mutex
	pairs map[string]domain.Pair
	state EngineState
}

type Option func(*QuoteEngine)

func WithLogger(l *zap.Logger) Option { return func(e *QuoteEngine) { e.log = l } }

func NewQuoteEngine(market MarketData, cache FeeCache, formulas *formula.Registry, opts ...Option) *QuoteEngine {
	e := &QuoteEngine{
		market:   market,
		cache:    cache,
		formulas: formulas,
		pairs:    map[string]domain.Pair{},
		state:    EngineState{ChannelHealthy: true},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// LoadPairs fetches the tradable pair list and indexes it by symbol.
func (e *QuoteEngine) LoadPairs(ctx context.Context) ([]domain.Pair, error) {
	pairs, err := e.market.ListPairs(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.pairs = make(map[string]domain.Pair, len(pairs))
	for _, p := range pairs {
		e.pairs[p.Symbol] = p
	}
	e.recomputeLocked()
	e.mu.Unlock()
	return pairs, nil
}

// Pairs returns the loaded pairs sorted by symbol.
func (e *QuoteEngine) Pairs() []domain.Pair {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Pair, 0, len(e.pairs))
	for _, p := range e.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Pair looks up a loaded pair by symbol.
func (e *QuoteEngine) Pair(symbol string) (domain.Pair, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pairs[symbol]
	return p, ok
}

// FormulaFor returns the rule used for a symbol, the default for symbols
// that are not loaded.
func (e *QuoteEngine) FormulaFor(symbol string) formula.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pairs[symbol]; ok {
		return e.formulas.Resolve(p)
	}
	return e.formulas.Default()
}

// SelectPair switches the session to symbol and refreshes price and fee
// through the gateway. A RemoteError on either fetch leaves the previous
// value in place and is returned for the caller to act on; the engine
// itself never retries. In-flight fetches for a previously selected
// symbol are not canceled: results apply last-writer-wins per field (see
// Test_SelectPair_LateResponse_LastWriterWins).
func (e *QuoteEngine) SelectPair(ctx context.Context, symbol string) error {
	e.mu.Lock()
	e.state.SelectedSymbol = symbol
	e.recomputeLocked()
	e.mu.Unlock()
	if symbol == "" {
		return nil
	}

	price, priceErr := e.market.GetPrice(ctx, symbol)
	if priceErr == nil {
		e.ApplyPrice(price)
	} else {
		e.log.Warn("price_fetch_failed", zap.String("symbol", symbol), zap.Error(priceErr))
	}
	fee, feeErr := e.market.GetFee(ctx, symbol)
	if feeErr == nil {
		e.ApplyFee(fee)
	} else {
		e.log.Warn("fee_fetch_failed", zap.String("symbol", symbol), zap.Error(feeErr))
	}

	if priceErr != nil {
		return priceErr
	}
	return feeErr
}

// SetAmount stores the raw input amount. It may be empty or non-numeric
// mid-edit; recompute clears the derived amount in that case.
func (e *QuoteEngine) SetAmount(amount string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.InputAmount = amount
	e.recomputeLocked()
}

// ApplyPrice is the price-loaded callback.
func (e *QuoteEngine) ApplyPrice(p domain.Price) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Price = p.Value
	e.recomputeLocked()
}

// ApplyFee is the fee-loaded callback; it also refreshes the pair limits.
func (e *QuoteEngine) ApplyFee(f domain.FeeQuote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.FeePercent = f.FeePercent
	e.state.MinAmount = f.MinAmount
	e.state.MaxAmount = f.MaxAmount
	e.recomputeLocked()
}

// OnLiveFeeUpdate applies a pushed fee, bypassing gateway and poll cycle.
// The LiveFeeError token marks the channel unhealthy and keeps the last
// good fee. A numeric fee is also patched into the cache without
// refreshing the entry's age.
func (e *QuoteEngine) OnLiveFeeUpdate(feePercent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if feePercent == LiveFeeError {
		e.state.ChannelHealthy = false
		e.recomputeLocked()
		return
	}
	e.state.FeePercent = feePercent
	if e.cache != nil && e.state.SelectedSymbol != "" {
		e.cache.PatchLive(e.state.SelectedSymbol, feePercent)
	}
	e.recomputeLocked()
}

// SetChannelHealth is the channel-health-changed event, driven by the
// feed's connect and error transitions.
func (e *QuoteEngine) SetChannelHealth(healthy bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.ChannelHealthy = healthy
	e.recomputeLocked()
}

// Reset clears the session back to its initial values. Price is kept: the
// next selection refetches it anyway.
func (e *QuoteEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	price := e.state.Price
	e.state = EngineState{Price: price, ChannelHealthy: true}
	e.recomputeLocked()
}

// State returns a snapshot of the engine state.
func (e *QuoteEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ValidateAmount reports whether the current input amount is within the
// pair limits. It gates submission only: recompute ignores it, so an
// out-of-range amount still yields a preview and the user sees the effect
// of adjusting toward the limit.
func (e *QuoteEngine) ValidateAmount() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	amount, errA := parseFinite(e.state.InputAmount)
	min, errMin := parseFinite(e.state.MinAmount)
	max, errMax := parseFinite(e.state.MaxAmount)
	if errA != nil || errMin != nil || errMax != nil {
		return false
	}
	return amount >= min && amount <= max
}

func (e *QuoteEngine) recomputeLocked() {
	e.state.DerivedAmount = e.deriveLocked(e.state)
}

// deriveLocked computes the displayed "amount received" from a state
// snapshot. Incomplete or non-numeric inputs and unknown symbols clear
// the result rather than erroring. The 2-decimal rounding is presentation
// only; every recompute restarts from the raw inputs, so it never feeds
// back into later calculations.
func (e *QuoteEngine) deriveLocked(s EngineState) string {
	if s.InputAmount == "" || s.Price == "" || s.FeePercent == "" || s.SelectedSymbol == "" {
		return ""
	}
	amount, errA := parseFinite(s.InputAmount)
	price, errP := parseFinite(s.Price)
	fee, errF := parseFinite(s.FeePercent)
	if errA != nil || errP != nil || errF != nil {
		return ""
	}
	pair, ok := e.pairs[s.SelectedSymbol]
	if !ok {
		return ""
	}
	rule := e.formulas.Resolve(pair)
	return strconv.FormatFloat(rule.Calculate(amount, price, fee), 'f', 2, 64)
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
