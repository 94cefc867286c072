package market

import (
	"context"
	"strconv"
	"sync"
	"time"

	"cryptoquote-service/internal/application"
	"cryptoquote-service/internal/domain"
)

var _ application.MarketData = (*Fake)(nil)
var _ application.Trader = (*Fake)(nil)

// Fake is an in-memory MarketData/Trader for tests and local runs without
// a remote source. Only direct pairs carry a stored price; inverse pairs
// are priced as 1/price to 8 decimals at lookup time. Safe for concurrent
// use so pollers can run against it in tests.
type Fake struct {
	mu       sync.Mutex
	pairList []domain.Pair
	prices   map[string]string
	fee      string
	min, max string

	priceCalls int
	feeCalls   int
	err        error
}

func NewFake() *Fake {
	return &Fake{
		pairList: []domain.Pair{
			{Symbol: "BTC_USDT", Base: "BTC", Quote: "USDT", FormulaKind: domain.FormulaCustom, FormulaID: "btc_usdt"},
			{Symbol: "USDT_BTC", Base: "USDT", Quote: "BTC", FormulaKind: domain.FormulaDefault},
			{Symbol: "ETH_USDT", Base: "ETH", Quote: "USDT", FormulaKind: domain.FormulaDefault},
			{Symbol: "USDT_ETH", Base: "USDT", Quote: "ETH", FormulaKind: domain.FormulaDefault},
			{Symbol: "AB_CD", Base: "AB", Quote: "CD", FormulaKind: domain.FormulaCustom, FormulaID: "abcd"},
			{Symbol: "XYZ_USDT", Base: "XYZ", Quote: "USDT", FormulaKind: domain.FormulaCustom, FormulaID: "premium"},
		},
		prices: map[string]string{
			"BTC_USDT": "30000.00",
			"ETH_USDT": "2000.00",
			"AB_CD":    "100.00",
			"XYZ_USDT": "50.00",
		},
		fee: "1.50",
		min: "0.001",
		max: "10.0",
	}
}

func (f *Fake) SetPrice(symbol, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = value
}

func (f *Fake) SetFee(fee string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fee = fee
}

// SetErr makes every subsequent call fail with err until cleared.
func (f *Fake) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) PriceCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priceCalls
}

func (f *Fake) FeeCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feeCalls
}

func (f *Fake) ListPairs(context.Context) ([]domain.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Pair, len(f.pairList))
	copy(out, f.pairList)
	return out, nil
}

func (f *Fake) GetPrice(_ context.Context, symbol string) (domain.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	if f.err != nil {
		return domain.Price{}, f.err
	}
	if p, ok := f.prices[symbol]; ok {
		return domain.Price{Symbol: symbol, Value: p, ObservedAt: time.Now().UTC()}, nil
	}
	if inv := domain.InverseSymbol(symbol); inv != "" {
		if p, ok := f.prices[inv]; ok {
			v, err := strconv.ParseFloat(p, 64)
			if err == nil && v != 0 {
				return domain.Price{
					Symbol:     symbol,
					Value:      strconv.FormatFloat(1/v, 'f', 8, 64),
					ObservedAt: time.Now().UTC(),
				}, nil
			}
		}
	}
	return domain.Price{}, &application.RemoteError{Status: 404, Message: "unknown symbol"}
}

func (f *Fake) GetFee(_ context.Context, symbol string) (domain.FeeQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeCalls++
	if f.err != nil {
		return domain.FeeQuote{}, f.err
	}
	return domain.FeeQuote{
		Symbol:     symbol,
		FeePercent: f.fee,
		MinAmount:  f.min,
		MaxAmount:  f.max,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (f *Fake) Exchange(_ context.Context, symbol, amount string) (domain.TradeConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.TradeConfirmation{}, f.err
	}
	return domain.TradeConfirmation{
		Message:   "exchange completed",
		Amount:    amount,
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
	}, nil
}
