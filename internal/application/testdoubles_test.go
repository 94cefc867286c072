package application

import (
	"context"
	"time"

	"cryptoquote-service/internal/domain"
)

type fakeMarket struct {
	pairs  []domain.Pair
	prices map[string]string
	fee    domain.FeeQuote

	priceCalls int
	feeCalls   int

	priceErr error
	feeErr   error
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		pairs: []domain.Pair{
			{Symbol: "BTC_USDT", Base: "BTC", Quote: "USDT", FormulaKind: domain.FormulaCustom, FormulaID: "btc_usdt"},
			{Symbol: "ETH_USDT", Base: "ETH", Quote: "USDT", FormulaKind: domain.FormulaDefault},
			{Symbol: "AB_CD", Base: "AB", Quote: "CD", FormulaKind: domain.FormulaCustom, FormulaID: "abcd"},
			{Symbol: "XYZ_USDT", Base: "XYZ", Quote: "USDT", FormulaKind: domain.FormulaCustom, FormulaID: "premium"},
		},
		prices: map[string]string{
			"BTC_USDT": "30000.00",
			"ETH_USDT": "2000.00",
			"AB_CD":    "100.00",
			"XYZ_USDT": "50.00",
		},
		fee: domain.FeeQuote{FeePercent: "1.5", MinAmount: "0.001", MaxAmount: "10.0"},
	}
}

func (f *fakeMarket) ListPairs(context.Context) ([]domain.Pair, error) {
	return f.pairs, nil
}

func (f *fakeMarket) GetPrice(_ context.Context, symbol string) (domain.Price, error) {
	f.priceCalls++
	if f.priceErr != nil {
		return domain.Price{}, f.priceErr
	}
	p, ok := f.prices[symbol]
	if !ok {
		return domain.Price{}, &RemoteError{Status: 404, Message: "unknown symbol"}
	}
	return domain.Price{Symbol: symbol, Value: p, ObservedAt: time.Now()}, nil
}

func (f *fakeMarket) GetFee(_ context.Context, symbol string) (domain.FeeQuote, error) {
	f.feeCalls++
	if f.feeErr != nil {
		return domain.FeeQuote{}, f.feeErr
	}
	fee := f.fee
	fee.Symbol = symbol
	return fee, nil
}

type fakeFeeCache struct {
	entries map[string]domain.FeeQuote
	patches map[string]string
}

func newFakeFeeCache() *fakeFeeCache {
	return &fakeFeeCache{entries: map[string]domain.FeeQuote{}, patches: map[string]string{}}
}

func (c *fakeFeeCache) Get(symbol string) (domain.FeeQuote, bool) {
	fee, ok := c.entries[symbol]
	return fee, ok
}

func (c *fakeFeeCache) Put(symbol string, fee domain.FeeQuote) {
	c.entries[symbol] = fee
}

func (c *fakeFeeCache) PatchLive(symbol, feePercent string) {
	if _, ok := c.entries[symbol]; !ok {
		return
	}
	fee := c.entries[symbol]
	fee.FeePercent = feePercent
	c.entries[symbol] = fee
	c.patches[symbol] = feePercent
}
