// Package market is the HTTP gateway to the remote market data source.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"cryptoquote-service/internal/application"
	"cryptoquote-service/internal/domain"
	infraconfig "cryptoquote-service/internal/infrastructure/config"

	"golang.org/x/time/rate"
)

const (
	symbolsPath  = "/api/symbols"
	pricePath    = "/api/ticker/price"
	feePath      = "/api/fee"
	exchangePath = "/api/exchange"

	// Outbound budget toward the market source; polling callers share it.
	requestsPerSec = 20
	requestBurst   = 5
)

var _ application.MarketData = (*Client)(nil)
var _ application.Trader = (*Client)(nil)

// Client fetches symbols, prices and fees. Fee lookups are cache-through
// against the fee cache; price lookups always hit the remote. Failures
// surface as *application.RemoteError and are never retried here.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   application.FeeCache
	Limiter *rate.Limiter
}

func NewClient(baseURL string, feeCache application.FeeCache) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: infraconfig.DefaultRequestTimeout},
		Cache:   feeCache,
		Limiter: rate.NewLimiter(rate.Limit(requestsPerSec), requestBurst),
	}
}

type pairResp struct {
	Symbol      string `json:"symbol"`
	Base        string `json:"base"`
	Quote       string `json:"quote"`
	FormulaType string `json:"formula_type"`
	FormulaID   string `json:"formula_id,omitempty"`
}

type priceResp struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

type feeResp struct {
	Symbol    string `json:"symbol"`
	Fee       string `json:"fee"`
	MinAmount string `json:"min_amount"`
	MaxAmount string `json:"max_amount"`
	Timestamp int64  `json:"timestamp"`
}

type exchangeReq struct {
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

type exchangeResp struct {
	Message   string `json:"message"`
	Amount    string `json:"amount"`
	Symbol    string `json:"symbol"`
	Timestamp int64  `json:"timestamp"`
}

type errResp struct {
	Error string `json:"error"`
}

// ListPairs fetches the tradable pair list.
func (c *Client) ListPairs(ctx context.Context) ([]domain.Pair, error) {
	var body []pairResp
	if err := c.doJSON(ctx, http.MethodGet, symbolsPath, nil, nil, &body); err != nil {
		return nil, err
	}
	pairs := make([]domain.Pair, 0, len(body))
	for _, p := range body {
		kind := domain.FormulaDefault
		if p.FormulaType == string(domain.FormulaCustom) {
			kind = domain.FormulaCustom
		}
		pairs = append(pairs, domain.Pair{
			Symbol:      p.Symbol,
			Base:        p.Base,
			Quote:       p.Quote,
			FormulaKind: kind,
			FormulaID:   p.FormulaID,
		})
	}
	return pairs, nil
}

// GetPrice is always a fresh remote fetch, never cached.
func (c *Client) GetPrice(ctx context.Context, symbol string) (domain.Price, error) {
	var body priceResp
	q := url.Values{"symbol": []string{symbol}}
	if err := c.doJSON(ctx, http.MethodGet, pricePath, q, nil, &body); err != nil {
		return domain.Price{}, err
	}
	return domain.Price{
		Symbol:     body.Symbol,
		Value:      body.Price,
		ObservedAt: time.UnixMilli(body.Timestamp).UTC(),
	}, nil
}

// GetFee returns the cached fee while it is fresh; anything stale or
// missing is refetched, stored wholesale and returned.
func (c *Client) GetFee(ctx context.Context, symbol string) (domain.FeeQuote, error) {
	if c.Cache != nil {
		if fee, ok := c.Cache.Get(symbol); ok {
			return fee, nil
		}
	}
	var body feeResp
	q := url.Values{"symbol": []string{symbol}}
	if err := c.doJSON(ctx, http.MethodGet, feePath, q, nil, &body); err != nil {
		return domain.FeeQuote{}, err
	}
	fee := domain.FeeQuote{
		Symbol:     body.Symbol,
		FeePercent: body.Fee,
		MinAmount:  body.MinAmount,
		MaxAmount:  body.MaxAmount,
		FetchedAt:  time.UnixMilli(body.Timestamp).UTC(),
	}
	if c.Cache != nil {
		c.Cache.Put(symbol, fee)
	}
	return fee, nil
}

// Exchange executes a trade on the remote side.
func (c *Client) Exchange(ctx context.Context, symbol, amount string) (domain.TradeConfirmation, error) {
	var body exchangeResp
	in := exchangeReq{Symbol: symbol, Amount: amount}
	if err := c.doJSON(ctx, http.MethodPost, exchangePath, nil, &in, &body); err != nil {
		return domain.TradeConfirmation{}, err
	}
	return domain.TradeConfirmation{
		Message:   body.Message,
		Amount:    body.Amount,
		Symbol:    body.Symbol,
		Timestamp: time.UnixMilli(body.Timestamp).UTC(),
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return &application.RemoteError{Message: "rate limit wait: " + err.Error()}
		}
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return &application.RemoteError{Message: "invalid base url: " + err.Error()}
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &application.RemoteError{Message: "encode request: " + err.Error()}
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return &application.RemoteError{Message: "create request: " + err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &application.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body errResp
		_ = json.NewDecoder(resp.Body).Decode(&body)
		msg := body.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &application.RemoteError{Status: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &application.RemoteError{Message: "decode response: " + err.Error()}
	}
	return nil
}
