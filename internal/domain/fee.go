package domain

import "time"

// FeeQuote is the polled fee baseline for a symbol, including the amount
// limits the remote side enforces. Only the push-update path mutates it
// after the fetch, and only the FeePercent field.
type FeeQuote struct {
	Symbol     string
	FeePercent string
	MinAmount  string
	MaxAmount  string
	FetchedAt  time.Time
}
