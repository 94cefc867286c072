package domain

import "time"

// Price is a single observed quote for a symbol. It is immutable once
// fetched; the next fetch for the same symbol supersedes it wholesale.
type Price struct {
	Symbol     string
	Value      string
	ObservedAt time.Time
}
