package domain

import "time"

// TradeConfirmation is the remote acknowledgement of an executed trade.
type TradeConfirmation struct {
	Message   string
	Amount    string
	Symbol    string
	Timestamp time.Time
}
