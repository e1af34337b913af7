package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade side constants
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Transaction is one immutable entry in a user's ledger. Records are
// append-only: historical valuations are reconstructed by replaying them,
// so they are never updated or deleted.
type Transaction struct {
	ID        int             `json:"id"`
	UserID    int             `json:"user_id"`
	Ticker    string          `json:"ticker"`
	Quantity  int64           `json:"quantity"`
	Buy       bool            `json:"buy"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Side returns the trade side constant for the transaction direction.
func (t *Transaction) Side() string {
	if t.Buy {
		return SideBuy
	}
	return SideSell
}

// TradeEvent is the Kafka payload published after a trade commits
type TradeEvent struct {
	EventType  string          `json:"event_type"`
	EventID    string          `json:"event_id"`
	UserID     int             `json:"user_id"`
	Ticker     string          `json:"ticker"`
	Side       string          `json:"side"`
	Quantity   int64           `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// TradeAudit is the durable mirror of a consumed trade event
type TradeAudit struct {
	ID         int             `json:"id"`
	EventID    string          `json:"event_id"`
	UserID     int             `json:"user_id"`
	Ticker     string          `json:"ticker"`
	Side       string          `json:"side"`
	Quantity   int64           `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	ExecutedAt time.Time       `json:"executed_at"`
	CreatedAt  time.Time       `json:"created_at"`
}
