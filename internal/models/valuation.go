package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioValue is a cached end-of-day valuation for one user.
// Entries are written once and never recomputed: the ledger is
// append-only, so a past day's value can never change.
type PortfolioValue struct {
	ID     int             `json:"id"`
	UserID int             `json:"user_id"`
	On     time.Time       `json:"on"`
	Value  decimal.Decimal `json:"value"`
}

// ValuePoint is one (date, value) sample in a portfolio time series
type ValuePoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// RankedUser pairs a user with their current portfolio value for leaderboards
type RankedUser struct {
	User  *User           `json:"user"`
	Value decimal.Decimal `json:"value"`
}
