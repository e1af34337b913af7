package models

// Holding represents a user's current position in one ticker.
// Quantity is always positive; a fully sold position is deleted,
// never stored as a zero row.
type Holding struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Ticker   string `json:"ticker"`
	Quantity int64  `json:"quantity"`
}
