package models

import "errors"

// Business rejections. These are expected outcomes of user requests,
// recovered at the request boundary and turned into plain messages.
var (
	// ErrInsufficientFunds rejects a buy whose cost exceeds the user's cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoPosition rejects a sell of a ticker the user does not hold.
	ErrNoPosition = errors.New("no position")

	// ErrInvalidQuantity rejects a non-positive share quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
)
