package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable means the oracle could not price a ticker: network
// failure, unknown symbol, or no data for the requested date. Callers must
// treat it as a failed operation, never as a zero price.
var ErrPriceUnavailable = errors.New("price unavailable")

// PriceOracle supplies current and historical instrument prices.
// Implementations are stateless and safe for concurrent use; callers bound
// each call with a context deadline.
type PriceOracle interface {
	// CurrentPrice returns the latest trade price for a ticker.
	CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)

	// HistoricalPrice returns the closing price on the last trading day at
	// or before the given date.
	HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error)
}

// historicalBuffer is how far HistoricalPrice implementations look back for
// the last trading day before the requested date (weekends, holidays).
const historicalBuffer = 5 * 24 * time.Hour
