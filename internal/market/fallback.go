package market

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Fallback composes two oracles: every lookup tries the primary first and
// falls back to the secondary when the primary cannot price the ticker.
// From the caller's perspective this is a single oracle with a single
// failure mode.
type Fallback struct {
	primary   PriceOracle
	secondary PriceOracle
	log       zerolog.Logger
}

// NewFallback creates a composite oracle. secondary may be nil, in which
// case primary failures propagate directly.
func NewFallback(primary, secondary PriceOracle, log zerolog.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		log:       log.With().Str("component", "price_oracle").Logger(),
	}
}

// CurrentPrice tries the primary provider, then the secondary
func (f *Fallback) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	price, err := f.primary.CurrentPrice(ctx, ticker)
	if err == nil {
		return price, nil
	}
	if f.secondary == nil {
		return decimal.Zero, err
	}

	f.log.Warn().Err(err).Str("ticker", ticker).Msg("primary provider failed, trying fallback")
	price, fbErr := f.secondary.CurrentPrice(ctx, ticker)
	if fbErr != nil {
		f.log.Error().Err(fbErr).Str("ticker", ticker).Msg("fallback provider failed")
		return decimal.Zero, err
	}
	return price, nil
}

// HistoricalPrice tries the primary provider, then the secondary
func (f *Fallback) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	price, err := f.primary.HistoricalPrice(ctx, ticker, on)
	if err == nil {
		return price, nil
	}
	if f.secondary == nil {
		return decimal.Zero, err
	}

	f.log.Warn().Err(err).Str("ticker", ticker).Str("on", on.Format("2006-01-02")).
		Msg("primary provider failed, trying fallback")
	price, fbErr := f.secondary.HistoricalPrice(ctx, ticker, on)
	if fbErr != nil {
		f.log.Error().Err(fbErr).Str("ticker", ticker).Msg("fallback provider failed")
		return decimal.Zero, err
	}
	return price, nil
}
