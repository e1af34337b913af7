package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/talkai/tickerbot/internal/market"
	"github.com/talkai/tickerbot/internal/models"
)

// Store is the slice of the ledger store the engine reads. All access is
// read-only except the write-once daily valuation cache.
type Store interface {
	GetUserByID(id int) (*models.User, error)
	GetUsersByTeam(teamID string) ([]*models.User, error)
	GetHoldingsByUser(userID int) ([]*models.Holding, error)
	GetTransactionsAfter(userID int, cutoff time.Time) ([]*models.Transaction, error)
	GetPortfolioValue(userID int, on time.Time) (*models.PortfolioValue, error)
	CreatePortfolioValue(pv *models.PortfolioValue) error
}

// Engine computes portfolio valuations. Current valuations price the live
// holdings; historical valuations reconstruct the ledger state as of a past
// day by undoing transactions backwards from the present.
type Engine struct {
	store  Store
	oracle market.PriceOracle
	log    zerolog.Logger
	now    func() time.Time // injectable clock for testing
}

// NewEngine creates a valuation engine
func NewEngine(store Store, oracle market.PriceOracle, log zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		oracle: oracle,
		log:    log.With().Str("component", "valuation").Logger(),
		now:    time.Now,
	}
}

// CurrentValue returns cash plus every holding priced at the current
// market price. A pricing failure for any one ticker fails the whole
// computation — no partial totals.
func (e *Engine) CurrentValue(ctx context.Context, userID int) (decimal.Decimal, error) {
	user, err := e.store.GetUserByID(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.currentValueOf(ctx, user)
}

func (e *Engine) currentValueOf(ctx context.Context, user *models.User) (decimal.Decimal, error) {
	holdings, err := e.store.GetHoldingsByUser(user.ID)
	if err != nil {
		return decimal.Zero, err
	}

	total := user.Cash
	for _, h := range holdings {
		price, err := e.oracle.CurrentPrice(ctx, h.Ticker)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to price %s: %w", h.Ticker, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(h.Quantity)))
	}
	return total, nil
}

// ValueOn returns the user's total portfolio value at end of day `on`.
//
// Days before the account epoch report the default starting cash. Settled
// days — days already over — come straight from the cache once computed
// and are never recomputed: the ledger is append-only, so a finished day's
// value cannot change. Today and future days are still moving, so they are
// recomputed on every call and never cached. Reconstruction undoes every
// transaction newer than the target day, most recent first, starting from
// the live cash and holdings: only the recent replay window is scanned,
// not the full history.
func (e *Engine) ValueOn(ctx context.Context, userID int, on time.Time) (decimal.Decimal, error) {
	user, err := e.store.GetUserByID(userID)
	if err != nil {
		return decimal.Zero, err
	}

	day := dateOnly(on)
	if day.Before(dateOnly(user.ResetOn)) {
		return models.DefaultCash, nil
	}

	settled := day.Before(dateOnly(e.now()))
	if settled {
		cached, err := e.store.GetPortfolioValue(userID, day)
		if err != nil {
			return decimal.Zero, err
		}
		if cached != nil {
			return cached.Value, nil
		}
	}

	holdings, err := e.store.GetHoldingsByUser(userID)
	if err != nil {
		return decimal.Zero, err
	}
	portfolio := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		portfolio[h.Ticker] = h.Quantity
	}
	cash := user.Cash

	endOfDay := day.Add(24 * time.Hour)
	transactions, err := e.store.GetTransactionsAfter(userID, endOfDay)
	if err != nil {
		return decimal.Zero, err
	}
	for _, t := range transactions {
		if t.Buy {
			portfolio[t.Ticker] -= t.Quantity
			cash = cash.Add(t.Amount)
		} else {
			portfolio[t.Ticker] += t.Quantity
			cash = cash.Sub(t.Amount)
		}
	}

	total := cash
	for ticker, quantity := range portfolio {
		if quantity <= 0 {
			continue
		}
		price, err := e.oracle.HistoricalPrice(ctx, ticker, day)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to price %s on %s: %w", ticker, day.Format("2006-01-02"), err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(quantity)))
	}

	if !settled {
		return total, nil
	}

	pv := &models.PortfolioValue{UserID: userID, On: day, Value: total}
	if err := e.store.CreatePortfolioValue(pv); err != nil {
		return decimal.Zero, err
	}
	e.log.Debug().Int("user_id", userID).Str("on", day.Format("2006-01-02")).
		Str("value", pv.Value.String()).Int("replayed", len(transactions)).Msg("valuation cached")

	// pv carries the committed value; a concurrent computation of the same
	// day may have won the write race, in which case its value is the one
	// every caller sees.
	return pv.Value, nil
}

// ValueSeries returns the trailing daily valuations for the given number
// of days, ending yesterday, oldest first
func (e *Engine) ValueSeries(ctx context.Context, userID int, days int) ([]models.ValuePoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	today := dateOnly(e.now())
	points := make([]models.ValuePoint, 0, days)
	for i := days; i >= 1; i-- {
		on := today.AddDate(0, 0, -i)
		value, err := e.ValueOn(ctx, userID, on)
		if err != nil {
			return nil, err
		}
		points = append(points, models.ValuePoint{Date: on, Value: value})
	}
	return points, nil
}

// dateOnly truncates a timestamp to its UTC calendar date
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
