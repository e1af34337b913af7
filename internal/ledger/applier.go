package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/talkai/tickerbot/internal/market"
	"github.com/talkai/tickerbot/internal/models"
)

// Store is the slice of the ledger store the applier needs. The Execute
// methods are single atomic commits: all of their mutations land together
// or not at all.
type Store interface {
	GetHolding(userID int, ticker string) (*models.Holding, error)
	ExecuteBuy(userID int, ticker string, quantity int64, amount decimal.Decimal) (decimal.Decimal, *models.Transaction, error)
	ExecuteSell(userID int, ticker string, quantity int64, amount decimal.Decimal) (decimal.Decimal, *models.Transaction, error)
}

// EventPublisher publishes trade events after a commit
type EventPublisher interface {
	PublishTradeExecuted(ctx context.Context, event *models.TradeEvent) error
}

// Receipt describes a committed trade
type Receipt struct {
	Ticker   string          `json:"ticker"`
	Side     string          `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Cash     decimal.Decimal `json:"cash"`
}

// Applier validates and applies buy and sell orders. Application is
// serialized per account: the price lookup and the commit happen under the
// account's mutex, so concurrent orders for one user cannot interleave.
type Applier struct {
	store  Store
	oracle market.PriceOracle
	events EventPublisher
	locks  *accountLocks
	log    zerolog.Logger
}

// NewApplier creates a transaction applier. events may be nil, in which
// case no trade events are published.
func NewApplier(store Store, oracle market.PriceOracle, events EventPublisher, log zerolog.Logger) *Applier {
	return &Applier{
		store:  store,
		oracle: oracle,
		events: events,
		locks:  newAccountLocks(),
		log:    log.With().Str("component", "ledger").Logger(),
	}
}

// Buy purchases quantity shares of ticker at the current market price.
// Fails with models.ErrInvalidQuantity before any oracle call, with
// market.ErrPriceUnavailable when the oracle cannot answer, and with
// models.ErrInsufficientFunds when the cost exceeds the user's cash.
// On any failure nothing is mutated.
func (a *Applier) Buy(ctx context.Context, userID int, ticker string, quantity int64) (*Receipt, error) {
	if quantity <= 0 {
		return nil, models.ErrInvalidQuantity
	}
	ticker = normalizeTicker(ticker)

	lock := a.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	price, err := a.oracle.CurrentPrice(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to price %s: %w", ticker, err)
	}
	amount := price.Mul(decimal.NewFromInt(quantity))

	newCash, record, err := a.store.ExecuteBuy(userID, ticker, quantity, amount)
	if err != nil {
		return nil, err
	}

	a.log.Info().Int("user_id", userID).Str("ticker", ticker).
		Int64("quantity", quantity).Str("amount", amount.String()).Msg("buy committed")
	a.publish(ctx, record)

	return &Receipt{
		Ticker:   ticker,
		Side:     models.SideBuy,
		Quantity: quantity,
		Price:    price,
		Amount:   amount,
		Cash:     newCash,
	}, nil
}

// Sell disposes of shares of ticker at the current market price. A
// quantity of zero means "all"; a request exceeding the held quantity is
// clamped to it — selling everything is the default, not an error. Fails
// with models.ErrNoPosition when the user holds nothing of the ticker.
func (a *Applier) Sell(ctx context.Context, userID int, ticker string, quantity int64) (*Receipt, error) {
	if quantity < 0 {
		return nil, models.ErrInvalidQuantity
	}
	ticker = normalizeTicker(ticker)

	lock := a.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	holding, err := a.store.GetHolding(userID, ticker)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return nil, models.ErrNoPosition
	}
	if quantity == 0 || quantity > holding.Quantity {
		quantity = holding.Quantity
	}

	price, err := a.oracle.CurrentPrice(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to price %s: %w", ticker, err)
	}
	amount := price.Mul(decimal.NewFromInt(quantity))

	newCash, record, err := a.store.ExecuteSell(userID, ticker, quantity, amount)
	if err != nil {
		return nil, err
	}

	a.log.Info().Int("user_id", userID).Str("ticker", ticker).
		Int64("quantity", quantity).Str("amount", amount.String()).Msg("sell committed")
	a.publish(ctx, record)

	return &Receipt{
		Ticker:   ticker,
		Side:     models.SideSell,
		Quantity: quantity,
		Price:    price,
		Amount:   amount,
		Cash:     newCash,
	}, nil
}

// publish emits a trade event best-effort; a broker outage must never fail
// a committed trade
func (a *Applier) publish(ctx context.Context, record *models.Transaction) {
	if a.events == nil {
		return
	}
	event := &models.TradeEvent{
		EventType:  "TRADE_EXECUTED",
		EventID:    uuid.NewString(),
		UserID:     record.UserID,
		Ticker:     record.Ticker,
		Side:       record.Side(),
		Quantity:   record.Quantity,
		Amount:     record.Amount,
		ExecutedAt: record.CreatedAt,
	}
	if err := a.events.PublishTradeExecuted(ctx, event); err != nil {
		a.log.Warn().Err(err).Str("event_id", event.EventID).Msg("failed to publish trade event")
	}
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
