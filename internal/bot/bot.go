package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/talkai/tickerbot/internal/chart"
	"github.com/talkai/tickerbot/internal/ledger"
	"github.com/talkai/tickerbot/internal/market"
	"github.com/talkai/tickerbot/internal/models"
	"github.com/talkai/tickerbot/internal/valuation"
)

// defaultPlotDays is the trailing window for portfolio and comparison plots
const defaultPlotDays = 7

// Store is the slice of the ledger store the bot reads directly
type Store interface {
	GetUserByID(id int) (*models.User, error)
	GetHoldingsByUser(userID int) ([]*models.Holding, error)
}

type handlerFunc func(ctx context.Context, req *Request) (*Reply, error)

// Bot turns resolved intents into replies. Handlers live in a fixed
// dispatch table populated at construction.
type Bot struct {
	store    Store
	applier  *ledger.Applier
	engine   *valuation.Engine
	oracle   market.PriceOracle
	handlers map[Intent]handlerFunc
	log      zerolog.Logger
	now      func() time.Time // injectable clock for testing
}

// New creates a bot over the trading services
func New(store Store, applier *ledger.Applier, engine *valuation.Engine, oracle market.PriceOracle, log zerolog.Logger) *Bot {
	b := &Bot{
		store:   store,
		applier: applier,
		engine:  engine,
		oracle:  oracle,
		log:     log.With().Str("component", "bot").Logger(),
		now:     time.Now,
	}
	b.handlers = map[Intent]handlerFunc{
		IntentHelp:          b.handleHelp,
		IntentPrice:         b.handlePrice,
		IntentCash:          b.handleCash,
		IntentPortfolio:     b.handlePortfolio,
		IntentBuy:           b.handleBuy,
		IntentSell:          b.handleSell,
		IntentPortfolioPlot: b.handlePortfolioPlot,
		IntentPlotTicker:    b.handlePlotTicker,
		IntentInsights:      b.handleInsights,
		IntentCompare:       b.handleCompare,
		IntentRanking:       b.handleRanking,
	}
	return b
}

// Handle dispatches a request to its intent handler. Business rejections
// come back as ordinary replies; only infrastructure failures return an
// error.
func (b *Bot) Handle(ctx context.Context, req *Request) (*Reply, error) {
	handler, ok := b.handlers[req.Intent]
	if !ok {
		return nil, fmt.Errorf("no handler for intent %d", req.Intent)
	}
	return handler(ctx, req)
}

func (b *Bot) handleHelp(ctx context.Context, req *Request) (*Reply, error) {
	lines := []string{
		"You can request the current price of a ticker, or its price on a specific day.",
		"You can buy or sell shares, check your portfolio, or plot its performance.",
		"You can find out how you are doing compared to your team.",
	}
	return &Reply{
		Text:         strings.Join(lines, "\n"),
		QuickReplies: []string{"portfolio", "how am i doing?", "help"},
	}, nil
}

func (b *Bot) handlePrice(ctx context.Context, req *Request) (*Reply, error) {
	ticker := strings.ToUpper(req.Ticker)

	if req.On == nil || sameDay(*req.On, b.now()) {
		price, err := b.oracle.CurrentPrice(ctx, ticker)
		if err != nil {
			return b.priceFailure(ticker, err)
		}
		return &Reply{
			Text: fmt.Sprintf("%s price on %s: USD %s", ticker, b.now().Format("03:04:05 PM, Mon, 02 Jan 2006"), price.StringFixed(2)),
			QuickReplies: []string{
				fmt.Sprintf("buy %s", ticker),
				fmt.Sprintf("sell %s", ticker),
			},
		}, nil
	}

	price, err := b.oracle.HistoricalPrice(ctx, ticker, *req.On)
	if err != nil {
		return b.priceFailure(ticker, err)
	}
	return &Reply{
		Text: fmt.Sprintf("%s price on %s: USD %s", ticker, req.On.Format("02 Jan 2006"), price.StringFixed(2)),
		QuickReplies: []string{
			fmt.Sprintf("buy %s", ticker),
			fmt.Sprintf("sell %s", ticker),
		},
	}, nil
}

func (b *Bot) handleCash(ctx context.Context, req *Request) (*Reply, error) {
	user, err := b.store.GetUserByID(req.UserID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Text: fmt.Sprintf("You have $%s left in your account", user.Cash.StringFixed(2)),
	}, nil
}

func (b *Bot) handlePortfolio(ctx context.Context, req *Request) (*Reply, error) {
	user, err := b.store.GetUserByID(req.UserID)
	if err != nil {
		return nil, err
	}
	holdings, err := b.store.GetHoldingsByUser(req.UserID)
	if err != nil {
		return nil, err
	}

	var lines []string
	total := user.Cash
	for _, h := range holdings {
		price, err := b.oracle.CurrentPrice(ctx, h.Ticker)
		if err != nil {
			return b.priceFailure(h.Ticker, err)
		}
		value := price.Mul(decimal.NewFromInt(h.Quantity))
		total = total.Add(value)
		lines = append(lines, fmt.Sprintf("%d share(s) of %s: $%s", h.Quantity, h.Ticker, value.StringFixed(2)))
	}
	lines = append(lines, fmt.Sprintf("Cash: $%s", user.Cash.StringFixed(2)))
	lines = append(lines, fmt.Sprintf("Total portfolio value: $%s", total.StringFixed(2)))

	return &Reply{
		Text:         strings.Join(lines, "\n"),
		QuickReplies: []string{"portfolio plot", "how am i doing?"},
	}, nil
}

func (b *Bot) handleBuy(ctx context.Context, req *Request) (*Reply, error) {
	receipt, err := b.applier.Buy(ctx, req.UserID, req.Ticker, req.Quantity)
	if err != nil {
		return b.tradeFailure(req, err)
	}
	return &Reply{
		Text:         fmt.Sprintf("Transaction complete. You have $%s left in your account", receipt.Cash.StringFixed(2)),
		QuickReplies: []string{"portfolio"},
	}, nil
}

func (b *Bot) handleSell(ctx context.Context, req *Request) (*Reply, error) {
	receipt, err := b.applier.Sell(ctx, req.UserID, req.Ticker, req.Quantity)
	if err != nil {
		return b.tradeFailure(req, err)
	}
	return &Reply{
		Text:         fmt.Sprintf("Transaction complete. You have $%s left in your account", receipt.Cash.StringFixed(2)),
		QuickReplies: []string{"portfolio"},
	}, nil
}

func (b *Bot) handlePortfolioPlot(ctx context.Context, req *Request) (*Reply, error) {
	days := plotWindow(req.Days)

	points, err := b.engine.ValueSeries(ctx, req.UserID, days)
	if err != nil {
		return nil, err
	}

	title := chart.TitleRange("Portfolio plot", points[0].Date, points[len(points)-1].Date)
	image, err := chart.Render([]chart.Series{{Name: "Portfolio", Points: points}}, title)
	if err != nil {
		return nil, err
	}
	return &Reply{Text: title, Image: image}, nil
}

func (b *Bot) handlePlotTicker(ctx context.Context, req *Request) (*Reply, error) {
	days := plotWindow(req.Days)
	ticker := strings.ToUpper(req.Ticker)

	points, err := b.priceSeries(ctx, ticker, days)
	if err != nil {
		return b.priceFailure(ticker, err)
	}

	title := chart.TitleRange(fmt.Sprintf("%s price", ticker),
		points[0].Date, points[len(points)-1].Date)
	image, err := chart.Render([]chart.Series{{Name: ticker, Points: points}}, title)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Text:  title,
		Image: image,
		QuickReplies: []string{
			fmt.Sprintf("insights %s", ticker),
			fmt.Sprintf("compare %s with SPY", ticker),
		},
	}, nil
}

func (b *Bot) handleInsights(ctx context.Context, req *Request) (*Reply, error) {
	days := plotWindow(req.Days)
	ticker := strings.ToUpper(req.Ticker)

	points, err := b.priceSeries(ctx, ticker, days)
	if err != nil {
		return b.priceFailure(ticker, err)
	}

	first, last := points[0].Value, points[len(points)-1].Value
	peak, low := first, first
	for _, p := range points[1:] {
		if p.Value.GreaterThan(peak) {
			peak = p.Value
		}
		if p.Value.LessThan(low) {
			low = p.Value
		}
	}

	lines := []string{
		fmt.Sprintf("The price has dropped %s%% from its peak", percentChange(peak, last).Abs().StringFixed(2)),
		fmt.Sprintf("The price has risen %s%% from its low", percentChange(low, last).StringFixed(2)),
		fmt.Sprintf("The price changed by %s%% from start to end", percentChange(first, last).StringFixed(2)),
	}
	return &Reply{
		Text: strings.Join(lines, "\n"),
		QuickReplies: []string{
			fmt.Sprintf("plot %s", ticker),
			fmt.Sprintf("compare %s with SPY", ticker),
		},
	}, nil
}

func (b *Bot) handleCompare(ctx context.Context, req *Request) (*Reply, error) {
	days := plotWindow(req.Days)
	base := strings.ToUpper(req.Ticker)
	other := strings.ToUpper(req.OtherTicker)

	baseSeries, err := b.priceSeries(ctx, base, days)
	if err != nil {
		return b.priceFailure(base, err)
	}
	otherSeries, err := b.priceSeries(ctx, other, days)
	if err != nil {
		return b.priceFailure(other, err)
	}

	title := chart.TitleRange(fmt.Sprintf("Comparison of %s with %s", base, other),
		baseSeries[0].Date, baseSeries[len(baseSeries)-1].Date)
	image, err := chart.Render([]chart.Series{
		{Name: base, Points: baseSeries},
		{Name: other, Points: otherSeries},
	}, title)
	if err != nil {
		return nil, err
	}
	return &Reply{Text: title, Image: image}, nil
}

func (b *Bot) handleRanking(ctx context.Context, req *Request) (*Reply, error) {
	standing, err := b.engine.Standing(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, market.ErrPriceUnavailable) {
			return b.priceFailure("your team's holdings", err)
		}
		return nil, err
	}

	lines := []string{
		fmt.Sprintf("The top performer in your team is %s with a portfolio value of $%s",
			standing.Best.User.NaturalIdentifier(), standing.Best.Value.StringFixed(2)),
		fmt.Sprintf("You are ranked %d with a portfolio value of $%s",
			standing.Rank, standing.Value.Value.StringFixed(2)),
	}
	if standing.Ahead != nil {
		lines = append(lines, fmt.Sprintf("%s is just ahead of you, with a portfolio value of $%s",
			standing.Ahead.User.NaturalIdentifier(), standing.Ahead.Value.StringFixed(2)))
	}
	if standing.Behind != nil {
		lines = append(lines, fmt.Sprintf("%s is just behind you, with a portfolio value of $%s",
			standing.Behind.User.NaturalIdentifier(), standing.Behind.Value.StringFixed(2)))
	}
	return &Reply{Text: strings.Join(lines, "\n")}, nil
}

// plotWindow normalizes a requested trailing window. Charts need at least
// two points, so anything shorter falls back to the default.
func plotWindow(days int) int {
	if days < 2 {
		return defaultPlotDays
	}
	return days
}

// percentChange returns the percentage move from start to end
func percentChange(start, end decimal.Decimal) decimal.Decimal {
	return end.Sub(start).Div(start).Mul(decimal.NewFromInt(100))
}

// priceSeries samples daily historical prices over the trailing window,
// ending yesterday
func (b *Bot) priceSeries(ctx context.Context, ticker string, days int) ([]models.ValuePoint, error) {
	today := dateOnly(b.now())
	points := make([]models.ValuePoint, 0, days)
	for i := days; i >= 1; i-- {
		on := today.AddDate(0, 0, -i)
		price, err := b.oracle.HistoricalPrice(ctx, ticker, on)
		if err != nil {
			return nil, err
		}
		points = append(points, models.ValuePoint{Date: on, Value: price})
	}
	return points, nil
}

// tradeFailure translates business rejections into user-facing replies.
// Anything that is not an expected outcome propagates as an error.
func (b *Bot) tradeFailure(req *Request, err error) (*Reply, error) {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		return &Reply{
			Text: fmt.Sprintf("You don't have enough funds to buy %d share(s) of %s",
				req.Quantity, strings.ToUpper(req.Ticker)),
		}, nil
	case errors.Is(err, models.ErrNoPosition):
		return &Reply{Text: "There is no point to this..."}, nil
	case errors.Is(err, models.ErrInvalidQuantity):
		return &Reply{Text: "You can only trade a positive whole number of shares"}, nil
	case errors.Is(err, market.ErrPriceUnavailable):
		return b.priceFailure(strings.ToUpper(req.Ticker), err)
	default:
		return nil, err
	}
}

func (b *Bot) priceFailure(what string, err error) (*Reply, error) {
	if errors.Is(err, market.ErrPriceUnavailable) {
		b.log.Warn().Err(err).Msg("price lookup failed")
		return &Reply{
			Text: fmt.Sprintf("I could not get a price for %s right now. Please try again later.", what),
		}, nil
	}
	return nil, err
}

func sameDay(a, b time.Time) bool {
	return dateOnly(a).Equal(dateOnly(b))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
