package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// YahooClient fetches quotes from the Yahoo Finance chart API
type YahooClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewYahooClient creates a Yahoo client with the given request timeout
func NewYahooClient(baseURL string, timeout time.Duration, log zerolog.Logger) *YahooClient {
	return &YahooClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "yahoo").Logger(),
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// CurrentPrice returns the regular market price from the chart metadata
func (c *YahooClient) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "1d")

	chart, err := c.fetchChart(ctx, ticker, q)
	if err != nil {
		return decimal.Zero, err
	}

	price := chart.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no market price for %s", ErrPriceUnavailable, ticker)
	}
	return decimal.NewFromFloat(price), nil
}

// HistoricalPrice returns the last daily close at or before the given date
func (c *YahooClient) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	endOfDay := on.Add(24 * time.Hour)
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(on.Add(-historicalBuffer).Unix(), 10))
	q.Set("period2", strconv.FormatInt(endOfDay.Unix(), 10))

	chart, err := c.fetchChart(ctx, ticker, q)
	if err != nil {
		return decimal.Zero, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no quote data for %s", ErrPriceUnavailable, ticker)
	}
	closes := result.Indicators.Quote[0].Close

	// Walk backwards for the last bar with a close; nulls mark non-trading days.
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil && i < len(result.Timestamp) {
			return decimal.NewFromFloat(*closes[i]), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no close for %s on %s", ErrPriceUnavailable, ticker, on.Format("2006-01-02"))
}

func (c *YahooClient) fetchChart(ctx context.Context, ticker string, q url.Values) (*yahooChartResponse, error) {
	rawURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(strings.ToUpper(ticker)) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "tickerbot/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("yahoo request failed")
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo returned %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("%w: bad response: %v", ErrPriceUnavailable, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrPriceUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty result for %s", ErrPriceUnavailable, ticker)
	}
	return &chart, nil
}
