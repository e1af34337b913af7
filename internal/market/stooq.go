package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StooqClient fetches quotes from the Stooq CSV endpoints
type StooqClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewStooqClient creates a Stooq client with the given request timeout
func NewStooqClient(baseURL string, timeout time.Duration, log zerolog.Logger) *StooqClient {
	return &StooqClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "stooq").Logger(),
	}
}

// CurrentPrice returns the latest close from the Stooq quote endpoint
func (c *StooqClient) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("s", stooqSymbol(ticker))
	q.Set("f", "sd2t2ohlcv")
	q.Set("h", "")
	q.Set("e", "csv")

	records, err := c.fetchCSV(ctx, c.baseURL+"/q/l/?"+q.Encode())
	if err != nil {
		return decimal.Zero, err
	}
	// Header row plus one quote row; close is the 7th column.
	if len(records) < 2 || len(records[1]) < 7 {
		return decimal.Zero, fmt.Errorf("%w: empty quote for %s", ErrPriceUnavailable, ticker)
	}

	price, err := decimal.NewFromString(records[1][6])
	if err != nil {
		// Stooq reports unknown symbols as "N/D" fields.
		return decimal.Zero, fmt.Errorf("%w: no quote for %s", ErrPriceUnavailable, ticker)
	}
	return price, nil
}

// HistoricalPrice returns the close on the last trading day at or before
// the given date, scanning back over the buffer window for weekends and
// holidays
func (c *StooqClient) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	from := on.Add(-historicalBuffer)
	q := url.Values{}
	q.Set("s", stooqSymbol(ticker))
	q.Set("d1", from.Format("20060102"))
	q.Set("d2", on.Format("20060102"))
	q.Set("i", "d")

	records, err := c.fetchCSV(ctx, c.baseURL+"/q/d/l/?"+q.Encode())
	if err != nil {
		return decimal.Zero, err
	}
	// Daily CSV: Date,Open,High,Low,Close,Volume — rows in ascending date
	// order. The last row is the most recent trading day in the window.
	if len(records) < 2 {
		return decimal.Zero, fmt.Errorf("%w: no data for %s on %s", ErrPriceUnavailable, ticker, on.Format("2006-01-02"))
	}
	last := records[len(records)-1]
	if len(last) < 5 {
		return decimal.Zero, fmt.Errorf("%w: malformed row for %s", ErrPriceUnavailable, ticker)
	}

	price, err := decimal.NewFromString(last[4])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: no close for %s on %s", ErrPriceUnavailable, ticker, on.Format("2006-01-02"))
	}
	return price, nil
}

func (c *StooqClient) fetchCSV(ctx context.Context, rawURL string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("url", rawURL).Msg("stooq request failed")
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: stooq returned %d", ErrPriceUnavailable, resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: bad csv: %v", ErrPriceUnavailable, err)
	}
	return records, nil
}

// stooqSymbol maps a bare US ticker to Stooq's suffixed form. Tickers that
// already carry an exchange suffix pass through unchanged.
func stooqSymbol(ticker string) string {
	s := strings.ToLower(ticker)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".us"
}
