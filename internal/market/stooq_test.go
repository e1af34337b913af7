package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStooqServer(t *testing.T, handler http.HandlerFunc) (*StooqClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewStooqClient(server.URL, 2*time.Second, zerolog.Nop()), server
}

func TestStooqCurrentPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("parses the close from the quote CSV", func(t *testing.T) {
		client, _ := newStooqServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/q/l/", r.URL.Path)
			assert.Equal(t, "aapl.us", r.URL.Query().Get("s"))
			w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
				"AAPL.US,2026-08-31,22:00:05,231.5,233.1,230.2,232.56,44120000\n"))
		})

		price, err := client.CurrentPrice(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "232.56", price.StringFixed(2))
	})

	t.Run("unknown symbols report price unavailable", func(t *testing.T) {
		client, _ := newStooqServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
				"NOPE.US,N/D,N/D,N/D,N/D,N/D,N/D,N/D\n"))
		})

		_, err := client.CurrentPrice(ctx, "NOPE")
		require.ErrorIs(t, err, ErrPriceUnavailable)
	})

	t.Run("server errors report price unavailable", func(t *testing.T) {
		client, _ := newStooqServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.CurrentPrice(ctx, "AAPL")
		require.ErrorIs(t, err, ErrPriceUnavailable)
	})
}

func TestStooqHistoricalPrice(t *testing.T) {
	ctx := context.Background()
	on := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	t.Run("uses the last trading day in the window", func(t *testing.T) {
		client, _ := newStooqServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/q/d/l/", r.URL.Path)
			assert.Equal(t, "20260824", r.URL.Query().Get("d2"))
			// The 24th is a Monday but the market closed early: last row wins.
			w.Write([]byte("Date,Open,High,Low,Close,Volume\n" +
				"2026-08-21,228.0,230.0,227.1,229.40,39000000\n" +
				"2026-08-24,229.5,231.0,228.9,230.10,41000000\n"))
		})

		price, err := client.HistoricalPrice(ctx, "AAPL", on)
		require.NoError(t, err)
		assert.Equal(t, "230.10", price.StringFixed(2))
	})

	t.Run("empty history reports price unavailable", func(t *testing.T) {
		client, _ := newStooqServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("Date,Open,High,Low,Close,Volume\n"))
		})

		_, err := client.HistoricalPrice(ctx, "AAPL", on)
		require.ErrorIs(t, err, ErrPriceUnavailable)
	})
}

func TestStooqSymbol(t *testing.T) {
	assert.Equal(t, "aapl.us", stooqSymbol("AAPL"))
	assert.Equal(t, "tlsa.de", stooqSymbol("TLSA.DE"))
}
