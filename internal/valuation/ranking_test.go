package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkai/tickerbot/internal/market"
	"github.com/talkai/tickerbot/internal/models"
)

func rankingFixture(now time.Time) (*MockStore, *MockOracle) {
	store := NewMockStore()
	epoch := now.AddDate(0, 0, -30)

	// Three players: carol leads, alice and bob are tied behind her.
	store.users[1] = &models.User{ID: 1, Email: "alice@example.com", Name: "Alice", TeamID: "T1",
		Cash: mustDecimal("300.00"), ResetOn: epoch}
	store.users[2] = &models.User{ID: 2, Email: "bob@example.com", TeamID: "T1",
		Cash: mustDecimal("300.00"), ResetOn: epoch}
	store.users[3] = &models.User{ID: 3, Email: "carol@example.com", Name: "Carol", TeamID: "T1",
		Cash: mustDecimal("120.50"), ResetOn: epoch}
	store.holdings[3] = []*models.Holding{{UserID: 3, Ticker: "AAPL", Quantity: 10}}

	oracle := &MockOracle{current: map[string]decimal.Decimal{"AAPL": mustDecimal("50.00")}}
	return store, oracle
}

func TestRankTeam(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("orders by value with ties in account order", func(t *testing.T) {
		store, oracle := rankingFixture(now)
		engine := newTestEngine(store, oracle, now)

		ranked, err := engine.RankTeam(ctx, "T1")
		require.NoError(t, err)
		require.Len(t, ranked, 3)

		// carol: 120.50 + 10*50 = 620.50; alice and bob tied at 300
		assert.Equal(t, 3, ranked[0].User.ID)
		assert.True(t, mustDecimal("620.50").Equal(ranked[0].Value))
		assert.Equal(t, 1, ranked[1].User.ID)
		assert.Equal(t, 2, ranked[2].User.ID)
	})

	t.Run("fails when any member cannot be valued", func(t *testing.T) {
		store, oracle := rankingFixture(now)
		delete(oracle.current, "AAPL")
		engine := newTestEngine(store, oracle, now)

		_, err := engine.RankTeam(ctx, "T1")
		require.ErrorIs(t, err, market.ErrPriceUnavailable)
	})
}

func TestStanding(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("middle of the pack sees leader and both neighbors", func(t *testing.T) {
		store, oracle := rankingFixture(now)
		engine := newTestEngine(store, oracle, now)

		standing, err := engine.Standing(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, 2, standing.Rank)
		assert.Equal(t, 3, standing.Best.User.ID)
		assert.Equal(t, "Carol", standing.Best.User.NaturalIdentifier())
		require.NotNil(t, standing.Ahead)
		assert.Equal(t, 3, standing.Ahead.User.ID)
		require.NotNil(t, standing.Behind)
		assert.Equal(t, 2, standing.Behind.User.ID)
	})

	t.Run("leader has nobody ahead", func(t *testing.T) {
		store, oracle := rankingFixture(now)
		engine := newTestEngine(store, oracle, now)

		standing, err := engine.Standing(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, standing.Rank)
		assert.Nil(t, standing.Ahead)
		require.NotNil(t, standing.Behind)
		assert.Equal(t, 1, standing.Behind.User.ID)
	})

	t.Run("last place has nobody behind", func(t *testing.T) {
		store, oracle := rankingFixture(now)
		engine := newTestEngine(store, oracle, now)

		standing, err := engine.Standing(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, standing.Rank)
		require.NotNil(t, standing.Ahead)
		assert.Nil(t, standing.Behind)
	})
}
