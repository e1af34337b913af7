package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	segmentio "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkai/tickerbot/internal/models"
)

// MockRepository implements TradeAuditRepository for testing
type MockRepository struct {
	audits map[string]*models.TradeAudit // key: event ID
	nextID int

	CreateCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		audits: make(map[string]*models.TradeAudit),
		nextID: 1,
	}
}

func (m *MockRepository) CreateTradeAudit(a *models.TradeAudit) error {
	m.CreateCalls++
	a.ID = m.nextID
	m.nextID++
	m.audits[a.EventID] = a
	return nil
}

func (m *MockRepository) TradeAuditExists(eventID string) (bool, error) {
	_, exists := m.audits[eventID]
	return exists, nil
}

func newTestConsumer(repo TradeAuditRepository) *Consumer {
	return &Consumer{repo: repo, log: zerolog.Nop()}
}

func tradeEventMessage(t *testing.T, event models.TradeEvent) segmentio.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return segmentio.Message{Key: []byte("1"), Value: data}
}

func TestProcessMessage(t *testing.T) {
	executedAt := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
	event := models.TradeEvent{
		EventType:  "TRADE_EXECUTED",
		EventID:    "evt-1",
		UserID:     1,
		Ticker:     "AAPL",
		Side:       models.SideBuy,
		Quantity:   10,
		Amount:     decimal.NewFromFloat(500.00),
		ExecutedAt: executedAt,
	}

	t.Run("mirrors a trade event into the audit trail", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		err := consumer.processMessage(tradeEventMessage(t, event))
		require.NoError(t, err)

		audit, ok := repo.audits["evt-1"]
		require.True(t, ok)
		assert.Equal(t, 1, audit.UserID)
		assert.Equal(t, "AAPL", audit.Ticker)
		assert.Equal(t, models.SideBuy, audit.Side)
		assert.Equal(t, int64(10), audit.Quantity)
		assert.True(t, decimal.NewFromFloat(500.00).Equal(audit.Amount))
		assert.True(t, executedAt.Equal(audit.ExecutedAt))
	})

	t.Run("duplicate events are skipped", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		require.NoError(t, consumer.processMessage(tradeEventMessage(t, event)))
		require.NoError(t, consumer.processMessage(tradeEventMessage(t, event)))
		assert.Equal(t, 1, repo.CreateCalls)
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		other := event
		other.EventType = "USER_CREATED"
		other.EventID = "evt-2"
		require.NoError(t, consumer.processMessage(tradeEventMessage(t, other)))
		assert.Zero(t, repo.CreateCalls)
	})

	t.Run("malformed payloads fail", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		err := consumer.processMessage(segmentio.Message{Value: []byte("not json")})
		require.Error(t, err)
		assert.Zero(t, repo.CreateCalls)
	})
}
