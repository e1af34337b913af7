package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/talkai/tickerbot/internal/models"
)

// TradeAuditRepository defines the interface for trade audit database operations
type TradeAuditRepository interface {
	CreateTradeAudit(a *models.TradeAudit) error
	TradeAuditExists(eventID string) (bool, error)
}

// Consumer mirrors trade events into the durable audit trail. The ledger
// itself is written synchronously at trade time; this stream is a second,
// independently consumable record.
type Consumer struct {
	reader *kafka.Reader
	repo   TradeAuditRepository
	log    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for trade events
func NewConsumer(brokers []string, topic, groupID string, repo TradeAuditRepository, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		log:    log.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.log.Error().Err(err).Msg("failed to read message")
				continue
			}

			if err := c.processMessage(msg); err != nil {
				c.log.Error().Err(err).Msg("failed to process message")
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	c.log.Debug().Int("partition", msg.Partition).Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).Msg("received message")

	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != "TRADE_EXECUTED" {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}

	// Check for duplicate (idempotency)
	exists, err := c.repo.TradeAuditExists(event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate event: %w", err)
	}
	if exists {
		c.log.Debug().Str("event_id", event.EventID).Msg("event already mirrored, skipping")
		return nil
	}

	audit := &models.TradeAudit{
		EventID:    event.EventID,
		UserID:     event.UserID,
		Ticker:     event.Ticker,
		Side:       event.Side,
		Quantity:   event.Quantity,
		Amount:     event.Amount,
		ExecutedAt: event.ExecutedAt,
	}
	if err := c.repo.CreateTradeAudit(audit); err != nil {
		return fmt.Errorf("failed to save trade audit: %w", err)
	}

	c.log.Info().Str("event_id", event.EventID).Int("user_id", event.UserID).
		Str("side", event.Side).Int64("quantity", event.Quantity).
		Str("ticker", event.Ticker).Msg("trade event mirrored")

	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
