package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/banking/sar-workbench/internal/config"
	"github.com/banking/sar-workbench/internal/domain"
	"go.uber.org/zap"
)

// LedgerWriter persists ledger events, typically the Postgres audit repository.
type LedgerWriter interface {
	CreateEvent(ctx context.Context, event *domain.LedgerEvent) error
}

// LedgerConsumer drains the audit topic into the durable ledger.
type LedgerConsumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       *ledgerConsumerHandler
	topics        []string
	logger        *zap.Logger
}

// NewLedgerConsumer joins the configured consumer group.
func NewLedgerConsumer(cfg config.KafkaConfig, writer LedgerWriter, logger *zap.Logger) (*LedgerConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &LedgerConsumer{
		consumerGroup: consumerGroup,
		handler:       newLedgerConsumerHandler(writer, logger),
		topics:        []string{cfg.AuditTopic},
		logger:        logger,
	}, nil
}

// Start consumes until ctx is cancelled.
func (c *LedgerConsumer) Start(ctx context.Context) error {
	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *LedgerConsumer) Close() error {
	return c.consumerGroup.Close()
}

type ledgerConsumerHandler struct {
	writer     LedgerWriter
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
}

func newLedgerConsumerHandler(writer LedgerWriter, logger *zap.Logger) *ledgerConsumerHandler {
	return &ledgerConsumerHandler{writer: writer, logger: logger, maxRetries: 3, backoff: time.Second}
}

func (h *ledgerConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *ledgerConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }
func (h *ledgerConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.processMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

// processMessage stores one event, retrying transient failures. Malformed
// messages are skipped. It reports whether the event reached the ledger.
func (h *ledgerConsumerHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var event domain.LedgerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal event", zap.String("topic", msg.Topic), zap.Error(err))
		return false
	}
	if err := event.Validate(); err != nil {
		h.logger.Error("Skipping malformed event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return false
	}

	for i := 0; i < h.maxRetries; i++ {
		err := h.writer.CreateEvent(ctx, &event)
		if err == nil {
			return true
		}
		h.logger.Error("Failed to store ledger event",
			zap.String("event_id", event.EventID.String()),
			zap.Error(err),
			zap.Int("retry", i+1),
		)
		if i < h.maxRetries-1 {
			time.Sleep(time.Duration(i+1) * h.backoff)
		}
	}
	h.logger.Error("Dropping event after retries", zap.String("event_id", event.EventID.String()))
	return false
}
