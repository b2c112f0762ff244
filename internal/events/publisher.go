package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/banking/sar-workbench/internal/config"
	"github.com/banking/sar-workbench/internal/domain"
)

// AuditPublisher emits committed audit events to Kafka, keyed by session so
// a session's events stay ordered within one partition.
type AuditPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewAuditPublisher connects a synchronous producer to the configured brokers.
func NewAuditPublisher(cfg config.KafkaConfig) (*AuditPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return NewAuditPublisherWithProducer(producer, cfg.AuditTopic), nil
}

// NewAuditPublisherWithProducer wraps an existing producer.
func NewAuditPublisherWithProducer(producer sarama.SyncProducer, topic string) *AuditPublisher {
	return &AuditPublisher{producer: producer, topic: topic}
}

func producerConfig(cfg config.KafkaConfig) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 5
	if cfg.EnableIdempotent {
		config.Producer.Idempotent = true
		config.Net.MaxOpenRequests = 1
	}
	return config
}

// Publish sends one ledger event.
func (p *AuditPublisher) Publish(_ context.Context, event *domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.SessionID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("action"), Value: []byte(event.Action)},
			{Key: []byte("case_id"), Value: []byte(event.CaseID)},
		},
		Timestamp: event.Timestamp,
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventID, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *AuditPublisher) Close() error {
	return p.producer.Close()
}
