package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/autthapolsaiyat/investigates-sub004/internal/config"
	"github.com/autthapolsaiyat/investigates-sub004/internal/engine"
	"github.com/autthapolsaiyat/investigates-sub004/internal/metrics"
)

// Producer publishes run lifecycle events.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewProducer creates a synchronous Kafka producer for completion
// events.
func NewProducer(cfg config.KafkaConfig, collector *metrics.Collector, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return &Producer{
		producer: producer,
		topic:    cfg.ImportCompletedTopic,
		metrics:  collector,
		logger:   logger,
	}, nil
}

// PublishImportCompleted publishes a run-completion event keyed by run
// id.
func (p *Producer) PublishImportCompleted(_ context.Context, event *engine.ImportCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.RunID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("import.completed")},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		p.metrics.KafkaEventsPublished.WithLabelValues(p.topic, "error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.metrics.KafkaEventsPublished.WithLabelValues(p.topic, "success").Inc()
	p.logger.Debug("Published completion event",
		"run_id", event.RunID,
		"partition", partition,
		"offset", offset)
	return nil
}

// Close shuts the producer down.
func (p *Producer) Close() error {
	return p.producer.Close()
}
