package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IBM/sarama"

	"github.com/autthapolsaiyat/investigates-sub004/internal/config"
	"github.com/autthapolsaiyat/investigates-sub004/internal/engine"
	"github.com/autthapolsaiyat/investigates-sub004/internal/metrics"
)

// ImportRequestedEvent asks the service to analyze source files that
// another service has staged on shared storage.
type ImportRequestedEvent struct {
	CaseID    int      `json:"case_id"`
	FilePaths []string `json:"file_paths"`
	CreatedBy string   `json:"created_by,omitempty"`
}

// Consumer consumes import requests from Kafka and feeds them to the
// engine.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	engine        *engine.Engine
	topic         string
	metrics       *metrics.Collector
	logger        *slog.Logger
}

// NewConsumer creates a consumer-group consumer for import requests.
func NewConsumer(cfg config.KafkaConfig, eng *engine.Engine, collector *metrics.Collector, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		engine:        eng,
		topic:         cfg.ImportRequestedTopic,
		metrics:       collector,
		logger:        logger,
	}, nil
}

// Start runs the consume loop until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &requestHandler{
		engine:  c.engine,
		topic:   c.topic,
		metrics: c.metrics,
		logger:  c.logger,
	}

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("Consumer group error", "error", err)
		}
	}()

	for {
		if err := c.consumerGroup.Consume(ctx, []string{c.topic}, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Consume failed, retrying", "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close shuts the consumer group down.
func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

type requestHandler struct {
	engine  *engine.Engine
	topic   string
	metrics *metrics.Collector
	logger  *slog.Logger
}

func (h *requestHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *requestHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *requestHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handle(session.Context(), message); err != nil {
			h.metrics.KafkaEventsConsumed.WithLabelValues(h.topic, "error").Inc()
			h.logger.Error("Failed to handle import request",
				"partition", message.Partition,
				"offset", message.Offset,
				"error", err)
		} else {
			h.metrics.KafkaEventsConsumed.WithLabelValues(h.topic, "success").Inc()
		}
		// Bad events are logged and skipped; reprocessing them would
		// fail the same way.
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *requestHandler) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event ImportRequestedEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.CaseID <= 0 {
		return fmt.Errorf("invalid case_id %d", event.CaseID)
	}

	files, closeAll, err := openStagedFiles(event.FilePaths)
	if err != nil {
		return err
	}
	defer closeAll()

	run, err := h.engine.Analyze(ctx, event.CaseID, files, event.CreatedBy)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	h.logger.Info("Handled import request",
		"run_id", run.ID,
		"case_id", event.CaseID,
		"status", run.Status)
	return nil
}

func openStagedFiles(paths []string) ([]engine.SourceFile, func(), error) {
	var files []engine.SourceFile
	var handles []*os.File

	closeAll := func() {
		for _, f := range handles {
			f.Close()
		}
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open staged file %s: %w", path, err)
		}
		handles = append(handles, f)
		files = append(files, engine.SourceFile{
			Name:   filepath.Base(path),
			Reader: f,
		})
	}

	return files, closeAll, nil
}
