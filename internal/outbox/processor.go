package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/domain"
	"coursepay/internal/infrastructure/database"
	kafka_infra "coursepay/internal/infrastructure/kafka"
	"coursepay/internal/metrics"
)

type OutboxRepository interface {
	GetPendingMessagesTx(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxMessage, error)
	UpdateMessageStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OutboxMessageStatus) error
}

type Config struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	BatchSize    int
}

// Processor relays pending outbox rows to Kafka. Rows are claimed with
// FOR UPDATE SKIP LOCKED, so several replicas can poll the same table.
type Processor struct {
	tx         database.TxManager
	outboxRepo OutboxRepository
	producer   kafka_infra.Producer
	cfg        Config
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewProcessor(
	tx database.TxManager,
	outboxRepo OutboxRepository,
	producer kafka_infra.Producer,
	cfg Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Processor {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Processor{
		tx:         tx,
		outboxRepo: outboxRepo,
		producer:   producer,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("Starting outbox processor...",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("batch_size", p.cfg.BatchSize))
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopped.")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("Error processing outbox", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many rows were marked SENT.
// A row whose publish fails stays PENDING for the next poll.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	pollCtx, cancel := context.WithTimeout(ctx, p.cfg.PollTimeout)
	defer cancel()

	sent := 0
	err := p.tx.WithinTx(pollCtx, func(q domain.Querier) error {
		messages, err := p.outboxRepo.GetPendingMessagesTx(pollCtx, q, p.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to get pending outbox messages: %w", err)
		}
		if len(messages) == 0 {
			p.logger.Debug("No pending outbox messages found.")
			return nil
		}
		p.logger.Info("Found pending outbox messages", zap.Int("count", len(messages)))

		for _, msg := range messages {
			if err := p.producer.Produce(pollCtx, msg.Key, msg.Topic, msg.Payload); err != nil {
				p.metrics.OutboxPublishFails.Inc()
				p.logger.Error("Failed to send message to Kafka",
					zap.String("message_id", msg.ID),
					zap.String("message_type", msg.MessageType),
					zap.String("topic", msg.Topic),
					zap.Error(err))
				continue
			}
			if err := p.outboxRepo.UpdateMessageStatusTx(pollCtx, q, msg.ID, domain.OutboxStatusSent); err != nil {
				return fmt.Errorf("failed to mark outbox message %s as sent: %w", msg.ID, err)
			}
			sent++
			p.logger.Debug("Outbox message sent",
				zap.String("message_id", msg.ID),
				zap.String("message_type", msg.MessageType),
				zap.String("key", msg.Key))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	p.metrics.OutboxPublished.Add(float64(sent))
	return sent, nil
}
