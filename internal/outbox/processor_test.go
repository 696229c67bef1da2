package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursepay/internal/domain"
	"coursepay/internal/metrics"
)

type MockTxManager struct {
	Committed  int
	RolledBack int
}

func (m *MockTxManager) WithinTx(_ context.Context, fn func(q domain.Querier) error) error {
	if err := fn(nil); err != nil {
		m.RolledBack++
		return err
	}
	m.Committed++
	return nil
}

type MockOutboxRepository struct {
	mu        sync.Mutex
	Messages  []domain.OutboxMessage
	GetErr    error
	UpdateErr error
}

func (m *MockOutboxRepository) GetPendingMessagesTx(_ context.Context, _ domain.Querier, limit int) ([]domain.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var pending []domain.OutboxMessage
	for _, msg := range m.Messages {
		if msg.Status == domain.OutboxStatusPending && len(pending) < limit {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

func (m *MockOutboxRepository) UpdateMessageStatusTx(_ context.Context, _ domain.Querier, id string, status domain.OutboxMessageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for i := range m.Messages {
		if m.Messages[i].ID == id {
			m.Messages[i].Status = status
		}
	}
	return nil
}

func (m *MockOutboxRepository) status(id string) domain.OutboxMessageStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if msg.ID == id {
			return msg.Status
		}
	}
	return ""
}

type producedMessage struct {
	Key, Topic string
	Value      []byte
}

type MockProducer struct {
	mu       sync.Mutex
	Produced []producedMessage
	FailKeys map[string]bool
}

func (m *MockProducer) Produce(_ context.Context, key, topic string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailKeys[key] {
		return errors.New("broker not available")
	}
	m.Produced = append(m.Produced, producedMessage{Key: key, Topic: topic, Value: value})
	return nil
}

func (m *MockProducer) Close() error { return nil }

func (m *MockProducer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Produced)
}

func pending(id, key string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:          id,
		AggregateID: key,
		MessageType: domain.EventEnrollmentCreated,
		Topic:       "course_enrollments",
		Key:         key,
		Payload:     []byte(`{"type":"enrollment.created"}`),
		Status:      domain.OutboxStatusPending,
		CreatedAt:   time.Now(),
	}
}

func newProcessor(repo *MockOutboxRepository, producer *MockProducer, m *metrics.Metrics) *Processor {
	return NewProcessor(&MockTxManager{}, repo, producer, Config{
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  time.Second,
		BatchSize:    2,
	}, m, zap.NewNop())
}

func TestProcessBatch_PublishesAndMarksSent(t *testing.T) {
	repo := &MockOutboxRepository{Messages: []domain.OutboxMessage{pending("m1", "1"), pending("m2", "2"), pending("m3", "3")}}
	producer := &MockProducer{}
	m := metrics.New(prometheus.NewRegistry())
	p := newProcessor(repo, producer, m)

	sent, err := p.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, producer.Produced, 2)
	assert.Equal(t, "1", producer.Produced[0].Key)
	assert.Equal(t, "course_enrollments", producer.Produced[0].Topic)
	assert.Equal(t, domain.OutboxStatusSent, repo.status("m1"))
	assert.Equal(t, domain.OutboxStatusSent, repo.status("m2"))
	assert.Equal(t, domain.OutboxStatusPending, repo.status("m3"))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxPublished))
}

func TestProcessBatch_FailedPublishStaysPending(t *testing.T) {
	repo := &MockOutboxRepository{Messages: []domain.OutboxMessage{pending("m1", "1"), pending("m2", "2")}}
	producer := &MockProducer{FailKeys: map[string]bool{"1": true}}
	m := metrics.New(prometheus.NewRegistry())
	p := newProcessor(repo, producer, m)

	sent, err := p.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, domain.OutboxStatusPending, repo.status("m1"))
	assert.Equal(t, domain.OutboxStatusSent, repo.status("m2"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxPublishFails))
}

func TestProcessBatch_RepositoryErrors(t *testing.T) {
	t.Run("claim fails", func(t *testing.T) {
		repo := &MockOutboxRepository{GetErr: errors.New("connection refused")}
		p := newProcessor(repo, &MockProducer{}, nil)

		_, err := p.ProcessBatch(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get pending outbox messages")
	})

	t.Run("status update fails", func(t *testing.T) {
		repo := &MockOutboxRepository{
			Messages:  []domain.OutboxMessage{pending("m1", "1")},
			UpdateErr: errors.New("tx aborted"),
		}
		p := newProcessor(repo, &MockProducer{}, nil)

		sent, err := p.ProcessBatch(context.Background())

		require.Error(t, err)
		assert.Zero(t, sent)
	})
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &MockOutboxRepository{Messages: []domain.OutboxMessage{pending("m1", "1")}}
	producer := &MockProducer{}
	p := newProcessor(repo, producer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return producer.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after cancellation")
	}
	assert.Equal(t, domain.OutboxStatusSent, repo.status("m1"))
}
