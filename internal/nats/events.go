package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/pkg/logger"
	"github.com/eduresolve/support-platform/pkg/metrics"
)

const (
	// StreamName is the name of the lifecycle events stream.
	StreamName = "SUPPORT_EVENTS"

	// SubjectPrefix is the prefix for all lifecycle subjects.
	SubjectPrefix = "support"
)

// Publisher sends lifecycle events somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, event *model.ConversationEvent) error
}

// EventSubject returns the subject for an event.
func EventSubject(conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, conversationID, eventType)
}

// ConversationFilter returns the filter subject for all events of a conversation.
func ConversationFilter(conversationID string) string {
	return fmt.Sprintf("%s.%s.event.>", SubjectPrefix, conversationID)
}

// TypeFilter returns the filter subject for one event type across conversations.
func TypeFilter(eventType model.EventType) string {
	return fmt.Sprintf("%s.*.event.%s", SubjectPrefix, eventType)
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
	logger *logger.Logger
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client, log *logger.Logger) *StreamManager {
	return &StreamManager{client: client, logger: log}
}

// EnsureStream ensures the events stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		Description: "Support conversation lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	m.logger.Info("created JetStream stream", zap.String("stream", StreamName))
	return nil
}

// Publish publishes an event to JetStream and records its stream sequence.
func (m *StreamManager) Publish(ctx context.Context, event *model.ConversationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, EventSubject(event.ConversationID, event.Type), data,
		jetstream.WithMsgID(event.ID))
	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	event.Sequence = ack.Sequence
	metrics.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

// History replays the events of one conversation in stream order.
func (m *StreamManager) History(ctx context.Context, conversationID string, limit int) ([]model.ConversationEvent, error) {
	consumer, err := m.client.JetStream().OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ConversationFilter(conversationID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	info, err := consumer.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect consumer: %w", err)
	}
	pending := int(info.NumPending)
	if pending == 0 {
		return []model.ConversationEvent{}, nil
	}
	if limit <= 0 || limit > pending {
		limit = pending
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	events := make([]model.ConversationEvent, 0, limit)
	for msg := range batch.Messages() {
		var event model.ConversationEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			m.logger.Warn("skipping malformed event", zap.String("subject", msg.Subject()), zap.Error(err))
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			event.Sequence = meta.Sequence.Stream
		}
		events = append(events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("batch error: %w", err)
	}
	return events, nil
}

// NopPublisher discards events. Used when NATS is disabled.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(ctx context.Context, event *model.ConversationEvent) error {
	return nil
}
