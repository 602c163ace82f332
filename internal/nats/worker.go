package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// AnalysisConsumer is the durable consumer name of the analysis worker.
const AnalysisConsumer = "analysis-worker"

// EventHandler processes one event. Returning an error redelivers it.
type EventHandler func(ctx context.Context, event *model.ConversationEvent) error

// Worker consumes created events and hands them to a handler.
type Worker struct {
	client  *Client
	handler EventHandler
	logger  *logger.Logger
	timeout time.Duration
	// retryDelay is how long a failed event waits before redelivery.
	retryDelay time.Duration
}

// NewWorker creates a worker bound to handler.
func NewWorker(client *Client, handler EventHandler, log *logger.Logger) *Worker {
	return &Worker{
		client:     client,
		handler:    handler,
		logger:     log.Named("analysis-worker"),
		timeout:    60 * time.Second,
		retryDelay: 10 * time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	consumer, err := w.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       AnalysisConsumer,
		FilterSubject: TypeFilter(model.EventTypeCreated),
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckWait:       2 * w.timeout,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		w.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	w.logger.Info("analysis worker started", zap.String("consumer", AnalysisConsumer))
	<-ctx.Done()
	w.logger.Info("analysis worker stopped")
	return nil
}

func (w *Worker) handle(ctx context.Context, msg jetstream.Msg) {
	var event model.ConversationEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		w.logger.Warn("dropping malformed event", zap.String("subject", msg.Subject()), zap.Error(err))
		_ = msg.Term()
		return
	}

	hctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.handler(hctx, &event); err != nil {
		w.logger.Warn("event handling failed",
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err),
		)
		_ = msg.NakWithDelay(w.retryDelay)
		return
	}

	if err := msg.Ack(); err != nil {
		w.logger.Warn("failed to ack event", zap.String("conversation_id", event.ConversationID), zap.Error(err))
	}
}
