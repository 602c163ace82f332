// Package service provides business logic for the support platform.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/internal/cooldown"
	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
	natsclient "github.com/eduresolve/support-platform/internal/nats"
	"github.com/eduresolve/support-platform/internal/store"
	"github.com/eduresolve/support-platform/pkg/logger"
	"github.com/eduresolve/support-platform/pkg/metrics"
	"github.com/eduresolve/support-platform/pkg/tracing"
)

// ErrUnavailable is returned when an optional backend (AI, event history) is not configured.
var ErrUnavailable = errors.New("feature unavailable")

// MinComplaintLength is the shortest complaint text accepted.
const MinComplaintLength = 20

// EventHistory replays the lifecycle events of a conversation.
type EventHistory interface {
	History(ctx context.Context, conversationID string, limit int) ([]model.ConversationEvent, error)
}

// ConversationService handles conversation operations.
type ConversationService struct {
	store    store.ConversationStore
	events   natsclient.Publisher
	history  EventHistory
	analyzer *Analyzer
	cooldown cooldown.Limiter
	logger   *logger.Logger

	// inlineAnalysis analyzes new conversations in the request path when no worker consumes events.
	inlineAnalysis bool

	now   func() time.Time
	newID func() string
}

// Option configures a ConversationService.
type Option func(*ConversationService)

// WithAnalyzer enables AI analysis and suggestions.
func WithAnalyzer(a *Analyzer) Option {
	return func(s *ConversationService) { s.analyzer = a }
}

// WithEvents publishes lifecycle events.
func WithEvents(p natsclient.Publisher) Option {
	return func(s *ConversationService) { s.events = p }
}

// WithHistory enables event replay.
func WithHistory(h EventHistory) Option {
	return func(s *ConversationService) { s.history = h }
}

// WithInlineAnalysis analyzes new conversations synchronously.
func WithInlineAnalysis(enabled bool) Option {
	return func(s *ConversationService) { s.inlineAnalysis = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *ConversationService) { s.now = now }
}

// NewConversationService creates a new conversation service.
func NewConversationService(st store.ConversationStore, limiter cooldown.Limiter, log *logger.Logger, opts ...Option) *ConversationService {
	s := &ConversationService{
		store:    st,
		events:   natsclient.NopPublisher{},
		cooldown: limiter,
		logger:   log.Named("conversations"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a conversation from a student's first message.
func (s *ConversationService) Create(ctx context.Context, student lifecycle.Actor, req *model.CreateConversationRequest) (*model.Conversation, error) {
	if name := strings.TrimSpace(req.StudentName); name != "" {
		student.Name = name
	}
	return s.open(ctx, student, req.StudentEmail, "", req.Message, "conversation")
}

// SubmitComplaint opens a categorised conversation.
func (s *ConversationService) SubmitComplaint(ctx context.Context, student lifecycle.Actor, email string, req *model.SubmitComplaintRequest) (*model.SubmitComplaintResponse, error) {
	if len([]rune(strings.TrimSpace(req.Text))) < MinComplaintLength {
		return nil, fmt.Errorf("%w: complaint must be at least %d characters", lifecycle.ErrValidation, MinComplaintLength)
	}
	if name := strings.TrimSpace(req.StudentName); name != "" {
		student.Name = name
	}

	conv, err := s.open(ctx, student, email, strings.ToLower(strings.TrimSpace(req.Category)), req.Text, "complaint")
	if err != nil {
		return nil, err
	}

	return &model.SubmitComplaintResponse{
		Success:  true,
		Message:  "Complaint submitted",
		TicketID: conv.ID,
	}, nil
}

func (s *ConversationService) open(ctx context.Context, student lifecycle.Actor, email, topic, text, source string) (*model.Conversation, error) {
	ctx, span := tracing.Start(ctx, "conversations.create")
	defer span.End()

	conv, err := lifecycle.NewConversation(s.newID(), student, email, topic, text, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	metrics.ConversationsTotal.WithLabelValues(source).Inc()
	metrics.MessagesTotal.WithLabelValues(string(model.SenderStudent)).Inc()
	span.SetAttributes(attribute.String("conversation.id", conv.ID))

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("student_id", conv.StudentID),
		zap.String("source", source),
	)
	s.publish(ctx, conv.ID, model.EventTypeCreated, student.UID, lifecycle.Change{To: conv.Status})

	if s.inlineAnalysis && s.analyzer != nil {
		if analyzed, err := s.EnsureAnalyzed(ctx, conv.ID); err == nil {
			conv = analyzed
		} else {
			s.logger.Warn("inline analysis failed", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}

	return conv, nil
}

// Get returns a conversation for an agent. A missing analysis is computed on demand when an analyzer is configured.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	ctx, span := tracing.Start(ctx, "conversations.get")
	defer span.End()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.AIAnalysis.IsProcessed || s.analyzer == nil {
		return conv, nil
	}

	analyzed, err := s.EnsureAnalyzed(ctx, id)
	if err != nil {
		s.logger.Warn("on-demand analysis failed", zap.String("conversation_id", id), zap.Error(err))
		return conv, nil
	}
	return analyzed, nil
}

// ListParams are the raw query parameters of a queue listing.
type ListParams struct {
	SortBy string
	Order  string
	Status string
}

// List returns the agent queue sorted as requested.
func (s *ConversationService) List(ctx context.Context, params ListParams) (*model.ListConversationsResponse, error) {
	key, err := lifecycle.ParseSortKey(params.SortBy)
	if err != nil {
		return nil, err
	}
	order, err := lifecycle.ParseSortOrder(params.Order)
	if err != nil {
		return nil, err
	}

	filter := store.Filter{}
	if params.Status != "" {
		st, err := lifecycle.ParseStatus(params.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	convs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	lifecycle.Sort(convs, key, order)

	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	}, nil
}

// Assign claims a conversation for an agent.
func (s *ConversationService) Assign(ctx context.Context, id string, agent lifecycle.Actor) (*model.Conversation, error) {
	var change lifecycle.Change
	conv, err := s.store.Update(ctx, id, func(c *model.Conversation) error {
		var err error
		change, err = lifecycle.Claim(c, agent, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if change.Assigned {
		s.logger.Info("conversation assigned",
			zap.String("conversation_id", id),
			zap.String("agent_uid", agent.UID),
		)
		s.publish(ctx, id, model.EventTypeAssigned, agent.UID, change)
	}
	s.recordTransition(ctx, id, agent.UID, change)
	return conv, nil
}

// UpdateStatus moves a conversation along the state machine.
func (s *ConversationService) UpdateStatus(ctx context.Context, id, status string, actor lifecycle.Actor) (*model.Conversation, error) {
	to, err := lifecycle.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var change lifecycle.Change
	conv, err := s.store.Update(ctx, id, func(c *model.Conversation) error {
		var err error
		change, err = lifecycle.SetStatus(c, to, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, id, actor.UID, change)
	return conv, nil
}

// Suggestions drafts agent replies. Each session may ask once per cooldown window.
func (s *ConversationService) Suggestions(ctx context.Context, sessionUID, id string) ([]model.ResponseSuggestion, error) {
	ctx, span := tracing.Start(ctx, "conversations.suggestions")
	defer span.End()

	if s.analyzer == nil {
		return nil, fmt.Errorf("%w: AI suggestions are not configured", ErrUnavailable)
	}

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cooldown.Acquire(ctx, sessionUID); err != nil {
		if errors.Is(err, lifecycle.ErrCooldown) {
			metrics.SuggestionCooldownRejections.Inc()
		}
		return nil, err
	}

	suggestions, err := s.analyzer.Suggest(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}
	return suggestions, nil
}

// EnsureAnalyzed runs the AI analysis for a conversation unless it already has one.
func (s *ConversationService) EnsureAnalyzed(ctx context.Context, id string) (*model.Conversation, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("%w: AI analysis is not configured", ErrUnavailable)
	}

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.AIAnalysis.IsProcessed {
		return conv, nil
	}

	analysis, err := s.analyzer.Analyze(ctx, conv)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, func(c *model.Conversation) error {
		lifecycle.AttachAnalysis(c, analysis)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("conversation analyzed",
		zap.String("conversation_id", id),
		zap.Int("priority_score", updated.AIAnalysis.PriorityScore),
		zap.String("category", updated.AIAnalysis.Category),
	)
	s.publish(ctx, id, model.EventTypeAnalyzed, "", lifecycle.Change{From: updated.Status, To: updated.Status})
	return updated, nil
}

// HandleEvent is the analysis worker entry point. Events it cannot act on are
// acknowledged rather than retried.
func (s *ConversationService) HandleEvent(ctx context.Context, event *model.ConversationEvent) error {
	if event.Type != model.EventTypeCreated {
		return nil
	}
	_, err := s.EnsureAnalyzed(ctx, event.ConversationID)
	if errors.Is(err, lifecycle.ErrNotFound) || errors.Is(err, ErrUnavailable) {
		return nil
	}
	return err
}

// Events replays the lifecycle events of a conversation.
func (s *ConversationService) Events(ctx context.Context, id string, limit int) ([]model.ConversationEvent, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: event history requires NATS", ErrUnavailable)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.history.History(ctx, id, limit)
}

func (s *ConversationService) recordTransition(ctx context.Context, id, actorUID string, change lifecycle.Change) {
	if !change.StatusChanged() {
		return
	}
	metrics.RecordTransition(string(change.From), string(change.To))
	s.logger.Info("conversation status changed",
		zap.String("conversation_id", id),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
	)
	s.publish(ctx, id, model.EventTypeStatusChanged, actorUID, change)
}

// publish never fails the caller; the event log is best effort.
func (s *ConversationService) publish(ctx context.Context, conversationID string, eventType model.EventType, actorUID string, change lifecycle.Change) {
	event := &model.ConversationEvent{
		ID:             s.newID(),
		ConversationID: conversationID,
		Type:           eventType,
		ActorUID:       actorUID,
		FromStatus:     change.From,
		ToStatus:       change.To,
		CreatedAt:      s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("conversation_id", conversationID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}
