package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/store"
)

// AnalyticsService computes dashboard figures over the whole queue.
type AnalyticsService struct {
	store store.ConversationStore
	now   func() time.Time
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(st store.ConversationStore) *AnalyticsService {
	return &AnalyticsService{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Overview returns the agent dashboard summary.
func (s *AnalyticsService) Overview(ctx context.Context) (*model.AnalyticsOverview, error) {
	convs, err := s.store.List(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	overview := lifecycle.Overview(convs, s.now())
	return &overview, nil
}
