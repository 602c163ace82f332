package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
)

// MemoryStore keeps everything in process memory. State is lost on restart.
type MemoryStore struct {
	conversations map[string]*model.Conversation
	users         map[string]*model.UserProfile
	mu            sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*model.Conversation),
		users:         make(map[string]*model.UserProfile),
	}
}

// Create stores a new conversation.
func (s *MemoryStore) Create(ctx context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[c.ID]; exists {
		return fmt.Errorf("%w: conversation %s already exists", lifecycle.ErrConflict, c.ID)
	}
	s.conversations[c.ID] = c.Clone()
	return nil
}

// Get retrieves a conversation by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, lifecycle.NotFound("conversation", id)
	}
	return conv.Clone(), nil
}

// List returns conversations matching the filter in no particular order.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]model.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if filter.StudentID != "" && conv.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && conv.Status != filter.Status {
			continue
		}
		convs = append(convs, *conv.Clone())
	}
	return convs, nil
}

// Update applies fn under the write lock.
func (s *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, lifecycle.NotFound("conversation", id)
	}

	working := conv.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.conversations[id] = working
	return working.Clone(), nil
}

// SaveUser creates or replaces a profile.
func (s *MemoryStore) SaveUser(ctx context.Context, p *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.users[p.UID] = &cp
	return nil
}

// GetUser retrieves a profile by uid.
func (s *MemoryStore) GetUser(ctx context.Context, uid string) (*model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.users[uid]
	if !exists {
		return nil, ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
