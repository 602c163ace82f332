// Package store persists conversations and user profiles.
package store

import (
	"context"
	"fmt"

	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
)

// ErrUserNotFound is returned when no profile exists for a uid. It matches lifecycle.ErrNotFound.
var ErrUserNotFound = fmt.Errorf("user %w", lifecycle.ErrNotFound)

// Filter narrows a conversation listing.
type Filter struct {
	StudentID string
	Status    model.Status
}

// UpdateFunc mutates a conversation loaded inside Update. Returning an error aborts the write.
type UpdateFunc func(c *model.Conversation) error

// ConversationStore is the persistence contract for conversations.
type ConversationStore interface {
	Create(ctx context.Context, c *model.Conversation) error
	Get(ctx context.Context, id string) (*model.Conversation, error)
	List(ctx context.Context, filter Filter) ([]model.Conversation, error)
	// Update applies fn to the current state and persists the result atomically.
	Update(ctx context.Context, id string, fn UpdateFunc) (*model.Conversation, error)
}

// UserStore is the persistence contract for user profiles.
type UserStore interface {
	SaveUser(ctx context.Context, p *model.UserProfile) error
	GetUser(ctx context.Context, uid string) (*model.UserProfile, error)
}

// Store bundles both stores behind a single handle.
type Store interface {
	ConversationStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
