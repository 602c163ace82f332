package model

import (
	"time"
)

// EventType represents the type of lifecycle event.
type EventType string

const (
	EventTypeCreated         EventType = "created"
	EventTypeMessageAppended EventType = "message_appended"
	EventTypeAssigned        EventType = "assigned"
	EventTypeStatusChanged   EventType = "status_changed"
	EventTypeAnalyzed        EventType = "analyzed"
)

// ConversationEvent is published whenever a conversation changes.
type ConversationEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Type           EventType      `json:"type"`
	ActorUID       string         `json:"actor_uid,omitempty"`
	FromStatus     Status         `json:"from_status,omitempty"`
	ToStatus       Status         `json:"to_status,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Sequence       uint64         `json:"sequence,omitempty"`
}
