// Package model defines data structures for the support platform.
package model

import (
	"time"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// Conversation represents a support ticket: a message thread between a student and support staff.
type Conversation struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	StudentName  string     `json:"student_name"`
	StudentEmail string     `json:"student_email"`
	Topic        string     `json:"topic,omitempty"`
	Status       Status     `json:"status"`
	Messages     []Message  `json:"messages"`
	AgentUID     string     `json:"agent_uid,omitempty"`
	AgentName    string     `json:"agent_name,omitempty"`
	AIAnalysis   AIAnalysis `json:"ai_analysis"`
	LastMessage  string     `json:"last_message"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// IsAssigned reports whether an agent has claimed the conversation.
func (c *Conversation) IsAssigned() bool {
	return c.AgentUID != ""
}

// Clone returns a deep copy so callers can't mutate stored state.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

// AIAnalysis is the externally computed triage annotation of a conversation.
type AIAnalysis struct {
	Summary       string `json:"summary"`
	Category      string `json:"category"`
	PriorityScore int    `json:"priority_score"`
	Reason        string `json:"reason"`
	Sentiment     string `json:"sentiment"`
	IsProcessed   bool   `json:"is_processed"`
}

// ResponseSuggestion is a drafted agent reply. It is never persisted.
type ResponseSuggestion struct {
	Tone    string `json:"tone"`
	Content string `json:"content"`
}

// CreateConversationRequest is the request to open a new conversation.
type CreateConversationRequest struct {
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	Message      string `json:"message"`
}

// SubmitComplaintRequest is a student's categorised complaint.
type SubmitComplaintRequest struct {
	StudentName string `json:"student_name"`
	Category    string `json:"category,omitempty"`
	Text        string `json:"text"`
}

// SubmitComplaintResponse acknowledges a complaint.
type SubmitComplaintResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	TicketID string `json:"ticket_id"`
}

// AssignRequest claims a conversation for an agent.
type AssignRequest struct {
	AgentUID  string `json:"agent_uid"`
	AgentName string `json:"agent_name"`
}

// UpdateStatusRequest changes a conversation's status.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}

// SuggestionsResponse wraps AI reply suggestions.
type SuggestionsResponse struct {
	Suggestions []ResponseSuggestion `json:"suggestions"`
}
