package lifecycle

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eduresolve/support-platform/internal/model"
)

// MaxMessageLength bounds a single message body in bytes.
const MaxMessageLength = 10000

// Actor identifies who performs a lifecycle operation.
type Actor struct {
	UID  string
	Name string
}

// Change describes what a lifecycle operation did to a conversation.
type Change struct {
	From     model.Status
	To       model.Status
	Assigned bool
}

// StatusChanged reports whether the operation moved the conversation to another status.
func (c Change) StatusChanged() bool {
	return c.From != c.To
}

// NewConversation builds an open conversation seeded with the student's first message.
func NewConversation(id string, student Actor, email, topic, text string, now time.Time) (*model.Conversation, error) {
	text = strings.TrimSpace(text)
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if strings.TrimSpace(student.Name) == "" {
		return nil, validationf("student name is required")
	}

	return &model.Conversation{
		ID:           id,
		StudentID:    student.UID,
		StudentName:  strings.TrimSpace(student.Name),
		StudentEmail: strings.TrimSpace(email),
		Topic:        topic,
		Status:       model.StatusOpen,
		Messages: []model.Message{{
			Sender:    model.SenderStudent,
			SenderUID: student.UID,
			Text:      text,
			Timestamp: now,
		}},
		LastMessage: text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateText checks a message body.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return validationf("message text cannot be empty")
	}
	if len(text) > MaxMessageLength {
		return validationf("message text exceeds %d bytes", MaxMessageLength)
	}
	if !utf8.ValidString(text) {
		return validationf("message text must be valid UTF-8")
	}
	return nil
}

// AppendMessage adds a message to the end of the thread.
// A support reply on an unassigned conversation claims it for the replying agent,
// and the first support reply moves an open conversation to in_progress.
func AppendMessage(c *model.Conversation, sender model.SenderType, actor Actor, text string, now time.Time) (Change, error) {
	change := Change{From: c.Status, To: c.Status}

	text = strings.TrimSpace(text)
	if err := ValidateText(text); err != nil {
		return change, err
	}
	if sender != model.SenderStudent && sender != model.SenderSupport {
		return change, validationf("unknown sender type: %q", sender)
	}
	if !CanReply(c) {
		return change, conflictf("conversation is resolved")
	}

	if sender == model.SenderSupport {
		if !c.IsAssigned() {
			c.AgentUID = actor.UID
			c.AgentName = actor.Name
			change.Assigned = true
		}
		if c.Status == model.StatusOpen {
			c.Status = model.StatusInProgress
		}
	}

	c.Messages = append(c.Messages, model.Message{
		Sender:    sender,
		SenderUID: actor.UID,
		Text:      text,
		Timestamp: now,
	})
	c.LastMessage = text
	c.UpdatedAt = now
	change.To = c.Status

	return change, nil
}

// Claim assigns the conversation to an agent.
// Claiming a conversation the same agent already holds is a no-op.
func Claim(c *model.Conversation, agent Actor, now time.Time) (Change, error) {
	change := Change{From: c.Status, To: c.Status}

	if strings.TrimSpace(agent.UID) == "" {
		return change, validationf("agent uid is required")
	}
	if c.IsAssigned() {
		if c.AgentUID == agent.UID {
			return change, nil
		}
		return change, conflictf("conversation already assigned to %s", c.AgentName)
	}
	if c.Status == model.StatusResolved {
		return change, conflictf("conversation is resolved")
	}

	c.AgentUID = agent.UID
	c.AgentName = agent.Name
	if c.Status == model.StatusOpen {
		c.Status = model.StatusInProgress
	}
	c.UpdatedAt = now

	change.To = c.Status
	change.Assigned = true
	return change, nil
}

// SetStatus moves the conversation along the state machine.
// Resolution requires an assigned agent; resolved is terminal.
func SetStatus(c *model.Conversation, to model.Status, now time.Time) (Change, error) {
	change := Change{From: c.Status, To: c.Status}

	if !IsValidStatus(to) {
		return change, validationf("invalid status: %q", to)
	}
	if c.Status == to {
		return change, nil
	}
	if !CanTransition(c.Status, to) {
		return change, conflictf("cannot transition from %s to %s", c.Status, to)
	}
	if to == model.StatusResolved && !c.IsAssigned() {
		return change, conflictf("conversation must be claimed before it can be resolved")
	}
	if to == model.StatusInProgress && !c.IsAssigned() {
		return change, conflictf("conversation must be claimed before work can start")
	}

	c.Status = to
	c.UpdatedAt = now
	if to == model.StatusResolved {
		t := now
		c.ResolvedAt = &t
	}

	change.To = to
	return change, nil
}

// AttachAnalysis stores a completed AI analysis. The priority score is clamped to 1..10.
func AttachAnalysis(c *model.Conversation, a model.AIAnalysis) {
	a.PriorityScore = ClampPriority(a.PriorityScore)
	a.IsProcessed = true
	c.AIAnalysis = a
}

// ClampPriority keeps a score inside 1..10.
func ClampPriority(score int) int {
	switch {
	case score < 1:
		return 1
	case score > 10:
		return 10
	default:
		return score
	}
}
