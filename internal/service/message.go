package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/store"
	"github.com/eduresolve/support-platform/pkg/metrics"
)

// AppendMessage adds a message to a conversation.
// A support reply claims unassigned conversations and starts work on open ones.
func (s *ConversationService) AppendMessage(ctx context.Context, id string, sender model.SenderType, actor lifecycle.Actor, text string) (*model.Message, error) {
	return s.appendMessage(ctx, id, sender, actor, text, nil)
}

func (s *ConversationService) appendMessage(ctx context.Context, id string, sender model.SenderType, actor lifecycle.Actor, text string, guard func(c *model.Conversation) error) (*model.Message, error) {
	var (
		change lifecycle.Change
		msg    model.Message
	)
	_, err := s.store.Update(ctx, id, func(c *model.Conversation) error {
		if guard != nil {
			if err := guard(c); err != nil {
				return err
			}
		}
		var err error
		change, err = lifecycle.AppendMessage(c, sender, actor, text, s.now())
		if err != nil {
			return err
		}
		msg = c.Messages[len(c.Messages)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(string(sender)).Inc()
	s.logger.Debug("message appended",
		zap.String("conversation_id", id),
		zap.String("sender", string(sender)),
		zap.String("sender_uid", actor.UID),
	)

	s.publish(ctx, id, model.EventTypeMessageAppended, actor.UID, lifecycle.Change{From: change.From, To: change.From})
	if change.Assigned {
		s.publish(ctx, id, model.EventTypeAssigned, actor.UID, change)
	}
	s.recordTransition(ctx, id, actor.UID, change)

	return &msg, nil
}

// Reply appends an agent message.
func (s *ConversationService) Reply(ctx context.Context, id string, agent lifecycle.Actor, text string) (*model.Message, error) {
	return s.AppendMessage(ctx, id, model.SenderSupport, agent, text)
}

// StudentList returns the student's own conversations, newest activity first.
func (s *ConversationService) StudentList(ctx context.Context, studentUID string) (*model.ListConversationsResponse, error) {
	convs, err := s.store.List(ctx, store.Filter{StudentID: studentUID})
	if err != nil {
		return nil, err
	}
	lifecycle.Sort(convs, lifecycle.SortByUpdatedAt, lifecycle.OrderDesc)
	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	}, nil
}

// StudentGet returns a conversation the student owns.
func (s *ConversationService) StudentGet(ctx context.Context, studentUID, id string) (*model.Conversation, error) {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(studentUID)(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// StudentReply appends a student message to a conversation the student owns.
func (s *ConversationService) StudentReply(ctx context.Context, id string, student lifecycle.Actor, text string) (*model.Message, error) {
	return s.appendMessage(ctx, id, model.SenderStudent, student, text, ownedBy(student.UID))
}

func ownedBy(studentUID string) func(c *model.Conversation) error {
	return func(c *model.Conversation) error {
		if c.StudentID != studentUID {
			return fmt.Errorf("%w: conversation belongs to another student", lifecycle.ErrForbidden)
		}
		return nil
	}
}
