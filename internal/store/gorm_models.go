package store

import (
	"time"

	"github.com/eduresolve/support-platform/internal/model"
)

// ConversationModel is the conversations table row.
type ConversationModel struct {
	ID           string          `gorm:"primaryKey;size:64"`
	StudentID    string          `gorm:"size:128;index"`
	StudentName  string          `gorm:"size:200;not null"`
	StudentEmail string          `gorm:"size:254"`
	Topic        string          `gorm:"size:50"`
	Status       string          `gorm:"size:20;not null;index"`
	AgentUID     string          `gorm:"size:128;index"`
	AgentName    string          `gorm:"size:200"`
	LastMessage  string          `gorm:"type:text"`
	Analysis     AnalysisColumns `gorm:"embedded;embeddedPrefix:ai_"`
	Version      int             `gorm:"not null;default:1"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time       `gorm:"not null;index;autoUpdateTime:false"`
	ResolvedAt   *time.Time
}

func (ConversationModel) TableName() string {
	return "conversations"
}

// AnalysisColumns embeds the AI analysis into the conversation row.
type AnalysisColumns struct {
	Summary       string `gorm:"type:text"`
	Category      string `gorm:"size:100;index"`
	PriorityScore int    `gorm:"not null;default:0;index"`
	Reason        string `gorm:"type:text"`
	Sentiment     string `gorm:"size:50"`
	IsProcessed   bool   `gorm:"not null;default:false"`
}

// MessageModel is one row per appended message. Seq is the position in the thread.
type MessageModel struct {
	ID             uint      `gorm:"primaryKey"`
	ConversationID string    `gorm:"size:64;not null;uniqueIndex:idx_conversation_seq"`
	Seq            int       `gorm:"not null;uniqueIndex:idx_conversation_seq"`
	Sender         string    `gorm:"size:20;not null"`
	SenderUID      string    `gorm:"size:128"`
	Text           string    `gorm:"type:text;not null"`
	Timestamp      time.Time `gorm:"not null"`
}

func (MessageModel) TableName() string {
	return "conversation_messages"
}

// UserModel is the users table row.
type UserModel struct {
	UID       string    `gorm:"primaryKey;size:128"`
	Name      string    `gorm:"size:200"`
	Email     string    `gorm:"size:254;index"`
	Role      string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

func toConversationModel(c *model.Conversation, version int) *ConversationModel {
	return &ConversationModel{
		ID:           c.ID,
		StudentID:    c.StudentID,
		StudentName:  c.StudentName,
		StudentEmail: c.StudentEmail,
		Topic:        c.Topic,
		Status:       string(c.Status),
		AgentUID:     c.AgentUID,
		AgentName:    c.AgentName,
		LastMessage:  c.LastMessage,
		Analysis: AnalysisColumns{
			Summary:       c.AIAnalysis.Summary,
			Category:      c.AIAnalysis.Category,
			PriorityScore: c.AIAnalysis.PriorityScore,
			Reason:        c.AIAnalysis.Reason,
			Sentiment:     c.AIAnalysis.Sentiment,
			IsProcessed:   c.AIAnalysis.IsProcessed,
		},
		Version:    version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
		ResolvedAt: c.ResolvedAt,
	}
}

func toMessageModels(conversationID string, msgs []model.Message, offset int) []MessageModel {
	out := make([]MessageModel, 0, len(msgs))
	for i, m := range msgs {
		out = append(out, MessageModel{
			ConversationID: conversationID,
			Seq:            offset + i,
			Sender:         string(m.Sender),
			SenderUID:      m.SenderUID,
			Text:           m.Text,
			Timestamp:      m.Timestamp,
		})
	}
	return out
}

func fromConversationModel(m *ConversationModel, msgs []MessageModel) *model.Conversation {
	conv := &model.Conversation{
		ID:           m.ID,
		StudentID:    m.StudentID,
		StudentName:  m.StudentName,
		StudentEmail: m.StudentEmail,
		Topic:        m.Topic,
		Status:       model.Status(m.Status),
		AgentUID:     m.AgentUID,
		AgentName:    m.AgentName,
		LastMessage:  m.LastMessage,
		AIAnalysis: model.AIAnalysis{
			Summary:       m.Analysis.Summary,
			Category:      m.Analysis.Category,
			PriorityScore: m.Analysis.PriorityScore,
			Reason:        m.Analysis.Reason,
			Sentiment:     m.Analysis.Sentiment,
			IsProcessed:   m.Analysis.IsProcessed,
		},
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		ResolvedAt: m.ResolvedAt,
		Messages:   make([]model.Message, 0, len(msgs)),
	}
	for _, mm := range msgs {
		conv.Messages = append(conv.Messages, model.Message{
			Sender:    model.SenderType(mm.Sender),
			SenderUID: mm.SenderUID,
			Text:      mm.Text,
			Timestamp: mm.Timestamp,
		})
	}
	return conv
}
