package model

import (
	"time"
)

// SenderType identifies which side of the conversation wrote a message.
type SenderType string

const (
	SenderStudent SenderType = "student"
	SenderSupport SenderType = "support"
)

// Message is a single entry of a conversation thread. Messages are never edited or deleted.
type Message struct {
	Sender    SenderType `json:"sender"`
	SenderUID string     `json:"sender_uid"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
}

// SendMessageRequest is the request to append a message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessageResponse is the response after appending a message.
type SendMessageResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}
