package chat

import (
	"errors"
	"time"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is immutable once appended to a thread.
type Message struct {
	Text      string    `json:"text" bson:"text"`
	Sender    Sender    `json:"sender" bson:"sender"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type Chat struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	OwnerID      string    `json:"ownerId" bson:"ownerId"`
	DocumentID   string    `json:"documentId" bson:"documentId"`
	DocumentName string    `json:"documentName" bson:"documentName"`
	Title        string    `json:"title" bson:"title"`
	Messages     []Message `json:"messages" bson:"messages"`
	LastMessage  string    `json:"lastMessage" bson:"lastMessage"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Draft is a chat that has not been persisted yet.
type Draft struct {
	DocumentID   string
	DocumentName string
	Title        string
	Messages     []Message
	LastMessage  string
	Timestamp    time.Time
}

var ErrEmptyThread = errors.New("chat needs at least one message")

func (d Draft) Validate() error {
	if len(d.Messages) == 0 {
		return ErrEmptyThread
	}
	return nil
}

// LastText returns the text of the final message, or "".
func LastText(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

// CloneMessages copies a thread so callers cannot alias a stored slice.
func CloneMessages(msgs []Message) []Message {
	return append([]Message(nil), msgs...)
}
