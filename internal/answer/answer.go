// Package answer produces assistant replies for a question about a document.
package answer

import (
	"context"
	"time"

	"github.com/docsummarizer/go-services/internal/chat"
	"github.com/docsummarizer/go-services/internal/document"
)

// Responder answers a user message about doc. Implementations may block; the
// caller runs them off the request path.
type Responder interface {
	Respond(ctx context.Context, doc *document.Document, question string) (chat.Message, error)
}

const PlaceholderText = "This is a simulated response. Configure the Gemini provider to get real answers."

// Simulated waits for Delay and replies with a fixed placeholder.
type Simulated struct {
	Delay time.Duration
	Text  string
	now   func() time.Time
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay, Text: PlaceholderText, now: time.Now}
}

func (s *Simulated) Respond(ctx context.Context, doc *document.Document, question string) (chat.Message, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return chat.Message{}, ctx.Err()
		case <-t.C:
		}
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return chat.Message{Text: s.Text, Sender: chat.SenderAssistant, Timestamp: now().UTC()}, nil
}
