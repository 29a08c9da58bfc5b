package repository

import (
	"context"
	"errors"
	"time"

	"github.com/docsummarizer/go-services/internal/chat"
)

var ErrNotFound = errors.New("chat not found")

// Repository is the remote chat collection. Every call is scoped to an owner.
type Repository interface {
	Insert(ctx context.Context, c *chat.Chat) (string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*chat.Chat, error)
	// Delete of an absent chat is not an error.
	Delete(ctx context.Context, ownerID, id string) error
	// UpdateMessages returns the updatedAt it stored.
	UpdateMessages(ctx context.Context, ownerID, id string, msgs []chat.Message, lastMessage string) (time.Time, error)
}
