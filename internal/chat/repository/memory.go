package repository

import (
	"context"
	"sync"
	"time"

	"github.com/docsummarizer/go-services/internal/chat"
	"github.com/google/uuid"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	order []string
	store map[string]*chat.Chat
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: map[string]*chat.Chat{}, now: time.Now}
}

func (m *MemoryRepo) Insert(ctx context.Context, c *chat.Chat) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := *c
	rec.ID = uuid.NewString()
	rec.CreatedAt = m.now().UTC()
	rec.Messages = chat.CloneMessages(c.Messages)
	m.store[rec.ID] = &rec
	m.order = append(m.order, rec.ID)
	c.ID, c.CreatedAt = rec.ID, rec.CreatedAt
	return rec.ID, nil
}

// ListByOwner returns newest first, matching the mirror order.
func (m *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]*chat.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*chat.Chat{}
	for i := len(m.order) - 1; i >= 0; i-- {
		if c := m.store[m.order[i]]; c.OwnerID == ownerID {
			cp := *c
			cp.Messages = chat.CloneMessages(c.Messages)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok || c.OwnerID != ownerID {
		return nil
	}
	delete(m.store, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRepo) UpdateMessages(ctx context.Context, ownerID, id string, msgs []chat.Message, lastMessage string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok || c.OwnerID != ownerID {
		return time.Time{}, ErrNotFound
	}
	c.Messages = chat.CloneMessages(msgs)
	c.LastMessage = lastMessage
	c.UpdatedAt = m.now().UTC()
	return c.UpdatedAt, nil
}
