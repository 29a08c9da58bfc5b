package service

import (
	"context"

	"github.com/docsummarizer/go-services/internal/apperr"
	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/chat"
	"github.com/docsummarizer/go-services/internal/chat/repository"
	"github.com/docsummarizer/go-services/internal/mirror"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/docsummarizer/go-services/pkg/metrics"
)

const storeLabel = "chats"

// ChatStore owns the local mirror of saved chats, newest first.
type ChatStore struct {
	id    auth.Identity
	repo  repository.Repository
	chats *mirror.List[*chat.Chat]
}

func NewChatStore(id auth.Identity, repo repository.Repository) *ChatStore {
	return &ChatStore{id: id, repo: repo, chats: mirror.NewList[*chat.Chat]()}
}

func (s *ChatStore) Load(ctx context.Context) ([]*chat.Chat, error) {
	if !s.id.SignedIn() {
		return nil, nil
	}
	chats, err := s.repo.ListByOwner(ctx, s.id.UserID)
	if err != nil {
		err = apperr.PersistenceErr("load chats", err)
		logger.Errorf("load chats for owner=%s: %v", s.id.UserID, err)
	}
	s.chats.Loaded(chats, err)
	if err != nil {
		return nil, err
	}
	return s.chats.Items(), nil
}

// Add persists the draft and prepends it to the mirror.
func (s *ChatStore) Add(ctx context.Context, d chat.Draft) (id string, err error) {
	defer func() { s.record("add", err) }()
	if err := d.Validate(); err != nil {
		return "", apperr.ValidationErr("add chat", err)
	}
	c := &chat.Chat{
		OwnerID:      s.id.UserID,
		DocumentID:   d.DocumentID,
		DocumentName: d.DocumentName,
		Title:        d.Title,
		Messages:     chat.CloneMessages(d.Messages),
		LastMessage:  d.LastMessage,
		Timestamp:    d.Timestamp,
	}
	if _, err := s.repo.Insert(ctx, c); err != nil {
		return "", apperr.PersistenceErr("add chat", err)
	}
	s.chats.Prepend(c)
	logger.Debugf("saved chat %s for owner=%s", c.ID, s.id.UserID)
	return c.ID, nil
}

func (s *ChatStore) Remove(ctx context.Context, id string) (err error) {
	defer func() { s.record("remove", err) }()
	if err := s.repo.Delete(ctx, s.id.UserID, id); err != nil {
		return apperr.PersistenceErr("remove chat", err)
	}
	s.chats.Remove(func(c *chat.Chat) bool { return c.ID == id })
	return nil
}

// Update overwrites the thread of a saved chat, keeping its mirror position.
func (s *ChatStore) Update(ctx context.Context, id string, msgs []chat.Message, lastMessage string) (err error) {
	defer func() { s.record("update", err) }()
	at, err := s.repo.UpdateMessages(ctx, s.id.UserID, id, msgs, lastMessage)
	if err != nil {
		return apperr.PersistenceErr("update chat", err)
	}
	s.chats.Update(func(c *chat.Chat) bool { return c.ID == id }, func(c **chat.Chat) {
		cp := **c
		cp.Messages = chat.CloneMessages(msgs)
		cp.LastMessage = lastMessage
		cp.UpdatedAt = at
		*c = &cp
	})
	return nil
}

func (s *ChatStore) Chats() []*chat.Chat { return s.chats.Items() }

func (s *ChatStore) Find(id string) (*chat.Chat, bool) {
	return s.chats.Find(func(c *chat.Chat) bool { return c.ID == id })
}

func (s *ChatStore) Status() mirror.Status { return s.chats.Status() }

func (s *ChatStore) record(op string, err error) {
	s.chats.Mutated(err)
	metrics.StoreMutations.WithLabelValues(storeLabel, op, metrics.Result(err)).Inc()
}
