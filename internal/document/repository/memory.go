package repository

import (
	"context"
	"sync"
	"time"

	"github.com/docsummarizer/go-services/internal/document"
	"github.com/google/uuid"
)

// MemoryRepo keeps records in process. Used when no MongoDB is configured and
// in tests. Listing returns insertion order.
type MemoryRepo struct {
	mu    sync.RWMutex
	order []string
	store map[string]*document.Document
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document), now: time.Now}
}

func (m *MemoryRepo) Insert(ctx context.Context, d *document.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := *d
	rec.ID = uuid.NewString()
	rec.CreatedAt = m.now().UTC()
	m.store[rec.ID] = &rec
	m.order = append(m.order, rec.ID)
	d.ID = rec.ID
	d.CreatedAt = rec.CreatedAt
	return rec.ID, nil
}

func (m *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*document.Document{}
	for _, id := range m.order {
		if d := m.store[id]; d.OwnerID == ownerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
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
