package repository

import (
	"context"
	"errors"

	"github.com/docsummarizer/go-services/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Repository is the remote document metadata collection. Insert assigns the
// identity and the creation timestamp.
type Repository interface {
	Insert(ctx context.Context, d *document.Document) (string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error)
	Get(ctx context.Context, id string) (*document.Document, error)
	Delete(ctx context.Context, id string) error
}
