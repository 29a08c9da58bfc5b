package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docsummarizer/go-services/internal/apperr"
	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/document"
	"github.com/docsummarizer/go-services/internal/document/repository"
	"github.com/docsummarizer/go-services/internal/mirror"
	"github.com/docsummarizer/go-services/internal/storage"
	"github.com/docsummarizer/go-services/internal/upload"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/docsummarizer/go-services/pkg/metrics"
)

var ErrNotOwner = errors.New("document belongs to another user")

const storeLabel = "documents"

// DocumentStore owns the local mirror of the signed-in user's documents. The
// mirror only changes after the remote side confirmed the operation.
type DocumentStore struct {
	id       auth.Identity
	pipeline *upload.Pipeline
	repo     repository.Repository
	blobs    storage.ObjectStore
	docs     *mirror.List[*document.Document]
}

func NewDocumentStore(id auth.Identity, p *upload.Pipeline, repo repository.Repository, blobs storage.ObjectStore) *DocumentStore {
	return &DocumentStore{id: id, pipeline: p, repo: repo, blobs: blobs, docs: mirror.NewList[*document.Document]()}
}

// Load replaces the mirror with the owner's documents in the order the
// repository returns them.
func (s *DocumentStore) Load(ctx context.Context) ([]*document.Document, error) {
	if !s.id.SignedIn() {
		return nil, nil
	}
	docs, err := s.repo.ListByOwner(ctx, s.id.UserID)
	if err != nil {
		err = apperr.PersistenceErr("load documents", err)
		logger.Errorf("load documents for owner=%s: %v", s.id.UserID, err)
	}
	s.docs.Loaded(docs, err)
	if err != nil {
		return nil, err
	}
	return s.docs.Items(), nil
}

// Add uploads f and appends the finalized document. A failed upload leaves
// the mirror untouched and returns the pipeline error.
func (s *DocumentStore) Add(ctx context.Context, f document.File, onProgress upload.ProgressFunc) (*document.Document, error) {
	d, err := s.pipeline.Upload(ctx, s.id.UserID, f, onProgress)
	s.record("add", err)
	if err != nil {
		return nil, err
	}
	s.docs.Append(d)
	return d, nil
}

// Remove deletes the blob and then the metadata record. An id the remote
// collection does not know is a no-op; a document owned by someone else is
// an authorization error.
func (s *DocumentStore) Remove(ctx context.Context, id string) (err error) {
	defer func() { s.record("remove", err) }()

	d, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Debugf("remove document %s: not found, nothing to do", id)
		return nil
	}
	if err != nil {
		return apperr.PersistenceErr("remove document", err)
	}
	if d.OwnerID != s.id.UserID {
		return apperr.AuthorizationErr("remove document", fmt.Errorf("%w: %s", ErrNotOwner, id))
	}
	if d.StoragePath != "" {
		if err := s.blobs.DeleteObject(ctx, d.StoragePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return apperr.PersistenceErr("remove document", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperr.PersistenceErr("remove document", err)
	}
	s.docs.Remove(func(x *document.Document) bool { return x.ID == id })
	logger.Infof("removed document %s (%s) for owner=%s", id, d.StoragePath, s.id.UserID)
	return nil
}

// Link is a fetchable URL for a document. TTL is zero when URL does not expire.
type Link struct {
	URL string
	TTL time.Duration
}

// Link presigns a short-lived GET when the object store supports it and
// otherwise hands back the durable reference kept on the record.
func (s *DocumentStore) Link(ctx context.Context, d *document.Document) (Link, error) {
	p, ok := s.blobs.(storage.Presigner)
	if !ok || d.StoragePath == "" {
		return Link{URL: d.URL}, nil
	}
	u, ttl, err := p.PresignedURL(ctx, d.StoragePath)
	if err != nil {
		return Link{}, apperr.TransferErr("document link", err)
	}
	return Link{URL: u, TTL: ttl}, nil
}

func (s *DocumentStore) Documents() []*document.Document { return s.docs.Items() }

func (s *DocumentStore) Find(id string) (*document.Document, bool) {
	return s.docs.Find(func(d *document.Document) bool { return d.ID == id })
}

func (s *DocumentStore) Status() mirror.Status { return s.docs.Status() }

func (s *DocumentStore) record(op string, err error) {
	s.docs.Mutated(err)
	metrics.StoreMutations.WithLabelValues(storeLabel, op, metrics.Result(err)).Inc()
}
