// Package upload moves a validated file into object storage and records its
// metadata. Every attempt walks Idle -> Validating -> Transferring ->
// Persisting -> Complete, or stops in Failed.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docsummarizer/go-services/internal/apperr"
	"github.com/docsummarizer/go-services/internal/document"
	"github.com/docsummarizer/go-services/internal/document/repository"
	"github.com/docsummarizer/go-services/internal/storage"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/docsummarizer/go-services/pkg/metrics"
	"github.com/google/uuid"
)

type State int

const (
	Idle State = iota
	Validating
	Transferring
	Persisting
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Transferring:
		return "transferring"
	case Persisting:
		return "persisting"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ProgressFunc receives the transferred percentage in [0, 100].
type ProgressFunc func(pct float64)

// Transition is reported to observers on every state change.
type Transition struct {
	AttemptID   string
	OwnerID     string
	StoragePath string
	From, To    State
	Err         error
}

var (
	ErrNoOwner        = errors.New("upload requires a signed-in owner")
	ErrMissingContent = errors.New("file content missing")
)

// Pipeline is safe for concurrent use; each Upload call is an independent attempt.
type Pipeline struct {
	blobs     storage.ObjectStore
	docs      repository.Repository
	now       func() time.Time
	observers []func(Transition)
}

type Option func(*Pipeline)

// WithClock overrides the clock used for storage path timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithObserver registers a transition callback. Observers run synchronously.
func WithObserver(fn func(Transition)) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, fn) }
}

func New(blobs storage.ObjectStore, docs repository.Repository, opts ...Option) *Pipeline {
	p := &Pipeline{blobs: blobs, docs: docs, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// StoragePath builds documents/{owner}/{unixMillis}_{name}. Path separators in
// the name are replaced so the object stays under the owner prefix.
func StoragePath(ownerID string, at time.Time, name string) string {
	clean := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	if clean == "" {
		clean = "untitled"
	}
	return fmt.Sprintf("documents/%s/%d_%s", ownerID, at.UnixMilli(), clean)
}

// Upload runs one attempt. onProgress may be nil; when set it is called on the
// caller's goroutine with non-decreasing values, the last of which is 100
// before the metadata write begins. No retry is made on any failure.
func (p *Pipeline) Upload(ctx context.Context, ownerID string, f document.File, onProgress ProgressFunc) (*document.Document, error) {
	a := &attempt{p: p, id: uuid.NewString(), owner: ownerID, started: time.Now()}

	a.move(Validating, nil)
	if ownerID == "" {
		return nil, a.fail("authorization", apperr.AuthorizationErr("upload", ErrNoOwner))
	}
	if err := document.Validate(f); err != nil {
		return nil, a.fail("validation", apperr.ValidationErr("upload", err))
	}
	if f.Content == nil {
		return nil, a.fail("validation", apperr.ValidationErr("upload", ErrMissingContent))
	}

	a.path = StoragePath(ownerID, p.now(), f.Name)
	a.move(Transferring, nil)
	prog := &tracker{fn: onProgress}
	handle, err := p.blobs.ResumableUpload(ctx, a.path, f.Content, f.SizeBytes, f.MimeType, prog.report)
	if err != nil {
		return nil, a.fail("transfer", apperr.TransferErr("upload", err))
	}
	prog.finish()
	metrics.UploadBytes.Add(float64(handle.Size))

	a.move(Persisting, nil)
	url, err := p.blobs.DownloadURL(ctx, handle)
	if err != nil {
		logger.Warnf("upload %s: orphaned blob %s (download url: %v)", a.id, a.path, err)
		return nil, a.fail("persistence", apperr.PersistenceErr("upload", err))
	}
	d := &document.Document{
		OwnerID:     ownerID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		SizeBytes:   f.SizeBytes,
		URL:         url,
		StoragePath: a.path,
	}
	if _, err := p.docs.Insert(ctx, d); err != nil {
		logger.Warnf("upload %s: orphaned blob %s (metadata insert: %v)", a.id, a.path, err)
		return nil, a.fail("persistence", apperr.PersistenceErr("upload", err))
	}

	a.move(Complete, nil)
	metrics.UploadsTotal.WithLabelValues("complete").Inc()
	metrics.UploadDuration.Observe(time.Since(a.started).Seconds())
	logger.Infof("upload %s: stored %s for owner=%s id=%s", a.id, a.path, ownerID, d.ID)
	return d, nil
}

type attempt struct {
	p       *Pipeline
	id      string
	owner   string
	path    string
	state   State
	started time.Time
}

func (a *attempt) move(to State, err error) {
	t := Transition{AttemptID: a.id, OwnerID: a.owner, StoragePath: a.path, From: a.state, To: to, Err: err}
	a.state = to
	logger.Debugf("upload %s: %s -> %s", a.id, t.From, t.To)
	for _, fn := range a.p.observers {
		fn(t)
	}
}

func (a *attempt) fail(result string, err error) error {
	from := a.state
	a.move(Failed, err)
	metrics.UploadsTotal.WithLabelValues(result).Inc()
	metrics.UploadDuration.Observe(time.Since(a.started).Seconds())
	logger.Warnf("upload %s: failed in %s for owner=%s: %v", a.id, from, a.owner, err)
	return err
}

// tracker turns byte counts into percentages and drops regressions, which
// can appear when the store re-reads a part.
type tracker struct {
	fn      ProgressFunc
	last    float64
	emitted bool
}

func (t *tracker) report(sent, total int64) {
	if total <= 0 {
		return
	}
	pct := float64(sent) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	if t.emitted && pct < t.last {
		return
	}
	t.emit(pct)
}

func (t *tracker) finish() {
	if !t.emitted || t.last < 100 {
		t.emit(100)
	}
}

func (t *tracker) emit(pct float64) {
	t.last = pct
	t.emitted = true
	if t.fn != nil {
		t.fn(pct)
	}
}
