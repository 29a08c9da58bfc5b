package storage

import (
	"context"
	"io"
	"time"
)

// ProgressFunc receives cumulative byte counts while an upload is in flight.
type ProgressFunc func(transferred, total int64)

// Handle identifies a stored object after a completed transfer.
type Handle struct {
	Path string
	ETag string
	Size int64
}

// ObjectStore is the remote blob store used by the upload pipeline.
type ObjectStore interface {
	// ResumableUpload streams size bytes from r to path, reporting progress
	// synchronously on the calling goroutine.
	ResumableUpload(ctx context.Context, path string, r io.Reader, size int64, contentType string, progress ProgressFunc) (Handle, error)
	// DownloadURL returns a durable retrieval reference for a stored object.
	// It must not expire; time-limited links come from Presigner.
	DownloadURL(ctx context.Context, h Handle) (string, error)
	DeleteObject(ctx context.Context, path string) error
}

// Presigner is implemented by stores whose durable reference is not directly
// fetchable and that can hand out short-lived GET links instead.
type Presigner interface {
	PresignedURL(ctx context.Context, path string) (string, time.Duration, error)
}
