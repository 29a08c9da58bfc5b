package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrObjectNotFound = errors.New("object not found")

const defaultChunkSize = 256 << 10

// MemoryStorage keeps objects in process and transfers them in fixed-size
// chunks, reporting progress after each one.
type MemoryStorage struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	bucket    string
	chunkSize int
}

func NewMemoryStorage(bucket string, chunkSize int) *MemoryStorage {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &MemoryStorage{objects: map[string][]byte{}, bucket: bucket, chunkSize: chunkSize}
}

func (m *MemoryStorage) ResumableUpload(ctx context.Context, path string, r io.Reader, size int64, contentType string, progress ProgressFunc) (Handle, error) {
	var buf bytes.Buffer
	chunk := make([]byte, m.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return Handle{}, err
		}
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if progress != nil {
				progress(int64(buf.Len()), size)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return Handle{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if size >= 0 && int64(buf.Len()) != size {
		return Handle{}, fmt.Errorf("short upload %s: got %d of %d bytes", path, buf.Len(), size)
	}
	sum := md5.Sum(buf.Bytes())
	m.mu.Lock()
	m.objects[path] = buf.Bytes()
	m.mu.Unlock()
	return Handle{Path: path, ETag: hex.EncodeToString(sum[:]), Size: int64(buf.Len())}, nil
}

func (m *MemoryStorage) DownloadURL(ctx context.Context, h Handle) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[h.Path]; !ok {
		return "", ErrObjectNotFound
	}
	return fmt.Sprintf("memory://%s/%s", m.bucket, h.Path), nil
}

func (m *MemoryStorage) DeleteObject(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, path)
	return nil
}

// Object returns a copy of a stored object.
func (m *MemoryStorage) Object(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
