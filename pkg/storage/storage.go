package storage

import (
	"context"
	"io"

	"github.com/marmos91/larder/pkg/path"
)

// Storage is the caller-facing facade: it resolves every raw path through a
// path.Manager and delegates to a Backend.
//
// Resolution never fails, so every error returned by Storage originates in
// the backend and is returned unchanged.
//
// Example:
//
//	st := storage.New(memory.New(), storage.WithBasePath("/secrets"))
//	_ = st.Store(ctx, "db/password", "hunter2")   // stored at /secrets/db/password
//	v, _ := st.Retrieve(ctx, "/secrets/db/password")
type Storage struct {
	backend Backend
	manager *path.Manager
}

// Option configures a Storage.
type Option func(*Storage)

// WithManager sets the path manager used to resolve raw paths.
func WithManager(m *path.Manager) Option {
	return func(s *Storage) {
		if m != nil {
			s.manager = m
		}
	}
}

// WithBasePath anchors relative paths under base.
func WithBasePath(base string) Option {
	return func(s *Storage) {
		s.manager = path.NewManager(base)
	}
}

// New returns a Storage over backend. The backend is shared, not copied.
// Without options relative paths resolve under the root.
func New(backend Backend, opts ...Option) *Storage {
	s := &Storage{
		backend: backend,
		manager: path.DefaultManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store resolves raw and stores content there.
func (s *Storage) Store(ctx context.Context, raw string, content string) error {
	return s.backend.Store(ctx, s.manager.Resolve(raw), content)
}

// Remove resolves raw and removes it together with its descendants.
func (s *Storage) Remove(ctx context.Context, raw string) error {
	return s.backend.Remove(ctx, s.manager.Resolve(raw))
}

// Retrieve resolves raw and returns the content stored there.
func (s *Storage) Retrieve(ctx context.Context, raw string) (string, error) {
	return s.backend.Retrieve(ctx, s.manager.Resolve(raw))
}

// Resolve returns the path raw resolves to, without touching the backend.
func (s *Storage) Resolve(raw string) path.Path {
	return s.manager.Resolve(raw)
}

// Backend returns the underlying backend.
func (s *Storage) Backend() Backend {
	return s.backend
}

// Close releases the backend's resources if it holds any.
func (s *Storage) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
