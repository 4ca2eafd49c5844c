package session

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrClosed is returned by a Registry that can no longer serve any session.
	ErrClosed = errors.New("session registry closed")
)

// Registry keeps the live sessions of every browser, keyed by session ID.
type Registry interface {
	// Get returns ErrNotFound for unknown or expired IDs.
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
