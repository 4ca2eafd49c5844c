package session

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNoProvider means a session was requested where none was provisioned; it is a wiring bug.
var ErrNoProvider = errors.New("session: no session provider in context")

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// Lookup returns the session carried by ctx, if any.
func Lookup(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// FromContext returns the session carried by ctx and panics with ErrNoProvider if there is none.
func FromContext(ctx context.Context) *Session {
	s, ok := Lookup(ctx)
	if !ok {
		panic(ErrNoProvider)
	}
	return s
}
