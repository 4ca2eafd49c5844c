package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/escuela/core/session"
)

type entry struct {
	sess    *session.Session
	expires time.Time
}

// Registry keeps sessions in process memory. They are lost on restart.
type Registry struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	closed  bool
}

var _ session.Registry = (*Registry)(nil)

// NewRegistry creates a Registry whose sessions expire ttl after their last Save.
// A ttl <= 0 never expires them.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (r *Registry) Get(_ context.Context, id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, session.ErrClosed
	}
	e, ok := r.entries[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	if r.expired(e) {
		delete(r.entries, id)
		return nil, session.ErrNotFound
	}
	return e.sess, nil
}

func (r *Registry) Save(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return session.ErrClosed
	}
	e := entry{sess: s}
	if r.ttl > 0 {
		e.expires = r.now().Add(r.ttl)
	}
	r.entries[s.ID()] = e
	return nil
}

func (r *Registry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// Close drops every session. Get and Save fail with session.ErrClosed afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.entries = make(map[string]entry)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops every expired session and returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for id, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Run sweeps every `every` until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if r.ttl <= 0 || every <= 0 {
		return
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			r.Sweep()
		}
	}
}

func (r *Registry) expired(e entry) bool {
	return !e.expires.IsZero() && !r.now().Before(e.expires)
}
