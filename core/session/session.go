package session

import (
	"sync"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/auth"
	"github.com/trezcool/escuela/core/panel"
	"github.com/trezcool/escuela/core/user"
)

type (
	// NavState is the auxiliary navigation data carried next to (not inside) a dashboard path.
	NavState struct {
		DisplayName string `json:"display_name,omitempty"`
	}

	// State is the serialisable content of a Session.
	State struct {
		Identity *user.Identity  `json:"identity,omitempty"`
		Flow     auth.State       `json:"flow"`
		Admin    panel.Dispatcher `json:"admin"`
		Nav      NavState         `json:"nav"`
		Notices  []core.Notice    `json:"notices,omitempty"`
	}

	// Snapshot is a consistent read of who is logged in.
	Snapshot struct {
		Identity      *user.Identity
		Authenticated bool
	}

	Listener func(Snapshot)

	// Session holds zero or one Identity for one browser.
	// Identity changes only through Login and Logout.
	Session struct {
		id string

		mu        sync.RWMutex
		st        State
		listeners map[int]Listener
		nextLsn   int
	}
)

var _ auth.Session = (*Session)(nil)

func New(id string) *Session {
	return Restore(id, State{Admin: panel.NewDispatcher()})
}

// Restore rebuilds a Session from a stored State.
func Restore(id string, st State) *Session {
	if st.Identity != nil {
		usr := st.Identity.WithoutCredentials()
		st.Identity = &usr
	}
	return &Session{id: id, st: st, listeners: make(map[int]Listener)}
}

func (s *Session) ID() string { return s.id }

// Login replaces the current Identity unconditionally. The password is not kept.
func (s *Session) Login(usr user.Identity) {
	usr = usr.WithoutCredentials()
	s.mu.Lock()
	s.st.Identity = &usr
	s.mu.Unlock()
	s.broadcast()
}

// Logout clears the Identity and everything derived from it.
// Login submissions still in flight are invalidated.
func (s *Session) Logout() {
	s.mu.Lock()
	s.st.Identity = nil
	s.st.Flow = auth.State{Seq: s.st.Flow.Seq + 1}
	s.st.Admin = panel.NewDispatcher()
	s.st.Nav = NavState{}
	s.mu.Unlock()
	s.broadcast()
}

func (s *Session) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	if s.st.Identity == nil {
		return Snapshot{}
	}
	usr := *s.st.Identity
	return Snapshot{Identity: &usr, Authenticated: true}
}

// Subscribe registers fn to be called after every Login/Logout; the returned func unregisters it.
func (s *Session) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextLsn
	s.nextLsn++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) broadcast() {
	s.mu.RLock()
	snap := s.snapshot()
	lsns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		lsns = append(lsns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range lsns {
		fn(snap)
	}
}

func (s *Session) UpdateFlow(fn func(st *auth.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st.Flow)
}

func (s *Session) Flow() auth.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Flow
}

func (s *Session) UpdateAdmin(fn func(d *panel.Dispatcher)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st.Admin)
}

func (s *Session) Admin() panel.Dispatcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Admin
}

func (s *Session) SetNav(nav NavState) {
	s.mu.Lock()
	s.st.Nav = nav
	s.mu.Unlock()
}

func (s *Session) Nav() NavState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Nav
}

// Notify queues a notice for the next rendered page.
func (s *Session) Notify(n core.Notice) {
	s.mu.Lock()
	s.st.Notices = append(s.st.Notices, n)
	s.mu.Unlock()
}

// DrainNotices returns the queued notices and empties the queue.
func (s *Session) DrainNotices() []core.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices := s.st.Notices
	s.st.Notices = nil
	return notices
}

// State returns a copy of the session content, for storage.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.st
	if st.Identity != nil {
		usr := *st.Identity
		st.Identity = &usr
	}
	st.Notices = append([]core.Notice(nil), st.Notices...)
	return st
}
