package sessions

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-delivery-console/users"
	"github.com/rs/zerolog/log"

	cerrors "github.com/jrsteele09/go-delivery-console/internal/errors"
)

var (
	// ErrStaleGeneration is returned when an operation tries to commit after the session it started
	// against has been cleared or re-authenticated.
	ErrStaleGeneration   = errors.New("stale session generation")
	ErrIncompleteSession = errors.New("authenticated session requires a user and an access token")
	ErrSessionClosed     = cerrors.ErrSessionClosed
)

// State is a point-in-time copy of the session. IsAuthenticated implies User and Token are set.
type State struct {
	User            *users.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
	Generation      uint64
}

// HasRole reports whether the state is authenticated with the given role (any role when empty).
func (s State) HasRole(role users.RoleType) bool {
	return s.IsAuthenticated && s.User.HasRole(role)
}

// Session is the in-memory source of truth for one principal. It is created empty, mutated only
// through Authenticate and Clear, and torn down with Teardown.
//
// Every Authenticate or Clear advances the generation. An operation captures the generation in
// Begin and may only commit if nothing else committed in between.
type Session struct {
	ID string

	commitLock sync.Mutex // serialises Authenticate and Clear
	notifyLock sync.Mutex // held from each state change until subscribers have seen it

	lock        sync.RWMutex
	user        *users.User
	token       string
	generation  uint64
	inFlight    int
	closed      bool
	subscribers map[int]func(State)
	nextSubID   int
}

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) {
		s.ID = id
	}
}

func New(opts ...Option) *Session {
	s := &Session{
		ID:          uuid.New().String(),
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Snapshot() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	return State{
		User:            s.user,
		Token:           s.token,
		IsAuthenticated: s.user != nil && s.token != "",
		IsLoading:       s.inFlight > 0,
		Generation:      s.generation,
	}
}

// Begin marks an operation as in flight and returns the generation it runs against.
// done must be called exactly once on every exit path; extra calls are ignored.
func (s *Session) Begin() (uint64, func(), error) {
	var gen uint64
	closed := false
	s.publish(func() bool {
		if s.closed {
			closed = true
			return false
		}
		s.inFlight++
		gen = s.generation
		return true
	})
	if closed {
		return 0, func() {}, ErrSessionClosed
	}

	var once sync.Once
	return gen, func() {
		once.Do(s.end)
	}, nil
}

func (s *Session) end() {
	s.publish(func() bool {
		if s.inFlight > 0 {
			s.inFlight--
		}
		return true
	})
}

// publish applies change under the state lock and delivers the resulting state if change reports
// one. Subscribers see states in the order they were made.
func (s *Session) publish(change func() bool) {
	s.notifyLock.Lock()
	defer s.notifyLock.Unlock()

	s.lock.Lock()
	changed := change()
	state := s.snapshotLocked()
	s.lock.Unlock()
	if changed {
		s.notify(state)
	}
}

// Authenticate publishes user and token if gen is still current. persist runs first, under the
// commit lock, so the credential store and the in-memory state change together.
func (s *Session) Authenticate(gen uint64, user *users.User, token string, persist func() error) error {
	if user == nil || token == "" {
		return ErrIncompleteSession
	}

	s.commitLock.Lock()
	defer s.commitLock.Unlock()

	s.lock.RLock()
	closed, current := s.closed, s.generation
	s.lock.RUnlock()
	if closed {
		return ErrSessionClosed
	}
	if gen != current {
		log.Debug().Str("session", s.ID).Uint64("gen", gen).Uint64("current", current).Msg("Discarding stale session commit")
		return ErrStaleGeneration
	}

	if persist != nil {
		if err := persist(); err != nil {
			return err
		}
	}

	s.publish(func() bool {
		s.user = user
		s.token = token
		s.generation++
		return true
	})
	return nil
}

// Clear resets the session to empty and invalidates every operation started before it.
// purge runs under the commit lock; the in-memory state is reset even if purge fails.
func (s *Session) Clear(purge func() error) error {
	s.commitLock.Lock()
	defer s.commitLock.Unlock()
	return s.clearLocked(purge)
}

// clearLocked requires commitLock.
func (s *Session) clearLocked(purge func() error) error {
	var err error
	if purge != nil {
		err = purge()
	}

	s.publish(func() bool {
		changed := s.user != nil || s.token != ""
		s.user = nil
		s.token = ""
		s.generation++
		return changed
	})
	return err
}

// Invalidate clears the session like Clear, but only while gen is still current. It reports whether
// the clear happened. A failing operation uses it so it cannot wipe a session committed after it began.
func (s *Session) Invalidate(gen uint64, purge func() error) (bool, error) {
	s.commitLock.Lock()
	defer s.commitLock.Unlock()

	s.lock.RLock()
	current := s.generation
	s.lock.RUnlock()
	if gen != current {
		return false, nil
	}
	return true, s.clearLocked(purge)
}

// Teardown clears the session and closes it. Later Begin and Authenticate calls fail with ErrSessionClosed.
func (s *Session) Teardown() {
	_ = s.Clear(nil)

	s.lock.Lock()
	s.closed = true
	s.subscribers = make(map[int]func(State))
	s.lock.Unlock()
}

func (s *Session) Closed() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.closed
}

// Subscribe calls fn after every state change, in order, until cancel is called. fn may read the
// session but must not call Begin, Authenticate, Clear or Invalidate, which notify while holding
// their locks.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.subscribers, id)
	}
}

// Follow is Subscribe, but first calls fn with the current state. No change can be delivered
// before that first call.
func (s *Session) Follow(fn func(State)) (cancel func()) {
	s.notifyLock.Lock()
	defer s.notifyLock.Unlock()

	cancel = s.Subscribe(fn)
	fn(s.Snapshot())
	return cancel
}

func (s *Session) notify(state State) {
	s.lock.RLock()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.lock.RUnlock()

	for _, fn := range subs {
		fn(state)
	}
}
