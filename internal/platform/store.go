package platform

import (
	"context"
	"sync"
	"time"

	"resumind/internal/host"
)

// Options configure a Store.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	Clock        Clock
}

// Snapshot is a consistent view of the store.
type Snapshot struct {
	Readiness Readiness
	Phase     Phase
	Session   Session
	Loading   bool
	Err       *Error
}

// Store is the access layer: bootstrap state, the session, the last error
// and the four capability gateways. Build one per process and pass it down.
type Store struct {
	resolver host.Resolver
	errs     *ErrorState
	boot     *Controller

	auth *AuthGateway
	fs   *FileGateway
	kv   *KVGateway
	ai   *InferenceGateway

	mu      sync.Mutex
	session Session
	phase   Phase
	loading bool

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// New wires a store to resolver. Nothing runs until Start.
func New(resolver host.Resolver, opts Options) *Store {
	s := &Store{
		resolver: resolver,
		errs:     &ErrorState{},
		phase:    SignedOut,
		loading:  true,
		subs:     make(map[int]chan Snapshot),
	}
	s.errs.onChange = s.publish
	s.auth = &AuthGateway{s: s}
	s.fs = &FileGateway{s: s}
	s.kv = &KVGateway{s: s}
	s.ai = &InferenceGateway{s: s}

	s.boot = NewController(resolver, opts.PollInterval, opts.PollTimeout, opts.Clock)
	s.boot.onChange = s.publish
	s.boot.onReady = func(ctx context.Context) {
		s.auth.CheckStatus(ctx)
		s.setLoading(false)
	}
	s.boot.onFailed = func(cancelled bool) {
		if !cancelled {
			s.errs.Set(BootstrapTimeout, "host failed to load", nil)
		}
		s.setLoading(false)
	}
	return s
}

// Start begins host detection. Repeated calls are no-ops.
func (s *Store) Start(ctx context.Context) { s.boot.Start(ctx) }

// Stop cancels host detection if it is still polling.
func (s *Store) Stop() { s.boot.Stop() }

// Wait blocks until bootstrap reaches a terminal state and the initial
// status check has finished.
func (s *Store) Wait(ctx context.Context) (Readiness, error) { return s.boot.Wait(ctx) }

// Bootstrap exposes the readiness controller.
func (s *Store) Bootstrap() *Controller { return s.boot }

func (s *Store) Auth() *AuthGateway    { return s.auth }
func (s *Store) FS() *FileGateway      { return s.fs }
func (s *Store) KV() *KVGateway        { return s.kv }
func (s *Store) AI() *InferenceGateway { return s.ai }

// Err returns the last recorded error.
func (s *Store) Err() *Error { return s.errs.Current() }

// ClearError drops the recorded error.
func (s *Store) ClearError() { s.errs.Clear() }

// ReportError records a failure raised outside the gateways, such as a
// conversion error surfaced by a caller.
func (s *Store) ReportError(kind Kind, message string, cause error) {
	s.errs.Set(kind, message, cause)
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Phase:   s.phase,
		Session: copySession(s.session),
		Loading: s.loading,
	}
	s.mu.Unlock()
	snap.Readiness = s.boot.State()
	snap.Err = s.errs.Current()
	return snap
}

// Subscribe delivers the current snapshot and then every change until ctx
// ends. Slow readers only ever see the latest snapshot.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	offer(ch, s.Snapshot())
	s.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subsMu.Lock()
		delete(s.subs, id)
		close(ch)
		s.subsMu.Unlock()
	}()
	return ch
}

func (s *Store) publish() {
	snap := s.Snapshot()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		offer(ch, snap)
	}
}

// offer replaces any unread snapshot with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (s *Store) sessionSnapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.session)
}

func (s *Store) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.publish()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.publish()
}

// setSession is the only writer of the session. A nil user signs out.
func (s *Store) setSession(user *host.Identity, phase Phase) {
	s.mu.Lock()
	if user == nil {
		s.session = Session{}
	} else {
		u := *user
		s.session = Session{User: &u, IsAuthenticated: true}
	}
	s.phase = phase
	s.loading = false
	s.mu.Unlock()
	s.publish()
}

func copySession(in Session) Session {
	if in.User == nil {
		return Session{IsAuthenticated: in.IsAuthenticated}
	}
	u := *in.User
	return Session{User: &u, IsAuthenticated: in.IsAuthenticated}
}
