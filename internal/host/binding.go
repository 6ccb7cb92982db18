package host

import "sync/atomic"

// Resolver returns the host if it is available right now.
type Resolver interface {
	Resolve() (Host, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() (Host, bool)

func (f ResolverFunc) Resolve() (Host, bool) { return f() }

// Slot is an injection point that a host fills in at some later time.
// The zero value is empty and safe for concurrent use.
type Slot struct {
	h atomic.Pointer[holder]
}

type holder struct{ h Host }

// Inject publishes h. A nil host empties the slot.
func (s *Slot) Inject(h Host) {
	if h == nil {
		s.h.Store(nil)
		return
	}
	s.h.Store(&holder{h: h})
}

// Clear empties the slot.
func (s *Slot) Clear() { s.h.Store(nil) }

// Resolve is non-blocking and has no side effects.
func (s *Slot) Resolve() (Host, bool) {
	p := s.h.Load()
	if p == nil {
		return nil, false
	}
	return p.h, true
}

var _ Resolver = (*Slot)(nil)
