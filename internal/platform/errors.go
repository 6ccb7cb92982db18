package platform

import (
	"errors"
	"sync"
)

// Kind classifies a failure recorded in ErrorState.
type Kind string

const (
	HostUnavailable  Kind = "host_unavailable"
	AuthFailure      Kind = "auth_failure"
	StorageFailure   Kind = "storage_failure"
	InferenceFailure Kind = "inference_failure"
	BootstrapTimeout Kind = "bootstrap_timeout"
	RenderFailure    Kind = "render_failure"
)

// ErrHostNotReady is the cause recorded when no host is bound.
var ErrHostNotReady = errors.New("host not ready")

// Error is the last classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil || e.Err.Error() == e.Message {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorState holds at most one error. Each failure overwrites the previous one.
type ErrorState struct {
	mu       sync.Mutex
	cur      *Error
	onChange func()
}

// Current returns the recorded error or nil.
func (s *ErrorState) Current() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	cp := *s.cur
	return &cp
}

// Set records a failure.
func (s *ErrorState) Set(kind Kind, message string, cause error) {
	s.mu.Lock()
	s.cur = &Error{Kind: kind, Message: message, Err: cause}
	notify := s.onChange
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Clear drops the recorded error.
func (s *ErrorState) Clear() {
	s.mu.Lock()
	had := s.cur != nil
	s.cur = nil
	notify := s.onChange
	s.mu.Unlock()
	if had && notify != nil {
		notify()
	}
}
