package platform

import (
	"fmt"

	"resumind/internal/host"
	"resumind/internal/shared/metrics"
	"resumind/internal/shared/telemetry"
)

// delegate resolves the host and runs fn against it. A missing host or a
// failing call yields (zero, false) and records a classified error; panics
// raised by the host are recovered and classified the same way.
func delegate[T any](s *Store, kind Kind, op string, fn func(h host.Host) (T, error)) (T, bool) {
	var zero T
	h, ok := s.resolver.Resolve()
	if !ok {
		s.fail(HostUnavailable, op, ErrHostNotReady.Error(), ErrHostNotReady)
		return zero, false
	}
	v, err := guard(func() (T, error) { return fn(h) })
	if err != nil {
		s.fail(kind, op, op+" failed", err)
		return zero, false
	}
	return v, true
}

func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("host panic: %v", rec)
		}
	}()
	return fn()
}

func (s *Store) fail(kind Kind, op, message string, cause error) {
	metrics.IncGatewayFailure()
	telemetry.Warn("platform.gateway.failed", map[string]any{
		"op":    op,
		"kind":  string(kind),
		"error": cause,
	})
	s.errs.Set(kind, message, cause)
}
