package platform

import (
	"context"

	"resumind/internal/host"
)

// AuthGateway owns the session lifecycle.
type AuthGateway struct {
	s *Store
}

// IsAuthenticated reports the current session flag.
func (g *AuthGateway) IsAuthenticated() bool {
	return g.s.sessionSnapshot().IsAuthenticated
}

// User returns the signed-in identity, if any.
func (g *AuthGateway) User() (host.Identity, bool) {
	sess := g.s.sessionSnapshot()
	if sess.User == nil {
		return host.Identity{}, false
	}
	return *sess.User, true
}

// CheckStatus asks the host whether a session exists and, if so, loads the
// identity. It returns false without touching state when no host is bound.
func (g *AuthGateway) CheckStatus(ctx context.Context) bool {
	h, ok := g.s.resolver.Resolve()
	if !ok {
		return false
	}
	g.s.setPhase(Checking)

	signedIn, err := guard(func() (bool, error) { return h.Auth().IsSignedIn(ctx) })
	if err != nil {
		g.s.setSession(nil, SignedOut)
		g.s.fail(AuthFailure, "auth.is_signed_in", "failed to check auth status", err)
		return false
	}
	if !signedIn {
		g.s.setSession(nil, SignedOut)
		g.s.errs.Clear()
		return false
	}

	user, err := guard(func() (host.Identity, error) { return h.Auth().GetUser(ctx) })
	if err != nil {
		g.s.setSession(nil, SignedOut)
		g.s.fail(AuthFailure, "auth.get_user", "failed to check auth status", err)
		return false
	}
	g.s.setSession(&user, SignedIn)
	g.s.errs.Clear()
	return true
}

// SignIn runs the host sign-in and then re-checks status. A failed sign-in
// leaves the session unchanged.
func (g *AuthGateway) SignIn(ctx context.Context) bool {
	h, ok := g.s.resolver.Resolve()
	if !ok {
		g.s.fail(HostUnavailable, "auth.sign_in", ErrHostNotReady.Error(), ErrHostNotReady)
		return false
	}
	g.s.setLoading(true)
	if _, err := guard(func() (struct{}, error) { return struct{}{}, h.Auth().SignIn(ctx) }); err != nil {
		g.s.setLoading(false)
		g.s.fail(AuthFailure, "auth.sign_in", "sign in failed", err)
		return false
	}
	return g.CheckStatus(ctx)
}

// SignOut asks the host to end the session and clears local state whether or
// not that succeeds. It reports whether the host call succeeded.
func (g *AuthGateway) SignOut(ctx context.Context) bool {
	defer g.s.setSession(nil, SignedOut)

	h, ok := g.s.resolver.Resolve()
	if !ok {
		g.s.fail(HostUnavailable, "auth.sign_out", ErrHostNotReady.Error(), ErrHostNotReady)
		return false
	}
	if _, err := guard(func() (struct{}, error) { return struct{}{}, h.Auth().SignOut(ctx) }); err != nil {
		g.s.fail(AuthFailure, "auth.sign_out", "sign out failed", err)
		return false
	}
	return true
}

// Refresh re-fetches the identity without entering Checking. On failure the
// authentication flag is left as it was.
func (g *AuthGateway) Refresh(ctx context.Context) bool {
	h, ok := g.s.resolver.Resolve()
	if !ok {
		g.s.fail(HostUnavailable, "auth.refresh", ErrHostNotReady.Error(), ErrHostNotReady)
		return false
	}
	user, err := guard(func() (host.Identity, error) { return h.Auth().GetUser(ctx) })
	if err != nil {
		g.s.fail(AuthFailure, "auth.refresh", "failed to refresh user", err)
		return false
	}
	g.s.setSession(&user, SignedIn)
	return true
}
