package platform

import "resumind/internal/host"

// Phase is the authentication phase of the session.
type Phase string

const (
	SignedOut Phase = "signed_out"
	Checking  Phase = "checking"
	SignedIn  Phase = "signed_in"
)

// Session is the authentication state. IsAuthenticated is true exactly when
// User was set by a successful status check or refresh.
type Session struct {
	User            *host.Identity
	IsAuthenticated bool
}
