// Package local is a development host backed by the configured object
// store, KV store and model provider. It serves both the in-process Host and
// the host daemon's HTTP API.
package local

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"resumind/internal/host"
	"resumind/internal/llm"
	"resumind/internal/shared/auth"
	"resumind/internal/shared/storage/kv"
	"resumind/internal/shared/storage/object"
	"resumind/internal/shared/util"
)

// Backend holds the stores shared by every user view.
type Backend struct {
	Objects object.ObjectStore
	KV      kv.Store
	LLM     llm.Client
	// Model, when set, replaces the model a chat request asks for.
	Model  string
	Tokens *auth.Issuer
	// Identity is the account SignIn grants.
	Identity host.Identity
}

// Files returns the filesystem of userID.
func (b *Backend) Files(userID string) host.FS {
	return b.files(userID)
}

func (b *Backend) files(userID string) *files {
	return &files{store: b.Objects, userID: userID, root: util.UserNamespace(userID)}
}

// Values returns the key-value view of userID.
func (b *Backend) Values(userID string) host.KV {
	return &values{store: b.KV, ns: util.UserNamespace(userID)}
}

// Inference returns the AI capability of userID. File parts resolve against
// that user's files.
func (b *Backend) Inference(userID string) host.AI {
	return &inference{client: b.LLM, model: b.Model, files: b.files(userID)}
}

// IssueToken signs a session for the configured identity.
func (b *Backend) IssueToken() (string, error) {
	if b.Identity.ID == "" {
		return "", errors.New("host identity not configured")
	}
	return b.Tokens.Sign(auth.Claims{
		Username:         b.Identity.Username,
		Email:            b.Identity.Email,
		Name:             b.Identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{Subject: b.Identity.ID},
	})
}

// Identify verifies token and returns its identity.
func (b *Backend) Identify(token string) (host.Identity, error) {
	if token == "" {
		return host.Identity{}, host.ErrNotSignedIn
	}
	claims, err := b.Tokens.Verify(token)
	if err != nil {
		return host.Identity{}, host.ErrNotSignedIn
	}
	return IdentityFromClaims(claims), nil
}

// IdentityFromClaims maps session claims to a host identity.
func IdentityFromClaims(c auth.Claims) host.Identity {
	return host.Identity{ID: c.Subject, Username: c.Username, Name: c.Name, Email: c.Email}
}
