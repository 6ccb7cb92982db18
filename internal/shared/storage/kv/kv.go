package kv

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry is one stored key and its value.
type Entry struct {
	Key   string
	Value string
}

// Store is a namespaced string key-value store. Every user gets its own namespace.
type Store interface {
	// Get reports found=false for a missing key.
	Get(ctx context.Context, namespace, key string) (value string, found bool, err error)
	Set(ctx context.Context, namespace, key, value string) error
	// Delete reports whether a key was removed.
	Delete(ctx context.Context, namespace, key string) (bool, error)
	// List returns entries whose key matches the glob pattern, ordered by key.
	List(ctx context.Context, namespace, pattern string) ([]Entry, error)
	// Flush removes every key in namespace.
	Flush(ctx context.Context, namespace string) error
	Close() error
}

// ErrInvalidPattern is returned for malformed glob patterns.
var ErrInvalidPattern = doublestar.ErrBadPattern

// Match reports whether key matches a glob pattern. An empty pattern matches everything.
func Match(pattern, key string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := doublestar.Match(pattern, key)
	if err != nil {
		return false, fmt.Errorf("kv pattern %q: %w", pattern, err)
	}
	return ok, nil
}

// ValidatePattern rejects malformed glob patterns before a backend runs them.
func ValidatePattern(pattern string) error {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("kv pattern %q: %w", pattern, ErrInvalidPattern)
	}
	return nil
}
