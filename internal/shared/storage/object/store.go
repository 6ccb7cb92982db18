package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a storage key does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Entry describes one child of a listed prefix.
type Entry struct {
	Key     string
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores r under the namespace of userId with a random name prefix.
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// List returns the direct children of prefix. A missing prefix lists as empty.
	List(ctx context.Context, prefix string) ([]Entry, error)
	// Delete removes a key, or everything below it when it names a directory.
	Delete(ctx context.Context, storageKey string) error
}

// CleanKey normalizes a slash-separated key and rejects traversal.
func CleanKey(key string) (string, error) {
	if strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	trimmed := strings.TrimLeft(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", nil
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	clean := path.Clean(trimmed)
	if clean == "." {
		return "", nil
	}
	return clean, nil
}
