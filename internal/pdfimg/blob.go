package pdfimg

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const blobScheme = "blob:resumind/"

// BlobStore hands out ephemeral URLs for in-memory content. Whoever creates
// a URL owns it and must Revoke it.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string]blobEntry
}

type blobEntry struct {
	data []byte
	typ  string
}

// NewBlobStore returns an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blobEntry)}
}

// Create registers data and returns its URL.
func (b *BlobStore) Create(data []byte, contentType string) string {
	url := blobScheme + uuid.NewString()
	b.mu.Lock()
	b.blobs[url] = blobEntry{data: data, typ: contentType}
	b.mu.Unlock()
	return url
}

// Open returns the content behind url.
func (b *BlobStore) Open(url string) ([]byte, string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.blobs[url]
	return e.data, e.typ, ok
}

// Revoke releases url. It reports whether the URL was live.
func (b *BlobStore) Revoke(url string) bool {
	if !strings.HasPrefix(url, blobScheme) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[url]; !ok {
		return false
	}
	delete(b.blobs, url)
	return true
}

// Len reports how many URLs are live.
func (b *BlobStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}
