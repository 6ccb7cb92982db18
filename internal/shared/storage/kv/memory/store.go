package memory

import (
	"context"
	"sort"
	"sync"

	"resumind/internal/shared/storage/kv"
)

// Store keeps namespaced values in process memory.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string]map[string]string)}
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[namespace][key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string)
		s.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[namespace][key]; !ok {
		return false, nil
	}
	delete(s.data[namespace], key)
	return true, nil
}

func (s *Store) List(ctx context.Context, namespace, pattern string) ([]kv.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := kv.ValidatePattern(pattern); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []kv.Entry
	for k, v := range s.data[namespace] {
		ok, err := kv.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, kv.Entry{Key: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Flush(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, namespace)
	return nil
}

func (s *Store) Close() error { return nil }

var _ kv.Store = (*Store)(nil)
