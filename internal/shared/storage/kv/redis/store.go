package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"resumind/internal/shared/storage/kv"
)

const scanBatch = 200

// Store implements kv.Store on Redis strings. Keys are laid out as
// "<prefix>:<namespace>:<key>".
type Store struct {
	client *goredis.Client
	prefix string
}

// New creates a store backed by Redis.
func New(addr, password string, db int) *Store {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: rdb, prefix: "kv"}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.fullKey(namespace, key)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	if err := s.client.Set(ctx, s.fullKey(namespace, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.fullKey(namespace, key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

// List scans the namespace and filters with kv.Match so glob semantics match
// the other backends.
func (s *Store) List(ctx context.Context, namespace, pattern string) ([]kv.Entry, error) {
	if err := kv.ValidatePattern(pattern); err != nil {
		return nil, err
	}
	keys, err := s.scan(ctx, namespace)
	if err != nil {
		return nil, err
	}
	nsPrefix := s.fullKey(namespace, "")

	var matched []string
	for _, full := range keys {
		ok, err := kv.Match(pattern, strings.TrimPrefix(full, nsPrefix))
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, full)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	sort.Strings(matched)

	values, err := s.client.MGet(ctx, matched...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]kv.Entry, 0, len(matched))
	for i, full := range matched {
		str, ok := values[i].(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		out = append(out, kv.Entry{Key: strings.TrimPrefix(full, nsPrefix), Value: str})
	}
	return out, nil
}

func (s *Store) Flush(ctx context.Context, namespace string) error {
	keys, err := s.scan(ctx, namespace)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		if err := s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) scan(ctx context.Context, namespace string) ([]string, error) {
	match := escapeGlob(s.fullKey(namespace, "")) + "*"
	var keys []string
	iter := s.client.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

func (s *Store) fullKey(namespace, key string) string {
	return s.prefix + ":" + namespace + ":" + key
}

// escapeGlob quotes characters that SCAN MATCH would treat as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ kv.Store = (*Store)(nil)
