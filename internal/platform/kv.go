package platform

import (
	"context"

	"resumind/internal/host"
)

// KVGateway delegates to the host key-value store.
type KVGateway struct {
	s *Store
}

type lookup struct {
	value string
	found bool
}

// Lookup separates a missing key (found=false, ok=true) from a failed call (ok=false).
func (g *KVGateway) Lookup(ctx context.Context, key string) (value string, found bool, ok bool) {
	res, ok := delegate(g.s, StorageFailure, "kv.get", func(h host.Host) (lookup, error) {
		v, found, err := h.KV().Get(ctx, key)
		return lookup{value: v, found: found}, err
	})
	return res.value, res.found, ok
}

// Get returns the value, or false when the key is missing or the call failed.
func (g *KVGateway) Get(ctx context.Context, key string) (string, bool) {
	v, found, ok := g.Lookup(ctx, key)
	return v, ok && found
}

func (g *KVGateway) Set(ctx context.Context, key, value string) (bool, bool) {
	return delegate(g.s, StorageFailure, "kv.set", func(h host.Host) (bool, error) {
		return h.KV().Set(ctx, key, value)
	})
}

func (g *KVGateway) Delete(ctx context.Context, key string) (bool, bool) {
	return delegate(g.s, StorageFailure, "kv.delete", func(h host.Host) (bool, error) {
		return h.KV().Delete(ctx, key)
	})
}

func (g *KVGateway) List(ctx context.Context, pattern string, withValues bool) ([]host.KVItem, bool) {
	return delegate(g.s, StorageFailure, "kv.list", func(h host.Host) ([]host.KVItem, error) {
		return h.KV().List(ctx, pattern, withValues)
	})
}

// Flush removes every key of the user. It is unconditional.
func (g *KVGateway) Flush(ctx context.Context) (bool, bool) {
	return delegate(g.s, StorageFailure, "kv.flush", func(h host.Host) (bool, error) {
		return h.KV().Flush(ctx)
	})
}
