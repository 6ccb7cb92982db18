package local

import (
	"context"

	"resumind/internal/host"
	"resumind/internal/shared/storage/kv"
	"resumind/internal/shared/telemetry"
)

type values struct {
	store kv.Store
	ns    string
}

func (v *values) Get(ctx context.Context, key string) (string, bool, error) {
	return v.store.Get(ctx, v.ns, key)
}

func (v *values) Set(ctx context.Context, key, value string) (bool, error) {
	if err := v.store.Set(ctx, v.ns, key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (v *values) Delete(ctx context.Context, key string) (bool, error) {
	return v.store.Delete(ctx, v.ns, key)
}

func (v *values) List(ctx context.Context, pattern string, withValues bool) ([]host.KVItem, error) {
	if err := kv.ValidatePattern(pattern); err != nil {
		return nil, err
	}
	entries, err := v.store.List(ctx, v.ns, pattern)
	if err != nil {
		return nil, err
	}
	items := make([]host.KVItem, 0, len(entries))
	for _, e := range entries {
		item := host.KVItem{Key: e.Key}
		if withValues {
			item.Value = e.Value
		}
		items = append(items, item)
	}
	return items, nil
}

func (v *values) Flush(ctx context.Context) (bool, error) {
	if err := v.store.Flush(ctx, v.ns); err != nil {
		return false, err
	}
	telemetry.Info("host.kv.flush", map[string]any{"namespace": v.ns})
	return true, nil
}
