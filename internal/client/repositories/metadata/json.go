package metadata

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoadJSON decodes the value stored under key into v.
// It reports false when the key is absent.
func LoadJSON(ctx context.Context, r Repository, key string, v any) (bool, error) {
	b, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode metadata[%s]: %w", key, err)
	}
	return true, nil
}

// StoreJSON encodes v and stores it under key.
func StoreJSON(ctx context.Context, r Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode metadata[%s]: %w", key, err)
	}
	return r.Set(ctx, key, b)
}
