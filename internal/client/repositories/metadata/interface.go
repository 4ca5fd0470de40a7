// Package metadata stores small client-side key/value records in the local
// database: the skip-auth flag and the persisted auth provider session.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store. Get returns (nil, nil) for
// a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
