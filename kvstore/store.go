// Package kvstore abstracts the persistent key-value store that backs
// session records. Two implementations exist: a Redis-backed store for real
// deployments and an in-process LocalStore fallback for development. The
// choice is made once at startup; callers only ever see the Store interface.
package kvstore

import (
	"context"
	"time"
)

// Store is a minimal get/set-with-ttl/delete abstraction. Get returns
// errors.ErrNotFound when the key is absent; other errors are transient
// store failures. A ttl of zero or less means no store-level expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
