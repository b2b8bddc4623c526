// internal/infrastructure/kv/store.go
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key holds no live value
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistence surface used for carts, preferences and remote cart ids.
// Values are opaque byte payloads; callers own the encoding.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Pinger is implemented by stores backed by a remote server
type Pinger interface {
	Ping(ctx context.Context) error
}

// Purger is implemented by stores that keep expired rows until swept
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Ping checks a store's backend when it has one
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
