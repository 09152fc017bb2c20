// Package metadata is the durable key/value contract the auth core persists
// through, with SQLite, Badger and in-memory backends.
//
// Values are opaque bytes; callers own the encoding. Get returns (nil, nil)
// for an absent key and Delete of an absent key is not an error. No backend
// offers transactions spanning several keys.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
