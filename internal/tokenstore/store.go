// Package tokenstore persists the single bearer token held by this client.
//
// A store holds at most one value under a fixed key. Save overwrites, Get
// reports absence with ok=false, and Remove is idempotent.
package tokenstore

import "context"

// DefaultKey is the storage key used when none is configured.
const DefaultKey = "token"

// Store is durable key-value storage for the bearer token.
type Store interface {
	Save(ctx context.Context, token string) error
	Get(ctx context.Context) (token string, ok bool, err error)
	Remove(ctx context.Context) error
}
