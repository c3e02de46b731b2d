// Package storage provides the durable key-value storage behind the client
// session. The session uses exactly two keys, KeyToken and KeyUser, which are
// always written and cleared together.
package storage

import (
	"context"
	"errors"
)

const (
	// KeyToken holds the bearer token issued at login.
	KeyToken = "token"
	// KeyUser holds the JSON encoded profile snapshot.
	KeyUser = "user"
)

// ErrSealed is returned when a sealed file is opened without a passphrase.
var ErrSealed = errors.New("storage file is sealed: passphrase required")

// Store is durable string storage addressed by key.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
