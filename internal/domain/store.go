package domain

import "context"

// KVStore is a string key/value store backing local persistence.
type KVStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
