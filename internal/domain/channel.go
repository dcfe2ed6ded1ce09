package domain

import "context"

// Channel is a user-facing front end driving the chat store.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}
