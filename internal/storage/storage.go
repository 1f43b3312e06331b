// Package storage provides the local key/value store used to persist client state.
package storage

import (
	"context"

	"github.com/good-yellow-bee/peervote/internal/models"
)

// Storage is the main interface for local state.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// Path returns the database file location.
	Path() string

	KV() KVRepository
}

// KVRepository is a string key/value store with the semantics of browser localStorage.
type KVRepository interface {
	// Get returns nil, nil when the key does not exist.
	Get(ctx context.Context, key string) (*models.Entry, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*models.Entry, error)
}
