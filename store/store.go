// Package store defines the aggregate persistence interface for Sift
// rule snapshots. Backends: Postgres, SQLite, MongoDB, and Memory.
package store

import (
	"context"

	"github.com/xraph/sift/rule"
)

// Store is the aggregate persistence interface. A single backend
// implements rule persistence plus lifecycle operations.
type Store interface {
	rule.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
