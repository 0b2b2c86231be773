// Package store provides the persistent-store adapter boundary: schema
// catalog introspection and read-only statement execution.
//
// Adapters open and close their own connection per call; the engine imposes
// no pooling contract. The execution gate is responsible for never handing an
// adapter a mutating statement — adapters themselves do not re-check.
package store

import (
	"context"
	"errors"

	"github.com/sqlsage/sqlsage/pkg/models"
)

// ErrNotConfigured means no store connection is configured. It is the one
// failure raised directly to the caller of a query, since no partial result
// is possible without a store.
var ErrNotConfigured = errors.New("store not configured")

// Adapter is the persistent-store boundary consumed by the engine.
type Adapter interface {
	// Identity returns a stable key for this connection, used to key the
	// process-wide catalog cache.
	Identity() string

	// FetchCatalog introspects the schema: tables, columns, row counts.
	FetchCatalog(ctx context.Context) (*models.CatalogSnapshot, error)

	// RunStatement executes one declarative statement and returns its rows.
	RunStatement(ctx context.Context, statement string) ([]map[string]any, error)

	// Ping checks whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}
