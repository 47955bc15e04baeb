// Package adapter defines the database contract used by the query client.
//
// An adapter dispatches final SQL text with positional arguments and returns
// materialized rows. Concrete implementations live in pkg/adapters/
// subdirectories and register themselves from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// Config holds configuration for connecting to a database.
type Config struct {
	Type string

	// ConnectionString, when set, is used as-is and takes precedence over
	// the discrete fields below.
	ConnectionString string

	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string

	// Params holds adapter-specific settings decoded by each adapter.
	Params map[string]any
}

// Result is a fully materialized query result.
type Result struct {
	// Rows maps column name to value for each returned row.
	Rows []map[string]any

	// Columns lists column names in select order.
	Columns []string

	// RowCount is the number of rows returned, or affected for statements
	// that return none.
	RowCount int64

	// Command is the leading SQL verb ("SELECT", "INSERT", ...).
	Command string
}

// Executor dispatches one SQL statement. sql must already use the adapter
// dialect's positional placeholders; args are index-aligned with them.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (*Result, error)
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	Executor

	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)

	// Close closes the database connection and releases resources.
	Close() error

	// Dialect returns the SQL dialect used to bind and quote statements.
	Dialect() *dialect.Dialect
}

// Tx is a transaction started by Adapter.Begin.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
