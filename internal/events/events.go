// Package events provides the observability bus that reports every
// statement dispatched by a query client.
package events

import (
	"time"
)

// Type identifies an event channel on a Bus.
type Type string

const (
	// Query fires when a statement is handed to the driver.
	Query Type = "query"
	// Result fires when the driver returns, successfully or not. Calls that
	// fail before dispatch (missing parameter, unknown statement) emit
	// neither Query nor Result.
	Result Type = "result"
)

// Event describes one statement execution. Query events carry the fields up
// to Start; Result events additionally carry End, Duration, RowCount and Err.
type Event struct {
	Type Type

	// ID is shared by the query and result events of one dispatch.
	ID string

	// Name is the statement name ("a_select"), or "raw_query" for raw SQL.
	Name string

	// Key is the registry key ("a.select"); empty for raw SQL.
	Key string

	SQL  string
	Args []any

	Start    time.Time
	End      time.Time
	Duration time.Duration

	RowCount int64
	Err      error
}

// Handler receives events. Handlers run synchronously on the emitting goroutine.
type Handler func(Event)
