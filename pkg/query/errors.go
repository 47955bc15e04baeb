package query

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/registry"
	"github.com/leapstack-labs/leapquery/internal/template"
)

// MissingParameterError lists every named parameter a template referenced
// but the parameter bag did not provide.
type MissingParameterError = template.MissingParameterError

// StatementNotFoundError is returned when a statement key is not registered.
type StatementNotFoundError = registry.StatementNotFoundError

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindMissingParameter means binding failed; the driver was never called.
	KindMissingParameter ErrorKind = iota + 1
	// KindStatementNotFound means the statement key is unknown.
	KindStatementNotFound
	// KindDriver means the driver rejected the statement.
	KindDriver
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingParameter:
		return "missing_parameter"
	case KindStatementNotFound:
		return "statement_not_found"
	case KindDriver:
		return "driver"
	default:
		return "unknown"
	}
}

// DriverError is the decoded form of an error returned by the database driver.
type DriverError struct {
	// Code is the driver's error code, such as a Postgres SQLSTATE ("42P01").
	Code string
	// Message is the driver's own message.
	Message string
	// Err is the original driver error, untouched.
	Err error
}

func (e *DriverError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// QueryContext is the diagnostic bundle attached to every failed call.
type QueryContext struct {
	// Name is the statement name ("a_select"), or "raw_query" for raw SQL.
	Name string
	// Key is the registry key; empty for raw SQL.
	Key string
	// SQL is the final statement text, or the formatted template when binding failed.
	SQL string
	// Args holds the positional values sent to the driver.
	Args []any
	// Error is set only for driver failures.
	Error *DriverError
}

// Error is returned by every failed SQL, Query and Formattable.Query call
// unless an error transformer replaces it.
type Error struct {
	Kind    ErrorKind
	Message string
	Context *QueryContext
	Cause   error

	stack []uintptr
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace returns the call stack starting at the function that invoked
// the query method.
func (e *Error) StackTrace() []runtime.Frame {
	if len(e.stack) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(e.stack)
	out := make([]runtime.Frame, 0, len(e.stack))
	for {
		f, more := frames.Next()
		out = append(out, f)
		if !more {
			break
		}
	}
	return out
}

// Stack renders StackTrace one frame per line as "function\n\tfile:line".
func (e *Error) Stack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace() {
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
	}
	return sb.String()
}

// Location returns "file:line" of the call site, or "" if unknown.
func (e *Error) Location() string {
	frames := e.StackTrace()
	if len(frames) == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", frames[0].File, frames[0].Line)
}

// Format implements fmt.Formatter. %+v appends the stack trace.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, e.Message)
			_, _ = io.WriteString(s, "\n")
			_, _ = io.WriteString(s, e.Stack())
			return
		}
		_, _ = io.WriteString(s, e.Message)
	case 's':
		_, _ = io.WriteString(s, e.Message)
	case 'q':
		fmt.Fprintf(s, "%q", e.Message)
	}
}

// maxStackDepth bounds captured call stacks.
const maxStackDepth = 32

// callers records the stack of the function calling the public entry point.
// skip 3 drops runtime.Callers, callers and the entry point itself.
func callers() []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}
