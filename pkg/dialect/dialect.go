// Package dialect provides per-database SQL conventions used when resolving
// statement templates: positional placeholder syntax, identifier and literal
// quoting, and decoding of driver errors.
//
// Concrete dialects are registered from pkg/adapters/*/dialect packages so
// they can be used without pulling in a database driver.
package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PlaceholderStyle defines how positional query parameters are written.
// Both styles are numbered so a repeated parameter can reuse its slot.
type PlaceholderStyle int

const (
	// PlaceholderDollar uses $1, $2, etc. (PostgreSQL, DuckDB).
	PlaceholderDollar PlaceholderStyle = iota
	// PlaceholderNumbered uses ?1, ?2, etc. (SQLite).
	PlaceholderNumbered
)

func (s PlaceholderStyle) String() string {
	switch s {
	case PlaceholderDollar:
		return "dollar"
	case PlaceholderNumbered:
		return "numbered"
	default:
		return "unknown"
	}
}

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `, [
	QuoteEnd string // End quote character (usually same as Quote, ] for [)
	Escape   string // Escape sequence: "", ``, ]]
}

// ErrorDecoder extracts the driver error code and message from err.
// It reports false when err did not originate from the driver.
type ErrorDecoder func(err error) (code, message string, ok bool)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers IdentifierConfig

	// Database-specific settings
	DefaultSchema string           // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   PlaceholderStyle // How to format query parameters

	quoteIdent   func(string) string
	quoteLiteral func(any) (string, bool)
	decodeError  ErrorDecoder
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderNumbered:
		return "?" + strconv.Itoa(index)
	default: // PlaceholderDollar
		return "$" + strconv.Itoa(index)
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	if d.quoteIdent != nil {
		return d.quoteIdent(name)
	}
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteLiteral renders v as a SQL literal safe for textual insertion.
// nil becomes NULL and booleans become TRUE or FALSE. Everything else is
// rendered as a single-quoted string.
func (d *Dialect) QuoteLiteral(v any) string {
	if d.quoteLiteral != nil {
		if s, ok := d.quoteLiteral(v); ok {
			return s
		}
	}
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return quoteString(x.Format(time.RFC3339Nano))
	case []byte:
		return quoteString(string(x))
	case string:
		return quoteString(x)
	case fmt.Stringer:
		return quoteString(x.String())
	default:
		return quoteString(fmt.Sprint(v))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// sqlStateError is implemented by drivers that expose an ANSI SQLSTATE.
type sqlStateError interface {
	SQLState() string
}

// DecodeError extracts the driver error code and message from err, looking
// through wrapped errors. It reports false for errors the driver did not
// produce.
func (d *Dialect) DecodeError(err error) (code, message string, ok bool) {
	if err == nil {
		return "", "", false
	}
	if d.decodeError != nil {
		if code, message, ok = d.decodeError(err); ok {
			return code, message, true
		}
	}
	var se sqlStateError
	if errors.As(err, &se) {
		return se.SQLState(), err.Error(), true
	}
	return "", "", false
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: IdentifierConfig{
				Quote:    `"`,
				QuoteEnd: `"`,
				Escape:   `""`,
			},
		},
	}
}

// Identifiers configures identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.Identifiers = IdentifierConfig{Quote: quote, QuoteEnd: quoteEnd, Escape: escape}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// IdentifierQuoter replaces the default quote-and-escape identifier logic.
func (b *Builder) IdentifierQuoter(fn func(string) string) *Builder {
	b.dialect.quoteIdent = fn
	return b
}

// LiteralQuoter installs a literal quoter tried before the default one.
// fn reports false to fall back to the default rendering.
func (b *Builder) LiteralQuoter(fn func(any) (string, bool)) *Builder {
	b.dialect.quoteLiteral = fn
	return b
}

// ErrorDecoder installs the driver-specific error decoder.
func (b *Builder) ErrorDecoder(fn ErrorDecoder) *Builder {
	b.dialect.decodeError = fn
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
