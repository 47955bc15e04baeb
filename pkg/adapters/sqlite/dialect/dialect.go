// Package dialect provides the SQLite SQL dialect definition.
package dialect

import (
	"errors"
	"strconv"

	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"modernc.org/sqlite"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect configuration. Placeholders use the ?NNN
// form so a repeated parameter binds once.
var SQLite = dialect.NewDialect("sqlite").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderNumbered).
	ErrorDecoder(decodeError).
	Build()

// decodeError reports the extended result code of a *sqlite.Error.
func decodeError(err error) (code, message string, ok bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return strconv.Itoa(se.Code()), se.Error(), true
	}
	return "", "", false
}
