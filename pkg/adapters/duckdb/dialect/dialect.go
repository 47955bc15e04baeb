// Package dialect provides the DuckDB SQL dialect definition.
package dialect

import (
	"errors"
	"strconv"

	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/marcboeker/go-duckdb"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect configuration.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderDollar).
	ErrorDecoder(decodeError).
	Build()

// decodeError reports the DuckDB error type as the code.
func decodeError(err error) (code, message string, ok bool) {
	var de *duckdb.Error
	if errors.As(err, &de) {
		return strconv.Itoa(int(de.Type)), de.Msg, true
	}
	return "", "", false
}
