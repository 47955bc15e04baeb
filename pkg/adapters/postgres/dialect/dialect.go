// Package dialect provides the PostgreSQL SQL dialect definition.
// This package has no connection dependencies, so tools that only need
// quoting and error decoding can use it without opening a pool.
package dialect

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/lib/pq"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect configuration.
var Postgres = dialect.NewDialect("postgres").
	DefaultSchema("public").
	PlaceholderStyle(dialect.PlaceholderDollar).
	IdentifierQuoter(pq.QuoteIdentifier).
	LiteralQuoter(quoteLiteral).
	ErrorDecoder(decodeError).
	Build()

// quoteLiteral handles strings with pq so backslashes get the E'' form.
func quoteLiteral(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return pq.QuoteLiteral(x), true
	case []byte:
		return pq.QuoteLiteral(string(x)), true
	}
	return "", false
}

// decodeError unwraps server errors from both pgx and lib/pq.
func decodeError(err error) (code, message string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message, true
	}
	return "", "", false
}
