package query

import (
	"context"
)

// Formattable accumulates format values for one statement. Each Format call
// returns a new builder, so a partially formatted builder can be reused.
type Formattable struct {
	c      *Client
	base   call
	values []any
}

// Formattable starts a format chain for the statement registered under key.
// An unknown key is reported by Query.
func (c *Client) Formattable(key string) *Formattable {
	return &Formattable{c: c, base: namedCall(key)}
}

// FormattableQuery starts a format chain for raw SQL.
func (c *Client) FormattableQuery(sql string) *Formattable {
	return &Formattable{c: c, base: rawCall(sql)}
}

// Format queues values for the next format tokens, in order.
func (f *Formattable) Format(values ...any) *Formattable {
	next := make([]any, 0, len(f.values)+len(values))
	next = append(next, f.values...)
	next = append(next, values...)
	return &Formattable{c: f.c, base: f.base, values: next}
}

// Values returns a copy of the queued format values.
func (f *Formattable) Values() []any {
	return append([]any(nil), f.values...)
}

// Query substitutes the queued values, binds params and executes.
func (f *Formattable) Query(ctx context.Context, params Params) (*Result, error) {
	cl := f.base
	cl.params, cl.formats, cl.stack = params, f.values, callers()
	return f.c.execute(ctx, cl)
}
