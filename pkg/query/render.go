package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapquery/internal/registry"
	"github.com/leapstack-labs/leapquery/internal/template"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// RawQueryName is the statement name reported for raw SQL.
const RawQueryName = "raw_query"

// Params is a parameter bag. Nested maps and structs are walked by dotted
// paths such as :user.id.
type Params = template.Params

// Rendered is a statement ready for dispatch.
type Rendered struct {
	Name string
	Key  string

	// Template is the statement text after format substitution.
	Template string

	SQL  string
	Args []any

	// Names holds the parameter path bound to each placeholder.
	Names []string
}

// call is one request flowing through the pipeline.
type call struct {
	name    string
	key     string
	text    string
	params  Params
	formats []any
	stack   []uintptr
}

func namedCall(key string) call {
	return call{name: registry.NameForKey(key), key: key}
}

func rawCall(sql string) call {
	return call{name: RawQueryName, text: sql}
}

// Renderer turns statements into dialect SQL and positional arguments
// without executing them. It is safe for concurrent use.
type Renderer struct {
	statements *registry.Registry
	dialect    *dialect.Dialect
	cache      *template.Cache
}

// NewRenderer loads the statements under rootDir and renders them for d.
// An empty rootDir allows raw SQL only.
func NewRenderer(ctx context.Context, rootDir string, d *dialect.Dialect, logger *slog.Logger) (*Renderer, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	stmts, err := registry.Load(ctx, rootDir, logger)
	if err != nil {
		return nil, err
	}
	cache, err := template.NewCache(0)
	if err != nil {
		return nil, err
	}
	return &Renderer{statements: stmts, dialect: d, cache: cache}, nil
}

// Render formats and binds the statement registered under key.
func (r *Renderer) Render(key string, params Params, formats ...any) (*Rendered, error) {
	cl := namedCall(key)
	cl.params, cl.formats, cl.stack = params, formats, callers()
	out, qerr := r.render(cl, nil)
	if qerr != nil {
		return nil, qerr
	}
	return out, nil
}

// RenderSQL formats and binds raw SQL.
func (r *Renderer) RenderSQL(sql string, params Params, formats ...any) (*Rendered, error) {
	cl := rawCall(sql)
	cl.params, cl.formats, cl.stack = params, formats, callers()
	out, qerr := r.render(cl, nil)
	if qerr != nil {
		return nil, qerr
	}
	return out, nil
}

// Statements returns every registered statement sorted by key.
func (r *Renderer) Statements() []registry.Statement {
	return r.statements.Statements()
}

// render runs the FORMATTING and BINDING stages. transition, when set, is
// told about every stage entered.
func (r *Renderer) render(cl call, transition func(State)) (*Rendered, *Error) {
	if transition == nil {
		transition = func(State) {}
	}

	text := cl.text
	if cl.key != "" {
		stmt, err := r.statements.Lookup(cl.key)
		if err != nil {
			return nil, &Error{
				Kind:    KindStatementNotFound,
				Message: err.Error(),
				Context: &QueryContext{Name: cl.name, Key: cl.key},
				Cause:   err,
				stack:   cl.stack,
			}
		}
		text = stmt.Text
	}

	if len(cl.formats) > 0 {
		transition(StateFormatting)
		text = template.ResolveFormats(text, cl.formats, r.dialect)
	}

	transition(StateBinding)
	bound, err := template.BindParsed(r.cache.Parse(text), cl.params, r.dialect.FormatPlaceholder)
	if err != nil {
		return nil, &Error{
			Kind:    KindMissingParameter,
			Message: fmt.Sprintf("query %s: %s", cl.name, err),
			Context: &QueryContext{Name: cl.name, Key: cl.key, SQL: text},
			Cause:   err,
			stack:   cl.stack,
		}
	}

	return &Rendered{
		Name:     cl.name,
		Key:      cl.key,
		Template: text,
		SQL:      bound.SQL,
		Args:     bound.Args,
		Names:    bound.Names,
	}, nil
}
