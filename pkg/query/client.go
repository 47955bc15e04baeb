// Package query executes named SQL statements against a database adapter.
//
// Statements are loaded from *.sql files under a root directory. Each call
// optionally substitutes format tokens (%s, %I, %L), binds :named parameters
// to the adapter's positional placeholders, dispatches once and reports the
// call on an events.Bus. Failures are returned as *Error carrying a
// QueryContext and the caller's stack.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapquery/internal/events"
	"github.com/leapstack-labs/leapquery/internal/registry"
	"github.com/leapstack-labs/leapquery/internal/template"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
)

// Result is a materialized query result.
type Result = adapter.Result

// Options configures New. They are read once.
type Options struct {
	// Adapter, when set, is used as-is and must already be connected.
	// Otherwise an adapter is created from AdapterConfig and connected.
	// The client closes it in either case.
	Adapter adapter.Adapter

	// AdapterConfig selects and configures the adapter. Type defaults to
	// "postgres"; the adapter package must be imported for registration.
	AdapterConfig adapter.Config

	// ConnectionString fills AdapterConfig.ConnectionString when that is empty.
	ConnectionString string

	// RootDir holds the *.sql statements. Empty allows raw SQL only.
	RootDir string

	// ErrorTransformer, when set, replaces every *Error returned to callers.
	// A transformer that returns nil leaves the original *Error in place, so a
	// failed call never reports success.
	ErrorTransformer func(*Error) error

	Logger *slog.Logger

	// ParseCacheSize bounds the parsed template cache.
	// Zero uses template.DefaultCacheSize.
	ParseCacheSize int

	// Watch reloads statements when files under RootDir change.
	Watch bool
}

// DefaultAdapterType is used when Options.AdapterConfig.Type is empty.
const DefaultAdapterType = "postgres"

// core is shared by a client, its isolated views and its transactions.
type core struct {
	adapter   adapter.Adapter
	renderer  *Renderer
	transform func(*Error) error
	logger    *slog.Logger

	closeOnce sync.Once
	closeErr  error
	stopWatch func()
}

// Client executes statements. It is safe for concurrent use.
type Client struct {
	core *core
	exec adapter.Executor
	bus  *events.Bus
	inTx bool
}

// New connects to the database and loads statements.
func New(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	adp := opts.Adapter
	if adp == nil {
		cfg := opts.AdapterConfig
		if cfg.Type == "" {
			cfg.Type = DefaultAdapterType
		}
		if cfg.ConnectionString == "" {
			cfg.ConnectionString = opts.ConnectionString
		}

		var err error
		adp, err = adapter.NewAdapter(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := adp.Connect(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
		}
	}

	stmts, err := registry.Load(ctx, opts.RootDir, logger)
	if err != nil {
		_ = adp.Close()
		return nil, err
	}
	cache, err := template.NewCache(opts.ParseCacheSize)
	if err != nil {
		_ = adp.Close()
		return nil, err
	}

	c := &Client{
		core: &core{
			adapter: adp,
			renderer: &Renderer{
				statements: stmts,
				dialect:    adp.Dialect(),
				cache:      cache,
			},
			transform: opts.ErrorTransformer,
			logger:    logger,
		},
		exec: adp,
		bus:  events.NewBus(),
	}

	if opts.Watch && opts.RootDir != "" {
		c.core.startWatch(stmts)
	}

	logger.Debug("query client ready",
		slog.String("dialect", adp.Dialect().Name),
		slog.Int("statements", stmts.Len()))
	return c, nil
}

func (c *core) startWatch(stmts *registry.Registry) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := stmts.Watch(ctx); err != nil {
			c.logger.Error("statement watcher stopped", slog.Any("error", err))
		}
	}()
	c.stopWatch = func() {
		cancel()
		<-done
	}
}

// Close stops the statement watcher and closes the adapter. It is safe to
// call more than once. On a transaction client it does nothing.
func (c *Client) Close() error {
	if c.inTx {
		return nil
	}
	c.core.closeOnce.Do(func() {
		if c.core.stopWatch != nil {
			c.core.stopWatch()
		}
		c.core.closeErr = c.core.adapter.Close()
	})
	return c.core.closeErr
}

// Events returns the bus this client reports calls on.
func (c *Client) Events() *events.Bus {
	return c.bus
}

// Statements returns every registered statement sorted by key.
func (c *Client) Statements() []registry.Statement {
	return c.core.renderer.Statements()
}

// Renderer returns the renderer used by this client.
func (c *Client) Renderer() *Renderer {
	return c.core.renderer
}

// Isolated is a view of a client whose calls report only on its own bus.
type Isolated struct {
	*Client
}

// IsolatedEmitter returns a view of c sharing its connection and statements
// but reporting on a fresh bus. Events from the view never reach c's bus and
// events from c never reach the view.
func (c *Client) IsolatedEmitter() *Isolated {
	return &Isolated{Client: &Client{
		core: c.core,
		exec: c.exec,
		bus:  c.bus.Isolated(),
		inTx: c.inTx,
	}}
}

// Dispose detaches every listener of the isolated bus and silences it.
func (i *Isolated) Dispose() {
	i.bus.Dispose()
}

// Close disposes the isolated bus. The parent client stays open.
func (i *Isolated) Close() error {
	i.Dispose()
	return nil
}

// SQL executes the statement registered under key.
func (c *Client) SQL(ctx context.Context, key string, params Params) (*Result, error) {
	cl := namedCall(key)
	cl.params, cl.stack = params, callers()
	return c.execute(ctx, cl)
}

// Query executes raw SQL. Its events are named "raw_query".
func (c *Client) Query(ctx context.Context, sql string, params Params) (*Result, error) {
	cl := rawCall(sql)
	cl.params, cl.stack = params, callers()
	return c.execute(ctx, cl)
}

// execute runs one call through PENDING, FORMATTING, BINDING and DISPATCHED
// to SUCCEEDED or FAILED.
func (c *Client) execute(ctx context.Context, cl call) (*Result, error) {
	logger := c.core.logger.With(slog.String("query", cl.name))
	state := StatePending
	transition := func(next State) {
		logger.Debug("query state",
			slog.String("from", state.String()),
			slog.String("to", next.String()))
		state = next
	}

	rendered, qerr := c.core.renderer.render(cl, transition)
	if qerr != nil {
		transition(StateFailed)
		return nil, c.core.fail(qerr)
	}

	transition(StateDispatched)
	ev := events.Event{
		Type:  events.Query,
		ID:    uuid.NewString(),
		Name:  rendered.Name,
		Key:   rendered.Key,
		SQL:   rendered.SQL,
		Args:  slices.Clone(rendered.Args),
		Start: time.Now(),
	}
	c.bus.Emit(ev)

	res, err := c.exec.Query(ctx, rendered.SQL, rendered.Args...)

	// Listeners get their own copy of the arguments.
	ev.Type = events.Result
	ev.Args = slices.Clone(rendered.Args)
	ev.End = time.Now()
	ev.Duration = ev.End.Sub(ev.Start)

	if err != nil {
		qerr := c.core.driverError(cl, rendered, err)
		ev.Err = qerr
		c.bus.Emit(ev)
		transition(StateFailed)
		return nil, c.core.fail(qerr)
	}

	ev.RowCount = res.RowCount
	c.bus.Emit(ev)
	transition(StateSucceeded)
	logger.Debug("query succeeded",
		slog.Int64("rows", res.RowCount),
		slog.Duration("duration", ev.Duration))
	return res, nil
}

// driverError wraps a driver failure with its query context.
func (c *core) driverError(cl call, r *Rendered, err error) *Error {
	code, message, ok := c.renderer.dialect.DecodeError(err)
	if !ok {
		message = err.Error()
	}
	derr := &DriverError{Code: code, Message: message, Err: err}

	return &Error{
		Kind:    KindDriver,
		Message: fmt.Sprintf("query %s failed: %s", cl.name, derr),
		Context: &QueryContext{
			Name:  r.Name,
			Key:   r.Key,
			SQL:   r.SQL,
			Args:  r.Args,
			Error: derr,
		},
		Cause: err,
		stack: cl.stack,
	}
}

// fail applies the error transformer, if any.
func (c *core) fail(e *Error) error {
	c.logger.Debug("query failed",
		slog.String("query", e.Context.Name),
		slog.String("kind", e.Kind.String()),
		slog.String("error", e.Message))
	if c.transform == nil {
		return e
	}
	if out := c.transform(e); out != nil {
		return out
	}
	return e
}

// AsError reports whether err is, or wraps, an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr, true
	}
	return nil, false
}
