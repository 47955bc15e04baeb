// Package postgres provides a PostgreSQL adapter backed by a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	pgdialect "github.com/leapstack-labs/leapquery/pkg/adapters/postgres/dialect"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// PoolParams holds pgxpool tuning, decoded from adapter.Config.Params.
type PoolParams struct {
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	Pool   *pgxpool.Pool
	Cfg    adapter.Config
	Logger *slog.Logger
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{Logger: logger}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return pgdialect.Postgres
}

// IsConnected returns true if the pool is open.
func (a *Adapter) IsConnected() bool {
	return a.Pool != nil
}

// Connect opens and pings a connection pool.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", poolCfg.ConnConfig.Host),
		slog.String("database", poolCfg.ConnConfig.Database),
		slog.Int("max_conns", int(poolCfg.MaxConns)))

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.Pool = pool
	a.Cfg = cfg
	return nil
}

// buildPoolConfig parses the DSN and applies pool params.
func buildPoolConfig(cfg adapter.Config) (*pgxpool.Config, error) {
	dsn := cfg.ConnectionString
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
	}

	params, err := decodePoolParams(cfg.Params)
	if err != nil {
		return nil, err
	}
	if params.MaxConns > 0 {
		poolCfg.MaxConns = params.MaxConns
	}
	if params.MinConns > 0 {
		poolCfg.MinConns = params.MinConns
	}
	if params.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = params.MaxConnLifetime
	}
	if params.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = params.MaxConnIdleTime
	}
	return poolCfg, nil
}

// decodePoolParams reads the "pool" entry of params.
func decodePoolParams(params map[string]any) (PoolParams, error) {
	var out PoolParams
	raw, ok := params["pool"]
	if !ok || raw == nil {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return out, fmt.Errorf("failed to create pool params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("invalid postgres pool params: %w", err)
	}
	return out, nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	// Build key=value format: host=localhost port=5432 user=postgres ...
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s", cfg.Schema)
	}

	return dsn
}

// Close closes the pool.
func (a *Adapter) Close() error {
	if a.Pool != nil {
		a.Logger.Debug("closing postgres pool")
		a.Pool.Close()
		a.Pool = nil
	}
	return nil
}

// Query executes a statement on a pooled connection.
// Server errors are returned unwrapped as *pgconn.PgError.
func (a *Adapter) Query(ctx context.Context, sql string, args ...any) (*adapter.Result, error) {
	if a.Pool == nil {
		return nil, adapter.ErrNotConnected
	}
	return run(ctx, a.Pool, sql, args)
}

// Begin starts a transaction on a pooled connection.
func (a *Adapter) Begin(ctx context.Context) (adapter.Tx, error) {
	if a.Pool == nil {
		return nil, adapter.ErrNotConnected
	}
	tx, err := a.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Query executes a statement inside the transaction.
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (*adapter.Result, error) {
	return run(ctx, t.tx, sql, args)
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func run(ctx context.Context, q querier, sql string, args []any) (*adapter.Result, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	tag := rows.CommandTag()
	return &adapter.Result{
		Rows:     maps,
		Columns:  columns,
		RowCount: tag.RowsAffected(),
		Command:  commandName(tag.String()),
	}, nil
}

// commandName extracts the verb from a command tag such as "INSERT 0 1".
func commandName(tag string) string {
	name, _, _ := strings.Cut(tag, " ")
	return name
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
