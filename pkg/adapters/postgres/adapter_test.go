package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "schema sets search_path",
			config: adapter.Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "analytics",
				Username: "analyst",
				Schema:   "reporting",
			},
			expected: "host=db.example.com port=5433 dbname=analytics sslmode=disable user=analyst search_path=reporting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := buildPostgresDSN(tt.config)
			assert.Equal(t, tt.expected, dsn)
		})
	}
}

func TestBuildPoolConfig(t *testing.T) {
	t.Run("connection string wins", func(t *testing.T) {
		cfg, err := buildPoolConfig(adapter.Config{
			ConnectionString: "postgres://u:p@db.internal:6543/app?sslmode=disable",
			Host:             "ignored",
		})
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
		assert.Equal(t, uint16(6543), cfg.ConnConfig.Port)
		assert.Equal(t, "app", cfg.ConnConfig.Database)
	})

	t.Run("pool params", func(t *testing.T) {
		cfg, err := buildPoolConfig(adapter.Config{
			Database: "app",
			Params: map[string]any{
				"pool": map[string]any{
					"max_conns":          "8",
					"min_conns":          2,
					"max_conn_lifetime":  "30m",
					"max_conn_idle_time": "1m",
				},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int32(8), cfg.MaxConns)
		assert.Equal(t, int32(2), cfg.MinConns)
		assert.Equal(t, 30*time.Minute, cfg.MaxConnLifetime)
		assert.Equal(t, time.Minute, cfg.MaxConnIdleTime)
	})

	t.Run("bad pool params", func(t *testing.T) {
		_, err := buildPoolConfig(adapter.Config{
			Database: "app",
			Params:   map[string]any{"pool": map[string]any{"max_conn_lifetime": "forever"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid postgres pool params")
	})

	t.Run("bad connection string", func(t *testing.T) {
		_, err := buildPoolConfig(adapter.Config{ConnectionString: "postgres://%zz"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse postgres connection string")
	})
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "INSERT", commandName("INSERT 0 1"))
	assert.Equal(t, "SELECT", commandName("SELECT 3"))
	assert.Equal(t, "BEGIN", commandName("BEGIN"))
	assert.Equal(t, "", commandName(""))
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.Nil(t, adp.Pool, "Pool should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.Dialect().Name, "dialect name should be postgres")

	// Verify interface compliance
	var _ adapter.Adapter = (*Adapter)(nil)
	var _ adapter.Adapter = adp
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = adp.Begin(ctx)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"), "postgres adapter should be registered")

	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	pg, ok := factory(nil).(*Adapter)
	assert.True(t, ok, "factory should return *Adapter")
	assert.NotNil(t, pg)
}

func TestAdapter_Close(t *testing.T) {
	// Close should not error even without connection
	adp := New(nil)
	assert.NoError(t, adp.Close())
}

// TestAdapter_Live runs against a real server when LEAPQUERY_TEST_POSTGRES_URL is set.
func TestAdapter_Live(t *testing.T) {
	dsn := os.Getenv("LEAPQUERY_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("LEAPQUERY_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{ConnectionString: dsn}))
	defer func() { _ = adp.Close() }()

	res, err := adp.Query(ctx, "SELECT $1::int AS x", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, res.Columns)
	assert.Equal(t, []map[string]any{{"x": int32(1)}}, res.Rows)
	assert.Equal(t, "SELECT", res.Command)

	_, err = adp.Query(ctx, "SELECT * FROM relation_that_does_not_exist")
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "42P01", pgErr.Code)

	tx, err := adp.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Query(ctx, "CREATE TEMP TABLE leapquery_tx (id int)")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
}
