package query

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapquery/internal/testutil"
	pgdialect "github.com/leapstack-labs/leapquery/pkg/adapters/postgres/dialect"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	root := testutil.WriteStatements(t, map[string]string{
		"users/by_org.sql": "SELECT * FROM %I WHERE org = :org.id AND active = :active AND org_name = :org.name AND id <> :org.id",
	})
	r, err := NewRenderer(context.Background(), root, pgdialect.Postgres, testutil.NewTestLogger(t))
	require.NoError(t, err)

	params := Params{"org": map[string]any{"id": 4, "name": "acme"}, "active": true}
	out, err := r.Render("users.by_org", params, "users")
	require.NoError(t, err)

	assert.Equal(t, "users_by_org", out.Name)
	assert.Equal(t, "users.by_org", out.Key)
	assert.Equal(t, `SELECT * FROM "users" WHERE org = :org.id AND active = :active AND org_name = :org.name AND id <> :org.id`, out.Template)
	assert.Equal(t, `SELECT * FROM "users" WHERE org = $1 AND active = $2 AND org_name = $3 AND id <> $1`, out.SQL)
	assert.Equal(t, []any{4, true, "acme"}, out.Args)
	assert.Equal(t, []string{"org.id", "active", "org.name"}, out.Names)

	again, err := r.Render("users.by_org", params, "users")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRenderer_RenderSQL(t *testing.T) {
	r, err := NewRenderer(context.Background(), "", pgdialect.Postgres, nil)
	require.NoError(t, err)

	out, err := r.RenderSQL("SELECT * FROM t WHERE x = :a", Params{"a": "v"})
	require.NoError(t, err)
	assert.Equal(t, RawQueryName, out.Name)
	assert.Equal(t, "SELECT * FROM t WHERE x = $1", out.SQL)
	assert.Equal(t, []any{"v"}, out.Args)

	_, err = r.RenderSQL("SELECT :a, :b.c, :d", Params{"a": 1, "b": map[string]any{}})
	qerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindMissingParameter, qerr.Kind)
	assert.Contains(t, qerr.Error(), "b.c")
	assert.Contains(t, qerr.Error(), "d")
	assert.Equal(t, "SELECT :a, :b.c, :d", qerr.Context.SQL)
	assert.Contains(t, qerr.Location(), "render_test.go:")
}

func TestNewRenderer_RequiresDialect(t *testing.T) {
	_, err := NewRenderer(context.Background(), "", nil, nil)
	assert.ErrorIs(t, err, dialect.ErrDialectRequired)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "PENDING", StatePending.String())
	assert.Equal(t, "DISPATCHED", StateDispatched.String())
	assert.Equal(t, "FAILED", StateFailed.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "missing_parameter", KindMissingParameter.String())
	assert.Equal(t, "statement_not_found", KindStatementNotFound.String())
	assert.Equal(t, "driver", KindDriver.String())
}
