package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cliStatements = map[string]string{
	"users/insert.sql":     "INSERT INTO users (id, name) VALUES (:user.id, :user.name)",
	"users/by_id.sql":      "SELECT id, name FROM users WHERE id = :id",
	"users/from_table.sql": "SELECT name FROM %I ORDER BY id",
}

// newTestConfig returns a config over a fresh SQLite file and statement tree.
func newTestConfig(t *testing.T, format string) *config.Config {
	t.Helper()
	return &config.Config{
		StatementsDir: testutil.WriteStatements(t, cliStatements),
		OutputFormat:  format,
		Target: &config.TargetConfig{
			Type:     "sqlite",
			Database: filepath.Join(t.TempDir(), "test.db"),
		},
	}
}

func execCommand(t *testing.T, cfg *config.Config, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func decodeRows(t *testing.T, s string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &rows), s)
	return rows
}

func seedUsers(t *testing.T, cfg *config.Config) {
	t.Helper()
	_, _, err := execCommand(t, cfg, NewQueryCommand(), "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, _, err = execCommand(t, cfg, NewRunCommand(), "users.insert", "-p", "user.id=1", "-p", "user.name=ada")
	require.NoError(t, err)
	_, _, err = execCommand(t, cfg, NewRunCommand(), "users.insert", "-p", "user.id=2", "-p", "user.name=grace")
	require.NoError(t, err)
}

func TestRunCommand(t *testing.T) {
	cfg := newTestConfig(t, "json")

	out, _, err := execCommand(t, cfg, NewQueryCommand(), "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command": "CREATE", "rows_affected": 0}`, out)

	out, _, err = execCommand(t, cfg, NewRunCommand(), "users.insert", "-p", "user.id=1", "-p", "user.name=ada")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command": "INSERT", "rows_affected": 1}`, out)

	out, _, err = execCommand(t, cfg, NewRunCommand(), "users.by_id", "-p", "id=1")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": float64(1), "name": "ada"}}, decodeRows(t, out))

	out, _, err = execCommand(t, cfg, NewRunCommand(), "users.from_table", "-F", "users")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "ada"}}, decodeRows(t, out))
}

func TestRunCommand_Errors(t *testing.T) {
	cfg := newTestConfig(t, "json")
	seedUsers(t, cfg)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown statement", []string{"users.nope"}, `statement "users.nope" not found`},
		{"missing parameter", []string{"users.by_id"}, "id"},
		{"bad parameter", []string{"users.by_id", "-p", "id"}, "want path=value"},
		{"no statement", nil, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execCommand(t, cfg, NewRunCommand(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQueryCommand(t *testing.T) {
	cfg := newTestConfig(t, "json")
	seedUsers(t, cfg)

	t.Run("named parameters", func(t *testing.T) {
		out, _, err := execCommand(t, cfg, NewQueryCommand(), "SELECT name FROM users WHERE id = :id", "-p", "id=2")
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"name": "grace"}}, decodeRows(t, out))
	})

	t.Run("format tokens", func(t *testing.T) {
		out, _, err := execCommand(t, cfg, NewQueryCommand(), "SELECT %I FROM users WHERE name = %L", "-F", "id", "-F", "grace")
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"id": float64(2)}}, decodeRows(t, out))
	})

	t.Run("stdin", func(t *testing.T) {
		cmd := NewQueryCommand()
		cmd.SetIn(strings.NewReader("SELECT count(*) AS n FROM users\n"))
		out, _, err := execCommand(t, cfg, cmd)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"n": float64(2)}}, decodeRows(t, out))
	})

	t.Run("empty stdin", func(t *testing.T) {
		cmd := NewQueryCommand()
		cmd.SetIn(strings.NewReader("  \n"))
		_, _, err := execCommand(t, cfg, cmd)
		require.Error(t, err)
		assert.Equal(t, "no SQL provided", err.Error())
	})

	t.Run("file", func(t *testing.T) {
		dir := testutil.WriteStatements(t, map[string]string{"q.sql": "SELECT name FROM users ORDER BY id DESC LIMIT 1"})
		out, _, err := execCommand(t, cfg, NewQueryCommand(), "-f", filepath.Join(dir, "q.sql"))
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"name": "grace"}}, decodeRows(t, out))
	})

	t.Run("driver error shows SQL", func(t *testing.T) {
		_, errOut, err := execCommand(t, cfg, NewQueryCommand(), "SELECT * FROM nope WHERE id = :id", "-p", "id=1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query raw_query failed")
		assert.Contains(t, errOut, "SQL: SELECT * FROM nope WHERE id = ?1")
		assert.Contains(t, errOut, "Args: [1]")
	})
}

func TestQueryCommand_Table(t *testing.T) {
	cfg := newTestConfig(t, "table")
	seedUsers(t, cfg)

	out, _, err := execCommand(t, cfg, NewQueryCommand(), "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Contains(t, out, "ada")
	assert.Contains(t, out, "grace")
	assert.Contains(t, out, "(2 rows)")
}

func TestRenderCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cfg := newTestConfig(t, "json")
		out, _, err := execCommand(t, cfg, NewRenderCommand(), "users.insert", "-p", "user.id=5", "-p", "user.name=ada")
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"name": "users_insert",
			"key": "users.insert",
			"sql": "INSERT INTO users (id, name) VALUES (?1, ?2)",
			"args": [5, "ada"],
			"params": ["user.id", "user.name"]
		}`, out)
	})

	t.Run("text", func(t *testing.T) {
		cfg := newTestConfig(t, "text")
		out, _, err := execCommand(t, cfg, NewRenderCommand(), "users.by_id", "-p", "id=3")
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name FROM users WHERE id = ?1\n  [1] id = 3\n", out)
	})

	t.Run("markdown raw", func(t *testing.T) {
		cfg := newTestConfig(t, "markdown")
		out, _, err := execCommand(t, cfg, NewRenderCommand(), "--raw", "SELECT %I FROM t WHERE x = :x", "-F", "col", "-p", "x=a")
		require.NoError(t, err)
		assert.Contains(t, out, "# Rendered SQL: raw_query")
		assert.Contains(t, out, "```sql\nSELECT \"col\" FROM t WHERE x = ?1\n```")
		assert.Contains(t, out, "- **[1] x:** a")
	})

	t.Run("postgres placeholders without a connection", func(t *testing.T) {
		cfg := newTestConfig(t, "text")
		cfg.Target = &config.TargetConfig{Type: "postgres", Host: "unreachable.invalid"}
		out, _, err := execCommand(t, cfg, NewRenderCommand(), "users.by_id", "-p", "id=3")
		require.NoError(t, err)
		assert.Contains(t, out, "WHERE id = $1")
	})

	t.Run("missing parameter", func(t *testing.T) {
		cfg := newTestConfig(t, "json")
		_, _, err := execCommand(t, cfg, NewRenderCommand(), "users.by_id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query users_by_id")
	})
}

func TestListCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cfg := newTestConfig(t, "json")
		out, _, err := execCommand(t, cfg, NewListCommand())
		require.NoError(t, err)

		var infos []statementInfo
		require.NoError(t, json.Unmarshal([]byte(out), &infos))
		assert.Equal(t, []statementInfo{
			{Key: "users.by_id", Name: "users_by_id", File: "users/by_id.sql", Params: []string{"id"}},
			{Key: "users.from_table", Name: "users_from_table", File: "users/from_table.sql", Params: []string{}, Formats: 1},
			{Key: "users.insert", Name: "users_insert", File: "users/insert.sql", Params: []string{"user.id", "user.name"}},
		}, infos)
	})

	t.Run("markdown", func(t *testing.T) {
		cfg := newTestConfig(t, "markdown")
		out, _, err := execCommand(t, cfg, NewListCommand())
		require.NoError(t, err)
		assert.Contains(t, out, "# Statements (3 total)")
		assert.Contains(t, out, "## users.insert")
		assert.Contains(t, out, "- **Params:** user.id, user.name")
	})

	t.Run("missing directory", func(t *testing.T) {
		cfg := newTestConfig(t, "text")
		cfg.StatementsDir = filepath.Join(t.TempDir(), "missing")
		out, _, err := execCommand(t, cfg, NewListCommand())
		require.NoError(t, err)
		assert.Contains(t, out, "No statements found")
	})
}

func TestNewCommandContext_NoConfig(t *testing.T) {
	cmd := NewListCommand()
	cmd.SetContext(context.Background())
	_, err := NewCommandContext(cmd)
	require.Error(t, err)
	assert.Equal(t, "configuration not loaded", err.Error())
}

func TestNewCommandContext_BadOutput(t *testing.T) {
	cfg := newTestConfig(t, "yaml")
	_, _, err := execCommand(t, cfg, NewListCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "yaml"`)
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3", "abc", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "leapquery v1.2.3 (commit abc, built today)")
	assert.Contains(t, out.String(), "sqlite")
}
