package template

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quoter mimics postgres quoting closely enough for substitution tests.
type quoter struct{}

func (quoter) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (quoter) QuoteLiteral(v any) string {
	if v == nil {
		return "NULL"
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}

type tableName string

func (t tableName) String() string { return "schema_" + string(t) }

func TestResolveFormats(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		values []any
		want   string
	}{
		{
			name:   "identifier and literal",
			text:   "SELECT * FROM %I WHERE x = %L",
			values: []any{"users", "o'neil"},
			want:   `SELECT * FROM "users" WHERE x = 'o''neil'`,
		},
		{
			name:   "raw insertion",
			text:   "SELECT * FROM t ORDER BY %s",
			values: []any{"created_at DESC"},
			want:   "SELECT * FROM t ORDER BY created_at DESC",
		},
		{
			name:   "raw fragment tokens are filled by later values",
			text:   "SELECT %s FROM %I",
			values: []any{"a, %L", "lit", "t"},
			want:   `SELECT a, 'lit' FROM "t"`,
		},
		{
			name:   "raw fragment keeps named params",
			text:   "SELECT * FROM t WHERE %s",
			values: []any{"x = :a"},
			want:   "SELECT * FROM t WHERE x = :a",
		},
		{
			name:   "unfilled tokens remain",
			text:   "SELECT %s, %s",
			values: []any{"1"},
			want:   "SELECT 1, %s",
		},
		{
			name:   "surplus values ignored",
			text:   "SELECT %L",
			values: []any{1, 2, 3},
			want:   "SELECT '1'",
		},
		{
			name:   "no values",
			text:   "SELECT '%%' || %s",
			values: nil,
			want:   "SELECT '%' || %s",
		},
		{
			name:   "escaped percent collapses",
			text:   "SELECT '100%%', %s",
			values: []any{"x"},
			want:   "SELECT '100%', x",
		},
		{
			name:   "quoted output is not rescanned",
			text:   "%L %s",
			values: []any{"%s", "y"},
			want:   "'%s' y",
		},
		{
			name:   "quoted output keeps double percent",
			text:   "%L",
			values: []any{"a%%b"},
			want:   "'a%%b'",
		},
		{
			name:   "literal list",
			text:   "WHERE id IN (%L)",
			values: []any{[]int{1, 2, 3}},
			want:   "WHERE id IN ('1','2','3')",
		},
		{
			name:   "identifier list",
			text:   "SELECT %I FROM t",
			values: []any{[]string{"a", "b"}},
			want:   `SELECT "a","b" FROM t`,
		},
		{
			name:   "raw list",
			text:   "SELECT %s",
			values: []any{[]any{"a", 1}},
			want:   "SELECT a,1",
		},
		{
			name:   "nil literal",
			text:   "SELECT %L, %s",
			values: []any{nil, nil},
			want:   "SELECT NULL, ",
		},
		{
			name:   "stringer",
			text:   "SELECT * FROM %I",
			values: []any{tableName("users")},
			want:   `SELECT * FROM "schema_users"`,
		},
		{
			name:   "bytes are not a list",
			text:   "SELECT %s",
			values: []any{[]byte("raw")},
			want:   "SELECT raw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFormats(tt.text, tt.values, quoter{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFormats_Chained(t *testing.T) {
	// Two successive passes behave like one pass over both value lists.
	text := "SELECT %s FROM %I WHERE x = %L"

	once := ResolveFormats(text, []any{"a", "t", 1}, quoter{})

	// The first pass leaves %I and %L unfilled; running it again on its
	// output must not collapse anything the second pass still needs.
	first := ResolveFormats(text, []any{"a"}, quoter{})
	assert.Equal(t, "SELECT a FROM %I WHERE x = %L", first)
	twice := ResolveFormats(first, []any{"t", 1}, quoter{})

	assert.Equal(t, once, twice)
	assert.Equal(t, `SELECT a FROM "t" WHERE x = '1'`, twice)
}

func TestResolveFormats_ThenBind(t *testing.T) {
	sql := ResolveFormats("SELECT * FROM %I WHERE %s", []any{"users", "id = :user.id"}, quoter{})

	b, err := Bind(sql, Params{"user": Params{"id": 42}}, dollar)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE id = $1`, b.SQL)
	assert.Equal(t, []any{42}, b.Args)
}
