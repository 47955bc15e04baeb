package dialect

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateErr struct{ code string }

func (e *stateErr) Error() string    { return "state " + e.code }
func (e *stateErr) SQLState() string { return e.code }

func TestPlaceholderStyleString(t *testing.T) {
	assert.Equal(t, "dollar", PlaceholderDollar.String())
	assert.Equal(t, "numbered", PlaceholderNumbered.String())
	assert.Equal(t, "unknown", PlaceholderStyle(99).String())
}

func TestFormatPlaceholder(t *testing.T) {
	tests := []struct {
		style PlaceholderStyle
		index int
		want  string
	}{
		{PlaceholderDollar, 1, "$1"},
		{PlaceholderDollar, 12, "$12"},
		{PlaceholderNumbered, 1, "?1"},
		{PlaceholderNumbered, 3, "?3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			d := NewDialect("test").PlaceholderStyle(tt.style).Build()
			assert.Equal(t, tt.want, d.FormatPlaceholder(tt.index))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	d := NewDialect("test").Build()
	assert.Equal(t, `"users"`, d.QuoteIdentifier("users"))
	assert.Equal(t, `"we""ird"`, d.QuoteIdentifier(`we"ird`))

	brackets := NewDialect("brackets").Identifiers("[", "]", "]]").Build()
	assert.Equal(t, "[a]]b]", brackets.QuoteIdentifier("a]b"))

	custom := NewDialect("custom").IdentifierQuoter(func(s string) string { return "<" + s + ">" }).Build()
	assert.Equal(t, "<x>", custom.QuoteIdentifier("x"))
}

func TestQuoteLiteral(t *testing.T) {
	d := NewDialect("test").Build()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"true", true, "TRUE"},
		{"false", false, "FALSE"},
		{"string", "abc", "'abc'"},
		{"quote", "o'neil", "'o''neil'"},
		{"int", 42, "'42'"},
		{"float", 1.5, "'1.5'"},
		{"bytes", []byte("raw"), "'raw'"},
		{"time", ts, "'2024-01-02T03:04:05Z'"},
		{"stringer", PlaceholderDollar, "'dollar'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.QuoteLiteral(tt.in))
		})
	}
}

func TestQuoteLiteral_CustomFallsBack(t *testing.T) {
	d := NewDialect("test").LiteralQuoter(func(v any) (string, bool) {
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		return "E'" + s + "'", true
	}).Build()

	assert.Equal(t, "E'x'", d.QuoteLiteral("x"))
	assert.Equal(t, "NULL", d.QuoteLiteral(nil))
}

func TestDecodeError(t *testing.T) {
	d := NewDialect("test").Build()

	code, msg, ok := d.DecodeError(fmt.Errorf("wrapped: %w", &stateErr{code: "42P01"}))
	require.True(t, ok)
	assert.Equal(t, "42P01", code)
	assert.Contains(t, msg, "state 42P01")

	_, _, ok = d.DecodeError(errors.New("plain"))
	assert.False(t, ok)

	_, _, ok = d.DecodeError(nil)
	assert.False(t, ok)
}

func TestDecodeError_Custom(t *testing.T) {
	d := NewDialect("test").ErrorDecoder(func(err error) (string, string, bool) {
		if err.Error() == "boom" {
			return "B001", "kaboom", true
		}
		return "", "", false
	}).Build()

	code, msg, ok := d.DecodeError(errors.New("boom"))
	require.True(t, ok)
	assert.Equal(t, "B001", code)
	assert.Equal(t, "kaboom", msg)

	// falls through to SQLSTATE detection
	code, _, ok = d.DecodeError(&stateErr{code: "23505"})
	require.True(t, ok)
	assert.Equal(t, "23505", code)
}

func TestRegistry(t *testing.T) {
	Register(NewDialect("Registry_Test").Build())

	d, ok := Get("registry_test")
	require.True(t, ok)
	assert.Equal(t, "Registry_Test", d.Name)
	assert.Contains(t, List(), "registry_test")

	_, err := MustGet("nope")
	var ude *UnknownDialectError
	require.ErrorAs(t, err, &ude)
	assert.Equal(t, "nope", ude.Name)
	assert.Contains(t, err.Error(), "registry_test")

	_, err = MustGet("")
	assert.ErrorIs(t, err, ErrDialectRequired)
}
