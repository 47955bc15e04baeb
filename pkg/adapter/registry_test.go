package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{Type: "fake_db", Available: []string{"duckdb", "postgres"}}
	assert.Equal(t,
		`unknown adapter type "fake_db" (available: duckdb, postgres); check target.type in leapquery.yaml`,
		err.Error())
}

func TestRegister(t *testing.T) {
	Register("Test_Adapter_Internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"))
	assert.True(t, IsRegistered("TEST_ADAPTER_INTERNAL"))
	assert.Contains(t, ListAdapters(), "test_adapter_internal")

	factory, ok := Get("test_adapter_internal")
	require.True(t, ok)
	assert.NotNil(t, factory)
}

func TestRegister_Panics(t *testing.T) {
	noop := func(_ *slog.Logger) Adapter { return nil }
	Register("test_adapter_dup", noop)

	tests := []struct {
		name    string
		adapter string
		factory Factory
	}{
		{"duplicate", "TEST_ADAPTER_DUP", noop},
		{"empty name", "", noop},
		{"nil factory", "test_adapter_nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { Register(tt.adapter, tt.factory) })
		})
	}
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	assert.ErrorIs(t, err, ErrTypeRequired)
}

func TestNewAdapter_NilLogger(t *testing.T) {
	var got *slog.Logger
	Register("test_adapter_logger", func(l *slog.Logger) Adapter {
		got = l
		return nil
	})

	_, err := NewAdapter(Config{Type: "test_adapter_logger"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
