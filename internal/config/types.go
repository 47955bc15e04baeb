// Package config loads leapquery configuration.
//
// Values are layered with koanf: built-in defaults, then leapquery.yaml,
// then LEAPQUERY_ environment variables, then explicitly set CLI flags.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // postgres, sqlite, duckdb

	// ConnectionString is passed to the driver as-is when set.
	ConnectionString string `koanf:"connection_string"`

	// File-based databases (SQLite, DuckDB)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Pool tunes the connection pool of network adapters.
	Pool *PoolConfig `koanf:"pool"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// PoolConfig holds connection pool limits. Durations use time.ParseDuration syntax.
type PoolConfig struct {
	MaxConns        int    `koanf:"max_conns"`
	MinConns        int    `koanf:"min_conns"`
	MaxConnLifetime string `koanf:"max_conn_lifetime"`
	MaxConnIdleTime string `koanf:"max_conn_idle_time"`
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the target into an adapter.Config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	cfg := adapter.Config{
		Type:             strings.ToLower(t.Type),
		ConnectionString: t.ConnectionString,
		Path:             t.Database,
		Host:             t.Host,
		Port:             t.Port,
		Database:         t.Database,
		Username:         t.User,
		Password:         t.Password,
		Schema:           t.Schema,
		Options:          t.Options,
	}

	if len(t.Params) > 0 || t.Pool != nil {
		cfg.Params = make(map[string]any, len(t.Params)+1)
		for k, v := range t.Params {
			cfg.Params[k] = v
		}
	}
	if t.Pool != nil {
		pool := map[string]any{}
		if t.Pool.MaxConns > 0 {
			pool["max_conns"] = t.Pool.MaxConns
		}
		if t.Pool.MinConns > 0 {
			pool["min_conns"] = t.Pool.MinConns
		}
		if t.Pool.MaxConnLifetime != "" {
			pool["max_conn_lifetime"] = t.Pool.MaxConnLifetime
		}
		if t.Pool.MaxConnIdleTime != "" {
			pool["max_conn_idle_time"] = t.Pool.MaxConnIdleTime
		}
		cfg.Params["pool"] = pool
	}
	return cfg
}

// Dialect returns the registered dialect for the target type.
func (t *TargetConfig) Dialect() (*dialect.Dialect, error) {
	return dialect.MustGet(strings.ToLower(t.Type))
}

// Config holds all CLI configuration options.
type Config struct {
	StatementsDir  string               `koanf:"statements_dir"`
	Environment    string               `koanf:"environment"`
	Verbose        bool                 `koanf:"verbose"`
	OutputFormat   string               `koanf:"output"`
	ParseCacheSize int                  `koanf:"parse_cache_size"`
	Watch          bool                 `koanf:"watch"`
	Target         *TargetConfig        `koanf:"target"`
	Environments   map[string]EnvConfig `koanf:"environments"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
	// ProjectRoot anchors relative paths.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	StatementsDir string        `koanf:"statements_dir"`
	Target        *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	ConfigFileName    = "leapquery.yaml"
	ConfigFileNameAlt = "leapquery.yml"

	DefaultStatementsDir = "sql"
	DefaultEnv           = "dev"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTargetType    = "sqlite"
)

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 && t.ConnectionString == "" {
		t.Port = 5432
	}
}

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; if not found, returns "main" as fallback.
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(dbType); ok && d.DefaultSchema != "" {
		return d.DefaultSchema
	}
	return "main"
}
