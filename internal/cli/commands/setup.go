package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapquery/internal/cli/output"
	"github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/internal/events"
	"github.com/leapstack-labs/leapquery/pkg/query"
	"github.com/spf13/cobra"

	// Register adapters and their dialects.
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds a CommandContext from the config stored on the
// command's context by the root command.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, ok := config.FromContext(cmd.Context())
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// StatementsDir returns the configured statements directory, or "" when it
// does not exist so raw SQL still works.
func (c *CommandContext) StatementsDir() string {
	dir := c.Cfg.StatementsDir
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		c.Logger.Debug("statements directory not found, raw SQL only", slog.String("dir", dir))
		return ""
	}
	return dir
}

// OpenClient connects to the configured target. Executed statements are
// logged at debug level.
func (c *CommandContext) OpenClient(ctx context.Context) (*query.Client, error) {
	client, err := query.New(ctx, query.Options{
		AdapterConfig:  c.Cfg.Target.AdapterConfig(),
		RootDir:        c.StatementsDir(),
		Logger:         c.Logger,
		ParseCacheSize: c.Cfg.ParseCacheSize,
		Watch:          c.Cfg.Watch,
	})
	if err != nil {
		return nil, err
	}

	logger := c.Logger
	client.Events().On(events.Result, func(e events.Event) {
		attrs := []any{
			slog.String("name", e.Name),
			slog.Duration("duration", e.Duration),
			slog.Int64("rows", e.RowCount),
		}
		if e.Err != nil {
			attrs = append(attrs, slog.Any("error", e.Err))
		}
		logger.Debug("statement executed", attrs...)
	})
	return client, nil
}

// NewStatementRenderer renders statements for the configured dialect without
// connecting.
func (c *CommandContext) NewStatementRenderer(ctx context.Context) (*query.Renderer, error) {
	d, err := c.Cfg.Target.Dialect()
	if err != nil {
		return nil, err
	}
	return query.NewRenderer(ctx, c.StatementsDir(), d, c.Logger)
}

// reportQueryError prints the failing SQL under the error when available.
func (c *CommandContext) reportQueryError(err error) error {
	qerr, ok := query.AsError(err)
	if !ok || qerr.Context == nil || qerr.Context.SQL == "" {
		return err
	}
	r := c.Renderer
	_, _ = fmt.Fprintln(r.ErrOut(), r.Muted("SQL: "+qerr.Context.SQL))
	if len(qerr.Context.Args) > 0 {
		_, _ = fmt.Fprintln(r.ErrOut(), r.Muted(fmt.Sprintf("Args: %v", qerr.Context.Args)))
	}
	return err
}
