package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	ParamOptions
	Timeout time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <statement>",
		Short: "Execute a named statement",
		Long: `Execute a named SQL statement from the statements directory.

Statement keys are file paths relative to the statements directory with
separators replaced by dots: sql/users/by_id.sql is "users.by_id".

Output adapts to environment:
  - Terminal (TTY): Styled table
  - Piped/redirected: Markdown (agent-friendly)`,
		Example: `  # Run with a parameter
  leapquery run users.by_id -p user.id=42

  # Parameters from a file, table name from a format argument
  leapquery run reports.daily -P params.yaml -F events_2024

  # Output as JSON
  leapquery run users.by_id -p user.id=42 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatement(cmd, args[0], opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Cancel the statement after this long (0 disables)")

	return cmd
}

func runStatement(cmd *cobra.Command, key string, opts *RunOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	params, err := opts.Bag()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	client, err := cmdCtx.OpenClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	res, err := client.Formattable(key).Format(opts.Formats()...).Query(ctx, params)
	if err != nil {
		return cmdCtx.reportQueryError(err)
	}
	return cmdCtx.Renderer.Result(res)
}
