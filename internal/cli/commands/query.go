package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	ParamOptions
	File string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Execute raw SQL",
		Long: `Execute raw SQL against the configured target.

The SQL may use :named parameters and %s, %I or %L format tokens, exactly
like statement files. Without arguments SQL is read from --file or piped
stdin; on a terminal an interactive shell starts instead.`,
		Example: `  # Simple query
  leapquery query "SELECT * FROM users LIMIT 10"

  # Named parameters
  leapquery query "SELECT * FROM users WHERE id = :id" -p id=42

  # From a file or stdin
  leapquery query -f report.sql
  echo "SELECT 1" | leapquery query

  # Interactive shell
  leapquery query`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read SQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	sqlText, err := readQueryInput(cmd, args, opts.File)
	if err != nil {
		return err
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := cmdCtx.OpenClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if sqlText == "" {
		return runREPL(ctx, cmdCtx, client, cmd.InOrStdin())
	}

	params, err := opts.Bag()
	if err != nil {
		return err
	}

	res, err := client.FormattableQuery(sqlText).Format(opts.Formats()...).Query(ctx, params)
	if err != nil {
		return cmdCtx.reportQueryError(err)
	}
	return cmdCtx.Renderer.Result(res)
}

// readQueryInput returns the SQL to run, or "" when an interactive shell
// should start.
func readQueryInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.TrimSpace(args[0]), nil
	case file != "":
		data, err := os.ReadFile(file) //nolint:gosec // user-provided query file
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if isTerminalFile(f) {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	sqlText := strings.TrimSpace(string(data))
	if sqlText == "" {
		return "", errors.New("no SQL provided")
	}
	return sqlText, nil
}
