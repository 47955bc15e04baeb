package commands

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/leapquery/internal/cli/output"
	"github.com/leapstack-labs/leapquery/pkg/query"
	"github.com/spf13/cobra"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	ParamOptions
	Raw bool
}

// renderOutput is the JSON shape of a rendered statement.
type renderOutput struct {
	Name   string   `json:"name"`
	Key    string   `json:"key,omitempty"`
	SQL    string   `json:"sql"`
	Args   []any    `json:"args"`
	Params []string `json:"params"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <statement | SQL>",
		Short: "Show the SQL and arguments a statement binds to",
		Long: `Render a statement with format tokens substituted and named parameters
replaced by the target's positional placeholders. Nothing is executed and no
connection is opened.

Output adapts to environment:
  - Terminal: Plain SQL followed by the bound arguments
  - Piped/Scripted: Markdown with code block`,
		Example: `  # Render a named statement
  leapquery render users.by_id -p user.id=42

  # Render raw SQL for the postgres dialect
  leapquery render --raw "SELECT * FROM %I WHERE id = :id" -F users -p id=1 --type postgres

  # Render as JSON
  leapquery render users.by_id -p user.id=42 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Treat the argument as SQL text instead of a statement key")

	return cmd
}

func runRender(cmd *cobra.Command, target string, opts *RenderOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	params, err := opts.Bag()
	if err != nil {
		return err
	}

	renderer, err := cmdCtx.NewStatementRenderer(cmd.Context())
	if err != nil {
		return err
	}

	var rendered *query.Rendered
	if opts.Raw {
		rendered, err = renderer.RenderSQL(target, params, opts.Formats()...)
	} else {
		rendered, err = renderer.Render(target, params, opts.Formats()...)
	}
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		args := rendered.Args
		if args == nil {
			args = []any{}
		}
		names := rendered.Names
		if names == nil {
			names = []string{}
		}
		return r.JSON(renderOutput{
			Name:   rendered.Name,
			Key:    rendered.Key,
			SQL:    rendered.SQL,
			Args:   args,
			Params: names,
		})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Rendered SQL: "+rendered.Name))
		r.Println()
		r.Println(output.FormatCodeBlock("sql", rendered.SQL))
		if len(rendered.Args) > 0 {
			r.Println()
			r.Println(output.FormatHeader(2, "Arguments"))
			for i, arg := range rendered.Args {
				r.Println(output.FormatKeyValue(placeholderLabel(i, rendered.Names), output.FormatValue(arg)))
			}
		}
	default:
		printRendered(r.Out(), rendered)
	}
	return nil
}

// printRendered writes the SQL followed by one line per bound argument.
func printRendered(w io.Writer, rendered *query.Rendered) {
	_, _ = fmt.Fprintln(w, rendered.SQL)
	for i, arg := range rendered.Args {
		_, _ = fmt.Fprintf(w, "  %s = %s\n", placeholderLabel(i, rendered.Names), output.FormatValue(arg))
	}
}

func placeholderLabel(i int, names []string) string {
	if i < len(names) {
		return fmt.Sprintf("[%d] %s", i+1, names[i])
	}
	return fmt.Sprintf("[%d]", i+1)
}
