package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapquery/internal/cli/output"
	"github.com/leapstack-labs/leapquery/internal/registry"
	"github.com/leapstack-labs/leapquery/internal/template"
	"github.com/spf13/cobra"
)

// statementInfo describes a statement for listing.
type statementInfo struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Params  []string `json:"params"`
	Formats int      `json:"formats"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List named statements and their parameters",
		Long: `List every statement in the statements directory with the named
parameters and format tokens it expects.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, table, markdown, json, csv`,
		Example: `  # List all statements
  leapquery list

  # List statements from another directory as JSON
  leapquery list --dir ./queries --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	root := cmdCtx.StatementsDir()
	reg, err := registry.Load(cmd.Context(), root, cmdCtx.Logger)
	if err != nil {
		return err
	}

	infos := describeStatements(root, reg.Statements())
	r := cmdCtx.Renderer

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(infos)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Statements (%d total)", len(infos))))
		r.Println()
		for _, info := range infos {
			r.Println(output.FormatHeader(2, info.Key))
			r.Println(output.FormatKeyValue("Name", info.Name))
			r.Println(output.FormatKeyValue("File", info.File))
			if len(info.Params) > 0 {
				r.Println(output.FormatKeyValue("Params", strings.Join(info.Params, ", ")))
			}
			if info.Formats > 0 {
				r.Println(output.FormatKeyValue("Format tokens", fmt.Sprintf("%d", info.Formats)))
			}
			r.Println()
		}
		return nil
	}

	if len(infos) == 0 {
		r.Println(r.Muted("No statements found in " + displayDir(root)))
		return nil
	}

	t := r.Table([]string{"Key", "Params", "Format tokens", "File"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.Key, strings.Join(info.Params, ", "), info.Formats, info.File})
	}
	if r.EffectiveMode() == output.ModeCSV {
		t.RenderCSV()
		return nil
	}
	t.Render()
	return nil
}

func describeStatements(root string, stmts []registry.Statement) []statementInfo {
	infos := make([]statementInfo, 0, len(stmts))
	for _, st := range stmts {
		parsed := template.ParseFile(st.Text, st.Path)
		file := st.Path
		if rel, err := filepath.Rel(root, st.Path); err == nil {
			file = filepath.ToSlash(rel)
		}
		params := parsed.Params
		if params == nil {
			params = []string{}
		}
		infos = append(infos, statementInfo{
			Key:     st.Key,
			Name:    st.Name,
			File:    file,
			Params:  params,
			Formats: len(parsed.Formats),
		})
	}
	return infos
}

func displayDir(dir string) string {
	if dir == "" {
		return "(no statements directory)"
	}
	return dir
}
