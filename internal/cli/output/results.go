package output

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
)

// Result writes a query result in the effective mode. Statements that
// return no columns print their command and affected row count.
func (r *Renderer) Result(res *adapter.Result) error {
	mode := r.EffectiveMode()

	if len(res.Columns) == 0 {
		if mode == ModeJSON {
			return r.JSON(map[string]any{"command": res.Command, "rows_affected": res.RowCount})
		}
		r.Success(fmt.Sprintf("%s %d", res.Command, res.RowCount))
		return nil
	}

	if mode == ModeJSON {
		return r.JSON(res.Rows)
	}

	t := r.Table(res.Columns)
	for _, row := range res.Rows {
		out := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			out[i] = FormatValue(row[col])
		}
		t.AppendRow(out)
	}

	switch mode {
	case ModeCSV:
		t.RenderCSV()
	case ModeMarkdown:
		t.RenderMarkdown()
		r.Println()
		r.Printf("(%d rows)\n", len(res.Rows))
	default:
		if len(res.Rows) == 0 {
			r.Println("(0 rows)")
			return nil
		}
		t.Render()
		r.Println(r.Muted(fmt.Sprintf("(%d rows)", len(res.Rows))))
	}
	return nil
}

// Table returns a table writer mirrored to standard output with header cols.
func (r *Renderer) Table(cols []string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)
	return t
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatValue renders a column value for tabular output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
