package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapquery/pkg/query"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	replPrompt     = "leapquery> "
	replContPrompt = "      ...> "
)

func isTerminalFile(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// shell holds interactive session state. SQL accumulates until a line ends
// with a semicolon.
type shell struct {
	cmdCtx *CommandContext
	client *query.Client
	buf    strings.Builder
}

func runREPL(ctx context.Context, cmdCtx *CommandContext, client *query.Client, in io.Reader) error {
	sh := &shell{cmdCtx: cmdCtx, client: client}

	cfg := &readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmdCtx.Renderer.Out(),
		Stderr:          cmdCtx.Renderer.ErrOut(),
	}
	if _, isFile := in.(*os.File); !isFile {
		cfg.Stdin = io.NopCloser(in)
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Printf("leapquery shell (%s)\n", cmdCtx.Cfg.Target.Type)
	r.Println("Type .help for commands, .quit to exit")
	r.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			sh.buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if sh.handleLine(ctx, line) {
			return nil
		}
		if sh.buf.Len() > 0 {
			rl.SetPrompt(replContPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".leapquery_history")
}

// handleLine processes one input line and reports whether the session should end.
func (s *shell) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.dotCommand(ctx, line)
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}

	sqlText := strings.TrimSuffix(s.buf.String(), ";")
	s.buf.Reset()

	res, err := s.client.Query(ctx, sqlText, nil)
	s.show(res, err)
	return false
}

func (s *shell) dotCommand(ctx context.Context, line string) bool {
	r := s.cmdCtx.Renderer
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Out())

	case ".statements":
		for _, st := range s.client.Statements() {
			r.Println(st.Key)
		}

	case ".run", ".render":
		if len(parts) < 2 {
			r.Error(fmt.Sprintf("Usage: %s <statement> [path=value ...]", command))
			return false
		}
		opts := ParamOptions{Params: parts[2:]}
		params, err := opts.Bag()
		if err != nil {
			r.Error("Error: " + err.Error())
			return false
		}
		if command == ".render" {
			rendered, err := s.client.Renderer().Render(parts[1], params)
			if err != nil {
				r.Error("Error: " + err.Error())
				return false
			}
			printRendered(r.Out(), rendered)
			return false
		}
		res, err := s.client.SQL(ctx, parts[1], params)
		s.show(res, err)

	case ".clear":
		r.Printf("\033[H\033[2J")

	default:
		r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (s *shell) show(res *query.Result, err error) {
	r := s.cmdCtx.Renderer
	if err != nil {
		r.Error("Error: " + err.Error())
		_ = s.cmdCtx.reportQueryError(err)
		return
	}
	if err := r.Result(res); err != nil {
		r.Error("Error: " + err.Error())
	}
}

func (s *shell) completer() *readline.PrefixCompleter {
	var keys []readline.PrefixCompleterInterface
	for _, st := range s.client.Statements() {
		keys = append(keys, readline.PcItem(st.Key))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".statements"),
		readline.PcItem(".run", keys...),
		readline.PcItem(".render", keys...),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                           Show this help message
  .statements                     List named statements
  .run <key> [path=value ...]     Execute a named statement
  .render <key> [path=value ...]  Show the SQL a statement binds to
  .clear                          Clear the screen
  .quit / .exit                   Exit the shell

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for statement keys
`
	_, _ = fmt.Fprintln(w, help)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive SQL shell",
		Long: `Start an interactive shell against the configured target.

SQL runs when a line ends with a semicolon. Dot commands list, render and
run named statements; see .help inside the shell.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			client, err := cmdCtx.OpenClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			return runREPL(cmd.Context(), cmdCtx, client, cmd.InOrStdin())
		},
	}
}
