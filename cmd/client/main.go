package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tuannm99/kvsql/sqlclient"
)

const (
	prompt     = "kvsql> "
	contPrompt = "...> "
)

type clientFlags struct {
	addr       string
	timeout    time.Duration
	histPath   string
	histMax    int
	oneShotSQL string
}

func newRootCommand() *cobra.Command {
	var f clientFlags
	cmd := &cobra.Command{
		Use:           "kvsql",
		Short:         "kvsql interactive client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := sqlclient.Dial(f.addr, f.timeout)
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()

			if strings.TrimSpace(f.oneShotSQL) != "" {
				rs, err := cli.Exec(f.oneShotSQL)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), rs)
				return nil
			}
			return repl(cmd.OutOrStdout(), cli, &f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "127.0.0.1:9876", "server address")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 3*time.Second, "dial timeout")
	cmd.Flags().StringVar(&f.histPath, "history", defaultHistoryPath(), "history file path")
	cmd.Flags().IntVar(&f.histMax, "history-max", 2000, "max history lines loaded into memory")
	cmd.Flags().StringVarP(&f.oneShotSQL, "command", "c", "", "execute one SQL statement and exit (must end with ';')")
	return cmd
}

const helpText = `meta commands:
  \q | quit | exit       quit
  \history               print history
  \help                  show help

sql:
  end statements with ';'
  multiline input is supported (the client waits for ';')`

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

func repl(out io.Writer, cli *sqlclient.Client, f *clientFlags) error {
	h := NewHistory(f.histPath)
	_ = h.Load(f.histMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          out,
	})
	if err != nil {
		return errors.Wrap(err, "readline")
	}
	defer func() { _ = rl.Close() }()

	// Preload so the arrow keys work immediately.
	for _, line := range h.Lines() {
		_ = rl.SaveHistory(line)
	}

	var buf strings.Builder
	fmt.Fprintf(out, "connected to %s\n", f.addr)
	fmt.Fprintln(out, `type \help for help`)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C clears the pending statement.
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(prompt)
			}
			continue
		}
		if err != nil {
			fmt.Fprintln(out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && isMetaCommand(line) {
			switch line {
			case "\\q", "quit", "exit":
				return nil
			case "\\help":
				fmt.Fprintln(out, helpText)
			case "\\history":
				h.Print(out, 50)
			default:
				fmt.Fprintf(out, "unknown command: %s\n", line)
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
		if !statementComplete(buf.String()) {
			rl.SetPrompt(contPrompt)
			continue
		}

		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt(prompt)

		_ = h.Append(stmt)
		_ = rl.SaveHistory(compactOneLine(stmt))

		rs, err := cli.Exec(stmt)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, rs)
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kvsql: %v\n", err)
		os.Exit(1)
	}
}
