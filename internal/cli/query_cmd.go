package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/ethanyzhang/trino-go"
)

func newQueryCmd(opts *options) *cobra.Command {
	var (
		file  string
		stats bool
	)

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Execute a statement and print its rows",
		Long: `Execute one statement and stream its rows to stdout.

The statement is taken from the argument, from --file, or from stdin
when --file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readStatement(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}
			session, err := opts.session()
			if err != nil {
				return err
			}
			client := opts.client()
			defer client.Close()

			out := cmd.OutOrStdout()
			f := newFormatter(outputFormat(opts.output, out), out)
			var statsOut io.Writer
			if stats {
				statsOut = cmd.ErrOrStderr()
			}
			return runQuery(cmd.Context(), client, session, sql, f, statsOut)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", `Read the statement from a file ("-" for stdin)`)
	cmd.Flags().BoolVar(&stats, "stats", false, "Print the final state and statistics to stderr")
	return cmd
}

// readStatement returns the statement text with surrounding whitespace and a
// trailing semicolon removed.
func readStatement(stdin io.Reader, args []string, file string) (string, error) {
	var sql string
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("give the statement as an argument or with --file, not both")
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		sql = string(b)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read statement: %w", err)
		}
		sql = string(b)
	case len(args) == 1:
		sql = args[0]
	}

	sql = strings.TrimSpace(sql)
	sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	if sql == "" {
		return "", errors.New("no statement given")
	}
	return sql, nil
}

// runQuery drains the statement into f. The header is written as soon as a
// page carries column metadata.
func runQuery(ctx context.Context, client *trino.Client, session *trino.Session, sql string, f formatter, statsOut io.Writer) error {
	rs := client.Execute(session, sql)
	defer rs.Close()

	header := false
	writeHeader := func() error {
		if header {
			return nil
		}
		cols, err := rs.Columns(ctx)
		if err != nil || len(cols) == 0 {
			return err
		}
		header = true
		return f.Header(cols)
	}

	rows := 0
	for rs.More() {
		ok, err := rs.Next(ctx)
		if err != nil {
			return err
		}
		if err := writeHeader(); err != nil {
			return err
		}
		if !ok {
			continue
		}
		row, err := rs.CurrentRow()
		if err != nil {
			return err
		}
		if err := f.Row(row.Values()); err != nil {
			return err
		}
		rows++
	}
	if err := writeHeader(); err != nil {
		return err
	}
	if err := f.Flush(); err != nil {
		return err
	}

	page := rs.Statement().Current()
	if page != nil {
		log.Debug().Str("query_id", page.Id).Int("rows", rows).Stringer("state", rs.State()).Msg("query complete")
		for _, w := range page.Warnings {
			log.Warn().Str("query_id", page.Id).Msg(w.String())
		}
	}
	if statsOut != nil {
		writeStats(statsOut, page, rs.State(), rows)
	}
	return nil
}

func writeStats(w io.Writer, page *trino.QueryResults, state trino.QueryState, rows int) {
	if page == nil {
		fmt.Fprintf(w, "state: %s\n", state)
		return
	}
	fmt.Fprintf(w, "query: %s\nstate: %s\nrows: %d\n", page.Id, state, rows)
	if page.UpdateType != nil {
		fmt.Fprintf(w, "update: %s", *page.UpdateType)
		if page.UpdateCount != nil {
			fmt.Fprintf(w, " %d", *page.UpdateCount)
		}
		fmt.Fprintln(w)
	}
	if s := page.Stats; s != nil {
		fmt.Fprintf(w, "server state: %s\nsplits: %d/%d\nprocessed: %d rows, %d bytes\nelapsed: %s (queued %s, cpu %s)\n",
			s.State, s.CompletedSplits, s.TotalSplits, s.ProcessedRows, s.ProcessedBytes,
			s.ElapsedTime(), s.QueuedTime(), s.CPUTime())
		for _, name := range slices.Sorted(maps.Keys(s.RuntimeStats)) {
			fmt.Fprintf(w, "runtime %s: %s\n", name, formatMetric(s.RuntimeStats[name]))
		}
	}
}

func formatMetric(m trino.RuntimeMetric) string {
	switch m.Unit {
	case trino.RuntimeUnitNano:
		d, _ := m.SumDuration()
		return fmt.Sprintf("%s over %d", str2duration.String(d), m.Count)
	case trino.RuntimeUnitByte:
		return fmt.Sprintf("%s over %d", trino.DataSize(m.Sum), m.Count)
	default:
		return fmt.Sprintf("%d over %d", m.Sum, m.Count)
	}
}
