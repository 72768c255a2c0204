package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/ethanyzhang/trino-go"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

// formatter renders a result set. Header is called at most once, before any row.
type formatter interface {
	Header(cols []trino.Column) error
	Row(values []trino.Value) error
	Flush() error
}

// outputFormat returns the configured format, or table for a terminal and csv
// for anything else.
func outputFormat(configured string, w io.Writer) string {
	if configured != "" {
		return configured
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return formatTable
	}
	return formatCSV
}

func newFormatter(format string, w io.Writer) formatter {
	switch format {
	case formatJSON:
		return &jsonFormatter{enc: json.NewEncoder(w)}
	case formatCSV:
		return &csvFormatter{w: csv.NewWriter(w)}
	default:
		return &tableFormatter{w: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	}
}

type tableFormatter struct {
	w    *tabwriter.Writer
	rows int
}

func (f *tableFormatter) Header(cols []trino.Column) error {
	names := trino.ColumnNames(cols)
	rules := make([]string, len(names))
	for i, name := range names {
		rules[i] = strings.Repeat("-", max(len(name), 3))
	}
	if _, err := fmt.Fprintln(f.w, strings.Join(names, "\t")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.w, strings.Join(rules, "\t"))
	return err
}

func (f *tableFormatter) Row(values []trino.Value) error {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = v.String()
	}
	f.rows++
	_, err := fmt.Fprintln(f.w, strings.Join(cells, "\t"))
	return err
}

func (f *tableFormatter) Flush() error {
	if err := f.w.Flush(); err != nil {
		return err
	}
	suffix := "s"
	if f.rows == 1 {
		suffix = ""
	}
	_, err := fmt.Fprintf(f.w, "(%d row%s)\n", f.rows, suffix)
	if err != nil {
		return err
	}
	return f.w.Flush()
}

// jsonFormatter writes one object per row, keyed by column name.
type jsonFormatter struct {
	enc   *json.Encoder
	names []string
}

func (f *jsonFormatter) Header(cols []trino.Column) error {
	f.names = trino.ColumnNames(cols)
	return nil
}

func (f *jsonFormatter) Row(values []trino.Value) error {
	obj := make(map[string]trino.Value, len(values))
	for i, v := range values {
		name := fmt.Sprintf("_col%d", i)
		if i < len(f.names) {
			name = f.names[i]
		}
		obj[name] = v
	}
	return f.enc.Encode(obj)
}

func (f *jsonFormatter) Flush() error { return nil }

// csvFormatter writes a header line followed by one record per row. NULL is
// written as an empty field.
type csvFormatter struct {
	w *csv.Writer
}

func (f *csvFormatter) Header(cols []trino.Column) error {
	return f.w.Write(trino.ColumnNames(cols))
}

func (f *csvFormatter) Row(values []trino.Value) error {
	record := make([]string, len(values))
	for i, v := range values {
		if !v.IsNull() {
			record[i] = v.String()
		}
	}
	return f.w.Write(record)
}

func (f *csvFormatter) Flush() error {
	f.w.Flush()
	return f.w.Error()
}
