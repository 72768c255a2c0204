package trino

import (
	"fmt"
	"strings"
)

// Row is a read-only view over one row of a page and the column metadata of
// its query. The column slice is shared with the result set, not copied.
type Row struct {
	columns []Column
	values  []Value
	byName  map[string]int
}

// NewRow builds a Row. Column names are matched case-insensitively; when two
// columns share a name, the later one wins.
func NewRow(columns []Column, values []Value) *Row {
	byName := make(map[string]int, len(columns))
	for i, col := range columns {
		byName[strings.ToLower(col.Name)] = i
	}
	return &Row{columns: columns, values: values, byName: byName}
}

// Columns returns the column metadata of the row.
func (r *Row) Columns() []Column { return r.columns }

// Values returns all cells in column order.
func (r *Row) Values() []Value { return r.values }

// ColumnCount returns the number of cells in the row.
func (r *Row) ColumnCount() int { return len(r.values) }

// Value returns the cell at the 0-based index.
func (r *Row) Value(index int) (Value, error) {
	if index < 0 || index >= len(r.values) {
		return Value{}, fmt.Errorf("%w: %d not in [0, %d)", ErrColumnOutOfRange, index, len(r.values))
	}
	return r.values[index], nil
}

// ValueByName returns the cell of the named column, ignoring case.
func (r *Row) ValueByName(name string) (Value, error) {
	index, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return r.Value(index)
}

// Interfaces returns the row as plain Go values (see Value.Interface).
func (r *Row) Interfaces() []any {
	out := make([]any, len(r.values))
	for i, v := range r.values {
		out[i] = v.Interface()
	}
	return out
}

// RowValue returns the cell at index narrowed to T (see ValueAs).
func RowValue[T any](r *Row, index int) (T, error) {
	v, err := r.Value(index)
	if err != nil {
		var zero T
		return zero, err
	}
	return ValueAs[T](v)
}

// RowValueByName returns the named cell narrowed to T (see ValueAs).
func RowValueByName[T any](r *Row, name string) (T, error) {
	v, err := r.ValueByName(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return ValueAs[T](v)
}
