package trino

import (
	"context"
)

// ResultSet is a forward-only cursor over every row of a statement, pulling
// pages from its StatementClient only when the current page is used up.
//
// Each call to Next performs at most one exchange. When a fetched page holds
// no rows Next returns false even though more pages may follow; More reports
// whether calling Next again can still yield a row:
//
//	rs := client.Execute(session, "SELECT id, name FROM users")
//	defer rs.Close()
//	for rs.More() {
//	    ok, err := rs.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    if !ok {
//	        continue
//	    }
//	    row, _ := rs.CurrentRow()
//	    ...
//	}
type ResultSet struct {
	stmt *StatementClient

	initialized bool
	columns     []Column

	// rows is the current page's data and pos the index of the current row
	rows    [][]Value
	pos     int
	hasMore bool
	onRow   bool
}

// NewResultSet wraps stmt, which must not have been submitted yet.
func NewResultSet(stmt *StatementClient) *ResultSet {
	return &ResultSet{stmt: stmt, pos: -1}
}

// Statement returns the underlying statement.
func (rs *ResultSet) Statement() *StatementClient { return rs.stmt }

func (rs *ResultSet) init(ctx context.Context) error {
	if rs.initialized {
		return nil
	}
	rs.initialized = true
	page, err := rs.stmt.Submit(ctx)
	if err != nil {
		return err
	}
	rs.adopt(page)
	rs.pos = -1
	return nil
}

func (rs *ResultSet) adopt(page *QueryResults) {
	if len(rs.columns) == 0 && len(page.Columns) > 0 {
		rs.columns = page.Columns
	}
	rs.rows = page.Data
	rs.pos = 0
	rs.hasMore = page.HasNext() && rs.stmt.State() == QueryStateRunning
}

// Next moves to the next row and reports whether one is available. It submits
// the statement on the first call. Errors are returned once, from the call
// that hit them; afterwards Next keeps returning false.
func (rs *ResultSet) Next(ctx context.Context) (bool, error) {
	rs.onRow = false
	if rs.stmt.closed.Load() {
		return false, ErrClientClosed
	}
	if err := rs.init(ctx); err != nil {
		return false, err
	}

	rs.pos++
	if rs.pos < len(rs.rows) {
		rs.onRow = true
		return true, nil
	}

	if !rs.hasMore || rs.stmt.State() != QueryStateRunning {
		rs.hasMore = false
		return false, nil
	}

	page, err := rs.stmt.FetchNext(ctx)
	if err != nil {
		rs.rows = nil
		rs.hasMore = false
		return false, err
	}
	rs.adopt(page)
	if len(rs.rows) == 0 {
		return false, nil
	}
	rs.onRow = true
	return true, nil
}

// More reports whether Next may still return true: the statement has not been
// submitted, rows remain in the current page, or another page may follow.
func (rs *ResultSet) More() bool {
	if rs.stmt.closed.Load() {
		return false
	}
	if !rs.initialized {
		return true
	}
	if rs.pos+1 < len(rs.rows) {
		return true
	}
	return rs.hasMore && rs.stmt.State() == QueryStateRunning
}

// CurrentRow returns the row Next last moved to.
func (rs *ResultSet) CurrentRow() (*Row, error) {
	if !rs.onRow {
		return nil, ErrNoCurrentRow
	}
	return NewRow(rs.columns, rs.rows[rs.pos]), nil
}

// Columns returns the column metadata, submitting the statement if needed.
// No row is consumed.
func (rs *ResultSet) Columns(ctx context.Context) ([]Column, error) {
	if rs.stmt.closed.Load() {
		return nil, ErrClientClosed
	}
	if err := rs.init(ctx); err != nil {
		return rs.columns, err
	}
	return rs.columns, nil
}

// Stats returns the stats of the most recent page, or nil.
func (rs *ResultSet) Stats() *StatementStats {
	if page := rs.stmt.Current(); page != nil {
		return page.Stats
	}
	return nil
}

// State returns the lifecycle state of the statement.
func (rs *ResultSet) State() QueryState {
	return rs.stmt.State()
}

// Close closes the statement.
func (rs *ResultSet) Close() error {
	rs.onRow = false
	return rs.stmt.Close()
}
