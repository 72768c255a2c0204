package trino

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"
)

func init() {
	sql.Register("trino", &trinoDriver{})
	sql.Register("presto", &trinoDriver{})
}

// ErrTransactionsUnsupported is returned by BeginTx.
var ErrTransactionsUnsupported = errors.New("trino: transactions are not supported")

// --- Driver Types ---

// trinoDriver implements driver.Driver and driver.DriverContext.
type trinoDriver struct{}

var _ driver.Driver = (*trinoDriver)(nil)
var _ driver.DriverContext = (*trinoDriver)(nil)

// Open implements driver.Driver. It parses the DSN and returns a new connection.
func (d *trinoDriver) Open(dsn string) (driver.Conn, error) {
	connector, err := NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext.
func (d *trinoDriver) OpenConnector(dsn string) (driver.Connector, error) {
	return NewConnector(dsn)
}

// --- Connector ---

// ConnectorOption configures a connector.
type ConnectorOption func(*trinoConnector)

// WithSessionSetup registers a hook that derives the session of every new
// connection. Extension packages use it to add credentials or properties
// without modifying the core driver.
func WithSessionSetup(fn func(*Session) *Session) ConnectorOption {
	return func(c *trinoConnector) {
		c.sessionSetup = append(c.sessionSetup, fn)
	}
}

// WithClientOptions adds options to the Client shared by the connector's
// connections, e.g. an authentication RequestOption.
func WithClientOptions(opts ...ClientOption) ConnectorOption {
	return func(c *trinoConnector) {
		c.clientOptions = append(c.clientOptions, opts...)
	}
}

// trinoConnector implements driver.Connector. It creates a shared Client
// (via sync.Once) and derives a Session for each Connect call.
type trinoConnector struct {
	cfg           *dsnConfig
	clientOptions []ClientOption
	sessionSetup  []func(*Session) *Session

	once    sync.Once
	client  *Client
	session *Session
	err     error
}

var _ driver.Connector = (*trinoConnector)(nil)
var _ io.Closer = (*trinoConnector)(nil)

// NewConnector creates a new driver.Connector from a DSN string.
// Use this with sql.OpenDB for connection pool management.
func NewConnector(dsn string, opts ...ConnectorOption) (driver.Connector, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	c := &trinoConnector{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *trinoConnector) init() {
	opts, err := c.cfg.clientOptions()
	if err != nil {
		c.err = err
		return
	}
	c.client = NewClient(append(opts, c.clientOptions...)...)
	c.session, c.err = c.cfg.session()
}

// Connect implements driver.Connector.
func (c *trinoConnector) Connect(ctx context.Context) (driver.Conn, error) {
	c.once.Do(c.init)
	if c.err != nil {
		return nil, c.err
	}

	session := c.session
	for _, setup := range c.sessionSetup {
		session = setup(session)
	}
	return &trinoConn{client: c.client, session: session}, nil
}

// Driver implements driver.Connector.
func (c *trinoConnector) Driver() driver.Driver {
	return &trinoDriver{}
}

// Close releases the connector's HTTP client. sql.DB calls it on Close.
func (c *trinoConnector) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// --- Connection ---

// trinoConn implements driver.Conn, driver.QueryerContext and driver.ExecerContext.
type trinoConn struct {
	client  *Client
	session *Session
	closed  bool
}

var _ driver.Conn = (*trinoConn)(nil)
var _ driver.QueryerContext = (*trinoConn)(nil)
var _ driver.ExecerContext = (*trinoConn)(nil)
var _ driver.ConnBeginTx = (*trinoConn)(nil)
var _ driver.NamedValueChecker = (*trinoConn)(nil)

// Prepare implements driver.Conn.
func (c *trinoConn) Prepare(query string) (driver.Stmt, error) {
	return &trinoStmt{conn: c, query: query}, nil
}

// Close implements driver.Conn.
func (c *trinoConn) Close() error {
	c.closed = true
	return nil
}

// Begin implements driver.Conn. Use BeginTx instead.
func (c *trinoConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx. Every statement runs in auto-commit mode.
func (c *trinoConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, ErrTransactionsUnsupported
}

// QueryContext implements driver.QueryerContext.
func (c *trinoConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	interpolated, err := interpolateParams(query, namedToPositional(args))
	if err != nil {
		return nil, err
	}
	return newTrinoRows(ctx, c.client.Execute(c.session, interpolated))
}

// ExecContext implements driver.ExecerContext.
func (c *trinoConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	interpolated, err := interpolateParams(query, namedToPositional(args))
	if err != nil {
		return nil, err
	}
	res, err := c.client.ExecuteUpdate(ctx, c.session, interpolated)
	if err != nil {
		return nil, err
	}
	return &trinoResult{updateCount: res.UpdateCount}, nil
}

// CheckNamedValue implements driver.NamedValueChecker. time.Duration is passed
// through so it binds as an interval literal instead of an integer.
func (c *trinoConn) CheckNamedValue(nv *driver.NamedValue) error {
	if _, ok := nv.Value.(time.Duration); ok {
		return nil
	}
	v, err := driver.DefaultParameterConverter.ConvertValue(nv.Value)
	if err != nil {
		return err
	}
	nv.Value = v
	return nil
}

// namedToPositional converts named values to a positional driver.Value slice.
func namedToPositional(args []driver.NamedValue) []driver.Value {
	positional := make([]driver.Value, len(args))
	for i, arg := range args {
		positional[i] = arg.Value
	}
	return positional
}

// --- Result ---

// trinoResult implements driver.Result.
type trinoResult struct {
	updateCount *int64
}

var _ driver.Result = (*trinoResult)(nil)

// LastInsertId implements driver.Result. Trino has no auto-increment IDs.
func (r *trinoResult) LastInsertId() (int64, error) {
	return 0, errors.New("trino: LastInsertId is not supported")
}

// RowsAffected implements driver.Result.
func (r *trinoResult) RowsAffected() (int64, error) {
	if r.updateCount == nil {
		return 0, nil
	}
	return *r.updateCount, nil
}

// --- Rows ---

// trinoRows adapts a ResultSet to driver.Rows. Empty pages are skipped here
// since database/sql expects Next to fail only at the end.
type trinoRows struct {
	ctx     context.Context
	rs      *ResultSet
	columns []Column

	// pending is set when the row under the cursor was reached while
	// looking for column metadata and has not been returned yet
	pending bool
}

var _ driver.Rows = (*trinoRows)(nil)
var _ driver.RowsColumnTypeDatabaseTypeName = (*trinoRows)(nil)
var _ driver.RowsColumnTypeScanType = (*trinoRows)(nil)

// newTrinoRows submits the statement and reads pages until the column
// metadata is known.
func newTrinoRows(ctx context.Context, rs *ResultSet) (*trinoRows, error) {
	r := &trinoRows{ctx: ctx, rs: rs}
	cols, err := rs.Columns(ctx)
	for err == nil && len(cols) == 0 && rs.More() {
		var ok bool
		if ok, err = rs.Next(ctx); ok {
			r.pending = true
		}
		cols, _ = rs.Columns(ctx)
		if r.pending {
			break
		}
	}
	if err != nil {
		closeQuietly(rs)
		return nil, err
	}
	r.columns = cols
	return r, nil
}

// Columns implements driver.Rows.
func (r *trinoRows) Columns() []string {
	return ColumnNames(r.columns)
}

// Close implements driver.Rows.
func (r *trinoRows) Close() error {
	return r.rs.Close()
}

// Next implements driver.Rows.
func (r *trinoRows) Next(dest []driver.Value) error {
	if r.pending {
		r.pending = false
	} else if err := r.advance(); err != nil {
		return err
	}

	row, err := r.rs.CurrentRow()
	if err != nil {
		return err
	}
	values := row.Values()
	for i, col := range r.columns {
		if i >= len(values) {
			dest[i] = nil
			continue
		}
		v, err := convertValue(values[i], col.Type)
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

// advance moves the cursor to the next row, fetching past empty pages.
func (r *trinoRows) advance() error {
	for r.rs.More() {
		ok, err := r.rs.Next(r.ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return io.EOF
}

// ColumnTypeDatabaseTypeName implements driver.RowsColumnTypeDatabaseTypeName.
func (r *trinoRows) ColumnTypeDatabaseTypeName(index int) string {
	if index < 0 || index >= len(r.columns) {
		return ""
	}
	return strings.ToUpper(r.columns[index].RawType())
}

// ColumnTypeScanType implements driver.RowsColumnTypeScanType.
func (r *trinoRows) ColumnTypeScanType(index int) reflect.Type {
	if index < 0 || index >= len(r.columns) {
		return reflect.TypeOf("")
	}
	return scanTypeForTrinoType(r.columns[index].Type)
}

// --- Statement ---

// trinoStmt implements driver.Stmt, driver.StmtQueryContext, and driver.StmtExecContext.
type trinoStmt struct {
	conn  *trinoConn
	query string
}

var _ driver.Stmt = (*trinoStmt)(nil)
var _ driver.StmtQueryContext = (*trinoStmt)(nil)
var _ driver.StmtExecContext = (*trinoStmt)(nil)

// Close implements driver.Stmt.
func (s *trinoStmt) Close() error {
	return nil
}

// NumInput implements driver.Stmt. Returns -1 to disable driver-side validation.
func (s *trinoStmt) NumInput() int {
	return -1
}

// Exec implements driver.Stmt.
func (s *trinoStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

// Query implements driver.Stmt.
func (s *trinoStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

// ExecContext implements driver.StmtExecContext.
func (s *trinoStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

// QueryContext implements driver.StmtQueryContext.
func (s *trinoStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

// namedValues converts positional args to NamedValue slice.
func namedValues(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}
