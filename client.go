package trino

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// Trino protocol headers
const (
	UserHeader            = "X-Trino-User"
	SourceHeader          = "X-Trino-Source"
	CatalogHeader         = "X-Trino-Catalog"
	SchemaHeader          = "X-Trino-Schema"
	SessionHeader         = "X-Trino-Session"
	ClientTagHeader       = "X-Trino-Client-Tags"
	ClientInfoHeader      = "X-Trino-Client-Info"
	TimeZoneHeader        = "X-Trino-Time-Zone"
	LanguageHeader        = "X-Trino-Language"
	ExtraCredentialHeader = "X-Trino-Extra-Credential"
	TraceTokenHeader      = "X-Trino-Trace-Token"

	ContentEncodingGzip     = "gzip"
	ContentEncodingZstd     = "zstd"
	ContentEncodingIdentity = "identity"

	statementPath = "v1/statement"
)

// RequestOption allows for functional overrides on individual requests
type RequestOption func(*http.Request)

// Doer performs one HTTP exchange. *http.Client satisfies it; tests and
// callers with their own transport stack can supply anything else.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the transport shared by statements: it turns a Session into
// request headers, performs the exchange and decodes the response. A Client
// is safe for concurrent use; all per-query state lives in StatementClient.
type Client struct {
	doer           Doer
	ownsHTTPClient bool
	tlsConfig      *tls.Config
	timeout        time.Duration
	requestOptions []RequestOption
	prestoHeaders  bool
	forceHTTPS     bool
	logger         zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sends every request through d instead of a client built by
// NewClient. The caller keeps ownership of d; Client.Close does not touch it.
func WithHTTPClient(d Doer) ClientOption {
	return func(c *Client) {
		c.doer = d
	}
}

// WithTLSConfig sets the TLS configuration of the default HTTP client. It has
// no effect together with WithHTTPClient.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *Client) {
		c.tlsConfig = cfg
	}
}

// WithRequestTimeout bounds every exchange of the default HTTP client. A
// timed out exchange fails the statement like any other transport error.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRequestOptions applies opts to every request, after the protocol
// headers are set. Authentication packages hook in here.
func WithRequestOptions(opts ...RequestOption) ClientOption {
	return func(c *Client) {
		c.requestOptions = append(c.requestOptions, opts...)
	}
}

// WithPrestoHeaders switches the protocol headers to the X-Presto- dialect
// understood by Presto coordinators.
func WithPrestoHeaders() ClientOption {
	return func(c *Client) {
		c.prestoHeaders = true
	}
}

// WithForceHTTPS rewrites http URLs, including continuation pointers, to https.
func WithForceHTTPS() ClientOption {
	return func(c *Client) {
		c.forceHTTPS = true
	}
}

// WithLogger sends the client's debug events, and those of its statements,
// to l. Without it the client is silent.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a client configured by opts.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.tlsConfig != nil {
			transport.TLSClientConfig = c.tlsConfig
		}
		c.doer = &http.Client{Transport: transport, Timeout: c.timeout}
		c.ownsHTTPClient = true
	}
	return c
}

// Close releases idle connections of the HTTP client the Client created.
func (c *Client) Close() error {
	if hc, ok := c.doer.(*http.Client); ok && c.ownsHTTPClient {
		hc.CloseIdleConnections()
	}
	return nil
}

// --- Request building ---

// CanonicalHeader returns name in the header dialect of the client. Names are
// written in the X-Trino- form; a Presto client rewrites them to X-Presto-.
func (c *Client) CanonicalHeader(name string) string {
	if c.prestoHeaders {
		return strings.Replace(name, "X-Trino-", "X-Presto-", 1)
	}
	return name
}

// NewRequest builds a request for urlStr, resolved against the session's
// server, carrying the session's protocol headers.
func (c *Client) NewRequest(ctx context.Context, session *Session, method, urlStr string, body io.Reader) (*http.Request, error) {
	u, err := c.resolveURL(session, urlStr)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}
	c.applyHeaders(req, session)
	for _, opt := range c.requestOptions {
		opt(req)
	}
	return req, nil
}

func (c *Client) resolveURL(session *Session, urlStr string) (*url.URL, error) {
	u, err := session.server.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("trino: invalid request URL %q: %w", urlStr, err)
	}
	if c.forceHTTPS && u.Scheme == "http" {
		u.Scheme = "https"
	}
	return u, nil
}

func (c *Client) applyHeaders(req *http.Request, s *Session) {
	h := req.Header

	// 1. Identity
	h.Set(c.CanonicalHeader(UserHeader), s.user)
	h.Set(c.CanonicalHeader(SourceHeader), s.source)
	if s.password != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	// 2. Query context
	if s.catalog != "" {
		h.Set(c.CanonicalHeader(CatalogHeader), s.catalog)
	}
	if s.schema != "" {
		h.Set(c.CanonicalHeader(SchemaHeader), s.schema)
	}
	if len(s.clientTags) > 0 {
		h.Set(c.CanonicalHeader(ClientTagHeader), strings.Join(s.clientTags, ","))
	}
	if s.timeZone != "" {
		h.Set(c.CanonicalHeader(TimeZoneHeader), s.timeZone)
	}
	if s.locale != "" {
		h.Set(c.CanonicalHeader(LanguageHeader), s.locale)
	}
	if s.clientInfo != "" {
		h.Set(c.CanonicalHeader(ClientInfoHeader), s.clientInfo)
	}
	if s.traceToken != "" {
		h.Set(c.CanonicalHeader(TraceTokenHeader), s.traceToken)
	}

	// 3. One header per entry
	for _, p := range s.properties {
		h.Add(c.CanonicalHeader(SessionHeader), p.Name+"="+url.QueryEscape(p.Value))
	}
	for _, p := range s.credentials {
		h.Add(c.CanonicalHeader(ExtraCredentialHeader), p.Name+"="+url.QueryEscape(p.Value))
	}

	// 4. Encoding
	if s.compressionDisabled {
		h.Set("Accept-Encoding", ContentEncodingIdentity)
	} else {
		h.Set("Accept-Encoding", ContentEncodingGzip+", "+ContentEncodingZstd)
	}
}

// --- Exchange ---

// Do performs req and decodes a JSON body into v, or copies it when v is an
// io.Writer. The response is returned for every completed exchange, including
// error statuses; the caller decides what a status means. v may be nil to
// discard the body. An empty body is an error when v expects JSON.
func (c *Client) Do(req *http.Request, v any) (*http.Response, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("method", req.Method).Str("url", req.URL.Redacted()).Int("status", resp.StatusCode).Msg("trino exchange")
	return resp, decodeResponseBody(resp, v)
}

func decodeResponseBody(resp *http.Response, v any) (err error) {
	// Ensure the main response body is always closed
	defer func() {
		closeErr := resp.Body.Close()
		if err == nil {
			err = closeErr
		}
	}()

	if v == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}

	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", ContentEncodingIdentity:
	case ContentEncodingGzip:
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return fmt.Errorf("failed to create gzip reader: %w", gzErr)
		}
		defer gz.Close()
		reader = gz
	case ContentEncodingZstd:
		zr, zErr := zstd.NewReader(resp.Body)
		if zErr != nil {
			return fmt.Errorf("failed to create zstd reader: %w", zErr)
		}
		defer zr.Close()
		reader = zr
	default:
		return fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}

	if w, ok := v.(io.Writer); ok {
		_, err = io.Copy(w, reader)
		return err
	}

	if err = json.NewDecoder(reader).Decode(v); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// --- High-level helpers ---

// NewStatement returns a statement for query over this client. Nothing is
// sent until Submit.
func (c *Client) NewStatement(session *Session, query string) *StatementClient {
	return &StatementClient{client: c, session: session, query: query}
}

// Execute returns a lazy cursor over the rows of query. The statement is
// submitted by the first call to Next or Columns.
func (c *Client) Execute(session *Session, query string) *ResultSet {
	return NewResultSet(c.NewStatement(session, query))
}

// ExecuteQuery runs query and returns its first row, or nil when it produced
// none. The statement is closed before returning.
func (c *Client) ExecuteQuery(ctx context.Context, session *Session, query string) (*Row, error) {
	rs := c.Execute(session, query)
	defer closeQuietly(rs)

	for rs.More() {
		ok, err := rs.Next(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return rs.CurrentRow()
		}
	}
	return nil, nil
}

// UpdateResult describes a statement run for its effect.
type UpdateResult struct {
	QueryID string

	// UpdateType labels the statement, e.g. "INSERT" or "CREATE TABLE"
	UpdateType string

	// UpdateCount is the number of affected rows; nil when the server did not report one
	UpdateCount *int64

	// Rows is the number of result rows read while draining
	Rows int64

	Stats *StatementStats
}

// ExecuteUpdate runs query to completion, discarding any rows, and reports
// the update type and count of the last page that carried them.
func (c *Client) ExecuteUpdate(ctx context.Context, session *Session, query string) (*UpdateResult, error) {
	stmt := c.NewStatement(session, query)
	rs := NewResultSet(stmt)
	defer closeQuietly(rs)

	res := &UpdateResult{}
	observe := func() {
		page := stmt.Current()
		if page == nil {
			return
		}
		res.QueryID = page.Id
		if page.UpdateType != nil {
			res.UpdateType = *page.UpdateType
		}
		if page.UpdateCount != nil {
			n := *page.UpdateCount
			res.UpdateCount = &n
		}
		if page.Stats != nil {
			res.Stats = page.Stats
		}
	}

	for rs.More() {
		ok, err := rs.Next(ctx)
		observe()
		if err != nil {
			return res, err
		}
		if ok {
			res.Rows++
		}
	}
	return res, nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
