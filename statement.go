package trino

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

var errNullPage = errors.New("response body is null")

// StatementClient drives one statement through the protocol: a single
// submission followed by continuation fetches until the server stops
// returning a next URI. It owns the most recent page and the lifecycle state.
//
// Submit and FetchNext must be called from one goroutine at a time. State may
// be read concurrently, for example by a watchdog deciding to give up on a
// slow query.
type StatementClient struct {
	client  *Client
	session *Session
	query   string

	// ownsClient is set when the statement created its client and must
	// release it on Close
	ownsClient bool

	state     stateCell
	current   *QueryResults
	submitted bool
	closed    atomic.Bool
}

// NewStatementClient returns a statement with a dedicated client built from
// opts. Closing the statement releases that client.
func NewStatementClient(session *Session, query string, opts ...ClientOption) *StatementClient {
	stmt := NewClient(opts...).NewStatement(session, query)
	stmt.ownsClient = true
	return stmt
}

// Query returns the statement text.
func (s *StatementClient) Query() string { return s.query }

// Session returns the session the statement runs in.
func (s *StatementClient) Session() *Session { return s.session }

// State returns the lifecycle state. It never blocks.
func (s *StatementClient) State() QueryState { return s.state.load() }

// Current returns the most recent page, or nil before a successful Submit.
func (s *StatementClient) Current() *QueryResults { return s.current }

// Submit posts the statement and classifies the first page. It may be called
// once. The returned error is a *TransportError when the exchange failed, or
// a *QueryCancelledError / *QueryFailedError when the page reports an error;
// in the latter case the page is returned as well.
func (s *StatementClient) Submit(ctx context.Context) (*QueryResults, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}
	if s.submitted {
		return s.current, ErrAlreadySubmitted
	}
	s.submitted = true

	s.client.logger.Debug().Str("user", s.session.user).Msg("submitting statement")
	req, err := s.client.NewRequest(ctx, s.session, http.MethodPost, statementPath, strings.NewReader(s.query))
	if err != nil {
		return nil, s.fail(&TransportError{Op: "submit", URL: statementPath, Err: err})
	}
	return s.exchange(req, "submit")
}

// FetchNext follows the continuation pointer of the current page. Without a
// pointer the statement is finished and the current page is returned with no
// exchange. In any state other than RUNNING it is a no-op.
func (s *StatementClient) FetchNext(ctx context.Context) (*QueryResults, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}
	if s.current == nil {
		return nil, ErrNotSubmitted
	}
	if !s.current.HasNext() {
		s.transition(QueryStateFinished)
		return s.current, nil
	}
	if s.State() != QueryStateRunning {
		return s.current, nil
	}

	nextURI := *s.current.NextUri
	req, err := s.client.NewRequest(ctx, s.session, http.MethodGet, nextURI, nil)
	if err != nil {
		return nil, s.fail(&TransportError{Op: "fetch", URL: nextURI, Err: err})
	}
	return s.exchange(req, "fetch")
}

// Close marks the statement closed. It is idempotent and never sends anything
// to the server.
func (s *StatementClient) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.current != nil {
		s.client.logger.Debug().Str("query_id", s.current.Id).Str("state", s.State().String()).Msg("statement closed")
	}
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

func (s *StatementClient) exchange(req *http.Request, op string) (*QueryResults, error) {
	var page *QueryResults
	resp, err := s.client.Do(req, &page)
	if resp == nil {
		return nil, s.fail(&TransportError{Op: op, URL: req.URL.Redacted(), Err: err})
	}
	if err == nil && page == nil {
		// A missing page must not read as the end of the results.
		err = errNullPage
	}

	if resp.StatusCode >= http.StatusBadRequest {
		// Servers report structured errors on error statuses too.
		if err == nil && page.Error != nil {
			s.current = page
			return page, s.classify(page)
		}
		return nil, s.fail(&TransportError{
			Op:         op,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Status:     reasonPhrase(resp),
		})
	}
	if err != nil {
		return nil, s.fail(&TransportError{
			Op:         op,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Status:     reasonPhrase(resp),
			Err:        err,
		})
	}

	s.current = page
	return page, s.classify(page)
}

// classify sets the lifecycle state from a decoded page. The error payload
// wins over the stats phase, which wins over the continuation pointer.
func (s *StatementClient) classify(page *QueryResults) error {
	switch {
	case page.Error != nil:
		if page.Error.IsUserCanceled() {
			s.transition(QueryStateClientAborted)
			return &QueryCancelledError{QueryID: page.Id}
		}
		s.transition(QueryStateFinished)
		return &QueryFailedError{QueryID: page.Id, Err: page.Error}
	case page.Stats.IsFailed():
		s.transition(QueryStateFinished)
	case !page.HasNext():
		s.transition(QueryStateFinished)
	default:
		s.transition(QueryStateRunning)
	}
	return nil
}

func (s *StatementClient) fail(err *TransportError) error {
	s.transition(QueryStateClientError)
	s.client.logger.Debug().Err(err).Msg("statement exchange failed")
	return err
}

// transition moves to next unless the state is already terminal.
func (s *StatementClient) transition(next QueryState) {
	prev := s.state.load()
	if prev == next {
		return
	}
	if prev.IsTerminal() {
		s.client.logger.Debug().Str("state", prev.String()).Str("ignored", next.String()).Msg("statement already terminal")
		return
	}
	s.state.store(next)
	ev := s.client.logger.Debug().Str("from", prev.String()).Str("to", next.String())
	if s.current != nil {
		ev = ev.Str("query_id", s.current.Id)
	}
	ev.Msg("statement state changed")
}

func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
