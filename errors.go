package trino

import (
	"errors"
	"fmt"
)

// ClientError reports local misuse of a statement or result set, such as
// calling it after Close or reading a row before Next returned true.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string {
	return "trino: " + e.Message
}

var (
	// ErrClientClosed is returned by any operation on a closed StatementClient.
	ErrClientClosed = &ClientError{Message: "client is closed"}

	// ErrNotSubmitted is returned by FetchNext before Submit succeeded.
	ErrNotSubmitted = &ClientError{Message: "no current response, call Submit first"}

	// ErrAlreadySubmitted is returned by a second call to Submit.
	ErrAlreadySubmitted = &ClientError{Message: "statement already submitted"}

	// ErrNoCurrentRow is returned by ResultSet.CurrentRow when no row is positioned.
	ErrNoCurrentRow = &ClientError{Message: "no current row, call Next first"}
)

// TransportError reports an HTTP exchange that could not be completed: the
// request failed, the body could not be decoded, or the server answered with an
// error status and no error payload. It always leaves the statement in
// QueryStateClientError.
type TransportError struct {
	// Op is "submit" or "fetch"
	Op  string
	URL string

	// StatusCode and Status are set when a response was received
	StatusCode int
	Status     string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("trino: %s %s: HTTP %d %s: %v", e.Op, e.URL, e.StatusCode, e.Status, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("trino: %s %s: HTTP %d %s", e.Op, e.URL, e.StatusCode, e.Status)
	default:
		return fmt.Sprintf("trino: %s %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// QueryCancelledError is returned when the server reports USER_CANCELED.
type QueryCancelledError struct {
	QueryID string
}

func (e *QueryCancelledError) Error() string {
	return "trino: query was cancelled: " + e.QueryID
}

// QueryFailedError is returned when a page carries any other error payload.
// errors.As(err, new(*QueryError)) reaches the payload itself.
type QueryFailedError struct {
	QueryID string
	Err     *QueryError
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("trino: query %s failed: %s", e.QueryID, e.Err)
}

func (e *QueryFailedError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// Row accessor errors. They are wrapped with the offending index, name or type.
var (
	ErrColumnOutOfRange = errors.New("trino: column index out of range")
	ErrColumnNotFound   = errors.New("trino: column not found")
	ErrTypeMismatch     = errors.New("trino: type mismatch")
)
