package trino

import (
	"fmt"
	"sync/atomic"

	"github.com/ethanyzhang/trino-go/internal/bimap"
)

// QueryState is the client-side lifecycle of a statement.
type QueryState int32

const (
	// QueryStateRunning means the query is still executing or more pages remain.
	QueryStateRunning QueryState = iota
	// QueryStateFinished means the server reported completion (successful or
	// failed) or the last page has been consumed.
	QueryStateFinished
	// QueryStateClientAborted means the server reported the query as canceled
	// by the user.
	QueryStateClientAborted
	// QueryStateClientError means an HTTP exchange could not be completed.
	QueryStateClientError
)

var queryStateNames = bimap.New(map[QueryState]string{
	QueryStateRunning:       "RUNNING",
	QueryStateFinished:      "FINISHED",
	QueryStateClientAborted: "CLIENT_ABORTED",
	QueryStateClientError:   "CLIENT_ERROR",
})

// String returns the upper-case name of the state.
func (s QueryState) String() string {
	return queryStateNames.ValueOr(s, fmt.Sprintf("QueryState(%d)", int32(s)))
}

// IsTerminal reports whether no further polling is allowed from this state.
func (s QueryState) IsTerminal() bool {
	return s != QueryStateRunning
}

// ParseQueryState parses the upper-case name of a state.
func ParseQueryState(name string) (QueryState, error) {
	if s, ok := queryStateNames.Key(name); ok {
		return s, nil
	}
	return QueryStateRunning, fmt.Errorf("trino: unknown query state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s QueryState) MarshalText() ([]byte, error) {
	name, ok := queryStateNames.Value(s)
	if !ok {
		return nil, fmt.Errorf("trino: unknown query state %d", int32(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *QueryState) UnmarshalText(text []byte) error {
	parsed, err := ParseQueryState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// stateCell holds a QueryState that may be read from another goroutine while
// a fetch is in flight.
type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) load() QueryState {
	return QueryState(c.v.Load())
}

func (c *stateCell) store(s QueryState) {
	c.v.Store(int32(s))
}
