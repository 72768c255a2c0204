package trino

import (
	"fmt"
	"strings"
)

// UserCanceledErrorName is the error name the server reports for a query that
// was canceled by its user.
const UserCanceledErrorName = "USER_CANCELED"

// QueryError is the error payload the server attaches to a page when the query
// failed. It is kept verbatim and surfaced through QueryFailedError.
type QueryError struct {
	// Message is the human-readable error message
	Message string `json:"message"`

	// SqlState is the optional SQLSTATE code
	SqlState string `json:"sqlState,omitempty"`

	// ErrorCode is a numeric code identifying the error
	ErrorCode int `json:"errorCode"`

	// ErrorName is the symbolic error name (e.g. "SYNTAX_ERROR", "USER_CANCELED")
	ErrorName string `json:"errorName"`

	// ErrorType classifies the error (e.g. "USER_ERROR", "INTERNAL_ERROR")
	ErrorType string `json:"errorType"`

	// ErrorLocation points into the submitted statement, mostly for syntax errors
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`

	// FailureInfo carries the server-side exception
	FailureInfo *FailureInfo `json:"failureInfo,omitempty"`
}

// IsUserCanceled reports whether the payload is the USER_CANCELED sentinel.
func (q *QueryError) IsUserCanceled() bool {
	return q != nil && q.ErrorName == UserCanceledErrorName
}

// String returns "ErrorName: Message", with the location appended when known.
func (q *QueryError) String() string {
	if q == nil {
		return "nil QueryError"
	}
	if q.ErrorLocation != nil {
		return fmt.Sprintf("%s: %s (%s)", q.ErrorName, q.Message, q.ErrorLocation)
	}
	return fmt.Sprintf("%s: %s", q.ErrorName, q.Message)
}

// Error implements the error interface.
func (q *QueryError) Error() string {
	return q.String()
}

// ErrorLocation is a 1-based position in the submitted statement.
type ErrorLocation struct {
	LineNumber   int `json:"lineNumber"`
	ColumnNumber int `json:"columnNumber"`
}

// String returns "line L:C".
func (e *ErrorLocation) String() string {
	return fmt.Sprintf("line %d:%d", e.LineNumber, e.ColumnNumber)
}

// FailureInfo describes the exception behind a failure. Causes and suppressed
// failures nest recursively.
type FailureInfo struct {
	// Type is the server-side exception type
	Type string `json:"type"`

	// Message is the exception message
	Message string `json:"message,omitempty"`

	Cause      *FailureInfo  `json:"cause,omitempty"`
	Suppressed []FailureInfo `json:"suppressed,omitempty"`
	Stack      []string      `json:"stack,omitempty"`

	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
}

// Chain renders the failure and its causes as "type: message <- type: message".
func (f *FailureInfo) Chain() string {
	var parts []string
	for cur := f; cur != nil; cur = cur.Cause {
		if cur.Message != "" {
			parts = append(parts, cur.Type+": "+cur.Message)
		} else {
			parts = append(parts, cur.Type)
		}
	}
	return strings.Join(parts, " <- ")
}
