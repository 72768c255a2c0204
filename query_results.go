package trino

import (
	"time"
)

// QueryResults is one decoded page of the statement protocol.
// Column metadata arrives with the first page that knows it; later pages may
// omit it. A nil NextUri marks the last page.
type QueryResults struct {
	// Id is the unique identifier for this query
	Id string `json:"id"`

	// InfoUri is a URI that can be used to get information about the query
	InfoUri string `json:"infoUri,omitempty"`

	// PartialCancelUri is a URI that can be used to cancel parts of the query
	PartialCancelUri *string `json:"partialCancelUri,omitempty"`

	// NextUri is the continuation pointer. If nil, this is the last page.
	NextUri *string `json:"nextUri,omitempty"`

	// Columns contains metadata about the columns in the result set
	Columns []Column `json:"columns,omitempty"`

	// Data holds the rows of this page, cells in column order
	Data [][]Value `json:"data,omitempty"`

	// Stats is a progress snapshot taken when the page was produced
	Stats *StatementStats `json:"stats,omitempty"`

	// Error is set when the query failed or was canceled
	Error *QueryError `json:"error,omitempty"`

	// Warnings contains any warnings generated during query execution
	Warnings []Warning `json:"warnings,omitempty"`

	// UpdateType labels a DML statement (e.g. "INSERT", "DELETE")
	UpdateType *string `json:"updateType,omitempty"`

	// UpdateCount is the number of rows a DML statement affected
	UpdateCount *int64 `json:"updateCount,omitempty"`
}

// HasNext reports whether the page carries a continuation pointer.
func (qr *QueryResults) HasNext() bool {
	return qr != nil && qr.NextUri != nil && *qr.NextUri != ""
}

// Stats phase the server reports for a failed query.
const StatsStateFailed = "FAILED"

// StatementStats is a point-in-time snapshot of query progress. It is purely
// observational, except that State "FAILED" ends the statement.
type StatementStats struct {
	State     string `json:"state"`
	Queued    bool   `json:"queued"`
	Scheduled bool   `json:"scheduled"`
	Nodes     int    `json:"nodes"`

	TotalSplits     int `json:"totalSplits"`
	QueuedSplits    int `json:"queuedSplits"`
	RunningSplits   int `json:"runningSplits"`
	CompletedSplits int `json:"completedSplits"`

	ProcessedBytes int64 `json:"processedBytes"`
	ProcessedRows  int64 `json:"processedRows"`

	ElapsedTimeMillis    int64   `json:"elapsedTimeMillis"`
	QueuedTimeMillis     int64   `json:"queuedTimeMillis"`
	WallTimeMillis       int64   `json:"wallTimeMillis"`
	CpuTimeMillis        int64   `json:"cpuTimeMillis"`
	PeakMemoryBytes      int64   `json:"peakMemoryBytes,omitempty"`
	SpilledBytes         int64   `json:"spilledBytes,omitempty"`
	CumulativeUserMemory float64 `json:"cumulativeUserMemory,omitempty"`

	// ProgressPercentage is only reported once the query is scheduled
	ProgressPercentage *float64 `json:"progressPercentage,omitempty"`

	// RuntimeStats is only sent by Presto coordinators
	RuntimeStats map[string]RuntimeMetric `json:"runtimeStats,omitempty"`
}

// IsFailed reports whether the snapshot's phase is FAILED.
func (s *StatementStats) IsFailed() bool {
	return s != nil && s.State == StatsStateFailed
}

// ElapsedTime returns ElapsedTimeMillis as a time.Duration.
func (s *StatementStats) ElapsedTime() time.Duration {
	return time.Duration(s.ElapsedTimeMillis) * time.Millisecond
}

// QueuedTime returns QueuedTimeMillis as a time.Duration.
func (s *StatementStats) QueuedTime() time.Duration {
	return time.Duration(s.QueuedTimeMillis) * time.Millisecond
}

// CPUTime returns CpuTimeMillis as a time.Duration.
func (s *StatementStats) CPUTime() time.Duration {
	return time.Duration(s.CpuTimeMillis) * time.Millisecond
}

// Progress returns the progress percentage and whether the server reported one.
func (s *StatementStats) Progress() (float64, bool) {
	if s == nil || s.ProgressPercentage == nil {
		return 0, false
	}
	return *s.ProgressPercentage, true
}
