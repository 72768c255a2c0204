// Package trinotest provides an in-process mock of a Trino coordinator for
// tests that exercise the statement protocol over real HTTP.
package trinotest

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethanyzhang/trino-go"
)

// --- Data Models ---

// QueryState is the server-side phase reported in the stats of each page.
type QueryState string

const (
	// QueryStateQueued indicates the query is waiting for coordinator resources.
	QueryStateQueued QueryState = "QUEUED"
	// QueryStateRunning indicates the query is actively being processed by workers.
	QueryStateRunning QueryState = "RUNNING"
	// QueryStateFinished indicates successful completion.
	QueryStateFinished QueryState = "FINISHED"
	// QueryStateFailed indicates an execution or planning error occurred.
	QueryStateFailed QueryState = "FAILED"
)

// String returns the string representation of the QueryState.
func (qs QueryState) String() string {
	return string(qs)
}

// generateMockSlug creates a random string to simulate the security slug of a
// continuation URI.
func generateMockSlug() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Failure scripts how a query goes wrong. It replaces the response at Batch,
// where 0 is the submission response and n the n-th continuation.
type Failure struct {
	Batch int

	// StatusCode is the HTTP status of the failing response; 0 means 200
	StatusCode int

	// Error is the payload of the failing response. When nil and StatusCode
	// is an error status, the body is plain text.
	Error *trino.QueryError

	// StatsOnly reports the FAILED phase in stats with no error payload and no
	// continuation
	StatsOnly bool
}

// MockQueryTemplate defines the result set and structure for a specific SQL string.
// It acts as an immutable blueprint from which MockActiveQuery instances are created.
//
// Batching and Data Distribution:
// The mock server divides the static 'Data' slice into sequential windows
// (batches) based on the 'DataBatches' field.
//
//  1. Queue phase:
//     The submission response and the first QueueBatches-1 polls carry no
//     data; their continuation URI points at batch 0 again.
//
//  2. Rows Per Batch Calculation:
//     rowsPerBatch = (totalRows + DataBatches - 1) / DataBatches.
//
//  3. Sequential Paging:
//     Each request for batch n > 0 returns rows [(n-1)*rowsPerBatch, n*rowsPerBatch).
//     The response for the last batch has no continuation URI.
type MockQueryTemplate struct {
	SQL          string         // The SQL query string used for template matching.
	DataBatches  int            // The number of data splits, capped by row count.
	QueueBatches int            // The number of responses spent queued. At least 1.
	Columns      []trino.Column // Metadata describing the result set columns.
	Data         [][]any        // The full result set partitioned across batches.
	Failure      *Failure       // Optional scripted failure.
	UpdateType   string         // Optional DML update type, sent on the last page.
	UpdateCount  *int64         // Optional DML update count, sent on the last page.
	Latency      time.Duration  // Latency for the query execution.
}

// MockActiveQuery represents a live execution instance of a template.
type MockActiveQuery struct {
	ID        string
	Template  *MockQueryTemplate
	State     QueryState
	QueuedFor int // How many responses it has stayed in the "QUEUED" state.
}

// RecordedRequest is one request received by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// page is the wire form of a statement response.
type page struct {
	ID          string                `json:"id"`
	InfoURI     string                `json:"infoUri"`
	NextURI     *string               `json:"nextUri,omitempty"`
	Columns     []trino.Column        `json:"columns,omitempty"`
	Data        [][]any               `json:"data,omitempty"`
	Stats       *trino.StatementStats `json:"stats"`
	Error       *trino.QueryError     `json:"error,omitempty"`
	UpdateType  string                `json:"updateType,omitempty"`
	UpdateCount *int64                `json:"updateCount,omitempty"`
}

// --- Mock Server Implementation ---

// MockTrinoServer simulates a Trino coordinator for integration testing.
type MockTrinoServer struct {
	server *httptest.Server

	// templates maps SQL strings to their pre-validated MockQueryTemplate blueprints.
	templates map[string]*MockQueryTemplate

	// activeQueries maps unique execution IDs to their current MockActiveQuery state.
	activeQueries map[string]*MockActiveQuery

	queriesMutex sync.RWMutex // Protects maps during concurrent test execution.

	// defaultLatency is the default fallback query latency if no template latency is defined.
	defaultLatency time.Duration

	requests   []RecordedRequest
	requestsMu sync.Mutex

	serverInfo *trino.ServerInfo
	queryInfos map[string]*trino.QueryInfo
	cluster    *trino.ClusterStats

	queryIDCounter atomic.Int64
	today          string // Cached date string for optimized ID generation.
}

// NewMockTrinoServer starts a mock coordinator on a loopback port.
func NewMockTrinoServer() *MockTrinoServer {
	mock := &MockTrinoServer{
		templates:     make(map[string]*MockQueryTemplate),
		activeQueries: make(map[string]*MockActiveQuery),
		queryInfos:    make(map[string]*trino.QueryInfo),
		today:         time.Now().Format("20060102"),
		serverInfo: &trino.ServerInfo{
			NodeVersion: trino.NodeVersion{Version: "mock"},
			Environment: "test",
			Coordinator: true,
			Uptime:      trino.Duration{Duration: time.Hour},
		},
	}

	mux := http.NewServeMux()

	// POST /v1/statement: Initiates a new query with a server-generated ID.
	mux.HandleFunc("POST /v1/statement", mock.handleNewQuery)

	// GET /v1/statement/{status}/{queryId}/{batchId}: Polls for the next data batch.
	mux.HandleFunc("GET /v1/statement/{status}/{queryId}/{batchId}", mock.handleFetchNextBatch)

	// GET /v1/info: Coordinator description.
	mux.HandleFunc("GET /v1/info", mock.handleInfo)

	// GET /v1/cluster: Cluster statistics registered with SetClusterStats.
	mux.HandleFunc("GET /v1/cluster", mock.handleCluster)

	// GET /v1/query/{queryId}: Detailed query record registered with SetQueryInfo.
	mux.HandleFunc("GET /v1/query/{queryId}", mock.handleQueryInfo)

	mock.server = httptest.NewServer(mock.record(mux))

	return mock
}

// AddQuery registers a SQL template and pre-calculates the valid DataBatches.
func (m *MockTrinoServer) AddQuery(tmpl *MockQueryTemplate) {
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()

	if totalRows := len(tmpl.Data); totalRows < tmpl.DataBatches {
		tmpl.DataBatches = totalRows
	}
	if tmpl.QueueBatches < 1 {
		tmpl.QueueBatches = 1
	}

	m.templates[tmpl.SQL] = tmpl
}

// SetDefaultLatency configures the fallback query latency.
func (m *MockTrinoServer) SetDefaultLatency(latency time.Duration) {
	m.defaultLatency = latency
}

// SetServerInfo replaces the document served at /v1/info.
func (m *MockTrinoServer) SetServerInfo(info *trino.ServerInfo) {
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()
	m.serverInfo = info
}

// SetClusterStats sets the document served at /v1/cluster. Until it is
// called the endpoint answers 404.
func (m *MockTrinoServer) SetClusterStats(stats *trino.ClusterStats) {
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()
	m.cluster = stats
}

// SetQueryInfo registers the document served at /v1/query/{info.QueryID}.
func (m *MockTrinoServer) SetQueryInfo(info *trino.QueryInfo) {
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()
	m.queryInfos[info.QueryID] = info
}

// Requests returns a copy of every request received so far.
func (m *MockTrinoServer) Requests() []RecordedRequest {
	m.requestsMu.Lock()
	defer m.requestsMu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests received so far.
func (m *MockTrinoServer) RequestCount() int {
	m.requestsMu.Lock()
	defer m.requestsMu.Unlock()
	return len(m.requests)
}

func (m *MockTrinoServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		m.requestsMu.Lock()
		m.requests = append(m.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		m.requestsMu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// --- Request Handlers ---

func (m *MockTrinoServer) handleNewQuery(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	sql := string(body)
	queryID := m.newQueryID()

	m.queriesMutex.RLock()
	template, exists := m.templates[sql]
	m.queriesMutex.RUnlock()

	if !exists {
		template = &MockQueryTemplate{
			SQL:          sql,
			DataBatches:  1,
			QueueBatches: 1,
			Columns:      []trino.Column{{Name: "result", Type: "varchar"}},
			Data:         [][]any{{"Query template not found; default success"}},
		}
	}

	m.queriesMutex.Lock()
	m.activeQueries[queryID] = &MockActiveQuery{
		ID:       queryID,
		Template: template,
		State:    QueryStateQueued,
	}
	m.queriesMutex.Unlock()

	m.sendQueryResponse(w, queryID, 0)
}

func (m *MockTrinoServer) handleFetchNextBatch(w http.ResponseWriter, r *http.Request) {
	batchID, _ := strconv.Atoi(r.PathValue("batchId"))
	m.sendQueryResponse(w, r.PathValue("queryId"), batchID)
}

func (m *MockTrinoServer) handleInfo(w http.ResponseWriter, _ *http.Request) {
	m.queriesMutex.RLock()
	info := m.serverInfo
	m.queriesMutex.RUnlock()
	writeJSON(w, http.StatusOK, info)
}

func (m *MockTrinoServer) handleCluster(w http.ResponseWriter, _ *http.Request) {
	m.queriesMutex.RLock()
	stats := m.cluster
	m.queriesMutex.RUnlock()
	if stats == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (m *MockTrinoServer) handleQueryInfo(w http.ResponseWriter, r *http.Request) {
	m.queriesMutex.RLock()
	info, ok := m.queryInfos[r.PathValue("queryId")]
	m.queriesMutex.RUnlock()
	if !ok {
		http.Error(w, "Query not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// --- Protocol Response Logic ---

// writeJSON encodes v as JSON and writes it to the response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// sendQueryResponse prepares a JSON payload and applies hierarchical latency.
func (m *MockTrinoServer) sendQueryResponse(w http.ResponseWriter, queryID string, batchID int) {
	m.queriesMutex.RLock()
	query, exists := m.activeQueries[queryID]
	if !exists {
		m.queriesMutex.RUnlock()
		http.Error(w, "Query not found", http.StatusNotFound)
		return
	}

	totalLatency := m.defaultLatency
	if query.Template.Latency > 0 {
		totalLatency = query.Template.Latency
	}

	// Calculate total lifecycle requests to distribute latency evenly.
	dataBatchCount := query.Template.DataBatches
	queueBatchCount := query.Template.QueueBatches
	totalRequests := dataBatchCount + queueBatchCount

	sleepDuration := totalLatency / time.Duration(totalRequests)
	m.queriesMutex.RUnlock()

	if sleepDuration > 0 {
		time.Sleep(sleepDuration)
	}

	m.queriesMutex.Lock()
	query, exists = m.activeQueries[queryID]
	if !exists {
		m.queriesMutex.Unlock()
		http.Error(w, "Query removed during processing", http.StatusNotFound)
		return
	}
	defer m.queriesMutex.Unlock()

	// Logic for managing the "Queued" phase loop.
	if batchID == 0 {
		query.QueuedFor++
	}

	// Transition to RUNNING only after exiting the queue loop.
	if query.QueuedFor >= queueBatchCount && query.State == QueryStateQueued {
		query.State = QueryStateRunning
	}

	// Determine if more batches (either queue status or data) are expected.
	hasMore := query.QueuedFor < queueBatchCount || batchID < dataBatchCount
	if !hasMore && query.State == QueryStateRunning {
		query.State = QueryStateFinished
	}

	resp := page{
		ID:      queryID,
		InfoURI: fmt.Sprintf("%s/ui/query.html?%s", m.server.URL, queryID),
		Columns: query.Template.Columns,
		Stats: &trino.StatementStats{
			State:           string(query.State),
			Queued:          query.State == QueryStateQueued,
			Scheduled:       query.State != QueryStateQueued,
			TotalSplits:     dataBatchCount,
			CompletedSplits: batchID,
		},
	}

	if f := query.Template.Failure; f != nil && f.Batch == batchID {
		delete(m.activeQueries, queryID)
		m.sendFailure(w, resp, f)
		return
	}

	if hasMore {
		nextBatch := batchID + 1
		// If still in the queue loop, keep the client polling batch 0.
		if query.QueuedFor < queueBatchCount {
			nextBatch = 0
		}
		nextURI := fmt.Sprintf("%s/v1/statement/%s/%s/%d?slug=%s",
			m.server.URL, query.State, queryID, nextBatch, generateMockSlug())
		resp.NextURI = &nextURI
	} else {
		resp.UpdateType = query.Template.UpdateType
		resp.UpdateCount = query.Template.UpdateCount
	}

	// Data is delivered sequentially across DataBatches.
	if batchID > 0 && dataBatchCount > 0 && len(query.Template.Data) > 0 {
		rowsPerBatch := (len(query.Template.Data) + dataBatchCount - 1) / dataBatchCount
		start := (batchID - 1) * rowsPerBatch
		if start < len(query.Template.Data) {
			end := min(start+rowsPerBatch, len(query.Template.Data))
			resp.Data = query.Template.Data[start:end]
		}
	}

	if query.State == QueryStateFinished {
		delete(m.activeQueries, queryID)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (m *MockTrinoServer) sendFailure(w http.ResponseWriter, resp page, f *Failure) {
	status := f.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	resp.Stats.State = string(QueryStateFailed)
	if f.StatsOnly {
		writeJSON(w, status, resp)
		return
	}
	if f.Error == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	resp.Error = f.Error
	writeJSON(w, status, resp)
}

func (m *MockTrinoServer) newQueryID() string {
	return fmt.Sprintf("%s_%06d_%05d_mock", m.today, 0, m.queryIDCounter.Add(1))
}

// URL returns the base URL of the mock server.
func (m *MockTrinoServer) URL() string { return m.server.URL }

// Close shuts down the mock server.
func (m *MockTrinoServer) Close() { m.server.Close() }
