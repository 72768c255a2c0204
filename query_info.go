package trino

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// QueryInfo is the coordinator's detailed record of one query, served at
// /v1/query/{queryId}. The infoUri of every page links to its HTML view.
// Only the fields commonly needed by clients are decoded.
type QueryInfo struct {
	QueryID     string       `json:"queryId"`
	Self        string       `json:"self"`
	Query       string       `json:"query"`
	QueryType   string       `json:"queryType,omitempty"`
	State       string       `json:"state"`
	ErrorCode   *ErrorCode   `json:"errorCode,omitempty"`
	FailureInfo *FailureInfo `json:"failureInfo,omitempty"`
	QueryStats  *QueryStats  `json:"queryStats,omitempty"`

	// Presto and older Trino nest stages under outputStage. Newer Trino
	// sends a flat list whose subStages are stage id references.
	OutputStage *StageInfo  `json:"outputStage,omitempty"`
	RawStages   *flatStages `json:"stages,omitempty"`
}

// ErrorCode identifies the failure of a query in QueryInfo.
type ErrorCode struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryStats holds query-level execution statistics.
type QueryStats struct {
	CreateTime         *time.Time `json:"createTime,omitempty"`
	ExecutionStartTime *time.Time `json:"executionStartTime,omitempty"`
	EndTime            *time.Time `json:"endTime,omitempty"`

	QueuedTime        Duration `json:"queuedTime"`
	AnalysisTime      Duration `json:"analysisTime"`
	TotalPlanningTime Duration `json:"totalPlanningTime"`
	ElapsedTime       Duration `json:"elapsedTime"`
	ExecutionTime     Duration `json:"executionTime"`
	TotalCpuTime      Duration `json:"totalCpuTime"`

	TotalDrivers           int      `json:"totalDrivers"`
	RawInputPositions      int64    `json:"rawInputPositions"`
	RawInputDataSize       DataSize `json:"rawInputDataSize"`
	OutputPositions        int64    `json:"outputPositions"`
	OutputDataSize         DataSize `json:"outputDataSize"`
	WrittenOutputPositions int64    `json:"writtenOutputPositions"`
	WrittenOutputDataSize  DataSize `json:"writtenOutputDataSize"`

	CumulativeUserMemory      float64  `json:"cumulativeUserMemory"`
	PeakUserMemoryReservation DataSize `json:"peakUserMemoryReservation"`
}

// BytesPerCPUSecond returns raw input bytes per second of CPU time, or 0.
func (s *QueryStats) BytesPerCPUSecond() int64 {
	if secs := s.TotalCpuTime.Seconds(); secs > 0 {
		return int64(float64(s.RawInputDataSize) / secs)
	}
	return 0
}

// StageInfo is one stage of a query plan.
type StageInfo struct {
	StageID string `json:"stageId"`
	State   string `json:"state,omitempty"`

	// Trino reports stats on the stage; Presto on the latest attempt
	Stats                      *StageStats         `json:"stageStats,omitempty"`
	LatestAttemptExecutionInfo *StageExecutionInfo `json:"latestAttemptExecutionInfo,omitempty"`

	SubStages []*StageInfo `json:"-"`
}

// StageExecutionInfo is one execution attempt of a Presto stage.
type StageExecutionInfo struct {
	State string      `json:"state"`
	Stats *StageStats `json:"stats,omitempty"`
}

// StageStats holds per-stage execution statistics.
type StageStats struct {
	TotalTasks         int      `json:"totalTasks"`
	TotalScheduledTime Duration `json:"totalScheduledTime"`
	TotalCpuTime       Duration `json:"totalCpuTime"`
	TotalBlockedTime   Duration `json:"totalBlockedTime"`
	RawInputDataSize   DataSize `json:"rawInputDataSize"`
	RawInputPositions  int64    `json:"rawInputPositions"`
}

type flatStages struct {
	OutputStageID string       `json:"outputStageId"`
	Stages        []*StageInfo `json:"stages"`
}

// UnmarshalJSON decodes subStages when they are nested objects and ignores
// them when they are id references.
func (s *StageInfo) UnmarshalJSON(data []byte) error {
	type plain StageInfo
	var aux struct {
		plain
		SubStages json.RawMessage `json:"subStages"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = StageInfo(aux.plain)

	raw := bytes.TrimSpace(aux.SubStages)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var children []json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		return fmt.Errorf("trino: invalid subStages of stage %q: %w", s.StageID, err)
	}
	for _, c := range children {
		if c = bytes.TrimSpace(c); len(c) > 0 && c[0] == '"' {
			continue
		}
		child := new(StageInfo)
		if err := json.Unmarshal(c, child); err != nil {
			return err
		}
		s.SubStages = append(s.SubStages, child)
	}
	return nil
}

// MarshalJSON writes subStages as nested objects.
func (s StageInfo) MarshalJSON() ([]byte, error) {
	type plain StageInfo
	return json.Marshal(struct {
		plain
		SubStages []*StageInfo `json:"subStages,omitempty"`
	}{plain(s), s.SubStages})
}

// ID returns the stage number without the query id prefix.
func (s *StageInfo) ID() string {
	if i := strings.LastIndexByte(s.StageID, '.'); i >= 0 && i+1 < len(s.StageID) {
		return s.StageID[i+1:]
	}
	return s.StageID
}

// ExecutionStats returns the stage stats from whichever place the server
// reported them.
func (s *StageInfo) ExecutionStats() *StageStats {
	if s.Stats != nil {
		return s.Stats
	}
	if s.LatestAttemptExecutionInfo != nil {
		return s.LatestAttemptExecutionInfo.Stats
	}
	return nil
}

// Stages returns every stage in depth-first order starting at the output
// stage, whichever layout the server used.
func (q *QueryInfo) Stages() []*StageInfo {
	var out []*StageInfo
	var walk func(*StageInfo)
	walk = func(s *StageInfo) {
		if s == nil {
			return
		}
		out = append(out, s)
		for _, c := range s.SubStages {
			walk(c)
		}
	}
	switch {
	case q.OutputStage != nil:
		walk(q.OutputStage)
	case q.RawStages != nil:
		for _, s := range q.RawStages.Stages {
			walk(s)
		}
	}
	return out
}

// QueryInfo fetches /v1/query/{queryID}.
func (c *Client) QueryInfo(ctx context.Context, session *Session, queryID string) (*QueryInfo, error) {
	info := new(QueryInfo)
	if err := c.getJSON(ctx, session, "v1/query/"+url.PathEscape(queryID), info); err != nil {
		return nil, err
	}
	return info, nil
}

// DataSize is a byte count the server renders as "1.50kB", "12B", "2.31GB"
// and so on, with 1024 between units.
type DataSize int64

var dataSizeUnits = []struct {
	suffix string
	factor float64
}{
	// longest suffixes first so "kB" is not read as "B"
	{"PB", 1 << 50},
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"kB", 1 << 10},
	{"B", 1},
}

// ParseDataSize parses the server's data size notation.
func ParseDataSize(s string) (DataSize, error) {
	s = strings.TrimSpace(s)
	for _, u := range dataSizeUnits {
		num, ok := strings.CutSuffix(s, u.suffix)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil || f < 0 {
			break
		}
		return DataSize(f * u.factor), nil
	}
	return 0, fmt.Errorf("trino: invalid data size %q", s)
}

// String renders d in the largest unit that keeps the value at least 1.
func (d DataSize) String() string {
	for _, u := range dataSizeUnits {
		if float64(d) >= u.factor && u.factor > 1 {
			return strconv.FormatFloat(float64(d)/u.factor, 'f', 2, 64) + u.suffix
		}
	}
	return strconv.FormatInt(int64(d), 10) + "B"
}

func (d DataSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the string notation or a plain number of bytes.
func (d *DataSize) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		*d = 0
	case float64:
		*d = DataSize(value)
	case string:
		parsed, err := ParseDataSize(value)
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("trino: invalid data size %s", b)
	}
	return nil
}
