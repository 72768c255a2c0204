package trino_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanyzhang/trino-go"
	"github.com/ethanyzhang/trino-go/trinotest"
)

func stageIDs(stages []*trino.StageInfo) []string {
	ids := make([]string, len(stages))
	for i, s := range stages {
		ids[i] = s.ID()
	}
	return ids
}

func TestQueryInfo_NestedOutputStage(t *testing.T) {
	raw := `{
		"queryId": "20260101_000000_00001_abcde",
		"state": "FINISHED",
		"query": "SELECT 1",
		"queryStats": {
			"createTime": "2026-01-01T00:00:00Z",
			"elapsedTime": "1.50s",
			"totalCpuTime": "2.00s",
			"rawInputDataSize": "4.00kB",
			"rawInputPositions": 100
		},
		"outputStage": {
			"stageId": "20260101_000000_00001_abcde.0",
			"latestAttemptExecutionInfo": {
				"state": "FINISHED",
				"stats": {"totalTasks": 1, "totalCpuTime": "10.00ms"}
			},
			"subStages": [{
				"stageId": "20260101_000000_00001_abcde.1",
				"latestAttemptExecutionInfo": {
					"state": "FINISHED",
					"stats": {"totalTasks": 2}
				},
				"subStages": []
			}]
		}
	}`

	var qi trino.QueryInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &qi))

	stages := qi.Stages()
	assert.Equal(t, []string{"0", "1"}, stageIDs(stages))
	assert.Equal(t, 1, stages[0].ExecutionStats().TotalTasks)
	assert.Equal(t, 10*time.Millisecond, stages[0].ExecutionStats().TotalCpuTime.Duration)
	assert.Equal(t, 2, stages[1].ExecutionStats().TotalTasks)

	require.NotNil(t, qi.QueryStats)
	assert.Equal(t, 1500*time.Millisecond, qi.QueryStats.ElapsedTime.Duration)
	assert.Equal(t, trino.DataSize(4096), qi.QueryStats.RawInputDataSize)
	assert.Equal(t, int64(2048), qi.QueryStats.BytesPerCPUSecond())
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), qi.QueryStats.CreateTime.UTC())
}

func TestQueryInfo_FlatStages(t *testing.T) {
	raw := `{
		"queryId": "q_flat",
		"state": "FINISHED",
		"query": "SELECT count(*) FROM orders",
		"stages": {
			"outputStageId": "q_flat.0",
			"stages": [
				{"stageId": "q_flat.0", "state": "FINISHED", "stageStats": {"totalTasks": 1}, "subStages": ["q_flat.1"]},
				{"stageId": "q_flat.1", "state": "FINISHED", "stageStats": {"totalTasks": 4}, "subStages": ["q_flat.2"]},
				{"stageId": "q_flat.2", "state": "FINISHED", "stageStats": {"totalTasks": 8}, "subStages": []}
			]
		}
	}`

	var qi trino.QueryInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &qi))

	stages := qi.Stages()
	assert.Equal(t, []string{"0", "1", "2"}, stageIDs(stages))
	for i, tasks := range []int{1, 4, 8} {
		assert.Equal(t, tasks, stages[i].ExecutionStats().TotalTasks)
		assert.Empty(t, stages[i].SubStages, "id references are not stages")
	}
}

func TestQueryInfo_NoStages(t *testing.T) {
	raw := `{
		"queryId": "q_failed",
		"state": "FAILED",
		"query": "SELECT bad",
		"errorCode": {"code": 1, "name": "SYNTAX_ERROR", "type": "USER_ERROR"},
		"failureInfo": {"type": "io.trino.sql.parser.ParsingException", "message": "mismatched input"}
	}`

	var qi trino.QueryInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &qi))
	assert.Empty(t, qi.Stages())
	require.NotNil(t, qi.ErrorCode)
	assert.Equal(t, "SYNTAX_ERROR", qi.ErrorCode.Name)
	assert.Equal(t, "io.trino.sql.parser.ParsingException: mismatched input", qi.FailureInfo.Chain())
}

func TestStageInfo_InvalidSubStages(t *testing.T) {
	var s trino.StageInfo
	err := json.Unmarshal([]byte(`{"stageId":"q.0","subStages":{"x":1}}`), &s)
	assert.ErrorContains(t, err, `invalid subStages of stage "q.0"`)
}

func TestDataSize(t *testing.T) {
	tests := []struct {
		in   string
		want trino.DataSize
	}{
		{"0B", 0},
		{"12B", 12},
		{"1.50kB", 1536},
		{"2MB", 2 << 20},
		{" 1GB ", 1 << 30},
		{"1TB", 1 << 40},
		{"1PB", 1 << 50},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := trino.ParseDataSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "12", "kB", "-1B", "1.5XB"} {
		_, err := trino.ParseDataSize(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "512B", trino.DataSize(512).String())
	assert.Equal(t, "1.50kB", trino.DataSize(1536).String())
	assert.Equal(t, "3.00GB", trino.DataSize(3<<30).String())

	var d trino.DataSize
	require.NoError(t, json.Unmarshal([]byte(`2048`), &d))
	assert.Equal(t, trino.DataSize(2048), d)
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, trino.DataSize(0), d)
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestClient_QueryInfo(t *testing.T) {
	mock := trinotest.NewMockTrinoServer()
	defer mock.Close()

	mock.SetQueryInfo(&trino.QueryInfo{
		QueryID: "q1",
		State:   "FINISHED",
		Query:   "SELECT 1",
		QueryStats: &trino.QueryStats{
			ElapsedTime:      trino.Duration{Duration: 3 * time.Second},
			RawInputDataSize: 1536,
		},
		OutputStage: &trino.StageInfo{
			StageID:   "q1.0",
			Stats:     &trino.StageStats{TotalTasks: 1},
			SubStages: []*trino.StageInfo{{StageID: "q1.1", Stats: &trino.StageStats{TotalTasks: 3}}},
		},
	})

	session, err := trino.NewSession(mock.URL())
	require.NoError(t, err)
	client := trino.NewClient()
	defer client.Close()

	info, err := client.QueryInfo(context.Background(), session, "q1")
	require.NoError(t, err)
	assert.Equal(t, "FINISHED", info.State)
	assert.Equal(t, 3*time.Second, info.QueryStats.ElapsedTime.Duration)
	assert.Equal(t, trino.DataSize(1536), info.QueryStats.RawInputDataSize)
	assert.Equal(t, []string{"0", "1"}, stageIDs(info.Stages()))
	assert.Equal(t, "/v1/query/q1", mock.Requests()[0].Path)

	_, err = client.QueryInfo(context.Background(), session, "unknown")
	var te *trino.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
}
