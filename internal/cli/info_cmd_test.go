package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanyzhang/trino-go"
	"github.com/ethanyzhang/trino-go/trinotest"
)

func TestInfo(t *testing.T) {
	isolate(t)
	mock := trinotest.NewMockTrinoServer()
	defer mock.Close()
	mock.SetServerInfo(&trino.ServerInfo{
		NodeVersion: trino.NodeVersion{Version: "476"},
		Environment: "prod",
		Coordinator: true,
		Uptime:      trino.Duration{Duration: 90 * time.Minute},
	})

	t.Run("text", func(t *testing.T) {
		out, _, err := runCLI(t, "", "--server", mock.URL(), "info")
		require.NoError(t, err)
		assert.Contains(t, out, "version:     476\n")
		assert.Contains(t, out, "environment: prod\n")
		assert.Contains(t, out, "coordinator: true\n")
		assert.Contains(t, out, "server:      "+mock.URL()+"/\n")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := runCLI(t, "", "--server", mock.URL(), "-o", "json", "info")
		require.NoError(t, err)
		var doc struct {
			Info trino.ServerInfo `json:"info"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "476", doc.Info.NodeVersion.Version)
		assert.Equal(t, 90*time.Minute, doc.Info.Uptime.Duration)
	})

	t.Run("cluster stats unavailable", func(t *testing.T) {
		_, _, err := runCLI(t, "", "--server", mock.URL(), "info", "--cluster")
		assert.Error(t, err)
	})

	t.Run("cluster stats", func(t *testing.T) {
		mock.SetClusterStats(&trino.ClusterStats{RunningQueries: 4, QueuedQueries: 1, ActiveWorkers: 3})
		defer mock.SetClusterStats(nil)

		out, _, err := runCLI(t, "", "--server", mock.URL(), "info", "--cluster")
		require.NoError(t, err)
		assert.Contains(t, out, "running:     4\n")
		assert.Contains(t, out, "workers:     3\n")

		out, _, err = runCLI(t, "", "--server", mock.URL(), "-o", "json", "info", "--cluster")
		require.NoError(t, err)
		var doc struct {
			Cluster trino.ClusterStats `json:"cluster"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, 1, doc.Cluster.QueuedQueries)
	})

	t.Run("presto headers", func(t *testing.T) {
		_, _, err := runCLI(t, "", "--server", mock.URL(), "--presto", "-u", "bob", "info")
		require.NoError(t, err)
		reqs := mock.Requests()
		assert.Equal(t, "bob", reqs[len(reqs)-1].Header.Get("X-Presto-User"))
	})
}

func TestQueryInfoCmd(t *testing.T) {
	isolate(t)
	mock := trinotest.NewMockTrinoServer()
	defer mock.Close()
	mock.SetQueryInfo(&trino.QueryInfo{
		QueryID: "q1",
		State:   "FINISHED",
		Query:   "SELECT count(*) FROM orders",
		QueryStats: &trino.QueryStats{
			ElapsedTime:       trino.Duration{Duration: 2 * time.Second},
			RawInputPositions: 10,
			RawInputDataSize:  2048,
		},
		OutputStage: &trino.StageInfo{
			StageID: "q1.0",
			State:   "FINISHED",
			Stats:   &trino.StageStats{TotalTasks: 1},
			SubStages: []*trino.StageInfo{{
				StageID: "q1.1",
				State:   "FINISHED",
				Stats:   &trino.StageStats{TotalTasks: 4, RawInputDataSize: 2048},
			}},
		},
	})

	out, _, err := runCLI(t, "", "--server", mock.URL(), "query-info", "q1")
	require.NoError(t, err)
	assert.Contains(t, out, "state:    FINISHED\n")
	assert.Contains(t, out, "elapsed:  2s\n")
	assert.Contains(t, out, "input:    10 rows, 2.00kB\n")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"1", "FINISHED", "4", "0s", "2.00kB"}, strings.Fields(lines[len(lines)-1]))

	out, _, err = runCLI(t, "", "--server", mock.URL(), "-o", "json", "query-info", "q1")
	require.NoError(t, err)
	var info trino.QueryInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Len(t, info.Stages(), 2)

	_, _, err = runCLI(t, "", "--server", mock.URL(), "query-info", "missing")
	assert.ErrorContains(t, err, "404")
}
