package trino

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// ServerInfo is the coordinator description returned by /v1/info.
type ServerInfo struct {
	NodeVersion NodeVersion `json:"nodeVersion"`
	Environment string      `json:"environment"`
	Coordinator bool        `json:"coordinator"`
	Starting    bool        `json:"starting"`
	Uptime      Duration    `json:"uptime"`
}

// NodeVersion is the version of the coordinator.
type NodeVersion struct {
	Version string `json:"version"`
}

// Duration is a duration the server renders in its own short notation, e.g.
// "2.35d" or "14.20m", as in uptimes and query statistics.
type Duration struct {
	time.Duration
}

func (u Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(str2duration.String(u.Duration))
}

// UnmarshalJSON accepts the server's string form or a number of milliseconds.
func (u *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		u.Duration = 0
	case float64:
		u.Duration = time.Duration(value * float64(time.Millisecond))
	case string:
		d, err := str2duration.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("trino: invalid duration %q: %w", value, err)
		}
		u.Duration = d
	default:
		return fmt.Errorf("trino: invalid duration %s", b)
	}
	return nil
}

// ClusterStats represents the cluster statistics returned by /v1/cluster.
type ClusterStats struct {
	RunningQueries   int     `json:"runningQueries"`
	BlockedQueries   int     `json:"blockedQueries"`
	QueuedQueries    int     `json:"queuedQueries"`
	ActiveWorkers    int     `json:"activeWorkers"`
	RunningDrivers   int     `json:"runningDrivers"`
	ReservedMemory   float64 `json:"reservedMemory"`
	TotalInputRows   int64   `json:"totalInputRows"`
	TotalInputBytes  int64   `json:"totalInputBytes"`
	TotalCpuTimeSecs int64   `json:"totalCpuTimeSecs"`
}

// ServerInfo retrieves the coordinator description from /v1/info.
func (c *Client) ServerInfo(ctx context.Context, session *Session) (*ServerInfo, error) {
	info := new(ServerInfo)
	if err := c.getJSON(ctx, session, "v1/info", info); err != nil {
		return nil, err
	}
	return info, nil
}

// ClusterStats retrieves cluster statistics from /v1/cluster.
func (c *Client) ClusterStats(ctx context.Context, session *Session) (*ClusterStats, error) {
	stats := new(ClusterStats)
	if err := c.getJSON(ctx, session, "v1/cluster", stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) getJSON(ctx context.Context, session *Session, path string, v any) error {
	req, err := c.NewRequest(ctx, session, http.MethodGet, path, nil)
	if err != nil {
		return &TransportError{Op: "get", URL: path, Err: err}
	}
	resp, err := c.Do(req, v)
	switch {
	case resp == nil:
		return &TransportError{Op: "get", URL: req.URL.Redacted(), Err: err}
	case resp.StatusCode >= http.StatusBadRequest:
		return &TransportError{Op: "get", URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Status: reasonPhrase(resp)}
	case err != nil:
		return &TransportError{Op: "get", URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Status: reasonPhrase(resp), Err: err}
	}
	return nil
}
