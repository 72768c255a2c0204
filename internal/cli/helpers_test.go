package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethanyzhang/trino-go"
	"github.com/ethanyzhang/trino-go/trinotest"
)

// isolate points HOME at a fresh directory and clears TRINO_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, name := range []string{
		"TRINO_SERVER", "TRINO_USER", "TRINO_CATALOG", "TRINO_SCHEMA", "TRINO_SOURCE",
		"TRINO_OUTPUT", "TRINO_PROFILE", "TRINO_TIMEOUT", "TRINO_ACCESS_TOKEN",
	} {
		t.Setenv(name, "")
	}
	return dir
}

// runCLI executes a fresh command tree and returns what it wrote.
func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func newMock(t *testing.T) *trinotest.MockTrinoServer {
	t.Helper()
	mock := trinotest.NewMockTrinoServer()
	t.Cleanup(mock.Close)
	mock.AddQuery(&trinotest.MockQueryTemplate{
		SQL:         "SELECT id, name FROM users",
		DataBatches: 2,
		Columns: []trino.Column{
			{Name: "id", Type: "bigint"},
			{Name: "name", Type: "varchar"},
		},
		Data: [][]any{{1, "alice"}, {2, nil}},
	})
	return mock
}

func writeConfig(t *testing.T, cfg *UserConfig) {
	t.Helper()
	require.NoError(t, SaveUserConfig(cfg))
}
