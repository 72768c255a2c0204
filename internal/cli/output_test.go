package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanyzhang/trino-go"
)

func TestOutputFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, formatCSV, outputFormat("", &buf))
	assert.Equal(t, formatJSON, outputFormat(formatJSON, &buf))
}

func TestFormatters(t *testing.T) {
	cols := []trino.Column{{Name: "id", Type: "bigint"}, {Name: "tags", Type: "array(varchar)"}}
	rows := [][]trino.Value{
		{trino.IntValue(1), trino.ArrayValue(trino.StringValue("a"), trino.StringValue("b,c"))},
		{trino.IntValue(2), trino.NullValue()},
	}

	render := func(format string) string {
		var buf bytes.Buffer
		f := newFormatter(format, &buf)
		require.NoError(t, f.Header(cols))
		for _, r := range rows {
			require.NoError(t, f.Row(r))
		}
		require.NoError(t, f.Flush())
		return buf.String()
	}

	assert.Equal(t, "id,tags\n1,\"[\"\"a\"\",\"\"b,c\"\"]\"\n2,\n", render(formatCSV))
	assert.Equal(t, "{\"id\":1,\"tags\":[\"a\",\"b,c\"]}\n{\"id\":2,\"tags\":null}\n", render(formatJSON))
	assert.Equal(t, "id   tags\n---  ----\n1    [\"a\",\"b,c\"]\n2    NULL\n(2 rows)\n", render(formatTable))
}

func TestTableFormatter_SingleRow(t *testing.T) {
	var buf bytes.Buffer
	f := newFormatter(formatTable, &buf)
	require.NoError(t, f.Row([]trino.Value{trino.StringValue("x")}))
	require.NoError(t, f.Flush())
	assert.Equal(t, "x\n(1 row)\n", buf.String())
}

func TestJSONFormatter_MissingNames(t *testing.T) {
	var buf bytes.Buffer
	f := newFormatter(formatJSON, &buf)
	require.NoError(t, f.Row([]trino.Value{trino.BoolValue(true)}))
	assert.JSONEq(t, `{"_col0":true}`, buf.String())
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "2ms500us over 2", formatMetric(trino.RuntimeMetric{Unit: trino.RuntimeUnitNano, Sum: 2500000, Count: 2}))
	assert.Equal(t, "4.00kB over 1", formatMetric(trino.RuntimeMetric{Unit: trino.RuntimeUnitByte, Sum: 4096, Count: 1}))
	assert.Equal(t, "7 over 3", formatMetric(trino.RuntimeMetric{Sum: 7, Count: 3}))
}
