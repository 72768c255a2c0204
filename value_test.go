package trino

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_DecodeKinds(t *testing.T) {
	var row []Value
	require.NoError(t, json.Unmarshal([]byte(`[null, true, 42, 1.5, "x", [1, "a"], {"k": 9}, 9007199254740993]`), &row))
	require.Len(t, row, 8)

	kinds := make([]Kind, len(row))
	for i, v := range row {
		kinds[i] = v.Kind()
	}
	assert.Equal(t, []Kind{KindNull, KindBool, KindInt, KindFloat, KindString, KindArray, KindObject, KindInt}, kinds)

	i, ok := row[2].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)

	big, _ := row[7].Int()
	assert.Equal(t, int64(9007199254740993), big, "integers must not lose precision through float64")

	arr, ok := row[5].Array()
	require.True(t, ok)
	assert.Equal(t, KindString, arr[1].Kind())

	obj, ok := row[6].Object()
	require.True(t, ok)
	assert.Equal(t, int64(9), obj["k"].Interface())
}

func TestValue_Interface(t *testing.T) {
	v := ArrayValue(IntValue(1), StringValue("a"), NullValue(), ObjectValue(map[string]Value{"b": BoolValue(true)}))
	assert.Equal(t, []any{int64(1), "a", nil, map[string]any{"b": true}}, v.Interface())
}

func TestValue_StringAndMarshal(t *testing.T) {
	assert.Equal(t, "NULL", NullValue().String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "-7", IntValue(-7).String())
	assert.Equal(t, "2.25", FloatValue(2.25).String())
	assert.Equal(t, "Alice", StringValue("Alice").String())
	assert.Equal(t, `[1,"a"]`, ArrayValue(IntValue(1), StringValue("a")).String())
	assert.Equal(t, "[]", ArrayValue().String())

	b, err := json.Marshal([]Value{NullValue(), ObjectValue(nil)})
	require.NoError(t, err)
	assert.Equal(t, `[null,{}]`, string(b))
}

func TestValueAs_NoCoercion(t *testing.T) {
	i, err := ValueAs[int64](IntValue(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), i)

	_, err = ValueAs[string](IntValue(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "int value cannot be read as string")

	_, err = ValueAs[float64](IntValue(1))
	assert.ErrorIs(t, err, ErrTypeMismatch, "int is not silently widened to float")

	s, err := ValueAs[string](NullValue())
	require.NoError(t, err)
	assert.Empty(t, s)

	list, err := ValueAs[[]any](ArrayValue(StringValue("x")))
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, list)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
