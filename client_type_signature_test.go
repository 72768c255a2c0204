package trino

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSignature_DecodeNested(t *testing.T) {
	raw := `{
		"name": "attrs",
		"type": "row(tags array(varchar(10)), n bigint)",
		"typeSignature": {
			"rawType": "row",
			"arguments": [
				{"kind": "NAMED_TYPE", "value": {
					"fieldName": {"name": "tags"},
					"typeSignature": {"rawType": "array", "arguments": [
						{"kind": "TYPE", "value": {"rawType": "varchar", "arguments": [{"kind": "LONG", "value": 10}]}}
					]}
				}},
				{"kind": "NAMED_TYPE", "value": {"fieldName": {"name": "n"}, "typeSignature": {"rawType": "bigint"}}}
			]
		}
	}`
	var col Column
	require.NoError(t, json.Unmarshal([]byte(raw), &col))
	require.NotNil(t, col.TypeSignature)

	sig := col.TypeSignature
	assert.Equal(t, "row", col.RawType())
	require.Len(t, sig.Arguments, 2)
	assert.Equal(t, "tags", sig.Arguments[0].FieldName)
	assert.Equal(t, int64(10), sig.Arguments[0].TypeSignature.Arguments[0].TypeSignature.Arguments[0].Long)
	assert.Equal(t, "row(tags array(varchar(10)), n bigint)", sig.String())
}

func TestTypeSignature_LegacyAndVariable(t *testing.T) {
	raw := `{"rawType": "decimal", "arguments": [
		{"kind": "VARIABLE", "value": "p"},
		{"kind": "TYPE", "typeSignature": {"rawType": "bigint"}}
	]}`
	var sig TypeSignature
	require.NoError(t, json.Unmarshal([]byte(raw), &sig))
	assert.Equal(t, "p", sig.Arguments[0].Variable)
	require.NotNil(t, sig.Arguments[1].TypeSignature)
	assert.Equal(t, "bigint", sig.Arguments[1].TypeSignature.RawType)
}

func TestTypeSignature_Errors(t *testing.T) {
	var sig TypeSignature
	err := json.Unmarshal([]byte(`{"rawType":"x","arguments":[{"kind":"WHAT","value":1}]}`), &sig)
	assert.ErrorContains(t, err, "unknown type argument kind")

	err = json.Unmarshal([]byte(`{"rawType":"x","arguments":[{"kind":"LONG","value":"ten"}]}`), &sig)
	assert.ErrorContains(t, err, "invalid LONG argument")
}

func TestTypeSignature_MarshalRoundTrip(t *testing.T) {
	sig := &TypeSignature{RawType: "map", Arguments: []TypeArgument{
		{Kind: TypeArgumentType, TypeSignature: &TypeSignature{RawType: "varchar"}},
		{Kind: TypeArgumentType, TypeSignature: &TypeSignature{RawType: "array", Arguments: []TypeArgument{
			{Kind: TypeArgumentNamedType, FieldName: "x", TypeSignature: &TypeSignature{RawType: "double"}},
		}}},
	}}
	b, err := json.Marshal(sig)
	require.NoError(t, err)

	var back TypeSignature
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, sig.String(), back.String())
	assert.Equal(t, "map(varchar, array(x double))", back.String())
}

func TestColumn_RawTypeFallback(t *testing.T) {
	assert.Equal(t, "varchar", Column{Type: "varchar(255)"}.RawType())
	assert.Equal(t, []string{"a", "b"}, ColumnNames([]Column{{Name: "a"}, {Name: "b"}}))
}
