package trino

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one loosely typed cell of a result row, exactly as the server sent
// it. JSON integers become KindInt, other numbers KindFloat; nothing is
// coerced afterwards.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Constructors, one per kind.
func NullValue() Value { return Value{} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func ArrayValue(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }
func ObjectValue(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is SQL NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean held by v and whether v is KindBool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer held by v and whether v is KindInt.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float held by v and whether v is KindFloat.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Str returns the string held by v and whether v is KindString.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Array returns the elements held by v and whether v is KindArray.
func (v Value) Array() ([]Value, bool) { return v.arr, v.kind == KindArray }

// Object returns the fields held by v and whether v is KindObject.
func (v Value) Object() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Interface returns v as a plain Go value: nil, bool, int64, float64, string,
// []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders scalars plainly and containers as JSON. NULL renders as "NULL".
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(b)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return json.Marshal(v.Interface())
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := valueFromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromJSON(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("trino: invalid number %q: %w", x.String(), err)
		}
		return FloatValue(f), nil
	case string:
		return StringValue(x), nil
	case []any:
		arr := make([]Value, len(x))
		for i, e := range x {
			ev, err := valueFromJSON(e)
			if err != nil {
				return Value{}, err
			}
			arr[i] = ev
		}
		return ArrayValue(arr...), nil
	case map[string]any:
		obj := make(map[string]Value, len(x))
		for k, e := range x {
			ev, err := valueFromJSON(e)
			if err != nil {
				return Value{}, err
			}
			obj[k] = ev
		}
		return ObjectValue(obj), nil
	default:
		return Value{}, fmt.Errorf("trino: unsupported JSON value %T", raw)
	}
}

// ValueAs narrows v to T without conversion. A NULL value yields the zero T.
// Any other value whose Go representation (see Interface) is not a T fails with
// ErrTypeMismatch.
func ValueAs[T any](v Value) (T, error) {
	var zero T
	if v.IsNull() {
		return zero, nil
	}
	if t, ok := v.Interface().(T); ok {
		return t, nil
	}
	return zero, fmt.Errorf("%w: %s value cannot be read as %T", ErrTypeMismatch, v.kind, zero)
}
