package trino

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// The driver hands ARRAY, MAP and ROW columns to database/sql as JSON text.
// The Null* scanners below decode that text into Go values.

// scanJSON decodes a JSON string or []byte src into dst. It reports false for
// a nil src.
func scanJSON(src any, target string, dst any) (bool, error) {
	var data []byte
	switch v := src.(type) {
	case nil:
		return false, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case Value:
		if v.IsNull() {
			return false, nil
		}
		b, err := v.MarshalJSON()
		if err != nil {
			return false, err
		}
		data = b
	default:
		return false, fmt.Errorf("trino: cannot scan %T into %s", src, target)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("trino: cannot unmarshal %s: %w", target, err)
	}
	return true, nil
}

func jsonValue(valid bool, v any) (driver.Value, error) {
	if !valid {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// NullSlice is a nullable ARRAY column.
//
//	var names NullSlice[string]
//	err := row.Scan(&names)
type NullSlice[T any] struct {
	Slice []T
	Valid bool // Valid is true if the value is not NULL
}

var _ sql.Scanner = (*NullSlice[any])(nil)
var _ driver.Valuer = (*NullSlice[any])(nil)

// Scan implements sql.Scanner. It accepts JSON text or a Value.
func (s *NullSlice[T]) Scan(src any) error {
	s.Slice = nil
	valid, err := scanJSON(src, "NullSlice", &s.Slice)
	s.Valid = valid
	return err
}

// Value implements driver.Valuer.
func (s NullSlice[T]) Value() (driver.Value, error) {
	return jsonValue(s.Valid, s.Slice)
}

// NullMap is a nullable MAP column.
//
//	var props NullMap[string, int]
//	err := row.Scan(&props)
type NullMap[K comparable, V any] struct {
	Map   map[K]V
	Valid bool // Valid is true if the value is not NULL
}

var _ sql.Scanner = (*NullMap[string, any])(nil)
var _ driver.Valuer = (*NullMap[string, any])(nil)

// Scan implements sql.Scanner. It accepts JSON text or a Value.
func (m *NullMap[K, V]) Scan(src any) error {
	m.Map = nil
	valid, err := scanJSON(src, "NullMap", &m.Map)
	m.Valid = valid
	return err
}

// Value implements driver.Valuer.
func (m NullMap[K, V]) Value() (driver.Value, error) {
	return jsonValue(m.Valid, m.Map)
}

// NullRow is a nullable ROW column, decoded into a struct or a map.
//
//	type Address struct {
//	    Street string `json:"street"`
//	    City   string `json:"city"`
//	}
//	var addr NullRow[Address]
//	err := row.Scan(&addr)
type NullRow[T any] struct {
	Row   T
	Valid bool // Valid is true if the value is not NULL
}

var _ sql.Scanner = (*NullRow[any])(nil)
var _ driver.Valuer = (*NullRow[any])(nil)

// Scan implements sql.Scanner. It accepts JSON text or a Value.
func (r *NullRow[T]) Scan(src any) error {
	var zero T
	r.Row = zero
	valid, err := scanJSON(src, "NullRow", &r.Row)
	r.Valid = valid
	return err
}

// Value implements driver.Valuer.
func (r NullRow[T]) Value() (driver.Value, error) {
	return jsonValue(r.Valid, r.Row)
}
