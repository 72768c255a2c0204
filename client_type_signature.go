package trino

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TypeArgumentKind tells which field of a TypeArgument is populated.
type TypeArgumentKind string

const (
	TypeArgumentType      TypeArgumentKind = "TYPE"
	TypeArgumentNamedType TypeArgumentKind = "NAMED_TYPE"
	TypeArgumentLong      TypeArgumentKind = "LONG"
	TypeArgumentVariable  TypeArgumentKind = "VARIABLE"
)

// TypeSignature is the structured form of a column type: a raw type name and
// its ordered arguments, which may themselves be type signatures.
//
//	array(varchar(10))  -> {array, [TYPE {varchar, [LONG 10]}]}
//	row(x bigint)       -> {row, [NAMED_TYPE x {bigint}]}
type TypeSignature struct {
	RawType   string         `json:"rawType"`
	Arguments []TypeArgument `json:"arguments,omitempty"`
}

// String renders the signature the way the server spells declared types.
func (s *TypeSignature) String() string {
	if s == nil {
		return ""
	}
	if len(s.Arguments) == 0 {
		return s.RawType
	}
	args := make([]string, len(s.Arguments))
	for i, a := range s.Arguments {
		args[i] = a.String()
	}
	return s.RawType + "(" + strings.Join(args, ", ") + ")"
}

// TypeArgument is one parameter of a TypeSignature.
type TypeArgument struct {
	Kind TypeArgumentKind

	// TypeSignature is set for TYPE and NAMED_TYPE arguments
	TypeSignature *TypeSignature

	// FieldName is the optional field name of a NAMED_TYPE argument
	FieldName string

	// Long is set for LONG arguments (lengths, precisions)
	Long int64

	// Variable is set for VARIABLE arguments
	Variable string
}

func (a TypeArgument) String() string {
	switch a.Kind {
	case TypeArgumentType:
		return a.TypeSignature.String()
	case TypeArgumentNamedType:
		if a.FieldName == "" {
			return a.TypeSignature.String()
		}
		return a.FieldName + " " + a.TypeSignature.String()
	case TypeArgumentLong:
		return strconv.FormatInt(a.Long, 10)
	default:
		return a.Variable
	}
}

type rawTypeArgument struct {
	Kind  TypeArgumentKind `json:"kind"`
	Value json.RawMessage  `json:"value,omitempty"`

	// Older servers sent nested signatures here instead of in value.
	TypeSignature *TypeSignature `json:"typeSignature,omitempty"`
}

type namedTypeValue struct {
	FieldName *struct {
		Name string `json:"name"`
	} `json:"fieldName,omitempty"`
	TypeSignature *TypeSignature `json:"typeSignature"`
}

// UnmarshalJSON decodes the value according to kind.
func (a *TypeArgument) UnmarshalJSON(data []byte) error {
	var raw rawTypeArgument
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = TypeArgument{Kind: raw.Kind}
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		a.TypeSignature = raw.TypeSignature
		return nil
	}

	switch raw.Kind {
	case TypeArgumentType:
		a.TypeSignature = new(TypeSignature)
		if err := json.Unmarshal(raw.Value, a.TypeSignature); err != nil {
			return fmt.Errorf("trino: invalid TYPE argument: %w", err)
		}
	case TypeArgumentNamedType:
		var named namedTypeValue
		if err := json.Unmarshal(raw.Value, &named); err != nil {
			return fmt.Errorf("trino: invalid NAMED_TYPE argument: %w", err)
		}
		a.TypeSignature = named.TypeSignature
		if named.FieldName != nil {
			a.FieldName = named.FieldName.Name
		}
	case TypeArgumentLong:
		if err := json.Unmarshal(raw.Value, &a.Long); err != nil {
			return fmt.Errorf("trino: invalid LONG argument: %w", err)
		}
	case TypeArgumentVariable:
		if err := json.Unmarshal(raw.Value, &a.Variable); err != nil {
			return fmt.Errorf("trino: invalid VARIABLE argument: %w", err)
		}
	default:
		return fmt.Errorf("trino: unknown type argument kind %q", raw.Kind)
	}
	return nil
}

// MarshalJSON encodes the argument in the server's {kind, value} shape.
func (a TypeArgument) MarshalJSON() ([]byte, error) {
	var value any
	switch a.Kind {
	case TypeArgumentType:
		value = a.TypeSignature
	case TypeArgumentNamedType:
		named := namedTypeValue{TypeSignature: a.TypeSignature}
		if a.FieldName != "" {
			named.FieldName = &struct {
				Name string `json:"name"`
			}{Name: a.FieldName}
		}
		value = named
	case TypeArgumentLong:
		value = a.Long
	default:
		value = a.Variable
	}
	return json.Marshal(struct {
		Kind  TypeArgumentKind `json:"kind"`
		Value any              `json:"value"`
	}{a.Kind, value})
}
