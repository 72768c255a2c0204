package trino

// Column represents metadata about a column in a query result.
type Column struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the declared type as a string, e.g. "varchar(10)" or "array(bigint)"
	Type string `json:"type"`

	// TypeSignature is the parsed form of Type; nil when the server omits it
	TypeSignature *TypeSignature `json:"typeSignature,omitempty"`
}

// RawType returns the base type name, preferring the type signature.
func (c Column) RawType() string {
	if c.TypeSignature != nil && c.TypeSignature.RawType != "" {
		return c.TypeSignature.RawType
	}
	return normalizeType(c.Type)
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}
