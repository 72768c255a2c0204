package trino

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// --- Parameter Interpolation ---

// valueToSQL converts a Go driver.Value to a SQL literal string.
func valueToSQL(v driver.Value) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'", nil
	case time.Time:
		return "TIMESTAMP '" + val.Format("2006-01-02 15:04:05.000") + "'", nil
	case time.Duration:
		return formatIntervalDayToSecond(val), nil
	default:
		return "", fmt.Errorf("trino: unsupported parameter type: %T", v)
	}
}

// interpolateParams replaces ? placeholders in the query with SQL literals.
// It skips ? characters inside single-quoted string literals.
func interpolateParams(query string, args []driver.Value) (string, error) {
	if len(args) == 0 {
		return query, nil
	}

	var buf strings.Builder
	buf.Grow(len(query) + len(args)*8)
	argIdx := 0
	inString := false

	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			if inString && i+1 < len(query) && query[i+1] == '\'' {
				// Escaped quote inside string literal
				buf.WriteString("''")
				i++
				continue
			}
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if ch == '?' && !inString {
			if argIdx >= len(args) {
				return "", fmt.Errorf("trino: not enough arguments: query has more placeholders than the %d provided arguments", len(args))
			}
			s, err := valueToSQL(args[argIdx])
			if err != nil {
				return "", err
			}
			buf.WriteString(s)
			argIdx++
			continue
		}
		buf.WriteByte(ch)
	}

	if argIdx != len(args) {
		return "", fmt.Errorf("trino: too many arguments: %d provided but only %d placeholders in query", len(args), argIdx)
	}
	return buf.String(), nil
}

// --- Type Conversion ---

// normalizeType strips parameterized parts from a type string.
// e.g. "varchar(255)" → "varchar", "decimal(10,2)" → "decimal"
func normalizeType(t string) string {
	lower := strings.ToLower(strings.TrimSpace(t))
	if idx := strings.IndexByte(lower, '('); idx >= 0 {
		// "timestamp(3) with time zone" keeps its suffix
		base := lower[:idx]
		if end := strings.IndexByte(lower[idx:], ')'); end >= 0 {
			if rest := strings.TrimSpace(lower[idx+end+1:]); rest != "" && (base == "timestamp" || base == "time") {
				return base + " " + rest
			}
		}
		return base
	}
	return lower
}

// scanTypeForTrinoType returns the reflect.Type that Scan should use for a column type.
func scanTypeForTrinoType(trinoType string) reflect.Type {
	switch normalizeType(trinoType) {
	case "bigint", "integer", "smallint", "tinyint":
		return reflect.TypeOf(int64(0))
	case "double", "real":
		return reflect.TypeOf(float64(0))
	case "boolean":
		return reflect.TypeOf(false)
	case "varbinary":
		return reflect.TypeOf([]byte(nil))
	case "date", "timestamp", "timestamp with time zone", "time", "time with time zone":
		return reflect.TypeOf(time.Time{})
	case "interval day to second":
		return reflect.TypeOf(time.Duration(0))
	default:
		// varchar, decimal, json, array, map, row, and unknown types → string
		return reflect.TypeOf("")
	}
}

// convertValue converts a cell to the driver.Value for its column type.
func convertValue(val Value, trinoType string) (driver.Value, error) {
	if val.IsNull() {
		return nil, nil
	}

	switch norm := normalizeType(trinoType); norm {
	case "bigint", "integer", "smallint", "tinyint":
		if i, ok := val.Int(); ok {
			return i, nil
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to int64 for type %s", val.Kind(), trinoType)

	case "double", "real":
		switch val.Kind() {
		case KindFloat:
			f, _ := val.Float()
			return f, nil
		case KindInt:
			i, _ := val.Int()
			return float64(i), nil
		case KindString:
			// NaN and Infinity arrive as strings
			s, _ := val.Str()
			return strconv.ParseFloat(s, 64)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to float64 for type %s", val.Kind(), trinoType)

	case "boolean":
		if b, ok := val.Bool(); ok {
			return b, nil
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to bool for type %s", val.Kind(), trinoType)

	case "varchar", "char", "decimal", "json", "uuid", "ipaddress":
		// decimal stays a string for precision safety
		return val.String(), nil

	case "interval year to month":
		if s, ok := val.Str(); ok {
			return s, nil
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to interval", val.Kind())

	case "date":
		if s, ok := val.Str(); ok {
			return time.Parse("2006-01-02", s)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to date", val.Kind())

	case "timestamp":
		if s, ok := val.Str(); ok {
			return parseTimestamp(s)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to timestamp", val.Kind())

	case "timestamp with time zone":
		if s, ok := val.Str(); ok {
			return parseTimestampWithTZ(s)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to timestamp with time zone", val.Kind())

	case "time":
		if s, ok := val.Str(); ok {
			return parseTime(s)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to time", val.Kind())

	case "time with time zone":
		if s, ok := val.Str(); ok {
			return parseTimeWithTZ(s)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to time with time zone", val.Kind())

	case "interval day to second":
		if s, ok := val.Str(); ok {
			return parseIntervalDayToSecond(s)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to interval", val.Kind())

	case "varbinary":
		if s, ok := val.Str(); ok {
			// varbinary arrives base64 encoded
			return base64.StdEncoding.DecodeString(s)
		}
		return nil, fmt.Errorf("trino: cannot convert %s value to varbinary", val.Kind())

	default:
		// array, map, row and unknown types → JSON string
		b, err := val.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

func parseWithLayouts(kind, s string, layouts []string) (time.Time, error) {
	for _, f := range layouts {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("trino: cannot parse %s %q", kind, s)
}

// parseTimestamp parses a timestamp without time zone.
func parseTimestamp(s string) (time.Time, error) {
	return parseWithLayouts("timestamp", s, []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	})
}

// parseTimestampWithTZ parses a "timestamp with time zone" value. Zone names
// such as "Europe/Paris" are resolved through the local tz database.
func parseTimestampWithTZ(s string) (time.Time, error) {
	if t, err := parseWithLayouts("timestamp with time zone", s, []string{
		"2006-01-02 15:04:05.999999999 -07:00",
		"2006-01-02 15:04:05 -07:00",
		"2006-01-02 15:04:05.999999999 MST",
		"2006-01-02 15:04:05 MST",
	}); err == nil {
		return t, nil
	}
	idx := strings.LastIndexByte(s, ' ')
	if idx < 0 {
		return time.Time{}, fmt.Errorf("trino: cannot parse timestamp with time zone %q", s)
	}
	loc, err := time.LoadLocation(s[idx+1:])
	if err != nil {
		return time.Time{}, fmt.Errorf("trino: cannot parse timestamp with time zone %q: %w", s, err)
	}
	for _, f := range []string{"2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(f, s[:idx], loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("trino: cannot parse timestamp with time zone %q", s)
}

// parseTime parses a time of day without time zone.
func parseTime(s string) (time.Time, error) {
	return parseWithLayouts("time", s, []string{"15:04:05.999999999", "15:04:05"})
}

// parseTimeWithTZ parses a "time with time zone" value.
func parseTimeWithTZ(s string) (time.Time, error) {
	return parseWithLayouts("time with time zone", s, []string{
		"15:04:05.999999999 -07:00",
		"15:04:05 -07:00",
		"15:04:05.999999999 MST",
		"15:04:05 MST",
	})
}

// formatIntervalDayToSecond renders d as an INTERVAL ... DAY TO SECOND literal.
func formatIntervalDayToSecond(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second
	ms := (d - sec*time.Second) / time.Millisecond
	return fmt.Sprintf("INTERVAL '%s%d %02d:%02d:%02d.%03d' DAY TO SECOND", sign, days, h, m, sec, ms)
}

// parseIntervalDayToSecond parses "D HH:MM:SS.fff", with an optional leading minus.
func parseIntervalDayToSecond(s string) (time.Duration, error) {
	days, clock, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return 0, fmt.Errorf("trino: cannot parse interval %q", s)
	}
	negative := strings.HasPrefix(days, "-")
	d, err := strconv.ParseInt(strings.TrimPrefix(days, "-"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("trino: cannot parse interval %q: %w", s, err)
	}
	t, err := time.Parse("15:04:05.999999999", clock)
	if err != nil {
		return 0, fmt.Errorf("trino: cannot parse interval %q: %w", s, err)
	}
	dur := time.Duration(d)*24*time.Hour +
		time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	if negative {
		dur = -dur
	}
	return dur, nil
}
