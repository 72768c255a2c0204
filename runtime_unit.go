package trino

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ethanyzhang/trino-go/internal/bimap"
)

// RuntimeUnit is the unit of a Presto runtime metric.
type RuntimeUnit int8

const (
	RuntimeUnitNone RuntimeUnit = iota
	RuntimeUnitNano
	RuntimeUnitByte
)

var runtimeUnitNames = bimap.New(map[RuntimeUnit]string{
	RuntimeUnitNone: "NONE",
	RuntimeUnitNano: "NANO",
	RuntimeUnitByte: "BYTE",
})

func (u RuntimeUnit) String() string {
	return runtimeUnitNames.ValueOr(u, strconv.Itoa(int(u)))
}

// ParseRuntimeUnit parses a unit name. Unknown names yield RuntimeUnitNone and
// an error.
func ParseRuntimeUnit(name string) (RuntimeUnit, error) {
	if u, ok := runtimeUnitNames.Key(name); ok {
		return u, nil
	}
	return RuntimeUnitNone, fmt.Errorf("trino: unknown runtime unit %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (u RuntimeUnit) MarshalText() ([]byte, error) {
	name, ok := runtimeUnitNames.Value(u)
	if !ok {
		return nil, fmt.Errorf("trino: unknown runtime unit %d", int8(u))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An unknown unit decodes
// as RuntimeUnitNone so that a newer server does not break the page decode.
func (u *RuntimeUnit) UnmarshalText(text []byte) error {
	*u, _ = ParseRuntimeUnit(string(text))
	return nil
}

// RuntimeMetric is one entry of the runtimeStats a Presto coordinator attaches
// to statement stats.
type RuntimeMetric struct {
	Name  string      `json:"name"`
	Unit  RuntimeUnit `json:"unit"`
	Sum   int64       `json:"sum"`
	Count int64       `json:"count"`
	Max   int64       `json:"max"`
	Min   int64       `json:"min"`
}

// SumDuration returns Sum as a duration for NANO metrics.
func (m RuntimeMetric) SumDuration() (time.Duration, bool) {
	return time.Duration(m.Sum), m.Unit == RuntimeUnitNano
}
