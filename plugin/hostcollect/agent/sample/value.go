// SPDX-License-Identifier: GPL-3.0-or-later

package sample

import (
	"fmt"
	"strings"
)

// DSType is the semantic of one data source slot.
type DSType int

const (
	Counter DSType = iota
	Gauge
	Derive
	Absolute
)

func (t DSType) String() string {
	switch t {
	case Counter:
		return "COUNTER"
	case Gauge:
		return "GAUGE"
	case Derive:
		return "DERIVE"
	case Absolute:
		return "ABSOLUTE"
	}
	return fmt.Sprintf("DSType(%d)", int(t))
}

func ParseDSType(s string) (DSType, error) {
	switch strings.ToUpper(s) {
	case "COUNTER":
		return Counter, nil
	case "GAUGE":
		return Gauge, nil
	case "DERIVE":
		return Derive, nil
	case "ABSOLUTE":
		return Absolute, nil
	}
	return 0, fmt.Errorf("unknown data source type '%s'", s)
}

// Value is one reading. Which field is meaningful depends on the data source kind
// the slot is described with.
type Value struct {
	Gauge    float64
	Counter  uint64
	Derive   int64
	Absolute uint64
}

func GaugeValue(v float64) Value   { return Value{Gauge: v} }
func CounterValue(v uint64) Value  { return Value{Counter: v} }
func DeriveValue(v int64) Value    { return Value{Derive: v} }
func AbsoluteValue(v uint64) Value { return Value{Absolute: v} }

// Float returns the reading interpreted as kind.
func (v Value) Float(kind DSType) float64 {
	switch kind {
	case Counter:
		return float64(v.Counter)
	case Derive:
		return float64(v.Derive)
	case Absolute:
		return float64(v.Absolute)
	default:
		return v.Gauge
	}
}
