package aggregate

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is a metric that may be unknown. Unknown is distinct from zero and
// stays unknown through every computation that uses it.
type Value struct {
	V     float64
	Known bool
}

// Of returns a known value. Non-finite numbers are unknown.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, Known: true}
}

// Unknown returns the unknown value.
func Unknown() Value { return Value{} }

// Ratio returns v / o, unknown when either side is unknown or o is zero.
func (v Value) Ratio(o Value) Value {
	if !v.Known || !o.Known || o.V == 0 {
		return Value{}
	}
	return Of(v.V / o.V)
}

// Sub returns v - o.
func (v Value) Sub(o Value) Value {
	if !v.Known || !o.Known {
		return Value{}
	}
	return Of(v.V - o.V)
}

func (v Value) String() string {
	if !v.Known {
		return "unknown"
	}
	return strconv.FormatFloat(v.V, 'f', 3, 64)
}

// MarshalJSON encodes unknown as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Known {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON decodes null as unknown.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Of(f)
	return nil
}

// rate returns n / total, unknown when total is zero.
func rate(n, total int) Value {
	if total == 0 {
		return Value{}
	}
	return Of(float64(n) / float64(total))
}
