package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Optional is a float64 that may be unknown. The zero value is unknown.
type Optional struct {
	value float64
	known bool
}

// Known returns an Optional holding v. NaN and infinities are stored as unknown.
func Known(v float64) Optional {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Optional{}
	}
	return Optional{value: v, known: true}
}

// Unknown returns an Optional with no value.
func Unknown() Optional { return Optional{} }

// OptionalFromPtr converts a nullable decoded JSON number.
func OptionalFromPtr(p *float64) Optional {
	if p == nil {
		return Optional{}
	}
	return Known(*p)
}

// Get returns the value and whether it is known.
func (o Optional) Get() (float64, bool) { return o.value, o.known }

// IsKnown reports whether a value is present.
func (o Optional) IsKnown() bool { return o.known }

// Equal reports whether o and p are both unknown or hold the same value.
// go-cmp uses it to compare records holding Optionals.
func (o Optional) Equal(p Optional) bool {
	return o.known == p.known && (!o.known || o.value == p.value)
}

// Or returns the value, or def when unknown.
func (o Optional) Or(def float64) float64 {
	if !o.known {
		return def
	}
	return o.value
}

// String formats the value with the shortest representation, or "" when unknown.
func (o Optional) String() string {
	if !o.known {
		return ""
	}
	return strconv.FormatFloat(o.value, 'f', -1, 64)
}

// MarshalJSON encodes unknown as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.known {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as unknown.
func (o *Optional) UnmarshalJSON(data []byte) error {
	var p *float64
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = OptionalFromPtr(p)
	return nil
}
