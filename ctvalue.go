package ddct

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CtValue holds a Ct reading. It is either a scalar (possibly already
// averaged) or the ordered per-replicate readings that still need to be
// averaged. A NaN scalar represents a missing reading.
type CtValue struct {
	values   []float64
	sequence bool
}

// CtScalar wraps a single Ct reading.
func CtScalar(v float64) CtValue {
	return CtValue{values: []float64{v}}
}

// CtReplicates wraps per-replicate readings. The slice is copied.
func CtReplicates(v ...float64) CtValue {
	out := make([]float64, len(v))
	copy(out, v)
	return CtValue{values: out, sequence: true}
}

// MissingCt is a scalar with no reading.
func MissingCt() CtValue {
	return CtScalar(math.NaN())
}

func (c CtValue) IsSequence() bool {
	return c.sequence
}

// Values returns a copy of the underlying readings. A scalar yields a slice
// of length one.
func (c CtValue) Values() []float64 {
	out := make([]float64, len(c.values))
	copy(out, c.values)
	return out
}

// Value reduces the reading to one number: the scalar itself, or the
// geometric mean of a replicate sequence. Missing readings yield NaN.
func (c CtValue) Value() float64 {
	if c.sequence {
		return GeoMean(c.values)
	}
	if len(c.values) == 0 {
		return math.NaN()
	}
	return c.values[0]
}

// IsMissing reports whether there is no usable number at all: a NaN or
// infinite scalar, or a sequence without a single finite reading.
func (c CtValue) IsMissing() bool {
	for _, v := range c.values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (c CtValue) String() string {
	if !c.sequence {
		return formatCt(c.Value())
	}

	parts := make([]string, 0, len(c.values))
	for _, v := range c.values {
		parts = append(parts, formatCt(v))
	}
	return strings.Join(parts, ";")
}

func formatCt(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseCtValue reads the flat-table form of a Ct cell: an empty string is
// missing, "23.1;23.2" is a replicate sequence, anything else is a scalar.
// Cells that do not parse as numbers become NaN rather than an error.
func ParseCtValue(s string) CtValue {
	s = strings.TrimSpace(s)
	if s == "" {
		return MissingCt()
	}

	if strings.Contains(s, ";") {
		parts := strings.Split(s, ";")
		vals := make([]float64, 0, len(parts))
		for _, p := range parts {
			vals = append(vals, CoerceFloat(p))
		}
		return CtReplicates(vals...)
	}

	return CtScalar(CoerceFloat(s))
}

// CoerceFloat parses s as a number, yielding NaN for anything non-numeric.
func CoerceFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (c CtValue) MarshalJSON() ([]byte, error) {
	if !c.sequence {
		return json.Marshal(jsonFloat(c.Value()))
	}

	out := make([]*float64, 0, len(c.values))
	for _, v := range c.values {
		out = append(out, jsonFloat(v))
	}
	return json.Marshal(out)
}

func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// UnmarshalJSON accepts a number, a numeric string, null, or a list of
// those. Anything non-numeric inside becomes NaN.
func (c *CtValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("ct: %w", err)
		}
		vals := make([]float64, 0, len(raw))
		for _, r := range raw {
			vals = append(vals, coerceJSONNumber(r))
		}
		*c = CtReplicates(vals...)
		return nil
	}

	*c = CtScalar(coerceJSONNumber(data))
	return nil
}

func coerceJSONNumber(data json.RawMessage) float64 {
	var x interface{}
	if err := json.Unmarshal(data, &x); err != nil {
		return math.NaN()
	}

	switch v := x.(type) {
	case float64:
		return v
	case string:
		return CoerceFloat(v)
	}

	return math.NaN()
}
