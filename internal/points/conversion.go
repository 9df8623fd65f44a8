package points

import (
	"fmt"
	"math"
	"sort"
)

// Conversion is a matched pair of pure functions between register and
// semantic units. ToRegister may be partial.
type Conversion interface {
	ToSemantic(raw RegisterValue) (float64, error)
	ToRegister(v float64) (RegisterValue, error)
}

// Scale divides by Factor on the way in and multiplies on the way out.
// Tenths-of-degree registers use Factor 10.
type Scale struct {
	Factor float64
}

func (s Scale) ToSemantic(raw RegisterValue) (float64, error) {
	return float64(raw) / s.Factor, nil
}

func (s Scale) ToRegister(v float64) (RegisterValue, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %g", ErrInvalidValue, v)
	}
	return RegisterValue(math.Round(v * s.Factor)), nil
}

// Offset adds Delta to the raw code.
type Offset struct {
	Delta int64
}

func (o Offset) ToSemantic(raw RegisterValue) (float64, error) {
	return float64(raw) + float64(o.Delta), nil
}

func (o Offset) ToRegister(v float64) (RegisterValue, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %g is not a whole number", ErrInvalidValue, v)
	}
	return RegisterValue(v - float64(o.Delta)), nil
}

type identity struct{}

// Identity passes values through unchanged.
var Identity Conversion = identity{}

func (identity) ToSemantic(raw RegisterValue) (float64, error) {
	return float64(raw), nil
}

func (identity) ToRegister(v float64) (RegisterValue, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %g", ErrInvalidValue, v)
	}
	return RegisterValue(v), nil
}

// Lookup is an exact-match code table. The inverse is only defined on the
// image of the forward table and resolves to the smallest raw code.
type Lookup struct {
	forward map[RegisterValue]float64
	inverse map[float64]RegisterValue
}

func NewLookup(table map[RegisterValue]float64) *Lookup {
	l := &Lookup{
		forward: make(map[RegisterValue]float64, len(table)),
		inverse: make(map[float64]RegisterValue, len(table)),
	}
	raws := make([]RegisterValue, 0, len(table))
	for raw, v := range table {
		l.forward[raw] = v
		raws = append(raws, raw)
	}
	sort.Slice(raws, func(i, j int) bool { return raws[i] < raws[j] })
	for _, raw := range raws {
		v := table[raw]
		if _, ok := l.inverse[v]; !ok {
			l.inverse[v] = raw
		}
	}
	return l
}

func (l *Lookup) ToSemantic(raw RegisterValue) (float64, error) {
	v, ok := l.forward[raw]
	if !ok {
		return 0, fmt.Errorf("%w: %g", ErrUnrecognizedCode, float64(raw))
	}
	return v, nil
}

func (l *Lookup) ToRegister(v float64) (RegisterValue, error) {
	raw, ok := l.inverse[v]
	if !ok {
		return 0, fmt.Errorf("%w: %g has no register code", ErrInvalidValue, v)
	}
	return raw, nil
}

// Image returns the semantic values the table can produce, ascending.
func (l *Lookup) Image() []float64 {
	out := make([]float64, 0, len(l.inverse))
	for v := range l.inverse {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// Codes returns the raw codes the table recognizes, ascending.
func (l *Lookup) Codes() []RegisterValue {
	out := make([]RegisterValue, 0, len(l.forward))
	for raw := range l.forward {
		out = append(out, raw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
