package points

import (
	"fmt"
	"math"
	"strings"
)

// RegisterValue is the raw number held in a device register. Most registers
// hold whole codes, but some report decimals, so reads stay lossless.
type RegisterValue float64

type ValueKind int

const (
	Integer ValueKind = iota
	Real
)

func (k ValueKind) String() string {
	switch k {
	case Integer:
		return "long"
	case Real:
		return "double"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Access is a capability bitmask in the device's own encoding.
type Access uint8

const (
	AccessWrite Access = 2
	AccessRead  Access = 4

	ReadOnly  = AccessRead
	WriteOnly = AccessWrite
	ReadWrite = AccessRead | AccessWrite
)

func (a Access) CanRead() bool  { return a&AccessRead != 0 }
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

func (a Access) valid() bool {
	return a == ReadOnly || a == WriteOnly || a == ReadWrite
}

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "r"
	case WriteOnly:
		return "w"
	case ReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("Access(%d)", uint8(a))
	}
}

// ParseAccess accepts "r", "w" and "rw" (any case).
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "read", "readonly":
		return ReadOnly, nil
	case "w", "write", "writeonly":
		return WriteOnly, nil
	case "rw", "readwrite":
		return ReadWrite, nil
	default:
		return 0, fmt.Errorf("unknown access mode %q", s)
	}
}

// Range is either a closed interval or, when Codes is non-nil, an explicit set
// of legal integer codes.
type Range struct {
	Min, Max float64
	Codes    []float64
}

func Interval(lo, hi float64) Range {
	return Range{Min: lo, Max: hi}
}

func Codes(codes ...float64) Range {
	c := make([]float64, len(codes))
	copy(c, codes)
	return Range{Codes: c}
}

func (r Range) Enumerated() bool { return r.Codes != nil }

func (r Range) Contains(v float64) bool {
	if r.Enumerated() {
		for _, c := range r.Codes {
			if c == v {
				return true
			}
		}
		return false
	}
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	if r.Enumerated() {
		parts := make([]string, len(r.Codes))
		for i, c := range r.Codes {
			parts[i] = fmt.Sprintf("%g", c)
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Descriptor maps one device register to a named semantic point.
type Descriptor struct {
	Name    string
	Unit    string
	Kind    ValueKind
	Address string
	Range   Range
	Access  Access
	Conv    Conversion
}

func (d Descriptor) Readable() bool { return d.Access.CanRead() }
func (d Descriptor) Writable() bool { return d.Access.CanWrite() }

func (d Descriptor) ToSemantic(raw RegisterValue) (float64, error) {
	if math.IsNaN(float64(raw)) || math.IsInf(float64(raw), 0) {
		return 0, fmt.Errorf("%s: %w: %g", d.Name, ErrUnrecognizedCode, float64(raw))
	}
	if d.Kind == Integer && float64(raw) != math.Trunc(float64(raw)) {
		return 0, fmt.Errorf("%s: %w: %g is not a whole code", d.Name, ErrUnrecognizedCode, float64(raw))
	}
	v, err := d.Conv.ToSemantic(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", d.Name, err)
	}
	return v, nil
}

func (d Descriptor) ToRegister(v float64) (RegisterValue, error) {
	raw, err := d.Conv.ToRegister(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", d.Name, err)
	}
	return raw, nil
}

// Validate reports whether v is an acceptable requested value for the point.
func (d Descriptor) Validate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s: %g is not finite", ErrInvalidValue, d.Name, v)
	}
	if d.Kind == Integer && v != math.Trunc(v) {
		return fmt.Errorf("%w: %s: %g is not a whole number", ErrInvalidValue, d.Name, v)
	}
	if !d.Range.Contains(v) {
		return fmt.Errorf("%w: %s: %g outside %s", ErrInvalidValue, d.Name, v, d.Range)
	}
	return nil
}
