package points

import (
	"errors"
	"fmt"
	"strings"
)

// Registry is an ordered, immutable set of descriptors keyed by name.
type Registry struct {
	points []Descriptor
	index  map[string]int
}

// NewRegistry validates the table and returns a registry that preserves the
// given order.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		points: make([]Descriptor, 0, len(descriptors)),
		index:  make(map[string]int, len(descriptors)),
	}

	var problems []string
	for _, d := range descriptors {
		if err := check(d); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if _, dup := r.index[d.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate point %q", d.Name))
			continue
		}
		if d.Range.Codes != nil {
			d.Range = Codes(d.Range.Codes...)
		}
		r.index[d.Name] = len(r.points)
		r.points = append(r.points, d)
	}

	if len(problems) > 0 {
		return nil, errors.New("invalid point table: " + strings.Join(problems, "; "))
	}
	return r, nil
}

func check(d Descriptor) error {
	switch {
	case d.Name == "":
		return fmt.Errorf("point at address %q has no name", d.Address)
	case d.Address == "":
		return fmt.Errorf("point %q has no register address", d.Name)
	case d.Conv == nil:
		return fmt.Errorf("point %q has no conversion", d.Name)
	case !d.Access.valid():
		return fmt.Errorf("point %q has invalid access %s", d.Name, d.Access)
	case d.Kind == Real && d.Range.Enumerated():
		return fmt.Errorf("point %q is real-valued but has an enumerated range", d.Name)
	case !d.Range.Enumerated() && d.Range.Min > d.Range.Max:
		return fmt.Errorf("point %q has empty range %s", d.Name, d.Range)
	}

	// Every legal code of a writable enumerated point must have an encoding.
	if d.Writable() && d.Range.Enumerated() {
		for _, c := range d.Range.Codes {
			if _, err := d.Conv.ToRegister(c); err != nil {
				return fmt.Errorf("point %q allows %g but it has no register encoding", d.Name, c)
			}
		}
	}
	return nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownPoint, name)
	}
	return r.points[i], nil
}

// All returns the descriptors in registration order. The slice is a copy.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.points))
	copy(out, r.points)
	return out
}

func (r *Registry) Len() int { return len(r.points) }

func (r *Registry) Names() []string {
	out := make([]string, len(r.points))
	for i, d := range r.points {
		out[i] = d.Name
	}
	return out
}

// Position returns the registration index of name, or -1.
func (r *Registry) Position(name string) int {
	i, ok := r.index[name]
	if !ok {
		return -1
	}
	return i
}

// Override replaces selected attributes of a named point. Nil fields keep the
// registered value.
type Override struct {
	Name   string
	Unit   *string
	Range  *Range
	Access *Access
}

// WithOverrides returns a new registry with the overrides applied. The
// receiver is unchanged.
func (r *Registry) WithOverrides(overrides []Override) (*Registry, error) {
	table := r.All()
	for _, o := range overrides {
		i, ok := r.index[o.Name]
		if !ok {
			return nil, fmt.Errorf("override: %w: %q", ErrUnknownPoint, o.Name)
		}
		if o.Unit != nil {
			table[i].Unit = *o.Unit
		}
		if o.Range != nil {
			table[i].Range = *o.Range
		}
		if o.Access != nil {
			table[i].Access = *o.Access
		}
	}
	return NewRegistry(table...)
}
