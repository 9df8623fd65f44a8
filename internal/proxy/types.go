package proxy

import (
	"time"

	"github.com/thatsimonsguy/tstat-bridge/internal/points"
)

// TimeField is the snapshot key carrying the cycle timestamp.
const TimeField = "time"

type Reading struct {
	Point string
	Unit  string
	Kind  points.ValueKind
	Raw   points.RegisterValue
	Value float64
}

type Failure struct {
	Point string
	Err   error
}

// Snapshot is one read cycle. Every reading shares Time.
type Snapshot struct {
	Time     time.Time
	Readings []Reading
	Failures []Failure
}

func (s Snapshot) Value(point string) (float64, bool) {
	for _, r := range s.Readings {
		if r.Point == point {
			return r.Value, true
		}
	}
	return 0, false
}

// Partial reports whether any readable point is missing from the snapshot.
func (s Snapshot) Partial() bool { return len(s.Failures) > 0 }

// Empty reports whether nothing at all could be read.
func (s Snapshot) Empty() bool { return len(s.Readings) == 0 }

// Fields flattens the snapshot into the published map: integer-kind points as
// int64, real points as float64, plus TimeField in Unix nanoseconds.
func (s Snapshot) Fields() map[string]any {
	out := make(map[string]any, len(s.Readings)+1)
	for _, r := range s.Readings {
		if r.Kind == points.Integer {
			out[r.Point] = int64(r.Value)
		} else {
			out[r.Point] = r.Value
		}
	}
	out[TimeField] = s.Time.UnixNano()
	return out
}

type Entry struct {
	Point string
	Value float64

	// Err marks a value that could not be decoded. Apply rejects the entry
	// with it and carries on with the rest of the command.
	Err error
}

// Command is an ordered set of requested writes.
type Command []Entry

func (c Command) Points() []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = e.Point
	}
	return out
}

// Outcome is the result of one command entry. A nil Err means the register
// was written.
type Outcome struct {
	Point string
	Value float64
	Raw   points.RegisterValue
	Err   error
}

func (o Outcome) Accepted() bool { return o.Err == nil }

type ApplyResult struct {
	Outcomes []Outcome
}

func (r ApplyResult) Accepted() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Accepted() {
			out = append(out, o)
		}
	}
	return out
}

func (r ApplyResult) Rejected() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Accepted() {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every entry was applied.
func (r ApplyResult) OK() bool { return len(r.Rejected()) == 0 }
