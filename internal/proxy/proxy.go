package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/points"
)

// ErrTransport wraps every failure returned by the register transport.
var ErrTransport = errors.New("transport failure")

// Transport reads and writes raw device registers. Calls block until the
// device answers or ctx ends.
type Transport interface {
	ReadRegister(ctx context.Context, address string) (points.RegisterValue, error)
	WriteRegister(ctx context.Context, address string, value points.RegisterValue) error
}

// Proxy drives one device through its point registry.
type Proxy struct {
	registry  *points.Registry
	transport Transport
	device    string
	now       func() time.Time

	applyMu sync.Mutex
}

type Option func(*Proxy)

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Proxy) { p.now = now }
}

// WithDevice sets the label used in log lines.
func WithDevice(name string) Option {
	return func(p *Proxy) { p.device = name }
}

func New(registry *points.Registry, transport Transport, opts ...Option) *Proxy {
	p := &Proxy{
		registry:  registry,
		transport: transport,
		device:    "thermostat",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Proxy) Registry() *points.Registry { return p.registry }

// GetState reads every readable point in registry order. A point that fails
// to read or convert is recorded in Failures and the read continues.
func (p *Proxy) GetState(ctx context.Context) Snapshot {
	var snap Snapshot

	for _, d := range p.registry.All() {
		if !d.Readable() {
			continue
		}

		raw, err := p.transport.ReadRegister(ctx, d.Address)
		if err != nil {
			err = fmt.Errorf("%w: read %s: %w", ErrTransport, d.Address, err)
			p.logFailure(d, err)
			snap.Failures = append(snap.Failures, Failure{Point: d.Name, Err: err})
			continue
		}

		v, err := d.ToSemantic(raw)
		if err != nil {
			p.logFailure(d, err)
			snap.Failures = append(snap.Failures, Failure{Point: d.Name, Err: err})
			continue
		}

		snap.Readings = append(snap.Readings, Reading{
			Point: d.Name,
			Unit:  d.Unit,
			Kind:  d.Kind,
			Raw:   raw,
			Value: v,
		})
	}

	snap.Time = p.now()

	log.Debug().
		Str("device", p.device).
		Int("readings", len(snap.Readings)).
		Int("failures", len(snap.Failures)).
		Msg("Read device state")

	return snap
}

func (p *Proxy) logFailure(d points.Descriptor, err error) {
	log.Warn().
		Err(err).
		Str("device", p.device).
		Str("point", d.Name).
		Str("address", d.Address).
		Msg("Point read failed, omitting from snapshot")
}

// Apply writes each command entry in order. Every entry gets its own outcome;
// a rejected entry never stops the ones after it. Concurrent calls are
// serialized.
func (p *Proxy) Apply(ctx context.Context, cmd Command) ApplyResult {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	result := ApplyResult{Outcomes: make([]Outcome, 0, len(cmd))}
	for _, entry := range cmd {
		out := p.applyEntry(ctx, entry)
		if out.Err != nil {
			log.Warn().
				Err(out.Err).
				Str("device", p.device).
				Str("point", entry.Point).
				Float64("value", entry.Value).
				Msg("Command entry rejected")
		} else {
			log.Info().
				Str("device", p.device).
				Str("point", entry.Point).
				Float64("value", entry.Value).
				Float64("raw", float64(out.Raw)).
				Msg("Command entry applied")
		}
		result.Outcomes = append(result.Outcomes, out)
	}
	return result
}

func (p *Proxy) applyEntry(ctx context.Context, entry Entry) Outcome {
	out := Outcome{Point: entry.Point, Value: entry.Value}

	d, err := p.registry.Lookup(entry.Point)
	if err != nil {
		out.Err = err
		return out
	}
	if entry.Err != nil {
		out.Err = entry.Err
		return out
	}
	if !d.Writable() {
		out.Err = fmt.Errorf("%w: %s is %s", points.ErrNotWritable, d.Name, d.Access)
		return out
	}
	if err := d.Validate(entry.Value); err != nil {
		out.Err = err
		return out
	}
	raw, err := d.ToRegister(entry.Value)
	if err != nil {
		out.Err = err
		return out
	}
	out.Raw = raw

	if err := ctx.Err(); err != nil {
		out.Err = fmt.Errorf("%w: write %s: %w", ErrTransport, d.Address, err)
		return out
	}
	if err := p.transport.WriteRegister(ctx, d.Address, raw); err != nil {
		out.Err = fmt.Errorf("%w: write %s: %w", ErrTransport, d.Address, err)
		return out
	}
	return out
}
