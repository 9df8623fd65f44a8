package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/config"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

// statsdClient is the part of *statsd.Client the recorder uses.
type statsdClient interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Close() error
}

// Metrics emits one gauge per reading and counters for read failures and
// command outcomes.
type Metrics struct {
	client statsdClient
}

func New(cfg config.DatadogConfig) (*Metrics, error) {
	c, err := statsd.New(cfg.AgentAddr)
	if err != nil {
		return nil, err
	}

	c.Namespace = cfg.Namespace
	c.Tags = cfg.Tags

	log.Info().
		Str("addr", cfg.AgentAddr).
		Str("namespace", cfg.Namespace).
		Strs("tags", cfg.Tags).
		Msg("Datadog metrics initialized")

	return &Metrics{client: c}, nil
}

func (m *Metrics) Gauge(name string, value float64, tags ...string) {
	if err := m.client.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}

func (m *Metrics) Count(name string, value int64, tags ...string) {
	if err := m.client.Count(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
	}
}

func (m *Metrics) RecordSnapshot(snap proxy.Snapshot) {
	for _, r := range snap.Readings {
		m.Gauge("point", r.Value, "point:"+r.Point)
	}
	m.Count("read_failures", int64(len(snap.Failures)))
	for _, f := range snap.Failures {
		m.Count("read_failures.point", 1, "point:"+f.Point)
	}
}

func (m *Metrics) RecordApply(_ proxy.Command, res proxy.ApplyResult) {
	for _, o := range res.Accepted() {
		m.Count("apply.accepted", 1, "point:"+o.Point)
	}
	for _, o := range res.Rejected() {
		m.Count("apply.rejected", 1, "point:"+o.Point)
	}
}

func (m *Metrics) Close() error {
	return m.client.Close()
}
