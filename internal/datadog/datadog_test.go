package datadog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/tstat-bridge/internal/config"
	"github.com/thatsimonsguy/tstat-bridge/internal/points"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

type metric struct {
	name  string
	value float64
	tags  []string
}

type mockStatsd struct {
	gauges []metric
	counts []metric
	err    error
	closed bool
}

func (m *mockStatsd) Gauge(name string, value float64, tags []string, _ float64) error {
	m.gauges = append(m.gauges, metric{name, value, tags})
	return m.err
}

func (m *mockStatsd) Count(name string, value int64, tags []string, _ float64) error {
	m.counts = append(m.counts, metric{name, float64(value), tags})
	return m.err
}

func (m *mockStatsd) Close() error {
	m.closed = true
	return nil
}

func TestRecordSnapshot(t *testing.T) {
	mock := &mockStatsd{}
	m := &Metrics{client: mock}

	m.RecordSnapshot(proxy.Snapshot{
		Readings: []proxy.Reading{
			{Point: "temperature", Kind: points.Real, Value: 70.5},
			{Point: "mode", Kind: points.Integer, Value: 1},
		},
		Failures: []proxy.Failure{{Point: "state", Err: errors.New("timeout")}},
	})

	require.Len(t, mock.gauges, 2)
	assert.Equal(t, metric{"point", 70.5, []string{"point:temperature"}}, mock.gauges[0])
	assert.Equal(t, metric{"point", 1, []string{"point:mode"}}, mock.gauges[1])

	require.Len(t, mock.counts, 2)
	assert.Equal(t, "read_failures", mock.counts[0].name)
	assert.Equal(t, 1.0, mock.counts[0].value)
	assert.Equal(t, []string{"point:state"}, mock.counts[1].tags)
}

func TestRecordApply(t *testing.T) {
	mock := &mockStatsd{}
	m := &Metrics{client: mock}

	m.RecordApply(nil, proxy.ApplyResult{Outcomes: []proxy.Outcome{
		{Point: "mode", Value: 1, Raw: 2},
		{Point: "temperature", Value: 70, Err: points.ErrNotWritable},
		{Point: "fan_mode", Value: 2, Raw: 2},
	}})

	var accepted, rejected int
	for _, c := range mock.counts {
		switch c.name {
		case "apply.accepted":
			accepted++
		case "apply.rejected":
			rejected++
			assert.Equal(t, []string{"point:temperature"}, c.tags)
		}
	}
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 1, rejected)
}

func TestEmitErrorsAreSwallowed(t *testing.T) {
	mock := &mockStatsd{err: errors.New("agent gone")}
	m := &Metrics{client: mock}

	assert.NotPanics(t, func() {
		m.Gauge("point", 1)
		m.Count("read_failures", 0)
	})
	require.NoError(t, m.Close())
	assert.True(t, mock.closed)
}

func TestNew(t *testing.T) {
	m, err := New(config.DatadogConfig{AgentAddr: "127.0.0.1:8125", Namespace: "thermostat.", Tags: []string{"env:test"}})
	require.NoError(t, err)
	defer m.Close()
	m.Gauge("point", 1, "point:test")
}
