package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/tstat-bridge/internal/config"
	"github.com/thatsimonsguy/tstat-bridge/internal/points"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func tags(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false}, "tstat")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "t",
		Org:     "o",
		Bucket:  "b",
	}, "tstat")
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestRecordSnapshot(t *testing.T) {
	w := &fakeWriter{}
	c := newWithWriter(w, "site/tstat")
	ts := time.Unix(1700000000, 0)

	c.RecordSnapshot(proxy.Snapshot{
		Time: ts,
		Readings: []proxy.Reading{
			{Point: "temperature", Kind: points.Real, Raw: 705, Value: 70.5},
			{Point: "mode", Kind: points.Integer, Raw: 2, Value: 1},
		},
		Failures: []proxy.Failure{{Point: "state", Err: errors.New("boom")}},
	})

	require.Len(t, w.points, 1)
	p := w.points[0]
	assert.Equal(t, "thermostat", p.Name())
	assert.True(t, p.Time().Equal(ts))
	assert.Equal(t, "site/tstat", tags(p)["device"])

	f := fields(p)
	assert.Equal(t, 70.5, f["temperature"])
	assert.Equal(t, 1.0, f["mode"])
	assert.EqualValues(t, 1, f["read_failures"])
}

func TestRecordApply(t *testing.T) {
	w := &fakeWriter{}
	c := newWithWriter(w, "site/tstat")

	c.RecordApply(nil, proxy.ApplyResult{Outcomes: []proxy.Outcome{
		{Point: "heating_setpoint", Value: 67, Raw: 670},
		{Point: "temperature", Value: 70, Err: points.ErrNotWritable},
	}})

	require.Len(t, w.points, 2)
	assert.Equal(t, "true", tags(w.points[0])["accepted"])
	assert.EqualValues(t, 670, fields(w.points[0])["raw"])

	assert.Equal(t, "false", tags(w.points[1])["accepted"])
	assert.Equal(t, "temperature", tags(w.points[1])["point"])
	assert.Contains(t, fields(w.points[1])["error"], "not writable")
}

func TestClose_StopsWrites(t *testing.T) {
	w := &fakeWriter{}
	c := newWithWriter(w, "tstat")

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, w.flushes)
	assert.False(t, c.IsConnected())

	c.RecordSnapshot(proxy.Snapshot{Time: time.Now()})
	assert.Empty(t, w.points)
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrNotConnected)
}
