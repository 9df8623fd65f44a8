package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/tstat-bridge/internal/points"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

type mockSender struct {
	titles []string
	err    error
}

func (m *mockSender) Send(title, _ string) error {
	m.titles = append(m.titles, title)
	return m.err
}

func TestSend_Disabled(t *testing.T) {
	n := New("")
	assert.False(t, n.Enabled())
	assert.Error(t, n.Send("t", "m"))
}

func TestSend(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	n := New("tstat-alerts")
	n.server = srv.URL

	require.NoError(t, n.Send("Thermostat unreachable", "no answer"))
	assert.Equal(t, "tstat-alerts", got["topic"])
	assert.Equal(t, "Thermostat unreachable", got["title"])
	assert.Equal(t, "no answer", got["message"])
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := New("tstat-alerts")
	n.server = srv.URL

	err := n.Send("t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

var (
	empty = proxy.Snapshot{Time: time.Now()}
	full  = proxy.Snapshot{
		Time:     time.Now(),
		Readings: []proxy.Reading{{Point: "temperature", Kind: points.Real, Value: 70}},
	}
)

func TestWatch_AlertsAfterThreshold(t *testing.T) {
	s := &mockSender{}
	w := NewWatch(s, "site/tstat", 3)

	w.RecordSnapshot(empty)
	w.RecordSnapshot(empty)
	assert.Empty(t, s.titles)
	assert.False(t, w.Down())

	w.RecordSnapshot(empty)
	w.RecordSnapshot(empty)
	assert.Equal(t, []string{"Thermostat unreachable"}, s.titles)
	assert.True(t, w.Down())

	w.RecordSnapshot(full)
	assert.Equal(t, []string{"Thermostat unreachable", "Thermostat reachable"}, s.titles)
	assert.False(t, w.Down())
}

func TestWatch_IntermittentMissesReset(t *testing.T) {
	s := &mockSender{}
	w := NewWatch(s, "site/tstat", 2)

	for i := 0; i < 5; i++ {
		w.RecordSnapshot(empty)
		w.RecordSnapshot(full)
	}
	assert.Empty(t, s.titles)
}

func TestWatch_SendErrorKeepsState(t *testing.T) {
	s := &mockSender{err: errors.New("offline")}
	w := NewWatch(s, "site/tstat", 0)

	w.RecordSnapshot(empty)
	assert.True(t, w.Down())
	w.RecordApply(nil, proxy.ApplyResult{})
	assert.Len(t, s.titles, 1)
}
