package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/tstat-bridge/internal/points"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestReadFile_ParamsJSON(t *testing.T) {
	path := writeFile(t, "params.json", `{
		"uri": "ucberkeley/eop/tstat",
		"IP": "10.0.0.12",
		"username": "admin",
		"password": "secret",
		"sample_rate": 10
	}`)

	cfg, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ucberkeley/eop/tstat", cfg.URI)
	assert.Equal(t, "10.0.0.12", cfg.IP)
	assert.Equal(t, 10*time.Second, cfg.SampleInterval())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "tcp://127.0.0.1:1883", cfg.MQTT.Broker)
	assert.Equal(t, 1, cfg.MQTT.QoS)
	assert.Equal(t, "tstat-bridge-ucberkeley-eop-tstat", cfg.MQTT.ClientID)
	assert.Equal(t, 3, cfg.UnreachableCycles)
}

func TestReadFile_YAMLWithOverrides(t *testing.T) {
	path := writeFile(t, "bridge.yaml", `
uri: site/tstat
IP: 10.0.0.12
username: admin
sample_rate: 2.5
mqtt:
  broker: tcp://localhost:1883
  qos: 2
point_overrides:
  - name: heating_setpoint
    range: [50, 80]
  - name: fan_mode
    access: r
  - name: mode
    range: [0, 1]
`)

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.SampleInterval())
	assert.Equal(t, 2, cfg.MQTT.QoS)

	reg, err := cfg.Registry()
	require.NoError(t, err)

	heat, _ := reg.Lookup("heating_setpoint")
	assert.ErrorIs(t, heat.Validate(85), points.ErrInvalidValue)
	fan, _ := reg.Lookup("fan_mode")
	assert.False(t, fan.Writable())
	mode, _ := reg.Lookup("mode")
	assert.ErrorIs(t, mode.Validate(3), points.ErrInvalidValue)
}

func TestReadFile_MissingFields(t *testing.T) {
	path := writeFile(t, "params.json", `{"sample_rate": 10}`)

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "uri, IP, username")
}

func TestReadFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{"malformed json", "params.json", `{"uri": `},
		{"bad qos", "params.json", `{"uri": "a", "IP": "b", "username": "c", "mqtt": {"qos": 3}}`},
		{"negative sample rate", "params.json", `{"uri": "a", "IP": "b", "username": "c", "sample_rate": -1}`},
		{"tiny sample rate", "params.json", `{"uri": "a", "IP": "b", "username": "c", "sample_rate": 1e-12}`},
		{"unknown override", "params.json", `{"uri": "a", "IP": "b", "username": "c", "point_overrides": [{"name": "nope"}]}`},
		{"bad access", "params.json", `{"uri": "a", "IP": "b", "username": "c", "point_overrides": [{"name": "mode", "access": "x"}]}`},
		{"bad real range", "params.json", `{"uri": "a", "IP": "b", "username": "c", "point_overrides": [{"name": "temperature", "range": [1, 2, 3]}]}`},
		{"unencodable code", "params.json", `{"uri": "a", "IP": "b", "username": "c", "point_overrides": [{"name": "override", "range": [0, 1, 2]}]}`},
		{"influx incomplete", "params.json", `{"uri": "a", "IP": "b", "username": "c", "influxdb": {"enabled": true}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFile(writeFile(t, tt.file, tt.contents))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
