package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/thatsimonsguy/tstat-bridge/internal/points"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type MQTTConfig struct {
	Broker   string `json:"broker" yaml:"broker"`
	ClientID string `json:"client_id" yaml:"client_id"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	QoS      int    `json:"qos" yaml:"qos"`

	ReconnectMaxSeconds int `json:"reconnect_max_seconds" yaml:"reconnect_max_seconds"`
}

type InfluxDBConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	URL     string `json:"url" yaml:"url"`
	Token   string `json:"token" yaml:"token"`
	Org     string `json:"org" yaml:"org"`
	Bucket  string `json:"bucket" yaml:"bucket"`

	FlushIntervalSeconds int `json:"flush_interval_seconds" yaml:"flush_interval_seconds"`
}

type DatadogConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	AgentAddr string   `json:"agent_addr" yaml:"agent_addr"`
	Namespace string   `json:"namespace" yaml:"namespace"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// PointOverride adjusts one registered point. Range is [lo, hi] for real
// points or the list of legal codes for integer points.
type PointOverride struct {
	Name   string    `json:"name" yaml:"name"`
	Unit   *string   `json:"unit" yaml:"unit"`
	Range  []float64 `json:"range" yaml:"range"`
	Access *string   `json:"access" yaml:"access"`
}

type Config struct {
	ConfigFile string        `json:"-" yaml:"-"`
	LogLevel   zerolog.Level `json:"-" yaml:"-"`

	// Device parameters, in the thermostat's params.json layout.
	URI        string  `json:"uri" yaml:"uri"`
	IP         string  `json:"IP" yaml:"IP"`
	Username   string  `json:"username" yaml:"username"`
	Password   string  `json:"password" yaml:"password"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`

	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	LogFile               string `json:"log_file" yaml:"log_file"`
	DBPath                string `json:"db_path" yaml:"db_path"`
	APIPort               int    `json:"api_port" yaml:"api_port"`

	NtfyTopic         string `json:"ntfy_topic" yaml:"ntfy_topic"`
	UnreachableCycles int    `json:"unreachable_cycles" yaml:"unreachable_cycles"`

	MQTT     MQTTConfig     `json:"mqtt" yaml:"mqtt"`
	InfluxDB InfluxDBConfig `json:"influxdb" yaml:"influxdb"`
	Datadog  DatadogConfig  `json:"datadog" yaml:"datadog"`

	PointOverrides []PointOverride `json:"point_overrides" yaml:"point_overrides"`
}

// Load parses flags and reads the config file once at startup.
func Load() (Config, error) {
	var configFile, logLevel string

	flag.StringVar(&configFile, "config-file", "params.json", "Path to bridge config file (.json, .yaml)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := ReadFile(configFile)
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = ParseLogLevel(logLevel)
	return cfg, nil
}

// ReadFile decodes a JSON or YAML config file, applies defaults and validates.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to load config file: %w", ErrInvalidConfig, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config file: %w", ErrInvalidConfig, err)
	}

	cfg.ConfigFile = path
	cfg.LogLevel = zerolog.InfoLevel
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 30
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = 10
	}
	if cfg.UnreachableCycles == 0 {
		cfg.UnreachableCycles = 3
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://127.0.0.1:1883"
	}
	if cfg.MQTT.QoS == 0 {
		cfg.MQTT.QoS = 1
	}
	if cfg.MQTT.ClientID == "" && cfg.URI != "" {
		cfg.MQTT.ClientID = "tstat-bridge-" + strings.ReplaceAll(cfg.URI, "/", "-")
	}
	if cfg.MQTT.ReconnectMaxSeconds == 0 {
		cfg.MQTT.ReconnectMaxSeconds = 60
	}
	if cfg.InfluxDB.FlushIntervalSeconds == 0 {
		cfg.InfluxDB.FlushIntervalSeconds = 10
	}
	if cfg.Datadog.AgentAddr == "" {
		cfg.Datadog.AgentAddr = "127.0.0.1:8125"
	}
	if cfg.Datadog.Namespace == "" {
		cfg.Datadog.Namespace = "thermostat."
	}
}

func (cfg *Config) validate() error {
	var missing, invalid []string

	for _, f := range []struct{ key, val string }{
		{"uri", cfg.URI},
		{"IP", cfg.IP},
		{"username", cfg.Username},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.key)
		}
	}

	if cfg.SampleRate < 0 {
		invalid = append(invalid, fmt.Sprintf("sample_rate %g must be positive", cfg.SampleRate))
	} else if cfg.SampleInterval() <= 0 {
		invalid = append(invalid, fmt.Sprintf("sample_rate %g is below one nanosecond", cfg.SampleRate))
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		invalid = append(invalid, fmt.Sprintf("mqtt.qos %d must be 0, 1 or 2", cfg.MQTT.QoS))
	}
	if cfg.APIPort < 0 || cfg.APIPort > 65535 {
		invalid = append(invalid, fmt.Sprintf("api_port %d out of range", cfg.APIPort))
	}
	if cfg.InfluxDB.Enabled {
		if cfg.InfluxDB.URL == "" {
			missing = append(missing, "influxdb.url")
		}
		if cfg.InfluxDB.Org == "" {
			missing = append(missing, "influxdb.org")
		}
		if cfg.InfluxDB.Bucket == "" {
			missing = append(missing, "influxdb.bucket")
		}
	}
	if _, err := cfg.Registry(); err != nil {
		invalid = append(invalid, err.Error())
	}

	if len(missing) > 0 {
		invalid = append([]string{"missing required fields: " + strings.Join(missing, ", ")}, invalid...)
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(invalid, "; "))
	}
	return nil
}

// Registry returns the thermostat point table with the configured overrides
// applied.
func (cfg *Config) Registry() (*points.Registry, error) {
	base := points.IMT550C()
	if len(cfg.PointOverrides) == 0 {
		return base, nil
	}
	overrides, err := cfg.overrides(base)
	if err != nil {
		return nil, err
	}
	return base.WithOverrides(overrides)
}

func (cfg *Config) overrides(base *points.Registry) ([]points.Override, error) {
	out := make([]points.Override, 0, len(cfg.PointOverrides))
	for _, po := range cfg.PointOverrides {
		d, err := base.Lookup(po.Name)
		if err != nil {
			return nil, fmt.Errorf("point override: %w", err)
		}

		o := points.Override{Name: po.Name, Unit: po.Unit}
		if po.Access != nil {
			a, err := points.ParseAccess(*po.Access)
			if err != nil {
				return nil, fmt.Errorf("point override %s: %w", po.Name, err)
			}
			o.Access = &a
		}
		if po.Range != nil {
			var r points.Range
			switch {
			case d.Kind == points.Integer && len(po.Range) > 0:
				r = points.Codes(po.Range...)
			case d.Kind == points.Real && len(po.Range) == 2:
				r = points.Interval(po.Range[0], po.Range[1])
			default:
				return nil, fmt.Errorf("point override %s: bad range %v", po.Name, po.Range)
			}
			o.Range = &r
		}
		out = append(out, o)
	}
	return out, nil
}

// SampleInterval is sample_rate as a duration.
func (cfg *Config) SampleInterval() time.Duration {
	return time.Duration(cfg.SampleRate * float64(time.Second))
}

func (cfg *Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
}
