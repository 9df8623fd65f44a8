// Package influxdb mirrors thermostat snapshots and command outcomes into an
// InfluxDB v2 bucket.
//
// Writes go through the client's non-blocking write API: points are batched
// and flushed in the background, and async write failures are logged.
package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultBatchSize      = 100

	millisecondsPerSecond = 1000
)

// pointWriter is the slice of api.WriteAPI the recorder needs.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

type Client struct {
	client   influxdb2.Client
	writeAPI pointWriter
	device   string

	mu        sync.RWMutex
	connected bool
}

// Connect pings the server and prepares a batched write API. device tags
// every point written.
func Connect(cfg config.InfluxDBConfig, device string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	flushInterval := cfg.FlushIntervalSeconds
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(defaultBatchSize).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Warn().Err(err).Msg("InfluxDB async write failed")
		}
	}()

	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("Connected to InfluxDB")

	return &Client{
		client:    client,
		writeAPI:  writeAPI,
		device:    device,
		connected: true,
	}, nil
}

func newWithWriter(w pointWriter, device string) *Client {
	return &Client{writeAPI: w, device: device, connected: true}
}

// HealthCheck performs an active ping.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() || c.client == nil {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close flushes pending writes and closes the client. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
