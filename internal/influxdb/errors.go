package influxdb

import "errors"

var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when influxdb is turned off in the config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
