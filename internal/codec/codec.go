// Package codec frames snapshots, commands and heartbeats as CBOR maps.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/thatsimonsguy/tstat-bridge/internal/points"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

var ErrMalformedCommand = errors.New("malformed command")

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// EncodeSnapshot encodes the snapshot's flattened fields.
func EncodeSnapshot(s proxy.Snapshot) ([]byte, error) {
	data, err := encMode.Marshal(s.Fields())
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot, returning the raw field map.
func DecodeSnapshot(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return m, nil
}

// DecodeCommand decodes a map of point name to value. Wire maps are unordered,
// so entries follow registry order; unknown names come last, sorted.
func DecodeCommand(data []byte, reg *points.Registry) (proxy.Command, error) {
	var m map[string]any
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	return CommandFromMap(m, reg), nil
}

// CommandFromMap builds an ordered command from a decoded map. Accepts any
// numeric type and booleans (true is 1). A value of any other type becomes an
// entry carrying ErrInvalidValue, so the rest of the command still applies.
func CommandFromMap(m map[string]any, reg *points.Registry) proxy.Command {
	cmd := make(proxy.Command, 0, len(m))
	for name, raw := range m {
		v, err := number(raw)
		if err != nil {
			cmd = append(cmd, proxy.Entry{
				Point: name,
				Err:   fmt.Errorf("%w: %w: %s: %w", points.ErrInvalidValue, ErrMalformedCommand, name, err),
			})
			continue
		}
		cmd = append(cmd, proxy.Entry{Point: name, Value: v})
	}

	sort.SliceStable(cmd, func(i, j int) bool {
		pi, pj := reg.Position(cmd[i].Point), reg.Position(cmd[j].Point)
		switch {
		case pi >= 0 && pj >= 0:
			return pi < pj
		case pi >= 0:
			return true
		case pj >= 0:
			return false
		default:
			return cmd[i].Point < cmd[j].Point
		}
	})
	return cmd
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case uint64:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

type lastAlive struct {
	TS  int64  `cbor:"ts"`
	Val string `cbor:"val"`
}

// EncodeLastAlive encodes the liveness heartbeat: nanoseconds and RFC 3339 UTC.
func EncodeLastAlive(t time.Time) ([]byte, error) {
	data, err := encMode.Marshal(lastAlive{
		TS:  t.UnixNano(),
		Val: t.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode heartbeat: %w", err)
	}
	return data, nil
}
