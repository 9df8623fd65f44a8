package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/codec"
	"github.com/thatsimonsguy/tstat-bridge/internal/points"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

// Broker is the subset of Client the bridge needs.
type Broker interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) error
}

// Topics are rooted at the device URI.
type Topics struct {
	Base string
}

func (t Topics) Info() string      { return t.Base + "/signal/info" }
func (t Topics) State() string     { return t.Base + "/slot/state" }
func (t Topics) LastAlive() string { return t.Base + "/!meta/lastalive" }

// Bridge publishes snapshots and heartbeats and turns inbound state-slot
// messages into commands.
type Bridge struct {
	broker   Broker
	topics   Topics
	registry *points.Registry
}

func NewBridge(broker Broker, uri string, registry *points.Registry) *Bridge {
	return &Bridge{
		broker:   broker,
		topics:   Topics{Base: strings.TrimSuffix(uri, "/")},
		registry: registry,
	}
}

func (b *Bridge) Topics() Topics { return b.topics }

// PublishState publishes the snapshot as a retained CBOR map.
func (b *Bridge) PublishState(_ context.Context, snap proxy.Snapshot) error {
	payload, err := codec.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := b.broker.Publish(b.topics.Info(), payload, true); err != nil {
		return fmt.Errorf("publish %s: %w", b.topics.Info(), err)
	}
	return nil
}

// PublishLastAlive publishes the liveness heartbeat.
func (b *Bridge) PublishLastAlive(_ context.Context, t time.Time) error {
	payload, err := codec.EncodeLastAlive(t)
	if err != nil {
		return err
	}
	if err := b.broker.Publish(b.topics.LastAlive(), payload, true); err != nil {
		return fmt.Errorf("publish %s: %w", b.topics.LastAlive(), err)
	}
	return nil
}

// SubscribeCommands decodes every message on the state slot and hands the
// command to submit. Malformed payloads are dropped with a warning.
func (b *Bridge) SubscribeCommands(submit func(proxy.Command)) error {
	return b.broker.Subscribe(b.topics.State(), func(topic string, payload []byte) error {
		cmd, err := codec.DecodeCommand(payload, b.registry)
		if err != nil {
			return fmt.Errorf("dropping command: %w", err)
		}
		log.Info().Str("topic", topic).Strs("points", cmd.Points()).Msg("Received command")
		submit(cmd)
		return nil
	})
}
