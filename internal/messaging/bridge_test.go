package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/tstat-bridge/internal/codec"
	"github.com/thatsimonsguy/tstat-bridge/internal/points"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakeBroker struct {
	published  []published
	handlers   map[string]MessageHandler
	publishErr error
}

func (f *fakeBroker) Publish(topic string, payload []byte, retained bool) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{topic, payload, retained})
	return nil
}

func (f *fakeBroker) Subscribe(topic string, handler MessageHandler) error {
	if f.handlers == nil {
		f.handlers = map[string]MessageHandler{}
	}
	f.handlers[topic] = handler
	return nil
}

func TestTopics(t *testing.T) {
	b := NewBridge(&fakeBroker{}, "site/tstat/", points.IMT550C())
	assert.Equal(t, "site/tstat/signal/info", b.Topics().Info())
	assert.Equal(t, "site/tstat/slot/state", b.Topics().State())
	assert.Equal(t, "site/tstat/!meta/lastalive", b.Topics().LastAlive())
}

func TestPublishState(t *testing.T) {
	fb := &fakeBroker{}
	b := NewBridge(fb, "site/tstat", points.IMT550C())

	snap := proxy.Snapshot{
		Time:     time.Unix(1700000000, 0),
		Readings: []proxy.Reading{{Point: "temperature", Kind: points.Real, Value: 70.5}},
	}
	require.NoError(t, b.PublishState(context.Background(), snap))
	require.NoError(t, b.PublishLastAlive(context.Background(), snap.Time))

	require.Len(t, fb.published, 2)
	assert.Equal(t, "site/tstat/signal/info", fb.published[0].topic)
	assert.True(t, fb.published[0].retained)

	m, err := codec.DecodeSnapshot(fb.published[0].payload)
	require.NoError(t, err)
	assert.Equal(t, 70.5, m["temperature"])

	assert.Equal(t, "site/tstat/!meta/lastalive", fb.published[1].topic)
}

func TestPublishState_Error(t *testing.T) {
	fb := &fakeBroker{publishErr: ErrNotConnected}
	b := NewBridge(fb, "site/tstat", points.IMT550C())

	err := b.PublishState(context.Background(), proxy.Snapshot{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSubscribeCommands(t *testing.T) {
	fb := &fakeBroker{}
	b := NewBridge(fb, "site/tstat", points.IMT550C())

	var got []proxy.Command
	require.NoError(t, b.SubscribeCommands(func(cmd proxy.Command) { got = append(got, cmd) }))

	handler := fb.handlers["site/tstat/slot/state"]
	require.NotNil(t, handler)

	payload, err := cbor.Marshal(map[string]any{"mode": 2, "heating_setpoint": 67.0})
	require.NoError(t, err)
	require.NoError(t, handler("site/tstat/slot/state", payload))

	err = handler("site/tstat/slot/state", []byte("not cbor"))
	assert.True(t, errors.Is(err, codec.ErrMalformedCommand))

	require.Len(t, got, 1)
	assert.Equal(t, proxy.Command{
		{Point: "heating_setpoint", Value: 67},
		{Point: "mode", Value: 2},
	}, got[0])
}

func TestSubscribeCommands_BadValueKeepsOtherEntries(t *testing.T) {
	fb := &fakeBroker{}
	b := NewBridge(fb, "site/tstat", points.IMT550C())

	var got []proxy.Command
	require.NoError(t, b.SubscribeCommands(func(cmd proxy.Command) { got = append(got, cmd) }))

	payload, err := cbor.Marshal(map[string]any{"heating_setpoint": 68.0, "mode": "heat"})
	require.NoError(t, err)
	require.NoError(t, fb.handlers["site/tstat/slot/state"]("site/tstat/slot/state", payload))

	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, proxy.Entry{Point: "heating_setpoint", Value: 68}, got[0][0])
	assert.Equal(t, "mode", got[0][1].Point)
	assert.True(t, errors.Is(got[0][1].Err, points.ErrInvalidValue))
}
