package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{qos: 1, subscriptions: map[string]subscription{}}

	assert.ErrorIs(t, c.Publish("a/b", []byte("x"), false), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe("a/b", func(string, []byte) error { return nil }), ErrNotConnected)
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close())
}

func TestClient_Validation(t *testing.T) {
	c := &Client{qos: 1, subscriptions: map[string]subscription{}}

	assert.ErrorIs(t, c.Publish("", nil, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.Publish("a", make([]byte, maxPayloadSize+1), false), ErrPublishFailed)
	assert.ErrorIs(t, c.Subscribe("", nil), ErrInvalidTopic)
	assert.ErrorIs(t, c.Subscribe("a", nil), ErrSubscribeFailed)

	c.qos = 3
	assert.ErrorIs(t, c.Subscribe("a", func(string, []byte) error { return nil }), ErrInvalidQoS)
}

func TestWrapHandler(t *testing.T) {
	var gotTopic string
	var gotPayload []byte
	h := wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, payload
		return errors.New("ignored")
	})

	h(nil, fakeMessage{topic: "site/tstat/slot/state", payload: []byte{0xa0}})
	assert.Equal(t, "site/tstat/slot/state", gotTopic)
	assert.Equal(t, []byte{0xa0}, gotPayload)

	panicky := wrapHandler(func(string, []byte) error { panic("bad handler") })
	assert.NotPanics(t, func() { panicky(nil, fakeMessage{topic: "x"}) })
}
