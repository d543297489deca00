package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements the parts of mqtt.Client the publisher uses
type fakeClient struct {
	mqtt.Client
	token        *fakeToken
	sent         []published
	connected    bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
	c.connected = false
}

func TestMQTTPublisher_Handle(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: true}, connected: true}
	p := NewMQTTPublisher(client, MQTTConfig{Topic: "bomnode/events", QoS: 1}, zerolog.Nop())

	e := New(ChannelLeft, 4800, 48000, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	e.Left = []int16{1}
	e.Right = []int16{2}
	require.NoError(t, p.Handle(e))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	require.Equal(t, "bomnode/events", msg.topic)
	require.Equal(t, byte(1), msg.qos)

	var got Event
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	require.Equal(t, e.ID, got.ID)
	require.Equal(t, e.PeakIndex, got.PeakIndex)
	require.InDelta(t, 100.0, got.PeakTimeMs, 1e-9)
	require.True(t, e.DetectedAt.Equal(got.DetectedAt))
	require.Nil(t, got.Left)
}

func TestMQTTPublisher_HandleErrors(t *testing.T) {
	e := New(ChannelRight, 1, 8000, time.Now())

	timeout := NewMQTTPublisher(&fakeClient{token: &fakeToken{}}, MQTTConfig{Topic: "t"}, zerolog.Nop())
	require.ErrorIs(t, timeout.Handle(e), ErrPublishTimeout)

	brokerErr := errors.New("not authorized")
	failing := NewMQTTPublisher(&fakeClient{token: &fakeToken{done: true, err: brokerErr}}, MQTTConfig{Topic: "t"}, zerolog.Nop())
	require.ErrorIs(t, failing.Handle(e), brokerErr)
}

func TestMQTTPublisher_Close(t *testing.T) {
	client := &fakeClient{connected: true}
	p := NewMQTTPublisher(client, MQTTConfig{Topic: "t"}, zerolog.Nop())

	require.NoError(t, p.Close())
	require.True(t, client.disconnected)

	client.disconnected = false
	require.NoError(t, p.Close())
	require.False(t, client.disconnected, "Close on a disconnected client should not disconnect again")
}
