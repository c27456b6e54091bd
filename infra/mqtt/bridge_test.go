package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/monitoring"
	"github.com/kilianp07/smartcharge/core/snapshot"
	"github.com/kilianp07/smartcharge/core/system"
)

type published struct {
	topic    string
	retained bool
	payload  any
}

type mockClient struct {
	mu        sync.Mutex
	opts      *paho.ClientOptions
	handlers  map[string]paho.MessageHandler
	published []published
	connected bool
}

func (m *mockClient) IsConnected() bool { return m.connected }
func (m *mockClient) Connect() paho.Token {
	m.connected = true
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.connected = false }
func (m *mockClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic: topic, retained: retained, payload: payload})
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]paho.MessageHandler)
	}
	m.handlers[topic] = cb
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

func (m *mockClient) deliver(topic, payload string) {
	m.mu.Lock()
	h := m.handlers["smartcharge/A-1/set/+"]
	m.mu.Unlock()
	h(m, mockMessage{topic: topic, p: []byte(payload)})
}

func (m *mockClient) messages(topic string) []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []published
	for _, p := range m.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}

type fakeController struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeController) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) Status() (system.StatusView, error) {
	return system.StatusView{AccountID: "A-1", BoostChargingNow: true}, nil
}
func (f *fakeController) SetTargetSoC(_ context.Context, soc int) error {
	return f.record(fmt.Sprintf("soc:%d", soc))
}
func (f *fakeController) SetTargetTime(_ context.Context, t string) error {
	return f.record("time:" + t)
}
func (f *fakeController) StartBoostCharge(context.Context) error  { return f.record("boost:on") }
func (f *fakeController) CancelBoostCharge(context.Context) error { return f.record("boost:off") }
func (f *fakeController) SetSmartCharging(_ context.Context, on bool) error {
	if on {
		return f.record("smart:on")
	}
	return f.record("smart:off")
}

func newTestBridge(t *testing.T, ctrl Controller, mon monitoring.Monitor) (*Bridge, *mockClient) {
	t.Helper()
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
	b, err := NewBridge(Config{Broker: "tcp://localhost:1883", ClientID: "id"}, "A-1", ctrl, nil, mon)
	require.NoError(t, err)
	return b, mc
}

func TestBridgeConnectSubscribesAndAnnounces(t *testing.T) {
	b, mc := newTestBridge(t, &fakeController{}, nil)
	assert.Contains(t, mc.handlers, "smartcharge/A-1/set/+")
	avail := mc.messages(b.AvailabilityTopic())
	require.Len(t, avail, 1)
	assert.Equal(t, "online", avail[0].payload)
	assert.True(t, avail[0].retained)
	assert.Equal(t, "smartcharge/A-1/availability", mc.opts.WillTopic)

	b.Close()
	avail = mc.messages(b.AvailabilityTopic())
	require.Len(t, avail, 2)
	assert.Equal(t, "offline", avail[1].payload)
}

func TestBridgePublishesStateOnSnapshot(t *testing.T) {
	b, mc := newTestBridge(t, &fakeController{}, nil)
	snaps := make(chan *snapshot.Snapshot, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx, snaps) }()

	snaps <- &snapshot.Snapshot{}
	require.Eventually(t, func() bool { return len(mc.messages("smartcharge/A-1/state")) == 1 }, time.Second, 5*time.Millisecond)
	msg := mc.messages("smartcharge/A-1/state")[0]
	assert.True(t, msg.retained)
	var v system.StatusView
	require.NoError(t, json.Unmarshal(msg.payload.([]byte), &v))
	assert.Equal(t, "A-1", v.AccountID)
	assert.True(t, v.BoostChargingNow)
}

func TestBridgeExecutesCommands(t *testing.T) {
	ctrl := &fakeController{}
	b, mc := newTestBridge(t, ctrl, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx, nil) }()

	mc.deliver("smartcharge/A-1/set/target_soc", "80")
	mc.deliver("smartcharge/A-1/set/target_time", "06:30")
	mc.deliver("smartcharge/A-1/set/boost", "ON")
	mc.deliver("smartcharge/A-1/set/boost", "off")
	mc.deliver("smartcharge/A-1/set/smart_charging", "false")

	require.Eventually(t, func() bool { return len(ctrl.Calls()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"soc:80", "time:06:30", "boost:on", "boost:off", "smart:off"}, ctrl.Calls())
}

func TestBridgeReportsCommandErrors(t *testing.T) {
	ctrl := &fakeController{err: errors.New("provider down")}
	mon := &monitoring.Recorder{}
	b, mc := newTestBridge(t, ctrl, mon)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx, nil) }()

	mc.deliver("smartcharge/A-1/set/boost", "maybe")
	mc.deliver("smartcharge/A-1/set/unknown", "1")
	mc.deliver("smartcharge/A-1/set/boost", "on")

	require.Eventually(t, func() bool {
		errs, _ := mon.Captured()
		return len(errs) == 3
	}, time.Second, 5*time.Millisecond)
	_, tags := mon.Captured()
	assert.Equal(t, "mqtt", tags[0]["module"])
	assert.Equal(t, []string{"boost:on"}, ctrl.Calls())
}

func TestParseSwitch(t *testing.T) {
	for in, want := range map[string]bool{"ON": true, "true": true, "1": true, "off": false, "False": false, "0": false} {
		got, err := parseSwitch(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseSwitch("toggle")
	assert.Error(t, err)
}
