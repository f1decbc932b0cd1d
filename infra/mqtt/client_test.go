package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/openrescue/dispatch/core/lifecycle"
	"github.com/openrescue/dispatch/core/model"
)

type fakeEngine struct {
	submissions []lifecycle.Submission
	presence    map[string]model.Coordinates
	submitErr   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{presence: make(map[string]model.Coordinates)}
}

func (f *fakeEngine) HandleSubmission(_ context.Context, sub lifecycle.Submission) (model.Request, error) {
	if f.submitErr != nil {
		return model.Request{}, f.submitErr
	}
	f.submissions = append(f.submissions, sub)
	return model.Request{ID: "r1", Status: model.StatusPending}, nil
}

func (f *fakeEngine) UpdatePresence(_ context.Context, driverID string, coords model.Coordinates) error {
	f.presence[driverID] = coords
	return nil
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func TestNewPahoClientSubscribes(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)

	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "test"}, newFakeEngine())
	if err != nil {
		t.Fatalf("NewPahoClient: %v", err)
	}
	defer cli.Disconnect()

	if len(mc.subscribed) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(mc.subscribed))
	}
	if mc.subscribed[0].topic != "rescue/requests/submit" || mc.subscribed[1].topic != "rescue/drivers/+/presence" {
		t.Fatalf("unexpected topics: %+v", mc.subscribed)
	}
}

func TestOnSubmitForwardsToEngine(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	eng := newFakeEngine()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, eng)
	if err != nil {
		t.Fatalf("NewPahoClient: %v", err)
	}

	payload, _ := json.Marshal(lifecycle.Submission{Name: "Alice", Phone: "123", Situation: "fire"})
	cli.onSubmit(nil, mockMessage{topic: "rescue/requests/submit", p: payload})

	if len(eng.submissions) != 1 || eng.submissions[0].Name != "Alice" {
		t.Fatalf("submission not forwarded: %+v", eng.submissions)
	}
}

func TestOnSubmitBadPayloadIgnored(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	eng := newFakeEngine()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, eng)
	if err != nil {
		t.Fatalf("NewPahoClient: %v", err)
	}
	cli.onSubmit(nil, mockMessage{topic: "rescue/requests/submit", p: []byte("{not json")})
	if len(eng.submissions) != 0 {
		t.Fatalf("bad payload must not reach the engine")
	}
}

func TestOnPresenceParsesDriverID(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	eng := newFakeEngine()
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, eng)
	if err != nil {
		t.Fatalf("NewPahoClient: %v", err)
	}

	payload, _ := json.Marshal(model.Coordinates{Lat: 48.85, Lon: 2.35})
	cli.onPresence(nil, mockMessage{topic: "rescue/drivers/d42/presence", p: payload})

	got, ok := eng.presence["d42"]
	if !ok || got.Lat != 48.85 {
		t.Fatalf("presence not recorded: %+v", eng.presence)
	}
}

func TestDriverFromTopic(t *testing.T) {
	if id, ok := driverFromTopic("rescue/drivers/d1/presence"); !ok || id != "d1" {
		t.Fatalf("got %q %v", id, ok)
	}
	for _, topic := range []string{"rescue/drivers/presence", "rescue/drivers//presence", "other/d1/presence/x"} {
		if _, ok := driverFromTopic(topic); ok {
			t.Fatalf("topic %s must not parse", topic)
		}
	}
}

func TestNotifyAssignmentPublishes(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, newFakeEngine())
	if err != nil {
		t.Fatalf("NewPahoClient: %v", err)
	}

	req := model.Request{ID: "r1", AssignedVehicleID: "Ambulance-1", AssignedVehicleType: model.ResourceAmbulance}
	if err := cli.NotifyAssignment("d1", req); err != nil {
		t.Fatalf("NotifyAssignment: %v", err)
	}
	if len(mc.published) != 1 || mc.published[0].topic != "rescue/drivers/d1/assignment" {
		t.Fatalf("unexpected publishes: %+v", mc.published)
	}
}

func TestNotifyAssignmentRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", BackoffMS: 1}, newFakeEngine())
	if err != nil {
		t.Fatalf("NewPahoClient: %v", err)
	}
	if err := cli.NotifyAssignment("d1", model.Request{ID: "r1"}); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected 2 publish attempts, got %d", len(mc.published))
	}
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published []struct {
		topic string
		qos   byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, _ interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic string
		qos   byte
	}{topic, qos})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

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
