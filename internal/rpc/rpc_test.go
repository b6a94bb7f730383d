package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/config"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/metrics"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/mqtt"
)

// fakeBus captures publishes and lets tests deliver messages to
// subscribed handlers, standing in for a live broker.
type fakeBus struct {
	mu         sync.Mutex
	published  []fakeMessage
	handlers   map[string]mqtt.MessageHandler
	publishErr error
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Publish(topic string, payload []byte, _ byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, fakeMessage{topic: topic, payload: payload})
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	return nil
}

func (b *fakeBus) lastPublished(t *testing.T) fakeMessage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		t.Fatal("expected a published message")
	}
	return b.published[len(b.published)-1]
}

// deliver routes a raw message to the handler subscribed to a topic
// matching the given prefix (exact topic or single-level wildcard).
func (b *fakeBus) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()
	b.mu.Lock()
	var handler mqtt.MessageHandler
	for pattern, h := range b.handlers {
		if pattern == topic || (strings.HasSuffix(pattern, "/+") &&
			strings.HasPrefix(topic, strings.TrimSuffix(pattern, "+"))) {
			handler = h
			break
		}
	}
	b.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler subscribed for topic %s", topic)
	}
	return handler(topic, payload)
}

func testRPCConfig() config.RPCConfig {
	return config.RPCConfig{
		DirectoryPrefix:  "users/rpc/request",
		MonitoringPrefix: "monitoring/rpc/request",
		RequestPrefix:    "voltwatch/rpc/request",
		ReplyPrefix:      "voltwatch/rpc/reply",
		TimeoutSeconds:   1,
	}
}

func newTestClient(t *testing.T, bus *fakeBus) *Client {
	t.Helper()
	c, err := NewClient(bus, testRPCConfig(), logging.Default())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.timeout = 100 * time.Millisecond
	return c
}

func TestClient_Request_Success(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)

	type result struct {
		payload json.RawMessage
		err     error
	}
	done := make(chan result, 1)
	go func() {
		payload, err := c.Request(context.Background(),
			"users/rpc/request/check_user_exists",
			map[string]string{"userId": "u1"})
		done <- result{payload, err}
	}()

	// Wait for the request to hit the bus, then answer it.
	var req request
	deadline := time.Now().Add(time.Second)
	for {
		bus.mu.Lock()
		n := len(bus.published)
		bus.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("request never published")
		}
		time.Sleep(time.Millisecond)
	}

	msg := bus.lastPublished(t)
	if msg.topic != "users/rpc/request/check_user_exists" {
		t.Errorf("published to %s", msg.topic)
	}
	if err := json.Unmarshal(msg.payload, &req); err != nil {
		t.Fatalf("decode request envelope: %v", err)
	}
	if req.ID == "" || req.ReplyTo == "" {
		t.Fatalf("envelope missing correlation fields: %+v", req)
	}

	reply, _ := json.Marshal(response{ID: req.ID, Payload: json.RawMessage(`{"exists":true}`)})
	if err := bus.deliver(t, req.ReplyTo, reply); err != nil {
		t.Fatalf("deliver reply: %v", err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("Request returned error: %v", res.err)
	}
	if string(res.payload) != `{"exists":true}` {
		t.Errorf("payload = %s", res.payload)
	}
}

func TestClient_Request_RemoteError(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)

	done := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), "users/rpc/request/check_user_exists", nil)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for {
		bus.mu.Lock()
		n := len(bus.published)
		bus.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("request never published")
		}
		time.Sleep(time.Millisecond)
	}

	var req request
	msg := bus.lastPublished(t)
	if err := json.Unmarshal(msg.payload, &req); err != nil {
		t.Fatalf("decode request envelope: %v", err)
	}

	reply, _ := json.Marshal(response{ID: req.ID, Error: "user service exploded"})
	if err := bus.deliver(t, req.ReplyTo, reply); err != nil {
		t.Fatalf("deliver reply: %v", err)
	}

	err := <-done
	if !errors.Is(err, ErrRemote) {
		t.Errorf("error = %v, want ErrRemote", err)
	}
	if err == nil || !strings.Contains(err.Error(), "user service exploded") {
		t.Errorf("error should carry remote message, got %v", err)
	}
}

func TestClient_Request_Timeout(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)
	c.timeout = 20 * time.Millisecond

	_, err := c.Request(context.Background(), "monitoring/rpc/request/consumption_per_devices", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestClient_Request_Unreachable(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)
	bus.publishErr = fmt.Errorf("broker down")

	_, err := c.Request(context.Background(), "users/rpc/request/check_user_exists", nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("error = %v, want ErrUnreachable", err)
	}
}

func TestClient_Request_FailuresCounted(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)
	c.timeout = 20 * time.Millisecond

	reg := prometheus.NewRegistry()
	c.SetMetrics(metrics.New(reg))

	bus.publishErr = fmt.Errorf("broker down")
	if _, err := c.Request(context.Background(), "users/rpc/request/check_user_exists", nil); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
	bus.publishErr = nil

	if _, err := c.Request(context.Background(), "monitoring/rpc/request/consumption_per_devices", nil); !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}

	expected := `
# HELP voltwatch_rpc_failures_total Total failed RPC calls to remote services, by service and class.
# TYPE voltwatch_rpc_failures_total counter
voltwatch_rpc_failures_total{class="timeout",service="monitoring"} 1
voltwatch_rpc_failures_total{class="unreachable",service="users"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "voltwatch_rpc_failures_total"); err != nil {
		t.Errorf("rpc failure counters: %v", err)
	}
}

func TestClient_Request_ContextCancelled(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Request(ctx, "users/rpc/request/check_user_exists", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClient_UnmatchedReplyDropped(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)

	reply, _ := json.Marshal(response{ID: "never-requested"})
	if err := bus.deliver(t, c.replyTopic, reply); err != nil {
		t.Errorf("unmatched reply should be dropped, got %v", err)
	}
}

func TestClient_Close(t *testing.T) {
	bus := newFakeBus()
	c := newTestClient(t, bus)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := c.Request(context.Background(), "users/rpc/request/check_user_exists", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("request after close = %v, want ErrClosed", err)
	}
}

func TestServer_Dispatch(t *testing.T) {
	bus := newFakeBus()
	s := NewServer(bus, testRPCConfig(), logging.Default())

	s.Handle("device_exists", func(_ context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			DeviceID string `json:"deviceId"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		return map[string]bool{"exists": req.DeviceID == "d1"}, nil
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	env, _ := json.Marshal(request{
		ID:      "corr-1",
		ReplyTo: "caller/rpc/reply/abc",
		Payload: json.RawMessage(`{"deviceId":"d1"}`),
	})
	if err := bus.deliver(t, "voltwatch/rpc/request/device_exists", env); err != nil {
		t.Fatalf("deliver request: %v", err)
	}

	msg := bus.lastPublished(t)
	if msg.topic != "caller/rpc/reply/abc" {
		t.Errorf("reply topic = %s", msg.topic)
	}

	var resp response
	if err := json.Unmarshal(msg.payload, &resp); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if resp.ID != "corr-1" {
		t.Errorf("reply id = %s, want corr-1", resp.ID)
	}
	if resp.Error != "" {
		t.Errorf("unexpected error: %s", resp.Error)
	}
	if string(resp.Payload) != `{"exists":true}` {
		t.Errorf("reply payload = %s", resp.Payload)
	}
}

func TestServer_HandlerError(t *testing.T) {
	bus := newFakeBus()
	s := NewServer(bus, testRPCConfig(), logging.Default())

	s.Handle("remove_user_devices", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("no devices for user")
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	env, _ := json.Marshal(request{ID: "corr-2", ReplyTo: "caller/rpc/reply/abc"})
	if err := bus.deliver(t, "voltwatch/rpc/request/remove_user_devices", env); err != nil {
		t.Fatalf("deliver request: %v", err)
	}

	var resp response
	msg := bus.lastPublished(t)
	if err := json.Unmarshal(msg.payload, &resp); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if resp.Error != "no devices for user" {
		t.Errorf("reply error = %q", resp.Error)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	bus := newFakeBus()
	s := NewServer(bus, testRPCConfig(), logging.Default())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	env, _ := json.Marshal(request{ID: "corr-3", ReplyTo: "caller/rpc/reply/abc"})
	if err := bus.deliver(t, "voltwatch/rpc/request/does_not_exist", env); err != nil {
		t.Fatalf("deliver request: %v", err)
	}

	var resp response
	msg := bus.lastPublished(t)
	if err := json.Unmarshal(msg.payload, &resp); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !strings.Contains(resp.Error, "unknown command") {
		t.Errorf("reply error = %q, want unknown command", resp.Error)
	}
}

func TestServer_FireAndForget(t *testing.T) {
	bus := newFakeBus()
	s := NewServer(bus, testRPCConfig(), logging.Default())

	called := false
	s.Handle("report_consumption", func(context.Context, json.RawMessage) (any, error) {
		called = true
		return nil, nil
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// No reply_to means the caller does not want a response.
	env, _ := json.Marshal(request{ID: "corr-4"})
	if err := bus.deliver(t, "voltwatch/rpc/request/report_consumption", env); err != nil {
		t.Fatalf("deliver request: %v", err)
	}

	if !called {
		t.Error("handler not invoked")
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.published) != 0 {
		t.Errorf("expected no reply, got %d messages", len(bus.published))
	}
}
