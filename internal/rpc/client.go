package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/config"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/metrics"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/mqtt"
)

// rpcQoS is the QoS level for all RPC traffic. At-least-once delivery:
// duplicate replies for the same correlation ID are harmless (the first
// one wins, later ones are dropped).
const rpcQoS = 1

// Bus is the transport the RPC layer runs over. *mqtt.Client satisfies it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Client issues correlated requests over the bus and matches replies back
// to waiting callers.
//
// Each Client instance owns a unique reply topic (reply prefix plus a
// random suffix) and subscribes to it once at construction. Concurrent
// requests are distinguished by correlation ID, so a single Client is
// safe to share across goroutines.
type Client struct {
	bus        Bus
	replyTopic string
	timeout    time.Duration
	logger     *logging.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	pending map[string]chan response
	closed  bool
}

// NewClient creates an RPC client and subscribes to its reply topic.
//
// Returns an error if the reply subscription cannot be established,
// which usually means the bus is not connected.
func NewClient(bus Bus, cfg config.RPCConfig, logger *logging.Logger) (*Client, error) {
	c := &Client{
		bus:        bus,
		replyTopic: mqtt.Topics{}.RPCReply(cfg.ReplyPrefix, uuid.NewString()),
		timeout:    cfg.Timeout(),
		logger:     logger.With("component", "rpc"),
		pending:    make(map[string]chan response),
	}

	if err := bus.Subscribe(c.replyTopic, rpcQoS, c.handleReply); err != nil {
		return nil, fmt.Errorf("subscribe reply topic: %w", err)
	}

	return c, nil
}

// SetMetrics wires failure counting into the client. The remote service
// label on the counter is the first segment of the request topic.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Request publishes a request to the given command topic and waits for
// the correlated reply.
//
// The payload is JSON-encoded into the request envelope. On success the
// raw reply payload is returned for the caller to decode.
//
// Failure classes:
//   - ErrUnreachable: the request could not be published
//   - ErrTimeout: no reply within the configured timeout
//   - ErrRemote: the remote handler returned an error
//   - ctx.Err(): the caller's context was cancelled first
func (c *Client) Request(ctx context.Context, topic string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request payload: %w", err)
	}

	id := uuid.NewString()
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	env, err := json.Marshal(request{ID: id, ReplyTo: c.replyTopic, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("encode request envelope: %w", err)
	}

	if err := c.bus.Publish(topic, env, rpcQoS, false); err != nil {
		c.metrics.RPCFailure(serviceFromTopic(topic), "unreachable")
		return nil, fmt.Errorf("%w: publish to %s: %w", ErrUnreachable, topic, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if resp.Error != "" {
			c.metrics.RPCFailure(serviceFromTopic(topic), "remote")
			return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
		}
		return resp.Payload, nil
	case <-timer.C:
		c.metrics.RPCFailure(serviceFromTopic(topic), "timeout")
		return nil, fmt.Errorf("%w: no reply from %s after %v", ErrTimeout, topic, c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// serviceFromTopic extracts the remote service name from a request
// topic, e.g. "users" from "users/rpc/request/check_user_exists".
func serviceFromTopic(topic string) string {
	if i := strings.Index(topic, "/"); i >= 0 {
		return topic[:i]
	}
	return topic
}

// Close unsubscribes from the reply topic and fails any in-flight requests.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	return c.bus.Unsubscribe(c.replyTopic)
}

// handleReply routes an incoming reply envelope to the waiting request.
// Replies with no matching pending request are dropped with a debug log;
// this happens when a reply arrives after the caller already timed out.
func (c *Client) handleReply(_ string, payload []byte) error {
	var resp response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decode reply envelope: %w", err)
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("dropping unmatched RPC reply", "id", resp.ID)
		return nil
	}

	ch <- resp
	return nil
}
