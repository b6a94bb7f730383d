package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/config"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/mqtt"
)

// Handler processes one inbound RPC command.
//
// The returned value is JSON-encoded into the reply payload. A returned
// error is sent back to the requester as the reply's error string.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Server dispatches inbound RPC requests to registered command handlers.
//
// It subscribes to the configured request prefix with a single-level
// wildcard, so a request published to "<prefix>/<command>" is routed to
// the handler registered for <command>. Unknown commands get an error
// reply rather than silence, so callers fail fast instead of timing out.
type Server struct {
	bus           Bus
	requestPrefix string
	timeout       time.Duration
	logger        *logging.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewServer creates an RPC server. Register handlers with Handle, then
// call Start to begin receiving requests.
func NewServer(bus Bus, cfg config.RPCConfig, logger *logging.Logger) *Server {
	return &Server{
		bus:           bus,
		requestPrefix: cfg.RequestPrefix,
		timeout:       cfg.Timeout(),
		logger:        logger.With("component", "rpc_server"),
		handlers:      make(map[string]Handler),
	}
}

// Handle registers a handler for a command name. Registering the same
// command twice replaces the previous handler.
func (s *Server) Handle(command string, h Handler) {
	s.mu.Lock()
	s.handlers[command] = h
	s.mu.Unlock()
}

// Start subscribes to the request topic pattern and begins dispatching.
func (s *Server) Start() error {
	pattern := mqtt.Topics{}.AllRPCRequests(s.requestPrefix)
	if err := s.bus.Subscribe(pattern, rpcQoS, s.dispatch); err != nil {
		return fmt.Errorf("subscribe request topics: %w", err)
	}

	s.logger.Info("RPC server listening", "pattern", pattern)
	return nil
}

// Stop unsubscribes from the request topic pattern.
func (s *Server) Stop() error {
	return s.bus.Unsubscribe(mqtt.Topics{}.AllRPCRequests(s.requestPrefix))
}

// dispatch handles one inbound request message.
func (s *Server) dispatch(topic string, payload []byte) error {
	command := strings.TrimPrefix(topic, s.requestPrefix+"/")

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode request envelope on %s: %w", topic, err)
	}

	s.mu.RLock()
	handler, ok := s.handlers[command]
	s.mu.RUnlock()

	if !ok {
		s.logger.Warn("no handler for RPC command", "command", command)
		s.reply(req, nil, fmt.Errorf("unknown command %q", command))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := handler(ctx, req.Payload)
	s.reply(req, result, err)
	return nil
}

// reply publishes the response envelope to the requester's reply topic.
// Requests without a reply topic are treated as fire-and-forget.
func (s *Server) reply(req request, result any, handlerErr error) {
	if req.ReplyTo == "" {
		return
	}

	resp := response{ID: req.ID}
	if handlerErr != nil {
		resp.Error = handlerErr.Error()
	} else {
		body, err := json.Marshal(result)
		if err != nil {
			resp.Error = fmt.Sprintf("encode result: %v", err)
		} else {
			resp.Payload = body
		}
	}

	env, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode RPC reply", "id", req.ID, "error", err)
		return
	}

	if err := s.bus.Publish(req.ReplyTo, env, rpcQoS, false); err != nil {
		s.logger.Error("failed to publish RPC reply",
			"id", req.ID,
			"reply_to", req.ReplyTo,
			"error", err,
		)
	}
}
