package rpc

import "encoding/json"

// request is the wire envelope for an outbound or inbound RPC request.
//
// ID correlates the eventual reply with the waiting caller. ReplyTo is
// the topic the responder must publish its response envelope to.
type request struct {
	ID      string          `json:"id"`
	ReplyTo string          `json:"reply_to"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// response is the wire envelope for an RPC reply.
//
// Exactly one of Payload or Error is meaningful: a non-empty Error means
// the remote handler failed and Payload should be ignored.
type response struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}
