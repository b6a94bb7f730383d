package rpc

import "errors"

// Sentinel errors for RPC operations.
//
// Use errors.Is to check for specific failure classes:
//
//	_, err := client.Request(ctx, topic, req)
//	if errors.Is(err, rpc.ErrTimeout) {
//	    // remote service did not answer in time
//	}
var (
	// ErrTimeout indicates no reply arrived within the configured window.
	// The remote may be down, slow, or the message may have been lost.
	ErrTimeout = errors.New("rpc: request timed out")

	// ErrUnreachable indicates the request could not be published at all,
	// typically because the broker connection is down.
	ErrUnreachable = errors.New("rpc: remote unreachable")

	// ErrRemote indicates the remote handler processed the request and
	// returned an error of its own.
	ErrRemote = errors.New("rpc: remote error")

	// ErrClosed indicates the client has been shut down.
	ErrClosed = errors.New("rpc: client closed")
)
