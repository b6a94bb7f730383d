// Package rpc implements request/response messaging over MQTT.
//
// VoltWatch talks to its peer services (the user directory and the
// consumption monitoring service) through a simple correlated
// request/reply pattern rather than direct HTTP calls. Each request is
// published to a command topic (e.g. "users/rpc/request/check_user_exists")
// carrying a correlation ID and a reply topic. The remote service
// publishes its response to the reply topic with the same ID.
//
// The package provides both halves:
//
//   - Client issues outbound requests and matches replies to waiting
//     callers. A request that receives no reply within the configured
//     timeout fails with ErrTimeout so callers can distinguish "the
//     remote said no" from "the remote never answered".
//
//   - Server subscribes to VoltWatch's own command topics and dispatches
//     inbound requests to registered handlers, publishing the handler
//     result (or error) back to the requester's reply topic.
//
// Both sides share the wire envelopes defined in envelope.go. Payloads
// are opaque JSON; command-specific types live with their callers.
package rpc
