// Package api implements the HTTP REST API and WebSocket server for VoltWatch.
//
// It exposes the device registry, device-user association, consumption
// reports and real-time alert delivery to operator dashboards and
// customer applications.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication is JWT bearer tokens issued by the platform's identity
// service; authorisation is role-based via the auth package. WebSocket
// connections authenticate with a short-lived single-use ticket obtained
// from POST /api/v1/auth/ws-ticket, so tokens never appear in URLs.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
