package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltwatch/voltwatch-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health and Prometheus metrics (no auth required)
		r.Get("/health", s.handleHealth)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics.Handler())
		}

		// WebSocket upgrade. Browsers cannot set an Authorization header
		// here, so auth is via single-use ticket from /auth/ws-ticket.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - the caller must present
			// a valid token to obtain a ticket.
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Device registry
			r.Route("/devices", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermDeviceRead)).Get("/", s.handleListDevices)
				r.With(s.requirePermission(auth.PermDeviceCreate)).Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermDeviceRead)).Get("/", s.handleGetDevice)
					r.With(s.requirePermission(auth.PermDeviceConfigure)).Patch("/", s.handleUpdateDevice)
					r.With(s.requirePermission(auth.PermDeviceDelete)).Delete("/", s.handleDeleteDevice)
					r.With(s.requirePermission(auth.PermDeviceAssociate)).Patch("/associate", s.handleAssociateDevice)
				})
			})

			// Consumption reports
			r.With(s.requirePermission(auth.PermReportRead)).
				Get("/reports/consumption", s.handleConsumptionReport)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	mqttConnected := false
	if s.mqtt != nil {
		mqttConnected = s.mqtt.IsConnected()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"mqtt":    map[string]any{"connected": mqttConnected},
		"websocket": map[string]any{
			"connected_clients": s.Hub().ClientCount(),
		},
	})
}
