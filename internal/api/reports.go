package api

import (
	"errors"
	"net/http"

	"github.com/voltwatch/voltwatch-core/internal/auth"
	"github.com/voltwatch/voltwatch-core/internal/consumption"
	"github.com/voltwatch/voltwatch-core/internal/rpc"
)

// handleConsumptionReport returns a user's hourly consumption for one
// calendar day: GET /reports/consumption?user_id=...&date=2026-03-10.
//
// Users may only request their own report; admins may request anyone's.
// When user_id is omitted the caller's own identity is used.
func (s *Server) handleConsumptionReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = claims.Subject
	}
	if claims.Role != auth.RoleAdmin && userID != claims.Subject {
		writeForbidden(w, "cannot read another user's report")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeBadRequest(w, "date query parameter is required (YYYY-MM-DD)")
		return
	}

	rows, err := s.coordinator.Report(r.Context(), userID, date)
	if err != nil {
		switch {
		case errors.Is(err, consumption.ErrInvalidDate):
			writeBadRequest(w, "date must be a calendar day in YYYY-MM-DD form")
		case errors.Is(err, consumption.ErrUserNotFound):
			writeNotFound(w, "user not found: "+userID)
		case errors.Is(err, rpc.ErrTimeout) || errors.Is(err, rpc.ErrUnreachable):
			writeBadGateway(w, "monitoring service unavailable")
		default:
			s.logger.Error("failed to build consumption report",
				"user_id", userID,
				"date", date,
				"error", err,
			)
			writeInternalError(w, "failed to build report")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"date":    date,
		"rows":    rows,
	})
}
