package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/voltwatch/voltwatch-core/internal/auth"
	"github.com/voltwatch/voltwatch-core/internal/consumption"
	"github.com/voltwatch/voltwatch-core/internal/rpc"
)

func TestConsumptionReport(t *testing.T) {
	t.Run("returns hourly rows", func(t *testing.T) {
		coord := &fakeCoordinator{
			reportFn: func(_ context.Context, userID, date string) ([]consumption.ReportRow, error) {
				if userID != "alice" || date != "2026-03-10" {
					t.Errorf("unexpected query: user=%s date=%s", userID, date)
				}
				return []consumption.ReportRow{
					{Hour: 9, TotalConsumption: 13},
					{Hour: 14, TotalConsumption: 2.5},
				}, nil
			},
		}
		_, handler := newTestServer(t, coord)

		rec := doRequest(handler, http.MethodGet,
			"/api/v1/reports/consumption?date=2026-03-10",
			bearerToken(t, "alice", auth.RoleUser), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			UserID string                   `json:"user_id"`
			Date   string                   `json:"date"`
			Rows   []consumption.ReportRow  `json:"rows"`
		}
		decodeBody(t, rec, &body)
		if body.UserID != "alice" {
			t.Errorf("expected user_id alice, got %s", body.UserID)
		}
		if len(body.Rows) != 2 || body.Rows[0].Hour != 9 || body.Rows[0].TotalConsumption != 13 {
			t.Errorf("unexpected rows: %+v", body.Rows)
		}
	})

	t.Run("user cannot read another user's report", func(t *testing.T) {
		_, handler := newTestServer(t, nil)

		rec := doRequest(handler, http.MethodGet,
			"/api/v1/reports/consumption?user_id=bob&date=2026-03-10",
			bearerToken(t, "alice", auth.RoleUser), "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("admin can read any user's report", func(t *testing.T) {
		coord := &fakeCoordinator{
			reportFn: func(_ context.Context, userID, _ string) ([]consumption.ReportRow, error) {
				if userID != "bob" {
					t.Errorf("expected query for bob, got %s", userID)
				}
				return []consumption.ReportRow{}, nil
			},
		}
		_, handler := newTestServer(t, coord)

		rec := doRequest(handler, http.MethodGet,
			"/api/v1/reports/consumption?user_id=bob&date=2026-03-10",
			bearerToken(t, "admin-1", auth.RoleAdmin), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing date rejected", func(t *testing.T) {
		_, handler := newTestServer(t, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/reports/consumption",
			bearerToken(t, "alice", auth.RoleUser), "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("coordinator errors map to status codes", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{"invalid date", fmt.Errorf("%w: 10/03/2026", consumption.ErrInvalidDate), http.StatusBadRequest},
			{"user not found", fmt.Errorf("%w: alice", consumption.ErrUserNotFound), http.StatusNotFound},
			{"monitoring timeout", fmt.Errorf("%w: consumption_per_devices", rpc.ErrTimeout), http.StatusBadGateway},
			{"monitoring unreachable", fmt.Errorf("%w: publish failed", rpc.ErrUnreachable), http.StatusBadGateway},
			{"unexpected failure", fmt.Errorf("boom"), http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				coord := &fakeCoordinator{
					reportFn: func(_ context.Context, _, _ string) ([]consumption.ReportRow, error) {
						return nil, tt.err
					},
				}
				_, handler := newTestServer(t, coord)

				rec := doRequest(handler, http.MethodGet,
					"/api/v1/reports/consumption?date=2026-03-10",
					bearerToken(t, "alice", auth.RoleUser), "")
				if rec.Code != tt.wantStatus {
					t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
				}
			})
		}
	})
}
