package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voltwatch/voltwatch-core/internal/auth"
	"github.com/voltwatch/voltwatch-core/internal/consumption"
	"github.com/voltwatch/voltwatch-core/internal/device"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/config"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
)

const testJWTSecret = "test-secret-0123456789abcdef-0123456789"

// fakeCoordinator implements the Coordinator interface with
// overridable behaviour per test.
type fakeCoordinator struct {
	associateFn func(ctx context.Context, deviceID, userID string) (*device.Device, error)
	reportFn    func(ctx context.Context, userID, date string) ([]consumption.ReportRow, error)
}

func (f *fakeCoordinator) Associate(ctx context.Context, deviceID, userID string) (*device.Device, error) {
	if f.associateFn == nil {
		return nil, nil
	}
	return f.associateFn(ctx, deviceID, userID)
}

func (f *fakeCoordinator) Report(ctx context.Context, userID, date string) ([]consumption.ReportRow, error) {
	if f.reportFn == nil {
		return nil, nil
	}
	return f.reportFn(ctx, userID, date)
}

// setupDeviceRepo creates a device repository backed by in-memory SQLite.
func setupDeviceRepo(t *testing.T) *device.SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			description TEXT NOT NULL,
			max_hourly_consumption REAL NOT NULL DEFAULT 0 CHECK (max_hourly_consumption >= 0),
			address TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_user_id ON devices(user_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return device.NewSQLiteRepository(db)
}

// newTestServer builds a Server wired with an in-memory device repository
// and the given coordinator, returning the server and its HTTP handler.
func newTestServer(t *testing.T, coord Coordinator) (*Server, http.Handler) {
	t.Helper()

	if coord == nil {
		coord = &fakeCoordinator{}
	}

	s, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS: config.WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 15},
		},
		Logger:      logging.Default(),
		Devices:     setupDeviceRepo(t),
		Coordinator: coord,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	return s, s.buildRouter()
}

// bearerToken mints a valid access token for the given identity.
func bearerToken(t *testing.T, userID string, role auth.Role) string {
	t.Helper()

	token, err := auth.GenerateAccessToken(userID, role, testJWTSecret, 15)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

// doRequest performs a request against the handler and returns the recorder.
func doRequest(handler http.Handler, method, target, authz string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the recorder body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := newTestServer(t, nil)

	rec := doRequest(handler, http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("expected version test, got %v", body["version"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, handler := newTestServer(t, nil)

	tests := []struct {
		name       string
		authz      string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodGet, "/api/v1/devices", tt.authz, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}

	t.Run("valid token passes", func(t *testing.T) {
		rec := doRequest(handler, http.MethodGet, "/api/v1/devices", bearerToken(t, "user-1", auth.RoleUser), "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestRequirePermission(t *testing.T) {
	_, handler := newTestServer(t, nil)

	// Device creation is admin-only; a user-role token must be rejected.
	rec := doRequest(handler, http.MethodPost, "/api/v1/devices",
		bearerToken(t, "user-1", auth.RoleUser),
		`{"description":"boiler","max_hourly_consumption":10,"address":"basement"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user creating device, got %d", rec.Code)
	}

	var apiErr Error
	decodeBody(t, rec, &apiErr)
	if apiErr.Code != ErrCodeForbidden {
		t.Errorf("expected error code %s, got %s", ErrCodeForbidden, apiErr.Code)
	}
}
