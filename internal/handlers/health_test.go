package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	healthy := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		query      string
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "basic mode ignores dependencies",
			checks:     map[string]Pinger{"store": down},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name:       "extended mode all healthy",
			checks:     map[string]Pinger{"store": healthy, "queue": healthy},
			query:      "?mode=extended",
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
			wantChecks: map[string]string{"store": "healthy", "queue": "healthy"},
		},
		{
			name:       "extended mode with a failing dependency",
			checks:     map[string]Pinger{"store": healthy, "queue": down},
			query:      "?mode=extended",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
			wantChecks: map[string]string{"store": "healthy", "queue": "unhealthy"},
		},
		{
			name:       "nil dependencies are skipped",
			checks:     map[string]Pinger{"store": healthy, "queue": nil},
			query:      "?mode=extended",
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
			wantChecks: map[string]string{"store": "healthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(tt.checks)
			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("Expected status %q, got %q", tt.wantBody, resp.Status)
			}
			if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
				t.Errorf("Invalid timestamp %q: %v", resp.Timestamp, err)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, resp.Checks)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("Expected %s to be %s, got %s", name, want, resp.Checks[name])
				}
			}
		})
	}
}
