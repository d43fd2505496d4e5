package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/models"
	"go.uber.org/zap"
)

func TestProfileHandler_GetMe(t *testing.T) {
	t.Parallel()

	l, store := newTestLedger(t)
	h := NewProfileHandler(database.NewSettingsRepository(store), l, zap.NewNop())
	goals := NewGoalsHandler(l, nil, zap.NewNop())
	createTestGoal(t, goals.RegisterRoutes, "user-1", map[string]any{"title": "Read", "target_value": 12, "current_value": 12})

	w := serve(h.RegisterRoutes, newTestRequest(http.MethodGet, "/me", nil), "user-1")
	var resp ProfileResponse
	decodeEnvelope(t, w, &resp)

	if resp.User == nil || resp.User.ID != "user-1" {
		t.Fatalf("Expected user-1, got %+v", resp.User)
	}
	if resp.MemberSince.String() != "2024-06-06" {
		t.Errorf("Expected join date 2024-06-06, got %s", resp.MemberSince)
	}
	if resp.DaysActive != 10 {
		t.Errorf("Expected 10 days active, got %d", resp.DaysActive)
	}
	if resp.Stats == nil || resp.Stats.Completed != 1 {
		t.Errorf("Expected one completed goal in stats, got %+v", resp.Stats)
	}
}

func TestProfileHandler_Settings(t *testing.T) {
	t.Parallel()

	l, store := newTestLedger(t)
	h := NewProfileHandler(database.NewSettingsRepository(store), l, zap.NewNop())

	w := serve(h.RegisterRoutes, newTestRequest(http.MethodGet, "/me/settings", nil), "user-1")
	var settings models.UserSettings
	decodeEnvelope(t, w, &settings)
	if settings != models.DefaultUserSettings() {
		t.Errorf("Expected defaults, got %+v", settings)
	}

	update := models.UserSettings{Theme: models.ThemeDark, NotificationFrequency: models.NotificationWeekly}
	w = serve(h.RegisterRoutes, newTestRequest(http.MethodPut, "/me/settings", update), "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(h.RegisterRoutes, newTestRequest(http.MethodGet, "/me/settings", nil), "user-1")
	settings = models.UserSettings{}
	decodeEnvelope(t, w, &settings)
	if settings != update {
		t.Errorf("Expected %+v, got %+v", update, settings)
	}

	w = serve(h.RegisterRoutes, newTestRequest(http.MethodPut, "/me/settings", map[string]any{"theme": "sepia", "notification_frequency": "daily"}), "user-1")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown theme, got %d", w.Code)
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		start time.Time
		want  int
	}{
		{time.Time{}, 1},
		{now, 1},
		{now.Add(time.Hour), 1},
		{now.AddDate(0, 0, -1), 2},
		{now.AddDate(0, 0, -30), 31},
	}
	for _, tt := range tests {
		if got := daysBetween(tt.start, now); got != tt.want {
			t.Errorf("daysBetween(%s) = %d, want %d", tt.start, got, tt.want)
		}
	}
}
