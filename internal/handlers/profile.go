package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProfileHandler serves the signed-in user's profile and preferences
type ProfileHandler struct {
	settings database.SettingsRepositoryInterface
	ledger   *ledger.Ledger
	logger   *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(settings database.SettingsRepositoryInterface, l *ledger.Ledger, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{settings: settings, ledger: l, logger: logger}
}

// RegisterRoutes registers profile routes on the given router
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/me/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/me/settings", h.UpdateSettings).Methods("PUT")
}

// ProfileResponse is the profile screen payload.
// Stats is omitted when the user's goals cannot be read.
type ProfileResponse struct {
	User        *models.User      `json:"user"`
	MemberSince models.Date       `json:"member_since"`
	DaysActive  int               `json:"days_active"`
	Stats       *models.GoalStats `json:"stats,omitempty"`
}

// GetMe returns the user with goal statistics and join date
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	now := h.ledger.Now()
	resp := ProfileResponse{
		User:        user,
		MemberSince: models.Today(user.CreatedAt),
		DaysActive:  daysBetween(user.CreatedAt, now),
	}
	if stats, err := h.ledger.Stats(r.Context(), user.ID); err == nil {
		resp.Stats = &stats
	} else {
		h.logger.Warn("profile_stats_unavailable",
			zap.String("user_id", logpkg.SanitizeUserID(user.ID)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetSettings returns stored preferences or the defaults
func (h *ProfileHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	settings, err := h.settings.Get(r.Context(), user.ID)
	if err != nil {
		h.fail(w, user.ID, "settings_get_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the user's preferences
func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var settings models.UserSettings
	if !decodeAndValidate(w, r, &settings) {
		return
	}

	if err := h.settings.Put(r.Context(), user.ID, &settings); err != nil {
		h.fail(w, user.ID, "settings_put_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *ProfileHandler) fail(w http.ResponseWriter, userID, event string, err error) {
	h.logger.Error(event,
		zap.String("user_id", logpkg.SanitizeUserID(userID)),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong. Please try again.")
}

// daysBetween counts whole days since start, at least 1 for a new account
func daysBetween(start, now time.Time) int {
	if start.IsZero() || now.Before(start) {
		return 1
	}
	return int(now.Sub(start).Hours()/24) + 1
}
