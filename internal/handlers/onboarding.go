package handlers

import (
	"net/http"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// OnboardingHandler tracks first-run completion
type OnboardingHandler struct {
	onboarding database.OnboardingRepositoryInterface
	ledger     *ledger.Ledger
	logger     *zap.Logger
}

// NewOnboardingHandler creates a new onboarding handler
func NewOnboardingHandler(onboarding database.OnboardingRepositoryInterface, l *ledger.Ledger, logger *zap.Logger) *OnboardingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingHandler{onboarding: onboarding, ledger: l, logger: logger}
}

// RegisterRoutes registers onboarding routes on the given router
func (h *OnboardingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/onboarding", h.GetStatus).Methods("GET")
	r.HandleFunc("/onboarding/complete", h.Complete).Methods("POST")
	r.HandleFunc("/onboarding/skip", h.Skip).Methods("POST")
}

// OnboardingStatus is returned by every onboarding route
type OnboardingStatus struct {
	Completed bool                      `json:"completed"`
	Templates []models.CategoryTemplate `json:"templates,omitempty"`
	Goal      *models.GoalView          `json:"goal,omitempty"`
}

type completeOnboardingRequest struct {
	Goal *goalDraftRequest `json:"goal"`
}

// GetStatus reports whether onboarding is done; templates are included until it is
func (h *OnboardingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	done, err := h.onboarding.IsComplete(r.Context(), user.ID)
	if err != nil {
		h.fail(w, user.ID, "onboarding_status_failed", err)
		return
	}

	status := OnboardingStatus{Completed: done}
	if !done {
		status.Templates = models.CategoryTemplates()
	}
	respondJSON(w, http.StatusOK, status)
}

// Complete finishes onboarding, optionally creating the user's first goal
func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req completeOnboardingRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}

	// Marked first: a retry after a failed mark must not create the goal twice
	if err := h.onboarding.MarkComplete(r.Context(), user.ID); err != nil {
		h.fail(w, user.ID, "onboarding_complete_failed", err)
		return
	}

	status := OnboardingStatus{Completed: true}
	if req.Goal != nil {
		goal, err := h.ledger.CreateGoal(r.Context(), user.ID, req.Goal.toDraft())
		if err != nil {
			writeLedgerError(w, h.logger, user.ID, "onboarding_goal_failed", err)
			return
		}
		view := models.NewGoalView(*goal, h.ledger.Now())
		status.Goal = &view
	}

	h.logger.Info("onboarding_completed",
		zap.String("user_id", logpkg.SanitizeUserID(user.ID)),
		zap.Bool("with_goal", status.Goal != nil),
	)
	respondJSON(w, http.StatusOK, status)
}

// Skip finishes onboarding without a goal
func (h *OnboardingHandler) Skip(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	if err := h.onboarding.MarkComplete(r.Context(), user.ID); err != nil {
		h.fail(w, user.ID, "onboarding_skip_failed", err)
		return
	}
	h.logger.Info("onboarding_skipped", zap.String("user_id", logpkg.SanitizeUserID(user.ID)))
	respondJSON(w, http.StatusOK, OnboardingStatus{Completed: true})
}

func (h *OnboardingHandler) fail(w http.ResponseWriter, userID, event string, err error) {
	h.logger.Error(event,
		zap.String("user_id", logpkg.SanitizeUserID(userID)),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong. Please try again.")
}
