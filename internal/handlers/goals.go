package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/queue"
	"github.com/benvon/goalquest/internal/telemetry"
	"github.com/benvon/goalquest/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// GoalsHandler serves the goal ledger
type GoalsHandler struct {
	ledger *ledger.Ledger
	queue  queue.JobQueue
	jobTTL time.Duration
	logger *zap.Logger
}

// NewGoalsHandler creates a goals handler. jobQueue may be nil, which disables async generation.
func NewGoalsHandler(l *ledger.Ledger, jobQueue queue.JobQueue, logger *zap.Logger) *GoalsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalsHandler{
		ledger: l,
		queue:  jobQueue,
		jobTTL: queue.DefaultJobTTL,
		logger: logger,
	}
}

// RegisterRoutes registers goal routes on the given router
func (h *GoalsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/goals", h.ListGoals).Methods("GET")
	r.HandleFunc("/goals", h.CreateGoal).Methods("POST")
	r.HandleFunc("/goals", h.ResetGoals).Methods("DELETE")
	r.HandleFunc("/goals/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/goals/{id}", h.GetGoal).Methods("GET")
	r.HandleFunc("/goals/{id}", h.DeleteGoal).Methods("DELETE")
	r.HandleFunc("/goals/{id}/progress", h.UpdateProgress).Methods("PATCH")
	r.HandleFunc("/goals/{id}/subtasks/generate", h.GenerateSubtasks).Methods("POST")
	r.HandleFunc("/goals/{id}/subtasks/{index}/toggle", h.ToggleSubtask).Methods("POST")
}

type subtaskRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=1000"`
	DaysFromStart int    `json:"days_from_start" validate:"min=0,max=3650"`
	Completed     bool   `json:"completed"`
}

// goalDraftRequest is the wire form of models.GoalDraft
type goalDraftRequest struct {
	Title        string           `json:"title" validate:"required,max=200"`
	Description  string           `json:"description" validate:"max=2000"`
	Category     models.Category  `json:"category" validate:"omitempty,goal_category"`
	TargetValue  *float64         `json:"target_value" validate:"required,finite,gt=0"`
	CurrentValue float64          `json:"current_value" validate:"finite,min=0"`
	Unit         string           `json:"unit" validate:"max=50"`
	StartDate    *models.Date     `json:"start_date"`
	EndDate      *models.Date     `json:"end_date"`
	Subtasks     []subtaskRequest `json:"subtasks" validate:"max=50,dive"`
}

func (req *goalDraftRequest) toDraft() models.GoalDraft {
	draft := models.GoalDraft{
		Title:        validation.SanitizeText(req.Title),
		Description:  validation.SanitizeText(req.Description),
		Category:     req.Category,
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		Unit:         validation.SanitizeText(req.Unit),
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}
	for _, s := range req.Subtasks {
		draft.Subtasks = append(draft.Subtasks, models.Subtask{
			Title:         validation.SanitizeText(s.Title),
			Description:   validation.SanitizeText(s.Description),
			DaysFromStart: s.DaysFromStart,
			Completed:     s.Completed,
		})
	}
	return draft
}

type progressRequest struct {
	CurrentValue *float64 `json:"current_value" validate:"required,finite,min=0"`
}

// GenerateJobResponse acknowledges a queued sub-task generation
type GenerateJobResponse struct {
	JobID    string     `json:"job_id"`
	GoalID   string     `json:"goal_id"`
	NotAfter *time.Time `json:"not_after,omitempty"`
}

// ListGoals returns the user's goals with derived progress and status
func (h *GoalsHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	goals, err := h.ledger.LoadGoals(r.Context(), user.ID)
	if err != nil {
		h.respondLedgerError(w, user.ID, "goals_list_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, h.ledger.Views(goals))
}

// CreateGoal adds a goal from a draft
func (h *GoalsHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req goalDraftRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	goal, err := h.ledger.CreateGoal(r.Context(), user.ID, req.toDraft())
	if err != nil {
		h.respondLedgerError(w, user.ID, "goal_create_failed", err)
		return
	}
	respondJSON(w, http.StatusCreated, h.view(goal))
}

// ResetGoals deletes every goal of the user, including unreadable data
func (h *GoalsHandler) ResetGoals(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	if err := h.ledger.ResetGoals(r.Context(), user.ID); err != nil {
		h.respondLedgerError(w, user.ID, "goals_reset_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats summarizes the user's goals
func (h *GoalsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	stats, err := h.ledger.Stats(r.Context(), user.ID)
	if err != nil {
		h.respondLedgerError(w, user.ID, "goals_stats_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetGoal returns one goal
func (h *GoalsHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	goal, err := h.ledger.GetGoal(r.Context(), user.ID, mux.Vars(r)["id"])
	if err != nil {
		h.respondLedgerError(w, user.ID, "goal_get_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(goal))
}

// DeleteGoal removes a goal. Unknown ids succeed so retries are safe.
func (h *GoalsHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	if err := h.ledger.DeleteGoal(r.Context(), user.ID, mux.Vars(r)["id"]); err != nil {
		h.respondLedgerError(w, user.ID, "goal_delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateProgress sets a goal's current value
func (h *GoalsHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req progressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	goal, err := h.ledger.UpdateProgress(r.Context(), user.ID, mux.Vars(r)["id"], *req.CurrentValue)
	if err != nil {
		h.respondLedgerError(w, user.ID, "goal_progress_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(goal))
}

// ToggleSubtask flips one sub-task's completion
func (h *GoalsHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	vars := mux.Vars(r)
	index, ok := pathIndex(vars["index"])
	if !ok {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Sub-task index must be a non-negative integer")
		return
	}

	goal, err := h.ledger.ToggleSubtask(r.Context(), user.ID, vars["id"], index)
	if err != nil {
		h.respondLedgerError(w, user.ID, "subtask_toggle_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(goal))
}

// GenerateSubtasks queues sub-task generation for an existing goal
func (h *GoalsHandler) GenerateSubtasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	if h.queue == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Background generation is not enabled")
		return
	}

	goalID := mux.Vars(r)["id"]
	goal, err := h.ledger.GetGoal(r.Context(), user.ID, goalID)
	if err != nil {
		h.respondLedgerError(w, user.ID, "subtask_job_failed", err)
		return
	}
	if len(goal.Subtasks) > 0 {
		respondJSONError(w, http.StatusConflict, "Conflict", ledger.ErrSubtasksExist.Error())
		return
	}

	job := queue.NewSubtaskJob(user.ID, goalID, h.ledger.Now(), h.jobTTL)
	job.Trace = telemetry.InjectHeaders(r.Context())
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("subtask_job_enqueue_failed",
			zap.String("user_id", logpkg.SanitizeUserID(user.ID)),
			zap.String("goal_id", logpkg.SanitizeUserID(goalID)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Could not queue sub-task generation")
		return
	}

	h.logger.Info("subtask_job_enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", logpkg.SanitizeUserID(user.ID)),
		zap.String("goal_id", logpkg.SanitizeUserID(goalID)),
	)
	respondJSON(w, http.StatusAccepted, GenerateJobResponse{
		JobID:    job.ID.String(),
		GoalID:   goalID,
		NotAfter: job.NotAfter,
	})
}

func (h *GoalsHandler) view(g *models.Goal) models.GoalView {
	return models.NewGoalView(*g, h.ledger.Now())
}

// respondLedgerError maps ledger and repository errors to status codes.
// Raw errors are logged; clients get a short message.
func (h *GoalsHandler) respondLedgerError(w http.ResponseWriter, userID, event string, err error) {
	writeLedgerError(w, h.logger, userID, event, err)
}

func writeLedgerError(w http.ResponseWriter, logger *zap.Logger, userID, event string, err error) {
	var loadErr *database.LoadError
	switch {
	case errors.Is(err, ledger.ErrGoalNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Goal not found")
	case errors.Is(err, ledger.ErrSubtaskNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Sub-task not found")
	case errors.Is(err, ledger.ErrInvalidDraft), errors.Is(err, ledger.ErrInvalidProgress):
		respondJSONError(w, http.StatusBadRequest, "Validation Error", err.Error())
	case errors.Is(err, ledger.ErrSubtasksExist):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &loadErr):
		logger.Warn(event,
			zap.String("user_id", logpkg.SanitizeUserID(userID)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusConflict, "Goals Unreadable",
			"Your saved goals could not be read. Reset your goals to start over.")
	default:
		logger.Error(event,
			zap.String("user_id", logpkg.SanitizeUserID(userID)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong. Please try again.")
	}
}
