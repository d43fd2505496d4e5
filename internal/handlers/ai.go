package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/benvon/goalquest/internal/ledger"
	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/services/ai"
	"github.com/benvon/goalquest/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AIHandler serves the AI task assistant
type AIHandler struct {
	assistant *ai.Assistant
	ledger    *ledger.Ledger
	logger    *zap.Logger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(assistant *ai.Assistant, l *ledger.Ledger, logger *zap.Logger) *AIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIHandler{assistant: assistant, ledger: l, logger: logger}
}

// RegisterRoutes registers AI routes on the given router
func (h *AIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ai/status", h.GetStatus).Methods("GET")
	r.HandleFunc("/ai/chat", h.Chat).Methods("POST")
	r.HandleFunc("/ai/subtasks", h.GenerateSubtasks).Methods("POST")
}

// AIStatusResponse tells the client whether the assistant can be used
type AIStatusResponse struct {
	Configured     bool             `json:"configured"`
	Busy           bool             `json:"busy"`
	WelcomeMessage string           `json:"welcome_message"`
	SetupMessage   string           `json:"setup_message,omitempty"`
	QuickActions   []ai.QuickAction `json:"quick_actions"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// planRequest is a partial draft; only the title is needed to ask for a plan
type planRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Category    models.Category `json:"category" validate:"omitempty,goal_category"`
	TargetValue *float64        `json:"target_value" validate:"omitempty,finite,gt=0"`
	Unit        string          `json:"unit" validate:"max=50"`
	StartDate   *models.Date    `json:"start_date"`
	EndDate     *models.Date    `json:"end_date"`
}

func (req *planRequest) toDraft() models.GoalDraft {
	return models.GoalDraft{
		Title:       validation.SanitizeText(req.Title),
		Description: validation.SanitizeText(req.Description),
		Category:    req.Category,
		TargetValue: req.TargetValue,
		Unit:        validation.SanitizeText(req.Unit),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
}

// ChatResponse is the assistant reply plus a goal draft when the reply proposes one
type ChatResponse struct {
	ai.ChatReply
	GoalDraft *models.GoalDraft `json:"goal_draft,omitempty"`
}

// SubtasksResponse carries a generated plan with derived due dates
type SubtasksResponse struct {
	Subtasks []models.SubtaskView `json:"subtasks"`
}

// GetStatus reports configuration and greeting for the chat screen
func (h *AIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	configured := h.assistant.Configured()
	resp := AIStatusResponse{
		Configured:     configured,
		Busy:           h.assistant.Busy(user.ID),
		WelcomeMessage: ai.WelcomeMessage(user.FirstName, configured),
		QuickActions:   ai.QuickActions(),
	}
	if !configured {
		resp.SetupMessage = ai.SetupRequiredMessage
	}
	respondJSON(w, http.StatusOK, resp)
}

// Chat answers a free-form message with the user's goals as context
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req chatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	goals := h.ledger.ListGoals(r.Context(), user.ID)
	reply, err := h.assistant.SendChatMessage(r.Context(), user, goals, req.Message)
	if err != nil {
		h.respondAIError(w, user.ID, err)
		return
	}

	resp := ChatResponse{ChatReply: *reply}
	if !reply.Fallback {
		if draft, err := ai.ExtractGoalDraft(reply.Message); err == nil {
			resp.GoalDraft = draft
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// GenerateSubtasks returns a plan for a draft without persisting it
func (h *AIHandler) GenerateSubtasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req planRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	draft := req.toDraft()

	subtasks, err := h.assistant.GenerateSubtasks(r.Context(), user.ID, draft)
	if err != nil {
		h.respondAIError(w, user.ID, err)
		return
	}

	start := models.Today(h.ledger.Now())
	if draft.StartDate != nil && !draft.StartDate.IsZero() {
		start = *draft.StartDate
	}
	views := make([]models.SubtaskView, 0, len(subtasks))
	for i, s := range subtasks {
		views = append(views, models.SubtaskView{Subtask: s, Index: i, TargetDate: s.TargetDate(start)})
	}
	respondJSON(w, http.StatusOK, SubtasksResponse{Subtasks: views})
}

func (h *AIHandler) respondAIError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, ai.ErrSetupRequired):
		respondJSONError(w, http.StatusServiceUnavailable, "Setup Required", ai.SetupRequiredMessage)
	case errors.Is(err, ai.ErrEmptyMessage), errors.Is(err, ai.ErrTitleRequired):
		respondJSONError(w, http.StatusBadRequest, "Validation Error", err.Error())
	case errors.Is(err, ai.ErrRequestInFlight):
		respondJSONError(w, http.StatusTooManyRequests, "Request In Progress", "Please wait for the current request to finish")
	case errors.Is(err, ai.ErrQuotaExceeded):
		h.logger.Error("ai_request_failed",
			zap.String("user_id", logpkg.SanitizeUserID(userID)),
			zap.Bool("quota_exceeded", true),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Quota Exceeded", ai.QuotaExceededMessage)
	case errors.Is(err, ai.ErrRateLimited):
		h.logger.Warn("ai_request_failed",
			zap.String("user_id", logpkg.SanitizeUserID(userID)),
			zap.Bool("rate_limited", true),
		)
		w.Header().Set("Retry-After", strconv.Itoa(ai.RateLimitRetrySeconds))
		respondJSONError(w, http.StatusTooManyRequests, "Rate Limited", ai.RateLimitedMessage)
	case errors.Is(err, ai.ErrGenerationFailed):
		h.logger.Warn("ai_request_failed",
			zap.String("user_id", logpkg.SanitizeUserID(userID)),
			zap.Bool("malformed", errors.Is(err, ai.ErrMalformedResponse)),
		)
		respondJSONError(w, http.StatusBadGateway, "Generation Failed", "Failed to generate sub-tasks. Please try again.")
	default:
		h.logger.Error("ai_request_failed",
			zap.String("user_id", logpkg.SanitizeUserID(userID)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong. Please try again.")
	}
}
