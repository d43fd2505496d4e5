// Package ai implements the AI Task Assistant: goal chat and sub-task generation
// against a hosted chat-completion endpoint.
package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/request"
)

// FallbackReply is shown instead of any chat failure
const FallbackReply = "I'm sorry, I'm having trouble connecting right now. Please try again in a moment. 🎯"

// ChatReply is the assistant's answer to one chat message
type ChatReply struct {
	Message string `json:"message"`
	// Fallback is set when Message is the canned apology rather than a model reply
	Fallback bool `json:"fallback"`
}

// Assistant turns chat messages and goal drafts into completion requests.
// With a nil Completer every operation reports ErrSetupRequired without building a request.
type Assistant struct {
	completer Completer
	guard     *InflightGuard
	logger    *zap.Logger
}

// NewAssistant creates an assistant; completer may be nil
func NewAssistant(completer Completer, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{
		completer: completer,
		guard:     NewInflightGuard(),
		logger:    log,
	}
}

// Configured reports whether a credential is available
func (a *Assistant) Configured() bool {
	return a.completer != nil
}

// Busy reports whether a request for the user is pending
func (a *Assistant) Busy(userID string) bool {
	return a.guard.Pending(userID)
}

// SendChatMessage answers a free-form message with the user's goals as context.
// Transport failures are logged and replaced by FallbackReply; they never produce an error.
func (a *Assistant) SendChatMessage(ctx context.Context, user *models.User, goals []models.Goal, message string) (*ChatReply, error) {
	if !a.Configured() {
		return nil, ErrSetupRequired
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	userID := ""
	if user != nil {
		userID = user.ID
	}
	release, ok := a.guard.Acquire(userID)
	if !ok {
		return nil, ErrRequestInFlight
	}
	defer release()

	content, err := a.completer.Complete(ctx, CompletionRequest{
		Operation:    OperationChat,
		UserID:       userID,
		SystemPrompt: ChatSystemPrompt(user, goals),
		UserPrompt:   message,
		MaxTokens:    ChatMaxTokens,
		Temperature:  DefaultTemperature,
	})
	if err != nil {
		a.logger.Error("ai_chat_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.String("request_id", request.RequestIDFromContext(ctx)),
			zap.Bool("rate_limited", IsRateLimitError(err)),
			zap.Bool("quota_exceeded", IsQuotaError(err)),
			zap.Error(err),
		)
		return &ChatReply{Message: FallbackReply, Fallback: true}, nil
	}

	return &ChatReply{Message: content}, nil
}

// GenerateSubtasks asks the model for 5-7 sub-tasks for a draft. Every failure,
// transport or parse, is reported as ErrGenerationFailed. Provider errors stay in
// the chain, so callers can still match ErrRateLimited and ErrQuotaExceeded.
func (a *Assistant) GenerateSubtasks(ctx context.Context, userID string, draft models.GoalDraft) ([]models.Subtask, error) {
	if !a.Configured() {
		return nil, ErrSetupRequired
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, ErrTitleRequired
	}

	release, ok := a.guard.Acquire(userID)
	if !ok {
		return nil, ErrRequestInFlight
	}
	defer release()

	content, err := a.completer.Complete(ctx, CompletionRequest{
		Operation:    OperationSubtasks,
		UserID:       userID,
		SystemPrompt: subtaskSystemPrompt,
		UserPrompt:   SubtaskPrompt(draft),
		MaxTokens:    SubtaskMaxTokens,
		Temperature:  DefaultTemperature,
	})
	if err != nil {
		a.logger.Error("ai_subtask_generation_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.String("request_id", request.RequestIDFromContext(ctx)),
			zap.Bool("rate_limited", IsRateLimitError(err)),
			zap.Bool("quota_exceeded", IsQuotaError(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	subtasks, err := ParseSubtasks(content)
	if err != nil {
		a.logger.Warn("ai_subtask_response_malformed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.String("response_preview", SanitizeResponse(content, false)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	a.logger.Info("ai_subtasks_generated",
		zap.String("user_id", logger.SanitizeUserID(userID)),
		zap.Int("count", len(subtasks)),
	)
	return subtasks, nil
}
