package ai

import "context"

// Operation names a completion call site; it tags logs and spans
type Operation string

const (
	OperationChat     Operation = "chat"
	OperationSubtasks Operation = "generate_subtasks"
)

// Token budgets and sampling used by both call sites
const (
	ChatMaxTokens      int64   = 500
	SubtaskMaxTokens   int64   = 800
	DefaultTemperature float64 = 0.7
)

// CompletionRequest is one system + one user message exchange
type CompletionRequest struct {
	Operation    Operation
	UserID       string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int64
	Temperature  float64
}

// Completer sends a completion request to a hosted text-generation endpoint
// and returns the text of the first choice.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
