package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/goalquest/internal/models"
)

type mockCompleter struct {
	calls        atomic.Int32
	CompleteFunc func(ctx context.Context, req CompletionRequest) (string, error)
}

var _ Completer = (*mockCompleter)(nil)

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.calls.Add(1)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

func float(v float64) *float64 {
	return &v
}

func validDraft() models.GoalDraft {
	return models.GoalDraft{
		Title:       "Run 500km",
		Category:    models.CategoryFitness,
		TargetValue: float(500),
		Unit:        "km",
	}
}

func TestAssistant_SetupRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		apiKey   string
		wantErr  error
		wantHits int32
	}{
		{name: "no credential never reaches the network", apiKey: "", wantErr: ErrSetupRequired, wantHits: 0},
		{name: "credential sends both requests", apiKey: "sk-test-key", wantErr: nil, wantHits: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeCompletion(w, `[{"title":"Week one","daysFromStart":7}]`)
			}))
			t.Cleanup(srv.Close)

			a := NewAssistant(NewCompleter(OpenAIConfig{APIKey: tt.apiKey, BaseURL: srv.URL + "/", Timeout: time.Second}), nil)
			if a.Configured() != (tt.apiKey != "") {
				t.Fatalf("Expected configured=%v, got %v", tt.apiKey != "", a.Configured())
			}

			if _, err := a.SendChatMessage(context.Background(), &models.User{ID: "u1"}, nil, "hello"); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v from chat, got %v", tt.wantErr, err)
			}
			if _, err := a.GenerateSubtasks(context.Background(), "u1", validDraft()); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v from sub-task generation, got %v", tt.wantErr, err)
			}
			if n := hits.Load(); n != tt.wantHits {
				t.Errorf("Expected %d requests at the provider, got %d", tt.wantHits, n)
			}
		})
	}
}

func TestAssistant_NewCompleterWithoutKey(t *testing.T) {
	t.Parallel()

	if c := NewCompleter(OpenAIConfig{}); c != nil {
		t.Fatalf("Expected nil completer without an API key, got %T", c)
	}
	a := NewAssistant(NewCompleter(OpenAIConfig{}), nil)
	if a.Configured() {
		t.Error("Expected assistant to require setup")
	}
}

func TestSendChatMessage(t *testing.T) {
	t.Parallel()

	var got CompletionRequest
	m := &mockCompleter{CompleteFunc: func(_ context.Context, req CompletionRequest) (string, error) {
		got = req
		return "**Goal Title:** Run 5km", nil
	}}
	a := NewAssistant(m, nil)

	goals := []models.Goal{{Title: "Run 500km", Category: models.CategoryFitness, TargetValue: 500, CurrentValue: 125, Unit: "km"}}
	reply, err := a.SendChatMessage(context.Background(), &models.User{ID: "u1", FirstName: "Ada"}, goals, "  I want to get fit  ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply.Message != "**Goal Title:** Run 5km" || reply.Fallback {
		t.Errorf("Expected verbatim model reply, got %+v", reply)
	}
	if got.UserPrompt != "I want to get fit" {
		t.Errorf("Expected trimmed user message, got %q", got.UserPrompt)
	}
	if got.MaxTokens != ChatMaxTokens || got.Temperature != DefaultTemperature || got.Operation != OperationChat {
		t.Errorf("Unexpected request parameters: %+v", got)
	}
	if !strings.Contains(got.SystemPrompt, "- User name: Ada") {
		t.Error("Expected system prompt to include user name")
	}
	if !strings.Contains(got.SystemPrompt, "- Run 500km (fitness): 25.0% complete (125/500 km)") {
		t.Errorf("Expected goal summary in system prompt, got %s", got.SystemPrompt)
	}
}

func TestSendChatMessage_FailureFallsBack(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{CompleteFunc: func(context.Context, CompletionRequest) (string, error) {
		return "", errors.New("connection refused")
	}}
	a := NewAssistant(m, nil)

	reply, err := a.SendChatMessage(context.Background(), &models.User{ID: "u1"}, nil, "hi")
	if err != nil {
		t.Fatalf("Expected chat failure to be absorbed, got %v", err)
	}
	if !reply.Fallback || reply.Message != FallbackReply {
		t.Errorf("Expected fallback reply, got %+v", reply)
	}
	if n := m.calls.Load(); n != 1 {
		t.Errorf("Expected exactly one attempt, got %d", n)
	}
}

func TestSendChatMessage_EmptyMessage(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	a := NewAssistant(m, nil)
	if _, err := a.SendChatMessage(context.Background(), &models.User{ID: "u1"}, nil, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
	if m.calls.Load() != 0 {
		t.Error("Expected no call for an empty message")
	}
}

func TestGenerateSubtasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reply     string
		replyErr  error
		wantCount int
		wantErr   error
	}{
		{
			name:      "plain array",
			reply:     `[{"title":"a","description":"","daysFromStart":7,"completed":false},{"title":"b","daysFromStart":14}]`,
			wantCount: 2,
		},
		{
			name:      "fenced array",
			reply:     "```json\n[{\"title\":\"a\",\"daysFromStart\":7}]\n```",
			wantCount: 1,
		},
		{name: "prose", reply: "Sure! Here are some ideas.", wantErr: ErrMalformedResponse},
		{name: "empty array", reply: "[]", wantErr: ErrMalformedResponse},
		{name: "transport failure", replyErr: errors.New("timeout"), wantErr: ErrGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got CompletionRequest
			m := &mockCompleter{CompleteFunc: func(_ context.Context, req CompletionRequest) (string, error) {
				got = req
				return tt.reply, tt.replyErr
			}}
			a := NewAssistant(m, nil)

			subtasks, err := a.GenerateSubtasks(context.Background(), "u1", validDraft())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				if !errors.Is(err, ErrGenerationFailed) {
					t.Errorf("Expected every failure to match ErrGenerationFailed, got %v", err)
				}
				if subtasks != nil {
					t.Errorf("Expected no sub-tasks on failure, got %v", subtasks)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(subtasks) != tt.wantCount {
				t.Errorf("Expected %d sub-tasks, got %d", tt.wantCount, len(subtasks))
			}
			if got.MaxTokens != SubtaskMaxTokens || got.SystemPrompt != subtaskSystemPrompt {
				t.Errorf("Unexpected request: %+v", got)
			}
			if m.calls.Load() != 1 {
				t.Errorf("Expected one attempt, got %d", m.calls.Load())
			}
		})
	}
}

func TestGenerateSubtasks_TitleRequired(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	a := NewAssistant(m, nil)
	draft := validDraft()
	draft.Title = "  "
	if _, err := a.GenerateSubtasks(context.Background(), "u1", draft); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("Expected ErrTitleRequired, got %v", err)
	}
	if m.calls.Load() != 0 {
		t.Error("Expected no call without a title")
	}
}

func TestAssistant_InflightGuard(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	unblock := make(chan struct{})
	m := &mockCompleter{CompleteFunc: func(context.Context, CompletionRequest) (string, error) {
		close(started)
		<-unblock
		return `[{"title":"a","daysFromStart":1}]`, nil
	}}
	a := NewAssistant(m, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = a.GenerateSubtasks(context.Background(), "u1", validDraft())
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first request never started")
	}

	if !a.Busy("u1") {
		t.Error("Expected u1 to be busy")
	}
	if _, err := a.SendChatMessage(context.Background(), &models.User{ID: "u1"}, nil, "hi"); !errors.Is(err, ErrRequestInFlight) {
		t.Errorf("Expected ErrRequestInFlight for a second call, got %v", err)
	}

	close(unblock)
	wg.Wait()
	if firstErr != nil {
		t.Errorf("Expected first request to succeed, got %v", firstErr)
	}
	if a.Busy("u1") {
		t.Error("Expected slot released after completion")
	}
	if n := m.calls.Load(); n != 1 {
		t.Errorf("Expected only the first call to reach the network, got %d", n)
	}
}

func TestGenerateSubtasks_ProviderErrorsStayMatchable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		providerErr error
		wantQuota   bool
		wantLimited bool
	}{
		{name: "quota", providerErr: &APIError{StatusCode: 429, Code: "insufficient_quota", IsPermanent: true}, wantQuota: true},
		{name: "rate limit", providerErr: &APIError{StatusCode: 429}, wantLimited: true},
		{name: "server error", providerErr: &APIError{StatusCode: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &mockCompleter{CompleteFunc: func(context.Context, CompletionRequest) (string, error) {
				return "", fmt.Errorf("failed to complete subtasks: %w", tt.providerErr)
			}}
			_, err := NewAssistant(m, nil).GenerateSubtasks(context.Background(), "u1", validDraft())
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("Expected ErrGenerationFailed, got %v", err)
			}
			if got := errors.Is(err, ErrQuotaExceeded); got != tt.wantQuota {
				t.Errorf("Expected quota match %v, got %v", tt.wantQuota, got)
			}
			if got := errors.Is(err, ErrRateLimited); got != tt.wantLimited {
				t.Errorf("Expected rate-limit match %v, got %v", tt.wantLimited, got)
			}
		})
	}
}
