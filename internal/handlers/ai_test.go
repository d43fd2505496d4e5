package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/goalquest/internal/services/ai"
	"go.uber.org/zap"
)

type mockCompleter struct {
	calls        atomic.Int32
	CompleteFunc func(ctx context.Context, req ai.CompletionRequest) (string, error)
}

var _ ai.Completer = (*mockCompleter)(nil)

func (m *mockCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	m.calls.Add(1)
	return m.CompleteFunc(ctx, req)
}

func replyWith(content string, err error) *mockCompleter {
	return &mockCompleter{CompleteFunc: func(context.Context, ai.CompletionRequest) (string, error) {
		return content, err
	}}
}

func newAIHandler(t *testing.T, completer ai.Completer) *AIHandler {
	t.Helper()
	l, _ := newTestLedger(t)
	return NewAIHandler(ai.NewAssistant(completer, zap.NewNop()), l, zap.NewNop())
}

func TestAIHandler_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		completer      ai.Completer
		wantConfigured bool
	}{
		{name: "configured", completer: replyWith("hi", nil), wantConfigured: true},
		{name: "setup required", completer: nil, wantConfigured: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newAIHandler(t, tt.completer)
			w := serve(h.RegisterRoutes, newTestRequest(http.MethodGet, "/ai/status", nil), "user-1")
			var status AIStatusResponse
			decodeEnvelope(t, w, &status)

			if status.Configured != tt.wantConfigured {
				t.Errorf("Expected configured=%v, got %v", tt.wantConfigured, status.Configured)
			}
			if status.WelcomeMessage != ai.WelcomeMessage("Ada", tt.wantConfigured) {
				t.Errorf("Unexpected welcome message %q", status.WelcomeMessage)
			}
			if (status.SetupMessage != "") == tt.wantConfigured {
				t.Errorf("Expected setup message only when unconfigured, got %q", status.SetupMessage)
			}
			if len(status.QuickActions) != 4 {
				t.Errorf("Expected 4 quick actions, got %d", len(status.QuickActions))
			}
		})
	}
}

func TestAIHandler_Chat(t *testing.T) {
	t.Parallel()

	goalReply := "**Goal Title:** Run 100km\n**Category:** fitness\n**Target:** 100 km\n**Sub-tasks:**\n1. Run 10km in week 1"

	tests := []struct {
		name         string
		completer    *mockCompleter
		body         any
		wantStatus   int
		wantFallback bool
		wantDraft    bool
		wantCalls    int32
	}{
		{
			name:       "reply",
			completer:  replyWith("Keep going!", nil),
			body:       map[string]any{"message": "I need motivation"},
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "reply proposing a goal",
			completer:  replyWith(goalReply, nil),
			body:       map[string]any{"message": "Help me create a new goal"},
			wantStatus: http.StatusOK,
			wantDraft:  true,
			wantCalls:  1,
		},
		{
			name:         "transport failure falls back",
			completer:    replyWith("", errors.New("dial tcp: timeout")),
			body:         map[string]any{"message": "hello"},
			wantStatus:   http.StatusOK,
			wantFallback: true,
			wantCalls:    1,
		},
		{
			name:       "blank message",
			completer:  replyWith("unused", nil),
			body:       map[string]any{"message": "   "},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing message",
			completer:  replyWith("unused", nil),
			body:       map[string]any{},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newAIHandler(t, tt.completer)
			w := serve(h.RegisterRoutes, newTestRequest(http.MethodPost, "/ai/chat", tt.body), "user-1")
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got := tt.completer.calls.Load(); got != tt.wantCalls {
				t.Errorf("Expected %d completion calls, got %d", tt.wantCalls, got)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp ChatResponse
			decodeEnvelope(t, w, &resp)
			if resp.Fallback != tt.wantFallback {
				t.Errorf("Expected fallback=%v, got %v", tt.wantFallback, resp.Fallback)
			}
			if tt.wantFallback && resp.Message != ai.FallbackReply {
				t.Errorf("Expected fallback reply, got %q", resp.Message)
			}
			if (resp.GoalDraft != nil) != tt.wantDraft {
				t.Errorf("Expected draft=%v, got %+v", tt.wantDraft, resp.GoalDraft)
			}
		})
	}
}

func TestAIHandler_SetupRequired(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(provider.Close)

	h := newAIHandler(t, ai.NewCompleter(ai.OpenAIConfig{BaseURL: provider.URL + "/"}))

	tests := []struct {
		path string
		body any
	}{
		{path: "/ai/chat", body: map[string]any{"message": "hi"}},
		{path: "/ai/subtasks", body: map[string]any{"title": "Run"}},
	}
	for _, tt := range tests {
		w := serve(h.RegisterRoutes, newTestRequest(http.MethodPost, tt.path, tt.body), "user-1")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", tt.path, w.Code)
			continue
		}
		env := decodeEnvelope(t, w, nil)
		if env.Message != ai.SetupRequiredMessage {
			t.Errorf("%s: expected setup message, got %q", tt.path, env.Message)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("Expected no requests at the provider, got %d", n)
	}
}

func TestAIHandler_GenerateSubtasks(t *testing.T) {
	t.Parallel()

	plan := `[{"title":"Week one","description":"Easy runs","daysFromStart":7},{"title":"Week two","daysFromStart":14}]`

	tests := []struct {
		name           string
		completer      *mockCompleter
		body           any
		wantStatus     int
		wantMessage    string
		wantRetryAfter string
		wantDates      []string
	}{
		{
			name:       "plan from draft start date",
			completer:  replyWith(plan, nil),
			body:       map[string]any{"title": "Run 100km", "target_value": 100, "start_date": "2024-01-01"},
			wantStatus: http.StatusOK,
			wantDates:  []string{"2024-01-08", "2024-01-15"},
		},
		{
			name:       "start date defaults to today",
			completer:  replyWith("```json\n"+plan+"\n```", nil),
			body:       map[string]any{"title": "Run 100km"},
			wantStatus: http.StatusOK,
			wantDates:  []string{"2024-06-22", "2024-06-29"},
		},
		{
			name:       "prose reply",
			completer:  replyWith("Sure! Start slow and build up.", nil),
			body:       map[string]any{"title": "Run 100km"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "transport failure",
			completer:  replyWith("", errors.New("status 500")),
			body:       map[string]any{"title": "Run 100km"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:        "provider quota exhausted",
			completer:   replyWith("", &ai.APIError{StatusCode: 429, Code: "insufficient_quota", IsPermanent: true}),
			body:        map[string]any{"title": "Run 100km"},
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: ai.QuotaExceededMessage,
		},
		{
			name:           "provider rate limit",
			completer:      replyWith("", &ai.APIError{StatusCode: 429}),
			body:           map[string]any{"title": "Run 100km"},
			wantStatus:     http.StatusTooManyRequests,
			wantMessage:    ai.RateLimitedMessage,
			wantRetryAfter: "60",
		},
		{
			name:       "missing title",
			completer:  replyWith(plan, nil),
			body:       map[string]any{"target_value": 5},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newAIHandler(t, tt.completer)
			w := serve(h.RegisterRoutes, newTestRequest(http.MethodPost, "/ai/subtasks", tt.body), "user-1")
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got := w.Header().Get("Retry-After"); got != tt.wantRetryAfter {
				t.Errorf("Expected Retry-After %q, got %q", tt.wantRetryAfter, got)
			}
			if tt.wantMessage != "" {
				if env := decodeEnvelope(t, w, nil); env.Message != tt.wantMessage {
					t.Errorf("Expected message %q, got %q", tt.wantMessage, env.Message)
				}
			}
			if tt.wantDates == nil {
				return
			}

			var resp SubtasksResponse
			decodeEnvelope(t, w, &resp)
			if len(resp.Subtasks) != len(tt.wantDates) {
				t.Fatalf("Expected %d sub-tasks, got %d", len(tt.wantDates), len(resp.Subtasks))
			}
			for i, want := range tt.wantDates {
				if got := resp.Subtasks[i].TargetDate.String(); got != want {
					t.Errorf("Sub-task %d: expected %s, got %s", i, want, got)
				}
			}
		})
	}
}

func TestAIHandler_RequestInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	completer := &mockCompleter{CompleteFunc: func(ctx context.Context, _ ai.CompletionRequest) (string, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "done", nil
	}}
	h := newAIHandler(t, completer)

	done := make(chan int, 1)
	go func() {
		w := serve(h.RegisterRoutes, newTestRequest(http.MethodPost, "/ai/chat", map[string]any{"message": "first"}), "user-1")
		done <- w.Code
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("First request never reached the completer")
	}

	w := serve(h.RegisterRoutes, newTestRequest(http.MethodPost, "/ai/chat", map[string]any{"message": "second"}), "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 while a request is pending, got %d", w.Code)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("Expected first request to succeed, got %d", code)
	}
	if got := completer.calls.Load(); got != 1 {
		t.Errorf("Expected a single completion call, got %d", got)
	}
}
