package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/queue"
	"github.com/benvon/goalquest/internal/request"
	"github.com/benvon/goalquest/internal/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*ledger.Ledger, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	l := ledger.New(database.NewGoalRepository(store), zap.NewNop(),
		ledger.WithClock(func() time.Time { return testNow }),
	)
	return l, store
}

func testUser(id string) *models.User {
	return &models.User{
		ID:        id,
		Email:     id + "@example.com",
		FirstName: "Ada",
		CreatedAt: testNow.AddDate(0, 0, -9),
	}
}

// serve routes req through a router built by register, authenticated as userID when non-empty
func serve(register func(*mux.Router), req *http.Request, userID string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	register(r)
	if userID != "" {
		req = req.WithContext(request.WithUser(req.Context(), testUser(userID)))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("Failed to decode data: %v", err)
		}
	}
	return env
}

type mockJobQueue struct {
	mu          sync.Mutex
	jobs        []*queue.Job
	EnqueueFunc func(ctx context.Context, job *queue.Job) error
}

var _ queue.JobQueue = (*mockJobQueue)(nil)

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.EnqueueFunc != nil {
		if err := m.EnqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobQueue) Consume(context.Context, int) (<-chan queue.MessageInterface, <-chan error, error) {
	return nil, nil, queue.ErrQueueUnavailable
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(context.Context) error { return nil }
