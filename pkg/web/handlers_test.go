package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/notifier"
	"github.com/pinfeed/curator/pkg/persistence/file"
	"github.com/pinfeed/curator/pkg/sessionlog"
	"github.com/pinfeed/curator/pkg/status"
	"github.com/pinfeed/curator/pkg/web"
	"github.com/pinfeed/curator/pkg/workflow"
)

// recordingRunner stands in for the orchestrator; it records the
// prompts handed to it instead of running phases.
type recordingRunner struct {
	mu      sync.Mutex
	prompts []*models.Prompt
}

func (r *recordingRunner) Run(_ context.Context, prompt *models.Prompt) *workflow.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts = append(r.prompts, prompt)

	return &workflow.Result{Success: true, PromptID: prompt.ID}
}

func (r *recordingRunner) runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.prompts)
}

type testEnv struct {
	app      *fiber.App
	store    *file.Persistence
	tracker  *status.Tracker
	sessions *sessionlog.Log
	runner   *recordingRunner
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.Default()
	tracker := status.NewTracker(store.StatusRecords(), logger)
	sessions := sessionlog.NewLog(store.Sessions(), logger)
	hub := notifier.NewHub(logger)
	runner := &recordingRunner{}

	handlers := web.NewAPIHandlers(
		store, tracker, sessions, hub, runner,
		validator.New(validator.WithRequiredStructEnabled()), logger)

	app := fiber.New()

	p := app.Group("/prompts")
	p.Post("/", handlers.CreatePrompt)
	p.Get("/", handlers.GetPrompts)
	p.Get("/:id", handlers.GetPrompt)
	p.Get("/:id/status", handlers.GetStatus)
	p.Get("/:id/results", handlers.GetResults)
	p.Get("/:id/sessions", handlers.GetSessions)

	app.Get("/sessions/:id", handlers.GetSession)
	app.Put("/pins/:id/status", handlers.UpdatePinStatus)
	app.Get("/health", handlers.HealthCheck)

	return &testEnv{app: app, store: store, tracker: tracker, sessions: sessions, runner: runner}
}

func (e *testEnv) request(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()

	var out T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func TestCreatePrompt(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodPost, "/prompts/", web.CreatePromptRequest{Text: "walnut desk"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	created := decodeBody[web.CreatePromptResponse](t, resp)
	assert.NotEmpty(t, created.PromptID)
	assert.Equal(t, models.PromptStatusPending, created.Status)
	assert.NotEmpty(t, created.Message)

	// The status record exists before the response is returned.
	snapshot, err := env.tracker.Progress(context.Background(), created.PromptID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, snapshot.OverallStatus)

	assert.Eventually(t, func() bool {
		return env.runner.runs() == 1
	}, time.Second, 10*time.Millisecond, "background run should start")
}

func TestCreatePromptRejectsShortText(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodPost, "/prompts/", web.CreatePromptRequest{Text: "ab"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.runner.runs())
}

func TestCreatePromptRejectsInvalidJSON(t *testing.T) {
	env := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/prompts/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPromptNotFound(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/prompts/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetStatusIncludesSessionExcerpts(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	promptID := createPrompt(t, env)

	_, err := env.tracker.EnsureRecord(ctx, promptID)
	require.NoError(t, err)
	_, err = env.tracker.Update(ctx, promptID, models.RunStatusRunning, "Collecting pins", nil)
	require.NoError(t, err)

	session, err := env.sessions.Create(ctx, promptID, models.StageCollection)
	require.NoError(t, err)

	for _, line := range []string{"one", "two", "three", "four"} {
		require.NoError(t, env.sessions.Append(ctx, session.ID, line))
	}

	resp := env.request(t, http.MethodGet, "/prompts/"+promptID+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[web.StatusResponse](t, resp)
	assert.Equal(t, promptID, body.PromptID)
	assert.Equal(t, "walnut desk", body.Text)
	assert.Equal(t, models.StageCollection, body.CurrentPhase)
	assert.Equal(t, models.RunStatusRunning, body.OverallStatus)
	assert.Equal(t, []string{"Collecting pins"}, body.Messages)
	require.Len(t, body.Sessions, 1)
	// Only the most recent log lines are included.
	require.Len(t, body.Sessions[0].RecentLog, 3)
	assert.Contains(t, body.Sessions[0].RecentLog[2], "four")
}

func TestGetStatusUnknownPrompt(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/prompts/"+uuid.New().String()+"/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func seedPins(t *testing.T, env *testEnv, promptID string) {
	t.Helper()

	scores := []struct {
		score  float64
		status models.PinStatus
	}{
		{0.82, models.PinStatusApproved},
		{0.3, models.PinStatusDisqualified},
		{0.91, models.PinStatusApproved},
	}

	pins := make([]*models.Pin, 0, len(scores))

	for i, s := range scores {
		score := s.score
		pins = append(pins, &models.Pin{
			ID:          uuid.New().String(),
			PromptID:    promptID,
			PinURL:      "https://pins.example.com/pin/" + uuid.New().String(),
			MatchScore:  &score,
			Status:      s.status,
			CollectedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		})
	}

	require.NoError(t, env.store.Pins().CreateBatch(context.Background(), pins))
}

func createPrompt(t *testing.T, env *testEnv) string {
	t.Helper()

	prompt := &models.Prompt{
		ID:        uuid.New().String(),
		Text:      "walnut desk",
		Status:    models.PromptStatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, env.store.Prompts().Create(context.Background(), prompt))

	return prompt.ID
}

func TestGetResults(t *testing.T) {
	env := setupTestApp(t)
	promptID := createPrompt(t, env)
	seedPins(t, env, promptID)

	resp := env.request(t, http.MethodGet, "/prompts/"+promptID+"/results", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[web.ResultsResponse](t, resp)
	assert.Equal(t, 3, body.Summary.Total)
	assert.Equal(t, 2, body.Summary.Approved)
	assert.Equal(t, 1, body.Summary.Disqualified)
	assert.Len(t, body.Pins, 3)
}

func TestGetResultsFiltered(t *testing.T) {
	env := setupTestApp(t)
	promptID := createPrompt(t, env)
	seedPins(t, env, promptID)

	resp := env.request(t, http.MethodGet, "/prompts/"+promptID+"/results?min_score=0.5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[web.ResultsResponse](t, resp)
	assert.Len(t, body.Pins, 2)

	resp = env.request(t, http.MethodGet, "/prompts/"+promptID+"/results?status=disqualified", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = decodeBody[web.ResultsResponse](t, resp)
	require.Len(t, body.Pins, 1)
	assert.Equal(t, models.PinStatusDisqualified, body.Pins[0].Status)
}

func TestGetResultsBadQuery(t *testing.T) {
	env := setupTestApp(t)
	promptID := createPrompt(t, env)

	resp := env.request(t, http.MethodGet, "/prompts/"+promptID+"/results?min_score=high", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdatePinStatus(t *testing.T) {
	env := setupTestApp(t)
	promptID := createPrompt(t, env)
	seedPins(t, env, promptID)

	pins, err := env.store.Pins().ListByPrompt(context.Background(), promptID)
	require.NoError(t, err)

	var target *models.Pin

	for _, pin := range pins {
		if pin.Status == models.PinStatusDisqualified {
			target = pin
		}
	}

	require.NotNil(t, target)

	resp := env.request(t, http.MethodPut, "/pins/"+target.ID+"/status",
		web.UpdatePinStatusRequest{Status: "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeBody[models.Pin](t, resp)
	assert.Equal(t, models.PinStatusApproved, updated.Status)
}

func TestUpdatePinStatusRejectsReady(t *testing.T) {
	env := setupTestApp(t)
	promptID := createPrompt(t, env)
	seedPins(t, env, promptID)

	pins, err := env.store.Pins().ListByPrompt(context.Background(), promptID)
	require.NoError(t, err)

	resp := env.request(t, http.MethodPut, "/pins/"+pins[0].ID+"/status",
		web.UpdatePinStatusRequest{Status: "ready"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSession(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, uuid.New().String(), models.StageWarmup)
	require.NoError(t, err)

	resp := env.request(t, http.MethodGet, "/sessions/"+session.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[models.Session](t, resp)
	assert.Equal(t, session.ID, body.ID)
	assert.Equal(t, models.StageWarmup, body.Stage)
}

func TestHealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp := env.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
