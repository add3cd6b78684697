// Package web provides HTTP handlers and REST API endpoints for curation runs.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/notifier"
	"github.com/pinfeed/curator/pkg/persistence"
	"github.com/pinfeed/curator/pkg/sessionlog"
	"github.com/pinfeed/curator/pkg/status"
	"github.com/pinfeed/curator/pkg/workflow"
)

// Runner executes one curation run. Satisfied by workflow.Orchestrator.
type Runner interface {
	Run(ctx context.Context, prompt *models.Prompt) *workflow.Result
}

type APIHandlers struct {
	persistence persistence.Persistence
	tracker     *status.Tracker
	sessions    *sessionlog.Log
	hub         *notifier.Hub
	runner      Runner
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	tracker *status.Tracker,
	sessions *sessionlog.Log,
	hub *notifier.Hub,
	runner Runner,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		tracker:     tracker,
		sessions:    sessions,
		hub:         hub,
		runner:      runner,
		validator:   validator,
		logger:      logger,
	}
}

// CreatePrompt accepts a prompt and starts its curation run in the
// background. The status record exists before this returns, so a
// status query immediately after the response never misses.
func (h *APIHandlers) CreatePrompt(c fiber.Ctx) error {
	var req CreatePromptRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	prompt := &models.Prompt{
		ID:        uuid.New().String(),
		Text:      req.Text,
		Status:    models.PromptStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.persistence.Prompts().Create(c.Context(), prompt); err != nil {
		return internalError(c, err)
	}

	if _, err := h.tracker.EnsureRecord(c.Context(), prompt.ID); err != nil {
		return internalError(c, err)
	}

	go func() {
		result := h.runner.Run(context.Background(), prompt)
		if !result.Success {
			h.logger.Error("Background curation run failed",
				"prompt_id", prompt.ID, "error", result.Error)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(CreatePromptResponse{
		PromptID: prompt.ID,
		Status:   prompt.Status,
		Message:  "Curation run accepted and scheduled",
	})
}

func (h *APIHandlers) GetPrompts(c fiber.Ctx) error {
	prompts, err := h.persistence.Prompts().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"prompts":     prompts,
		"total_count": len(prompts),
	})
}

func (h *APIHandlers) GetPrompt(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Prompt ID is required")
	}

	prompt, err := h.persistence.Prompts().GetByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(prompt)
}

// GetStatus returns the progress snapshot plus a recent-log excerpt of
// each phase session.
func (h *APIHandlers) GetStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Prompt ID is required")
	}

	prompt, err := h.persistence.Prompts().GetByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	snapshot, err := h.tracker.Progress(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	sessions, err := h.sessions.ListByPrompt(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	currentPhase := models.Stage("")

	for _, session := range sessions {
		summaries = append(summaries, TransformSessionSummary(session))
		currentPhase = session.Stage
	}

	return c.JSON(StatusResponse{
		PromptID:      snapshot.PromptID,
		Text:          prompt.Text,
		PromptStatus:  prompt.Status,
		CreatedAt:     prompt.CreatedAt,
		CurrentPhase:  currentPhase,
		OverallStatus: snapshot.OverallStatus,
		CurrentStep:   snapshot.CurrentStep,
		TotalSteps:    snapshot.TotalSteps,
		Progress:      snapshot.Progress,
		Messages:      snapshot.Messages,
		StartedAt:     snapshot.StartedAt,
		CompletedAt:   snapshot.CompletedAt,
		Sessions:      summaries,
	})
}

// GetResults returns the prompt's pins, optionally filtered by
// minimum score and status.
func (h *APIHandlers) GetResults(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Prompt ID is required")
	}

	if _, err := h.persistence.Prompts().GetByID(c.Context(), id); err != nil {
		return handleStoreError(c, err)
	}

	pins, err := h.persistence.Pins().ListByPrompt(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	pins, err = filterPins(c, pins)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	return c.JSON(ResultsResponse{
		PromptID: id,
		Summary:  models.Summarize(pins),
		Pins:     pins,
	})
}

func filterPins(c fiber.Ctx, pins []*models.Pin) ([]*models.Pin, error) {
	filtered := pins

	if minScoreStr := c.Query("min_score"); minScoreStr != "" {
		minScore, err := strconv.ParseFloat(minScoreStr, 64)
		if err != nil {
			return nil, err
		}

		kept := make([]*models.Pin, 0, len(filtered))

		for _, pin := range filtered {
			if pin.MatchScore != nil && *pin.MatchScore >= minScore {
				kept = append(kept, pin)
			}
		}

		filtered = kept
	}

	if statusStr := c.Query("status"); statusStr != "" {
		pinStatus := models.PinStatus(statusStr)
		kept := make([]*models.Pin, 0, len(filtered))

		for _, pin := range filtered {
			if pin.Status == pinStatus {
				kept = append(kept, pin)
			}
		}

		filtered = kept
	}

	return filtered, nil
}

func (h *APIHandlers) GetSessions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Prompt ID is required")
	}

	sessions, err := h.sessions.ListByPrompt(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"sessions":    sessions,
		"total_count": len(sessions),
	})
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	session, err := h.sessions.Get(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(session)
}

// UpdatePinStatus overrides a pin's verdict by hand. Only terminal
// verdicts are accepted; a pin cannot be moved back to ready.
func (h *APIHandlers) UpdatePinStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pin ID is required")
	}

	var req UpdatePinStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	pin, err := h.persistence.Pins().GetByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	pin.Status = models.PinStatus(req.Status)

	if err := h.persistence.Pins().Save(c.Context(), pin); err != nil {
		return internalError(c, err)
	}

	return c.JSON(pin)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	healthy := err == nil
	statusLabel := "healthy"
	message := "Curator API is healthy"
	httpStatus := http.StatusOK

	if !healthy {
		statusLabel = "unhealthy"
		message = "Curator API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  statusLabel,
		"message": message,
		"checkers": fiber.Map{
			"repository": healthy,
		},
		"timestamp": time.Now().UTC(),
	})
}
