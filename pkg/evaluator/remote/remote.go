// Package remote delegates pin scoring to an external HTTP service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pinfeed/curator/pkg/evaluator"
	"github.com/pinfeed/curator/pkg/models"
)

const defaultTimeout = 30 * time.Second

type scoreRequest struct {
	Prompt      string `json:"prompt"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	PinURL      string `json:"pin_url"`
}

type scoreResponse struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// Evaluator posts each pin to a scoring endpoint and maps the returned
// score to a verdict. Transient server errors are retried.
type Evaluator struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	attempts int
	delay    time.Duration
}

func NewEvaluator(endpoint string, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger,
		attempts: 3,
		delay:    time.Second,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, prompt *models.Prompt, pin *models.Pin) (*evaluator.Verdict, error) {
	payload, err := json.Marshal(scoreRequest{
		Prompt:      prompt.Text,
		Title:       pin.Title,
		Description: pin.Description,
		ImageURL:    pin.ImageURL,
		PinURL:      pin.PinURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scoring request: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			e.logger.InfoContext(ctx, "Retrying scoring request",
				"pin_id", pin.ID, "attempt", attempt)

			select {
			case <-time.After(e.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		verdict, retryable, err := e.score(ctx, payload)
		if err == nil {
			return verdict, nil
		}

		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("scoring pin %s failed: %w", pin.ID, lastErr)
}

func (e *Evaluator) score(ctx context.Context, payload []byte) (*evaluator.Verdict, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create scoring request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("scoring service error (status %d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("scoring service rejected request (status %d)", resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("failed to decode scoring response: %w", err)
	}

	return &evaluator.Verdict{
		Score:     body.Score,
		Approved:  body.Score >= models.ApprovalThreshold,
		Rationale: body.Rationale,
	}, false, nil
}
