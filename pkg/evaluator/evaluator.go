// Package evaluator defines relevance scoring for collected pins.
package evaluator

import (
	"context"

	"github.com/pinfeed/curator/pkg/models"
)

// Verdict is the outcome of scoring one pin against a prompt.
type Verdict struct {
	Score     float64 `json:"score"`
	Approved  bool    `json:"approved"`
	Rationale string  `json:"rationale"`
}

// Evaluator scores a pin's relevance to a prompt. An error means this
// pin could not be judged; callers skip the pin and keep going.
type Evaluator interface {
	Evaluate(ctx context.Context, prompt *models.Prompt, pin *models.Pin) (*Verdict, error)
}
