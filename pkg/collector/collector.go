// Package collector defines the content-acquisition interface the
// workflow phases drive.
package collector

import (
	"context"

	"github.com/pinfeed/curator/pkg/models"
)

// Collector acquires and enriches pins for a prompt. WarmUp prepares
// whatever upstream state Collect needs; Enrich fills in metadata that
// collection left blank. Implementations may hold connections, so Close
// must always be called once a run finishes, successful or not.
type Collector interface {
	// WarmUp prepares the collector for a prompt. A WarmUp error is
	// fatal to the run.
	WarmUp(ctx context.Context, prompt *models.Prompt) error

	// Collect gathers up to maxPins candidate pins for the prompt.
	Collect(ctx context.Context, prompt *models.Prompt, maxPins int) ([]*models.Pin, error)

	// Enrich fills missing metadata in place and returns the number of
	// pins it changed.
	Enrich(ctx context.Context, prompt *models.Prompt, pins []*models.Pin) (int, error)

	// Close releases any resources held for the run.
	Close(ctx context.Context) error
}

// Factory builds a fresh collector per run.
type Factory func() (Collector, error)
