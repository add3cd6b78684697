// Package reconciler periodically sweeps duplicate status records out
// of the store. Duplicates only appear on stores without a uniqueness
// guarantee, so the sweep is cheap in the common case.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/pinfeed/curator/pkg/status"
)

// DefaultSchedule runs the sweep every ten minutes.
const DefaultSchedule = "*/10 * * * *"

type Reconciler struct {
	tracker *status.Tracker
	logger  *slog.Logger
	cron    *cron.Cron
}

func NewReconciler(tracker *status.Tracker, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		tracker: tracker,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the sweep. An empty schedule uses the default.
func (r *Reconciler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	_, err := r.cron.AddFunc(schedule, r.sweep)
	if err != nil {
		return fmt.Errorf("invalid reconciliation schedule %q: %w", schedule, err)
	}

	r.cron.Start()
	r.logger.Info("Status reconciliation scheduled", "schedule", schedule)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Reconciler) sweep() {
	ctx := context.Background()

	removed, err := r.tracker.ReconcileAll(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Status reconciliation sweep failed", "error", err)

		return
	}

	if removed > 0 {
		r.logger.InfoContext(ctx, "Status reconciliation sweep finished", "removed", removed)
	}
}
