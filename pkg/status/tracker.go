// Package status maintains the single progress record per curation run.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

// Tracker owns all StatusRecord mutation. Creation is idempotent: a
// losing racer finds the winner's record instead of inserting a second
// one. Stores without a unique constraint can still accumulate
// duplicates under crash timing, so every ensure starts with a
// reconciliation pass.
type Tracker struct {
	repo   persistence.StatusRepository
	logger *slog.Logger

	// Serializes read-modify-write cycles within this process. The
	// orchestrator is the single writer per prompt; this only guards
	// against stray concurrent initialization calls.
	mu sync.Mutex
}

func NewTracker(repo persistence.StatusRepository, logger *slog.Logger) *Tracker {
	return &Tracker{repo: repo, logger: logger}
}

// EnsureRecord returns the id of the prompt's status record, creating it
// with zero counters and pending status when absent. Pre-existing
// duplicates are reconciled before lookup.
func (t *Tracker) EnsureRecord(ctx context.Context, promptID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.ensureLocked(ctx, promptID)
	if err != nil {
		return "", err
	}

	return record.ID, nil
}

func (t *Tracker) ensureLocked(ctx context.Context, promptID string) (*models.StatusRecord, error) {
	_, err := t.reconcileLocked(ctx, promptID)
	if err != nil {
		return nil, err
	}

	record, err := t.repo.GetByPrompt(ctx, promptID)
	if err == nil {
		return record, nil
	}

	if !persistence.IsStatusNotFound(err) {
		return nil, err
	}

	record = &models.StatusRecord{
		ID:            uuid.New().String(),
		PromptID:      promptID,
		OverallStatus: models.RunStatusPending,
		Messages:      []string{},
		StartedAt:     time.Now().UTC(),
	}

	err = t.repo.Insert(ctx, record)
	if persistence.IsStatusAlreadyExists(err) {
		// Lost the insert race; the winner's record is the live one.
		return t.repo.GetByPrompt(ctx, promptID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create status record for prompt %s: %w", promptID, err)
	}

	return record, nil
}

// Update applies a status change. The overall status is always
// overwritten. A non-empty message is appended and bumps the step
// counter, raising total_steps whenever it falls behind. A non-nil
// progress overwrites the percentage unconditionally; steps and
// percentage are independent signals and are never derived from each
// other. Returns whether the stored record was modified.
func (t *Tracker) Update(ctx context.Context, promptID string, overall models.RunStatus, message string, progress *float64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.ensureLocked(ctx, promptID)
	if err != nil {
		return false, err
	}

	record.OverallStatus = overall

	if message != "" {
		record.Messages = append(record.Messages, message)
		record.CurrentStep++

		if record.TotalSteps < record.CurrentStep {
			record.TotalSteps = record.CurrentStep
		}
	}

	if progress != nil {
		record.Progress = *progress
	}

	if overall == models.RunStatusCompleted && record.CompletedAt == nil {
		now := time.Now().UTC()
		record.CompletedAt = &now
	}

	err = t.repo.Save(ctx, record)
	if err != nil {
		return false, fmt.Errorf("failed to save status record for prompt %s: %w", promptID, err)
	}

	return true, nil
}

// Progress returns the read-only projection used by status queries and
// observer catch-up.
func (t *Tracker) Progress(ctx context.Context, promptID string) (*models.StatusSnapshot, error) {
	record, err := t.repo.GetByPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	snapshot := record.Snapshot()

	return &snapshot, nil
}

// Reconcile removes duplicate status records for a prompt, keeping the
// one with the most message history and breaking ties by the most recent
// start time. Returns the number of records removed.
func (t *Tracker) Reconcile(ctx context.Context, promptID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.reconcileLocked(ctx, promptID)
}

func (t *Tracker) reconcileLocked(ctx context.Context, promptID string) (int, error) {
	records, err := t.repo.ListByPrompt(ctx, promptID)
	if err != nil {
		return 0, err
	}

	if len(records) <= 1 {
		return 0, nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		if len(records[i].Messages) != len(records[j].Messages) {
			return len(records[i].Messages) > len(records[j].Messages)
		}

		return records[i].StartedAt.After(records[j].StartedAt)
	})

	removed := 0

	for _, record := range records[1:] {
		err = t.repo.Delete(ctx, record.ID)
		if err != nil {
			return removed, fmt.Errorf("failed to remove duplicate status record %s: %w", record.ID, err)
		}

		removed++
	}

	t.logger.InfoContext(ctx, "Reconciled duplicate status records",
		"prompt_id", promptID, "kept", records[0].ID, "removed", removed)

	return removed, nil
}

// ReconcileAll sweeps every known prompt. Used by the periodic cleanup job.
func (t *Tracker) ReconcileAll(ctx context.Context) (int, error) {
	promptIDs, err := t.repo.PromptIDs(ctx)
	if err != nil {
		return 0, err
	}

	total := 0

	for _, promptID := range promptIDs {
		removed, err := t.Reconcile(ctx, promptID)
		if err != nil {
			return total, err
		}

		total += removed
	}

	return total, nil
}
