// Package workflow drives a prompt through the curation phases and
// keeps status, sessions and observers in sync.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pinfeed/curator/pkg/collector"
	"github.com/pinfeed/curator/pkg/evaluator"
	"github.com/pinfeed/curator/pkg/eventbus"
	"github.com/pinfeed/curator/pkg/events"
	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/otelhelper"
	"github.com/pinfeed/curator/pkg/persistence"
	"github.com/pinfeed/curator/pkg/sessionlog"
	"github.com/pinfeed/curator/pkg/status"
)

// Progress percentages reported as each phase completes. Step counters
// advance separately with every status message.
const (
	progressInitialize = 10.0
	progressWarmup     = 25.0
	progressCollect    = 55.0
	progressEnrich     = 70.0
	progressEvalStart  = 75.0
	progressEvalEnd    = 95.0
	progressDone       = 100.0
)

// DefaultMaxPins caps collection when no limit is configured.
const DefaultMaxPins = 50

// Result summarizes one curation run.
type Result struct {
	Success      bool
	PromptID     string
	PinCount     int
	Evaluated    int
	Approved     int
	Disqualified int
	Skipped      int
	Error        string
}

// Orchestrator executes the phase sequence for a prompt: warmup,
// collection, enrichment, evaluation. Phases run strictly in order and
// the first failure aborts the run, leaving earlier phases' sessions
// untouched. The run never finishes with a non-terminal status.
type Orchestrator struct {
	persistence      persistence.Persistence
	tracker          *status.Tracker
	sessions         *sessionlog.Log
	collectorFactory collector.Factory
	evaluator        evaluator.Evaluator
	publisher        eventbus.EventPublisher
	tracer           trace.Tracer
	logger           *slog.Logger
	maxPins          int
}

type Config struct {
	Persistence      persistence.Persistence
	Tracker          *status.Tracker
	Sessions         *sessionlog.Log
	CollectorFactory collector.Factory
	Evaluator        evaluator.Evaluator
	Publisher        eventbus.EventPublisher
	Tracer           trace.Tracer
	Logger           *slog.Logger
	MaxPins          int
}

func NewOrchestrator(cfg Config) *Orchestrator {
	maxPins := cfg.MaxPins
	if maxPins <= 0 {
		maxPins = DefaultMaxPins
	}

	return &Orchestrator{
		persistence:      cfg.Persistence,
		tracker:          cfg.Tracker,
		sessions:         cfg.Sessions,
		collectorFactory: cfg.CollectorFactory,
		evaluator:        cfg.Evaluator,
		publisher:        cfg.Publisher,
		tracer:           cfg.Tracer,
		logger:           cfg.Logger,
		maxPins:          maxPins,
	}
}

// Run executes the full phase sequence for a prompt. It always returns
// a result; failures are reported in Result.Error and through the
// status record, not by a panic or a half-updated state.
func (o *Orchestrator) Run(ctx context.Context, prompt *models.Prompt) (result *Result) {
	result = &Result{PromptID: prompt.ID}
	logger := o.logger.With("prompt_id", prompt.ID)

	ctx, span := o.startSpan(ctx, "workflow.run",
		attribute.String(otelhelper.PromptIDKey, prompt.ID))
	defer o.endSpan(span)

	if _, err := o.tracker.EnsureRecord(ctx, prompt.ID); err != nil {
		return o.abort(ctx, result, span, fmt.Errorf("failed to initialize status: %w", err))
	}

	o.emitStatus(ctx, prompt.ID, models.RunStatusRunning, "Starting curation run", progressInitialize)

	if err := o.persistence.Prompts().UpdateStatus(ctx, prompt.ID, models.PromptStatusRunning); err != nil {
		return o.abort(ctx, result, span, fmt.Errorf("failed to mark prompt running: %w", err))
	}

	run, err := o.newRunState(ctx, prompt, logger)
	if err != nil {
		return o.abort(ctx, result, span, err)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Curation run panicked", "panic", r)
			result = o.abort(ctx, result, span, fmt.Errorf("curation run panicked: %v", r))
		}

		run.close(ctx)
	}()

	pins, err := o.runAcquisition(ctx, run, result)
	if err != nil {
		return o.abort(ctx, result, span, err)
	}

	if err := o.evaluate(ctx, run, pins, result); err != nil {
		return o.abort(ctx, result, span, err)
	}

	summary := models.Summarize(pins)
	result.Approved = summary.Approved
	result.Disqualified = summary.Disqualified
	result.Success = true

	o.emitStatus(ctx, prompt.ID, models.RunStatusCompleted,
		fmt.Sprintf("Curation complete: %d approved, %d disqualified of %d pins",
			summary.Approved, summary.Disqualified, summary.Total),
		progressDone)

	if err := o.persistence.Prompts().UpdateStatus(ctx, prompt.ID, models.PromptStatusCompleted); err != nil {
		logger.ErrorContext(ctx, "Failed to mark prompt completed", "error", err)
	}

	logger.InfoContext(ctx, "Curation run finished",
		"approved", summary.Approved, "disqualified", summary.Disqualified, "skipped", result.Skipped)

	return result
}

// runState carries the per-run collector and the session shared by the
// collection and enrichment phases.
type runState struct {
	prompt        *models.Prompt
	collector     collector.Collector
	sharedSession *models.Session
	logger        *slog.Logger
	closed        bool
}

func (o *Orchestrator) newRunState(_ context.Context, prompt *models.Prompt, logger *slog.Logger) (*runState, error) {
	c, err := o.collectorFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to build collector: %w", err)
	}

	return &runState{prompt: prompt, collector: c, logger: logger}, nil
}

func (r *runState) close(ctx context.Context) {
	if r.closed {
		return
	}

	r.closed = true

	if err := r.collector.Close(ctx); err != nil {
		r.logger.WarnContext(ctx, "Collector close failed", "error", err)
	}
}

// runAcquisition covers warmup, collection and enrichment. Collection
// and enrichment share one session whose stage advances in place.
func (o *Orchestrator) runAcquisition(ctx context.Context, run *runState, result *Result) ([]*models.Pin, error) {
	if err := o.warmup(ctx, run); err != nil {
		return nil, err
	}

	pins, err := o.collect(ctx, run, result)
	if err != nil {
		return nil, err
	}

	if err := o.enrich(ctx, run, pins); err != nil {
		return nil, err
	}

	return pins, nil
}

// warmup prepares the collector in its own session. Any warmup failure
// is fatal to the run.
func (o *Orchestrator) warmup(ctx context.Context, run *runState) error {
	ctx, span := o.startSpan(ctx, "workflow.warmup",
		attribute.String(otelhelper.PromptIDKey, run.prompt.ID),
		attribute.String(otelhelper.PhaseKey, string(models.StageWarmup)))
	defer o.endSpan(span)

	session, err := o.sessions.Create(ctx, run.prompt.ID, models.StageWarmup)
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}

	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning, "Warming up collector", nil)

	if err := run.collector.WarmUp(ctx, run.prompt); err != nil {
		o.failSession(ctx, session, err)

		return fmt.Errorf("warmup: %w", err)
	}

	o.appendSession(ctx, session, "warmup complete")
	o.readySession(ctx, session)
	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning, "Warmup complete", progressWarmup)

	return nil
}

// collect gathers pins into the shared acquisition session. An empty
// collection fails the run.
func (o *Orchestrator) collect(ctx context.Context, run *runState, result *Result) ([]*models.Pin, error) {
	ctx, span := o.startSpan(ctx, "workflow.collect",
		attribute.String(otelhelper.PromptIDKey, run.prompt.ID),
		attribute.String(otelhelper.PhaseKey, string(models.StageCollection)))
	defer o.endSpan(span)

	session, err := o.sessions.Create(ctx, run.prompt.ID, models.StageCollection)
	if err != nil {
		return nil, fmt.Errorf("collection: %w", err)
	}

	run.sharedSession = session

	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning, "Collecting pins", nil)

	pins, err := run.collector.Collect(ctx, run.prompt, o.maxPins)
	if err != nil {
		o.failSession(ctx, session, err)

		return nil, fmt.Errorf("collection: %w", err)
	}

	if len(pins) == 0 {
		err := fmt.Errorf("no pins collected for prompt %s", run.prompt.ID)
		o.failSession(ctx, session, err)

		return nil, fmt.Errorf("collection: %w", err)
	}

	if err := o.persistence.Pins().CreateBatch(ctx, pins); err != nil {
		o.failSession(ctx, session, err)

		return nil, fmt.Errorf("collection: %w", err)
	}

	result.PinCount = len(pins)

	if span != nil {
		span.SetAttributes(attribute.Int(otelhelper.PinCountKey, len(pins)))
	}

	o.appendSession(ctx, session, fmt.Sprintf("collected %d pins", len(pins)))
	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning,
		fmt.Sprintf("Collected %d pins", len(pins)), progressCollect)

	return pins, nil
}

// enrich reuses the collection session, advancing its stage in place.
func (o *Orchestrator) enrich(ctx context.Context, run *runState, pins []*models.Pin) error {
	ctx, span := o.startSpan(ctx, "workflow.enrich",
		attribute.String(otelhelper.PromptIDKey, run.prompt.ID),
		attribute.String(otelhelper.PhaseKey, string(models.StageEnrichment)))
	defer o.endSpan(span)

	session := run.sharedSession

	if err := o.sessions.SetStage(ctx, session.ID, models.StageEnrichment); err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}

	session.Stage = models.StageEnrichment
	o.emitSession(ctx, session)
	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning, "Enriching pin metadata", nil)

	enriched, err := run.collector.Enrich(ctx, run.prompt, pins)
	if err != nil {
		o.failSession(ctx, session, err)

		return fmt.Errorf("enrichment: %w", err)
	}

	for _, pin := range pins {
		if err := o.persistence.Pins().Save(ctx, pin); err != nil {
			o.failSession(ctx, session, err)

			return fmt.Errorf("enrichment: %w", err)
		}
	}

	o.appendSession(ctx, session, fmt.Sprintf("enriched %d pins", enriched))
	o.readySession(ctx, session)
	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning,
		fmt.Sprintf("Enriched %d pins", enriched), progressEnrich)

	return nil
}

// evaluate scores every pin in its own session. A pin the evaluator
// cannot judge is skipped; only infrastructure failures abort the
// phase. Progress ramps across the phase as pins complete.
func (o *Orchestrator) evaluate(ctx context.Context, run *runState, pins []*models.Pin, result *Result) error {
	ctx, span := o.startSpan(ctx, "workflow.evaluate",
		attribute.String(otelhelper.PromptIDKey, run.prompt.ID),
		attribute.String(otelhelper.PhaseKey, string(models.StageEvaluation)))
	defer o.endSpan(span)

	session, err := o.sessions.Create(ctx, run.prompt.ID, models.StageEvaluation)
	if err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}

	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning, "Evaluating pins", progressEvalStart)

	for i, pin := range pins {
		verdict, err := o.evaluator.Evaluate(ctx, run.prompt, pin)
		if err != nil {
			result.Skipped++
			o.appendSession(ctx, session, fmt.Sprintf("skipped pin %s: %v", pin.ID, err))
			run.logger.WarnContext(ctx, "Skipping unevaluable pin", "pin_id", pin.ID, "error", err)

			continue
		}

		score := verdict.Score
		pin.MatchScore = &score
		pin.Explanation = verdict.Rationale

		if verdict.Approved {
			pin.Status = models.PinStatusApproved
		} else {
			pin.Status = models.PinStatusDisqualified
		}

		if err := o.persistence.Pins().Save(ctx, pin); err != nil {
			o.failSession(ctx, session, err)

			return fmt.Errorf("evaluation: %w", err)
		}

		result.Evaluated++

		progress := progressEvalStart +
			(progressEvalEnd-progressEvalStart)*float64(i+1)/float64(len(pins))
		o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning, "", progress)
	}

	o.appendSession(ctx, session,
		fmt.Sprintf("evaluated %d pins, skipped %d", result.Evaluated, result.Skipped))
	o.readySession(ctx, session)
	o.emitStatus(ctx, run.prompt.ID, models.RunStatusRunning,
		fmt.Sprintf("Evaluated %d pins", result.Evaluated), progressEvalEnd)

	return nil
}

// abort records a terminal failure. The status record ends failed, the
// prompt ends in error; sessions completed before the failing phase are
// left as they finished.
func (o *Orchestrator) abort(ctx context.Context, result *Result, span trace.Span, err error) *Result {
	result.Success = false
	result.Error = err.Error()

	if span != nil {
		otelhelper.SetError(span, err)
	}

	o.logger.ErrorContext(ctx, "Curation run failed",
		"prompt_id", result.PromptID, "error", err)

	o.emitStatus(ctx, result.PromptID, models.RunStatusFailed,
		fmt.Sprintf("Run failed: %v", err), nil)

	if updateErr := o.persistence.Prompts().UpdateStatus(ctx, result.PromptID, models.PromptStatusError); updateErr != nil {
		o.logger.ErrorContext(ctx, "Failed to mark prompt errored",
			"prompt_id", result.PromptID, "error", updateErr)
	}

	return result
}

// emitStatus applies a status update, then broadcasts the resulting
// snapshot. Progress accepts a float64 or nil (via untyped constants).
func (o *Orchestrator) emitStatus(ctx context.Context, promptID string, overall models.RunStatus, message string, progress any) {
	var progressPtr *float64

	if value, ok := progress.(float64); ok {
		progressPtr = &value
	}

	if _, err := o.tracker.Update(ctx, promptID, overall, message, progressPtr); err != nil {
		o.logger.ErrorContext(ctx, "Status update failed", "prompt_id", promptID, "error", err)

		return
	}

	snapshot, err := o.tracker.Progress(ctx, promptID)
	if err != nil {
		o.logger.ErrorContext(ctx, "Status read-back failed", "prompt_id", promptID, "error", err)

		return
	}

	o.publish(ctx, promptID, &events.StatusUpdated{
		BaseEvent: events.NewBaseEvent(events.StatusUpdatedEvent, promptID),
		Snapshot:  *snapshot,
	})
}

func (o *Orchestrator) emitSession(ctx context.Context, session *models.Session) {
	o.publish(ctx, session.PromptID, &events.SessionUpdated{
		BaseEvent: events.NewBaseEvent(events.SessionUpdatedEvent, session.PromptID),
		Session:   session,
	})
}

func (o *Orchestrator) publish(ctx context.Context, promptID string, event eventbus.Event) {
	if o.publisher == nil {
		return
	}

	if err := o.publisher.Publish(ctx, promptID, event); err != nil {
		o.logger.ErrorContext(ctx, "Event publish failed",
			"prompt_id", promptID, "event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) appendSession(ctx context.Context, session *models.Session, message string) {
	if err := o.sessions.Append(ctx, session.ID, message); err != nil {
		o.logger.WarnContext(ctx, "Session log append failed",
			"session_id", session.ID, "error", err)
	}
}

func (o *Orchestrator) readySession(ctx context.Context, session *models.Session) {
	if err := o.sessions.SetStatus(ctx, session.ID, models.SessionStatusReady); err != nil {
		o.logger.WarnContext(ctx, "Session status update failed",
			"session_id", session.ID, "error", err)

		return
	}

	session.Status = models.SessionStatusReady
	o.emitSession(ctx, session)
}

func (o *Orchestrator) failSession(ctx context.Context, session *models.Session, cause error) {
	o.appendSession(ctx, session, fmt.Sprintf("failed: %v", cause))

	if err := o.sessions.SetStatus(ctx, session.ID, models.SessionStatusFailed); err != nil {
		o.logger.WarnContext(ctx, "Session status update failed",
			"session_id", session.ID, "error", err)

		return
	}

	session.Status = models.SessionStatusFailed
	o.emitSession(ctx, session)
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, nil
	}

	return otelhelper.StartSpan(ctx, o.tracer, name, attrs...)
}

func (o *Orchestrator) endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}
