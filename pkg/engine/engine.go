// Package engine evaluates domain events against automation workflow graphs
// and records a replayable execution trace. It is invoked inline by event
// producers and out-of-process by the background worker; both paths pass an
// explicit tenant-scoped persistence handle, the engine never resolves one.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/conditions"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/otelhelper"
	"github.com/radiflow/radiflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the automation evaluator. It is stateless across evaluations:
// everything per-run lives on the traversal.
type Engine struct {
	logger     *slog.Logger
	registry   *actions.Registry
	conditions *conditions.Registry
	clock      func() time.Time
	tracer     trace.Tracer
}

// New creates an engine over the given action and condition registries.
func New(logger *slog.Logger, registry *actions.Registry, condRegistry *conditions.Registry) *Engine {
	return &Engine{
		logger:     logger.With("module", "engine"),
		registry:   registry,
		conditions: condRegistry,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the UTC clock, used by tests for deterministic timing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock

	return e
}

// WithTracer enables span emission per evaluation.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// FireEvent is the single entry point for every producer of domain events.
// Matching automations are evaluated sequentially; a fault in one automation
// never prevents evaluation of its siblings, and nothing propagates back to
// the producer short of the automation listing itself failing.
func (e *Engine) FireEvent(ctx context.Context, store persistence.Persistence, event *models.AutomationEvent) error {
	logger := e.logger.With("trigger_type", event.TriggerType, "subject", event.SubjectName)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.fire_event",
			attribute.String(otelhelper.TriggerTypeKey, event.TriggerType))
		defer span.End()
	}

	automations, err := store.Automations().ListRunnable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list automations: %w", err)
	}

	logger.Debug("Evaluating event against automations", "count", len(automations))

	for _, automation := range automations {
		e.fireAutomation(ctx, store, automation, event, logger)
	}

	return nil
}

// fireAutomation evaluates one automation, swallowing every fault at this
// boundary so siblings still run.
func (e *Engine) fireAutomation(
	ctx context.Context,
	store persistence.Persistence,
	automation *models.Automation,
	event *models.AutomationEvent,
	logger *slog.Logger,
) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Automation evaluation panicked",
				"automation_id", automation.ID, "panic", r)
		}
	}()

	def, err := automation.ParseWorkflow()
	if err != nil {
		// Malformed workflows are skipped for this automation only.
		logger.Warn("Skipping automation with malformed workflow",
			"automation_id", automation.ID, "error", err)

		return
	}

	triggers := def.TriggerNodes(event.TriggerType)
	if len(triggers) == 0 {
		return
	}

	err = e.evaluate(ctx, store, automation, def, triggers, event)
	if err != nil {
		logger.Error("Automation evaluation failed",
			"automation_id", automation.ID, "error", err)
	}
}

// RunScheduled is the re-entry point for the job scheduler: it evaluates
// exactly the owning automation through the same core as FireEvent. Unlike
// the live path, a failure is returned once so the scheduler can apply its
// own retry policy; there is no sibling evaluation to protect here.
func (e *Engine) RunScheduled(ctx context.Context, store persistence.Persistence, automationID string, event *models.AutomationEvent) error {
	automation, err := store.Automations().GetByID(ctx, automationID)
	if err != nil {
		return fmt.Errorf("failed to load scheduled automation %s: %w", automationID, err)
	}

	if !automation.Runnable() {
		e.logger.Info("Skipping scheduled run of non-runnable automation",
			"automation_id", automationID, "status", automation.Status)

		return nil
	}

	def, err := automation.ParseWorkflow()
	if err != nil {
		return fmt.Errorf("scheduled automation %s has malformed workflow: %w", automationID, err)
	}

	triggers := def.TriggerNodes(event.TriggerType)
	if len(triggers) == 0 {
		e.logger.Warn("Scheduled automation has no scheduled trigger node",
			"automation_id", automationID)

		return nil
	}

	return e.evaluate(ctx, store, automation, def, triggers, event)
}

// evaluate runs one (automation, event) evaluation: creates the log, walks
// the graph from every matched trigger sharing one visited set, then
// finalizes. A panic escaping node-level guards is converted to an error
// here.
func (e *Engine) evaluate(
	ctx context.Context,
	store persistence.Persistence,
	automation *models.Automation,
	def *models.WorkflowDefinition,
	triggers []*models.WorkflowNode,
	event *models.AutomationEvent,
) (err error) {
	logger := e.logger.With(
		"automation_id", automation.ID,
		"automation_title", automation.Title,
		"trigger_type", event.TriggerType,
	)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.evaluate",
			attribute.String(otelhelper.AutomationIDKey, automation.ID),
			attribute.String(otelhelper.TriggerTypeKey, event.TriggerType))
		defer span.End()
	}

	rec := newRecorder(store, logger, e.clock, automation, event)

	err = rec.begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}

		rec.finalize(ctx)
	}()

	t := &traversal{
		engine:  e,
		store:   store,
		event:   event,
		def:     def,
		rec:     rec,
		vars:    actions.TemplateVars(event, e.clock()),
		logger:  logger,
		visited: make(map[string]bool),
	}

	for _, trigger := range triggers {
		t.walk(ctx, trigger)
	}

	return nil
}
