package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// recorder persists the execution trace of one evaluation. The log row is
// created before traversal starts so partial progress is observable, and
// counters are updated live as steps complete. Step writes are best-effort:
// a persistence fault is logged and traversal continues, and finalization is
// always attempted so at least the automation-level record survives.
type recorder struct {
	store  persistence.Persistence
	logger *slog.Logger
	clock  func() time.Time

	log *models.ExecutionLog
	seq int
}

func newRecorder(
	store persistence.Persistence,
	logger *slog.Logger,
	clock func() time.Time,
	automation *models.Automation,
	event *models.AutomationEvent,
) *recorder {
	return &recorder{
		store:  store,
		logger: logger,
		clock:  clock,
		log: &models.ExecutionLog{
			ID:            uuid.New().String(),
			AutomationID:  automation.ID,
			TriggerType:   event.TriggerType,
			Status:        models.ExecutionStatusRunning,
			Context:       event.Context,
			CorrelationID: "evt-" + uuid.New().String()[:8],
			StartedAt:     clock(),
		},
	}
}

// begin creates the running log row. Failure here aborts the evaluation:
// without a log there is nothing to attach steps to.
func (r *recorder) begin(ctx context.Context) error {
	err := r.store.ExecutionLogs().Create(ctx, r.log)
	if err != nil {
		return fmt.Errorf("failed to create execution log: %w", err)
	}

	return nil
}

// record assigns the next sequence number, persists the step and updates the
// aggregate counters.
func (r *recorder) record(ctx context.Context, step *models.ExecutionStep) {
	r.seq++
	step.ID = uuid.New().String()
	step.LogID = r.log.ID
	step.Sequence = r.seq

	r.log.NodesVisited++

	switch step.NodeKind {
	case models.NodeKindAction:
		r.log.ActionsExecuted++

		if step.Status == models.StepStatusFailed {
			r.log.ActionsFailed++
		} else {
			r.log.ActionsSucceeded++
		}
	case models.NodeKindCondition:
		r.log.ConditionsEvaluated++
	case models.NodeKindTrigger, models.NodeKindComment:
	}

	err := r.store.ExecutionSteps().Append(ctx, step)
	if err != nil {
		r.logger.Error("Failed to persist execution step",
			"log_id", r.log.ID, "sequence", step.Sequence, "error", err)
	}

	err = r.store.ExecutionLogs().Update(ctx, r.log)
	if err != nil {
		r.logger.Error("Failed to update execution log counters",
			"log_id", r.log.ID, "error", err)
	}
}

// finalize derives the terminal status and persists it. A failure is logged
// and swallowed; this is the outermost persistence boundary.
func (r *recorder) finalize(ctx context.Context) {
	r.log.Finalize(r.clock())

	err := r.store.ExecutionLogs().Update(ctx, r.log)
	if err != nil {
		r.logger.Error("Failed to finalize execution log",
			"log_id", r.log.ID, "status", r.log.Status, "error", err)

		return
	}

	r.logger.Info("Evaluation finished",
		"log_id", r.log.ID,
		"status", r.log.Status,
		"summary", r.log.Summary,
	)
}
