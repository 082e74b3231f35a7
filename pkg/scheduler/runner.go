package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/radiflow/radiflow/pkg/engine"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/tenant"
)

// EngineRunner is the production Runner: it resolves the tenant store and
// re-enters the engine with a synthetic scheduled event.
type EngineRunner struct {
	logger  *slog.Logger
	engine  *engine.Engine
	tenants *tenant.Manager
	clock   func() time.Time
}

// NewEngineRunner wires the scheduler to the engine and tenant manager.
func NewEngineRunner(logger *slog.Logger, eng *engine.Engine, tenants *tenant.Manager) *EngineRunner {
	return &EngineRunner{
		logger:  logger.With("module", "scheduler"),
		engine:  eng,
		tenants: tenants,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// ScheduledEvent builds the synthetic event a timer fire injects. It carries
// no subject beyond the system marker; workflows needing richer context are
// driven by live events instead.
func ScheduledEvent(now time.Time) *models.AutomationEvent {
	return &models.AutomationEvent{
		TriggerType: models.TriggerScheduled,
		SubjectName: "system",
		PerformedBy: "scheduler",
		OccurredAt:  now,
		Context:     map[string]any{"scheduled": true},
	}
}

// RunScheduled evaluates the owning automation against a fresh synthetic
// event through the shared engine core.
func (r *EngineRunner) RunScheduled(ctx context.Context, automationID string, conn models.TenantConnection) error {
	store, err := r.tenants.Store(ctx, conn)
	if err != nil {
		return err
	}

	r.logger.Info("Firing scheduled automation",
		"automation_id", automationID, "tenant_id", conn.TenantID)

	return r.engine.RunScheduled(ctx, store, automationID, ScheduledEvent(r.clock()))
}

// PauseAutomation flips the automation to paused after a one-shot fire.
func (r *EngineRunner) PauseAutomation(ctx context.Context, automationID string, conn models.TenantConnection) error {
	store, err := r.tenants.Store(ctx, conn)
	if err != nil {
		return err
	}

	err = store.Automations().Pause(ctx, automationID)
	if err != nil {
		return fmt.Errorf("failed to pause automation %s: %w", automationID, err)
	}

	r.logger.Info("Paused one-shot automation", "automation_id", automationID)

	return nil
}
