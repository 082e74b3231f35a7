// Package scheduler registers cron and one-shot jobs for schedule-driven
// automations and funnels their synthetic events through the same engine
// entry point as live domain events. Architecturally it is just another
// event producer.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/radiflow/radiflow/pkg/models"
	"github.com/robfig/cron/v3"
)

// Runner is the re-entry operation a registered job invokes. The
// implementation opens its own tenant-scoped persistence handle from the
// passed coordinates; no ambient tenant resolution exists here.
type Runner interface {
	RunScheduled(ctx context.Context, automationID string, tenant models.TenantConnection) error
	PauseAutomation(ctx context.Context, automationID string, tenant models.TenantConnection) error
}

// Adapter owns the cron engine and the one-shot timers. Job ids are
// deterministic per (tenant, automation), so re-registration is idempotent
// and safe to run on every startup.
type Adapter struct {
	logger *slog.Logger
	runner Runner
	clock  func() time.Time
	cron   *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	timers  map[string]*time.Timer
}

// NewAdapter creates a stopped adapter; call Start to begin firing.
func NewAdapter(logger *slog.Logger, runner Runner) *Adapter {
	return &Adapter{
		logger: logger.With("module", "scheduler"),
		runner: runner,
		clock:  func() time.Time { return time.Now().UTC() },
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[string]cron.EntryID),
		timers:  make(map[string]*time.Timer),
	}
}

// WithClock replaces the UTC clock, used by tests.
func (a *Adapter) WithClock(clock func() time.Time) *Adapter {
	a.clock = clock

	return a
}

// JobID is the deterministic registration key scoped by tenant and
// automation.
func JobID(tenantID, automationID string) string {
	return fmt.Sprintf("schedule:%s:%s", tenantID, automationID)
}

// Start begins firing registered jobs.
func (a *Adapter) Start() {
	a.cron.Start()
}

// Stop halts the cron engine and cancels pending one-shot timers.
func (a *Adapter) Stop(ctx context.Context) {
	stopped := a.cron.Stop()

	a.mu.Lock()
	for jobID, timer := range a.timers {
		timer.Stop()
		delete(a.timers, jobID)
	}
	a.mu.Unlock()

	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}

// Register resolves the automation's schedule and registers its job,
// replacing any previous registration under the same id. An at_time
// schedule already in the past is rejected with models.ErrScheduleInPast
// and nothing is registered.
func (a *Adapter) Register(tenant models.TenantConnection, automation *models.Automation) error {
	if !automation.IsScheduled() {
		return models.ErrNotScheduled
	}

	jobID := JobID(tenant.TenantID, automation.ID)
	a.Remove(jobID)

	switch automation.ScheduleType {
	case models.SchedulePeriodic:
		return a.registerPeriodic(jobID, tenant, automation)
	case models.ScheduleAtTime:
		return a.registerOneShot(jobID, tenant, automation)
	default:
		return fmt.Errorf("automation %s has unknown schedule type %q", automation.ID, automation.ScheduleType)
	}
}

func (a *Adapter) registerPeriodic(jobID string, tenant models.TenantConnection, automation *models.Automation) error {
	expr, err := automation.ResolveCron()
	if err != nil {
		return err
	}

	automationID := automation.ID

	entryID, err := a.cron.AddFunc(expr, func() {
		a.firePeriodic(tenant, automationID)
	})
	if err != nil {
		return fmt.Errorf("failed to register cron job %s: %w", jobID, err)
	}

	a.mu.Lock()
	a.entries[jobID] = entryID
	a.mu.Unlock()

	a.logger.Info("Registered periodic automation",
		"job_id", jobID, "cron", expr)

	return nil
}

func (a *Adapter) registerOneShot(jobID string, tenant models.TenantConnection, automation *models.Automation) error {
	delay, err := automation.ResolveDelay(a.clock())
	if err != nil {
		return err
	}

	automationID := automation.ID

	timer := time.AfterFunc(delay, func() {
		a.fireOneShot(jobID, tenant, automationID)
	})

	a.mu.Lock()
	a.timers[jobID] = timer
	a.mu.Unlock()

	a.logger.Info("Registered one-shot automation",
		"job_id", jobID, "delay", delay)

	return nil
}

// Remove drops any registration under the job id. Removing an unknown id is
// a no-op, which is what makes Register idempotent.
func (a *Adapter) Remove(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entryID, ok := a.entries[jobID]; ok {
		a.cron.Remove(entryID)
		delete(a.entries, jobID)
	}

	if timer, ok := a.timers[jobID]; ok {
		timer.Stop()
		delete(a.timers, jobID)
	}
}

// Registered reports whether a job is currently registered.
func (a *Adapter) Registered(jobID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, cronOK := a.entries[jobID]
	_, timerOK := a.timers[jobID]

	return cronOK || timerOK
}

// Sync registers every scheduled automation of one tenant. Per-automation
// failures are logged and do not stop the rest; past one-shot schedules are
// skipped quietly.
func (a *Adapter) Sync(tenant models.TenantConnection, automations []*models.Automation) {
	for _, automation := range automations {
		err := a.Register(tenant, automation)
		if errors.Is(err, models.ErrScheduleInPast) {
			a.logger.Warn("Skipping automation scheduled in the past",
				"automation_id", automation.ID)

			continue
		}

		if err != nil {
			a.logger.Error("Failed to register scheduled automation",
				"automation_id", automation.ID, "error", err)
		}
	}
}

func (a *Adapter) firePeriodic(tenant models.TenantConnection, automationID string) {
	err := a.runner.RunScheduled(context.Background(), automationID, tenant)
	if err != nil {
		a.logger.Error("Scheduled run failed",
			"automation_id", automationID, "tenant_id", tenant.TenantID, "error", err)
	}
}

// fireOneShot runs the automation once and, on success, auto-pauses it:
// at_time automations are self-disabling.
func (a *Adapter) fireOneShot(jobID string, tenant models.TenantConnection, automationID string) {
	defer a.Remove(jobID)

	ctx := context.Background()

	err := a.runner.RunScheduled(ctx, automationID, tenant)
	if err != nil {
		a.logger.Error("One-shot scheduled run failed",
			"automation_id", automationID, "tenant_id", tenant.TenantID, "error", err)

		return
	}

	err = a.runner.PauseAutomation(ctx, automationID, tenant)
	if err != nil {
		a.logger.Error("Failed to auto-pause one-shot automation",
			"automation_id", automationID, "error", err)
	}
}
