// Package memory provides an in-memory persistence implementation used by
// unit tests and local development. Each instance is fully isolated, which
// is the testability seam the engine is built around.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// Persistence is an isolated in-memory tenant store.
type Persistence struct {
	mu       sync.RWMutex
	autos    map[string]*models.Automation
	logs     map[string]*models.ExecutionLog
	steps    map[string][]*models.ExecutionStep // keyed by log id, append order
	accounts map[string]*models.RadiusAccount   // keyed by username
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		autos:    make(map[string]*models.Automation),
		logs:     make(map[string]*models.ExecutionLog),
		steps:    make(map[string][]*models.ExecutionStep),
		accounts: make(map[string]*models.RadiusAccount),
	}
}

func (p *Persistence) Automations() persistence.AutomationRepository     { return &automationRepo{p} }
func (p *Persistence) ExecutionLogs() persistence.ExecutionLogRepository { return &logRepo{p} }
func (p *Persistence) ExecutionSteps() persistence.ExecutionStepRepository {
	return &stepRepo{p}
}
func (p *Persistence) Accounts() persistence.AccountRepository { return &accountRepo{p} }

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }
func (p *Persistence) Close(_ context.Context) error       { return nil }

type automationRepo struct{ p *Persistence }

func (r *automationRepo) ListRunnable(_ context.Context) ([]*models.Automation, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var out []*models.Automation

	for _, a := range r.p.autos {
		if a.Runnable() {
			clone := *a
			out = append(out, &clone)
		}
	}

	sortAutomations(out)

	return out, nil
}

func (r *automationRepo) ListScheduled(ctx context.Context) ([]*models.Automation, error) {
	runnable, err := r.ListRunnable(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.Automation

	for _, a := range runnable {
		if a.IsScheduled() {
			out = append(out, a)
		}
	}

	return out, nil
}

func (r *automationRepo) GetByID(_ context.Context, id string) (*models.Automation, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	a, ok := r.p.autos[id]
	if !ok {
		return nil, persistence.ErrAutomationNotFound
	}

	clone := *a

	return &clone, nil
}

func (r *automationRepo) Pause(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	a, ok := r.p.autos[id]
	if !ok {
		return persistence.ErrAutomationNotFound
	}

	a.Status = models.AutomationStatusPaused
	a.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *automationRepo) Save(_ context.Context, automation *models.Automation) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *automation
	r.p.autos[automation.ID] = &clone

	return nil
}

func sortAutomations(autos []*models.Automation) {
	sort.Slice(autos, func(i, j int) bool {
		if autos[i].CreatedAt.Equal(autos[j].CreatedAt) {
			return autos[i].ID < autos[j].ID
		}

		return autos[i].CreatedAt.Before(autos[j].CreatedAt)
	})
}

type logRepo struct{ p *Persistence }

func (r *logRepo) Create(_ context.Context, log *models.ExecutionLog) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *log
	r.p.logs[log.ID] = &clone

	return nil
}

func (r *logRepo) Update(_ context.Context, log *models.ExecutionLog) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.logs[log.ID]; !ok {
		return persistence.ErrExecutionLogNotFound
	}

	clone := *log
	r.p.logs[log.ID] = &clone

	return nil
}

func (r *logRepo) GetByID(_ context.Context, id string) (*models.ExecutionLog, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	l, ok := r.p.logs[id]
	if !ok {
		return nil, persistence.ErrExecutionLogNotFound
	}

	clone := *l

	return &clone, nil
}

func (r *logRepo) ListByAutomation(_ context.Context, automationID string, limit, offset int) ([]*models.ExecutionLog, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var out []*models.ExecutionLog

	for _, l := range r.p.logs {
		if l.AutomationID == automationID {
			clone := *l
			out = append(out, &clone)
		}
	}

	return paginateLogs(out, limit, offset), nil
}

func (r *logRepo) List(_ context.Context, limit, offset int) ([]*models.ExecutionLog, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	out := make([]*models.ExecutionLog, 0, len(r.p.logs))

	for _, l := range r.p.logs {
		clone := *l
		out = append(out, &clone)
	}

	return paginateLogs(out, limit, offset), nil
}

// paginateLogs orders newest first, then applies offset/limit.
func paginateLogs(logs []*models.ExecutionLog, limit, offset int) []*models.ExecutionLog {
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].StartedAt.Equal(logs[j].StartedAt) {
			return logs[i].ID > logs[j].ID
		}

		return logs[i].StartedAt.After(logs[j].StartedAt)
	})

	if offset >= len(logs) {
		return nil
	}

	logs = logs[offset:]
	if limit > 0 && limit < len(logs) {
		logs = logs[:limit]
	}

	return logs
}

type stepRepo struct{ p *Persistence }

func (r *stepRepo) Append(_ context.Context, step *models.ExecutionStep) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *step
	r.p.steps[step.LogID] = append(r.p.steps[step.LogID], &clone)

	return nil
}

func (r *stepRepo) ListByLog(_ context.Context, logID string) ([]*models.ExecutionStep, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	steps := r.p.steps[logID]
	out := make([]*models.ExecutionStep, 0, len(steps))

	for _, s := range steps {
		clone := *s
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })

	return out, nil
}

type accountRepo struct{ p *Persistence }

func (r *accountRepo) GetByUsername(_ context.Context, username string) (*models.RadiusAccount, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	a, ok := r.p.accounts[username]
	if !ok {
		return nil, persistence.ErrAccountNotFound
	}

	clone := *a

	return &clone, nil
}

func (r *accountRepo) SetEnabled(_ context.Context, username string, enabled bool) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	a, ok := r.p.accounts[username]
	if !ok {
		return persistence.ErrAccountNotFound
	}

	a.Enabled = enabled
	a.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *accountRepo) Save(_ context.Context, account *models.RadiusAccount) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	clone := *account
	r.p.accounts[account.Username] = &clone

	return nil
}
