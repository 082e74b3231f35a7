// Package persistence defines the tenant-scoped storage abstraction used by
// the automation engine. Every handle is already bound to one tenant's
// database: callers pass it explicitly, nothing resolves a tenant
// implicitly.
package persistence

import (
	"context"

	"github.com/radiflow/radiflow/pkg/models"
)

// Persistence is one tenant's storage handle.
type Persistence interface {
	Automations() AutomationRepository
	ExecutionLogs() ExecutionLogRepository
	ExecutionSteps() ExecutionStepRepository
	Accounts() AccountRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AutomationRepository reads the tenant's automations. Authoring CRUD lives
// in the admin service; the engine only lists, fetches and pauses.
type AutomationRepository interface {
	// ListRunnable returns active, non-deleted automations.
	ListRunnable(ctx context.Context) ([]*models.Automation, error)
	// ListScheduled returns runnable automations with the scheduled
	// trigger sentinel.
	ListScheduled(ctx context.Context) ([]*models.Automation, error)
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	// Pause moves the automation to paused, used for one-shot
	// self-disabling semantics.
	Pause(ctx context.Context, id string) error
	Save(ctx context.Context, automation *models.Automation) error
}

// ExecutionLogRepository persists per-evaluation logs.
type ExecutionLogRepository interface {
	Create(ctx context.Context, log *models.ExecutionLog) error
	Update(ctx context.Context, log *models.ExecutionLog) error
	GetByID(ctx context.Context, id string) (*models.ExecutionLog, error)
	ListByAutomation(ctx context.Context, automationID string, limit, offset int) ([]*models.ExecutionLog, error)
	List(ctx context.Context, limit, offset int) ([]*models.ExecutionLog, error)
}

// ExecutionStepRepository persists per-node steps of an execution log.
type ExecutionStepRepository interface {
	Append(ctx context.Context, step *models.ExecutionStep) error
	ListByLog(ctx context.Context, logID string) ([]*models.ExecutionStep, error)
}

// AccountRepository exposes the subject RADIUS accounts. The engine only
// flips the enabled flag; account management is external.
type AccountRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.RadiusAccount, error)
	SetEnabled(ctx context.Context, username string, enabled bool) error
	Save(ctx context.Context, account *models.RadiusAccount) error
}
