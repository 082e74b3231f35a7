// Package actions defines the action execution protocol and the kind-keyed
// registry dispatching workflow action nodes.
package actions

import (
	"context"
	"log/slog"
	"time"

	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// Scope is everything one action execution may see and touch. The
// persistence handle is the caller's tenant-scoped store; actions never
// resolve one themselves.
type Scope struct {
	Event  *models.AutomationEvent
	Store  persistence.Persistence
	Logger *slog.Logger
	// Vars are the template variables: built-ins first, then every event
	// context entry.
	Vars map[string]any
}

// Result is the observable output of one action execution. HTTPTrace is
// populated by networked actions regardless of outcome; Output only on
// success.
type Result struct {
	Output    map[string]any
	HTTPTrace *models.HTTPTrace
}

// Action executes one workflow action node.
type Action interface {
	Execute(ctx context.Context, scope Scope) (*Result, error)
}

// Factory builds an action from a node's payload. Creation validates the
// payload; execution performs the side effect.
type Factory interface {
	Kind() string
	Create(data models.NodeData) (Action, error)
}

// TemplateVars builds the substitution variables for one event: the
// built-ins, then every context key. Context entries shadow built-ins.
func TemplateVars(event *models.AutomationEvent, now time.Time) map[string]any {
	vars := map[string]any{
		"username":    event.SubjectName,
		"userId":      event.SubjectID,
		"userUuid":    event.SubjectUUID,
		"triggeredBy": event.PerformedBy,
		"triggerType": event.TriggerType,
		"timestamp":   now.UTC().Format(time.RFC3339),
	}

	for key, value := range event.Context {
		vars[key] = value
	}

	return vars
}
