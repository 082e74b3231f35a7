// Package intent implements the stub action kinds (send-email,
// credit-wallet, …) that currently only record intent. The side effects
// belong to owning subsystems (mailer, billing) that consume the recorded
// trace; the step record is the contract.
package intent

import (
	"context"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/models"
)

// Kinds lists the built-in intent-only action types.
func Kinds() []string {
	return []string{
		models.ActionSendEmail,
		models.ActionSendNotification,
		models.ActionCreditWallet,
		models.ActionDebitWallet,
		models.ActionApplyDiscount,
		models.ActionUpdateProfile,
	}
}

// Action records that the given kind was requested for the event subject.
type Action struct {
	kind  string
	label string
}

func (a *Action) Execute(_ context.Context, scope actions.Scope) (*actions.Result, error) {
	scope.Logger.Info("Recorded action intent",
		"action_type", a.kind,
		"subject", scope.Event.SubjectName,
		"performed_by", scope.Event.PerformedBy,
	)

	return &actions.Result{Output: map[string]any{
		"action":   a.kind,
		"label":    a.label,
		"subject":  scope.Event.SubjectName,
		"recorded": true,
	}}, nil
}

// Factory builds intent actions for one kind.
type Factory struct {
	kind string
}

func NewFactory(kind string) *Factory {
	return &Factory{kind: kind}
}

func (f *Factory) Kind() string {
	return f.kind
}

func (f *Factory) Create(data models.NodeData) (actions.Action, error) {
	return &Action{kind: f.kind, label: data.Label}, nil
}
