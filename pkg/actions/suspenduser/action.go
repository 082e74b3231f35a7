// Package suspenduser implements the suspend-user workflow action, the one
// built-in action with a real mutation: it disables the subject RADIUS
// account.
package suspenduser

import (
	"context"
	"errors"
	"fmt"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/models"
)

// Action disables the event subject's account.
type Action struct{}

func NewAction() *Action {
	return &Action{}
}

func (a *Action) Execute(ctx context.Context, scope actions.Scope) (*actions.Result, error) {
	username := scope.Event.SubjectName
	if username == "" {
		return nil, errors.New("suspend-user action requires an event subject")
	}

	err := scope.Store.Accounts().SetEnabled(ctx, username, false)
	if err != nil {
		return nil, fmt.Errorf("failed to suspend account %s: %w", username, err)
	}

	scope.Logger.Info("Suspended subject account", "username", username)

	return &actions.Result{Output: map[string]any{
		"username": username,
		"enabled":  false,
	}}, nil
}

// Factory builds suspend-user actions.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() string {
	return models.ActionSuspendUser
}

func (f *Factory) Create(_ models.NodeData) (actions.Action, error) {
	return NewAction(), nil
}
