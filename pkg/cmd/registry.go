// Package cmd provides common initialization for the command-line services.
package cmd

import (
	"log/slog"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/actions/httprequest"
	"github.com/radiflow/radiflow/pkg/actions/intent"
	"github.com/radiflow/radiflow/pkg/actions/suspenduser"
	"github.com/radiflow/radiflow/pkg/conditions"
)

// NewRegistry builds the action registry with every native action. Intent
// kinds share one recording implementation; http-request and suspend-user
// have real executors.
func NewRegistry(logger *slog.Logger) *actions.Registry {
	reg := actions.NewRegistry(logger)

	reg.Register(httprequest.NewFactory())
	reg.Register(suspenduser.NewFactory())

	for _, kind := range intent.Kinds() {
		reg.Register(intent.NewFactory(kind))
	}

	return reg
}

// NewConditionRegistry builds the condition registry with the built-in
// predicates.
func NewConditionRegistry(logger *slog.Logger) *conditions.Registry {
	return conditions.NewRegistry(logger)
}
