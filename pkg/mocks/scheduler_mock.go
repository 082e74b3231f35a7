// Package mocks provides testify mocks shared across test packages.
package mocks

import (
	"context"

	"github.com/radiflow/radiflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of scheduler.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunScheduled(ctx context.Context, automationID string, tenant models.TenantConnection) error {
	args := m.Called(ctx, automationID, tenant)

	return args.Error(0)
}

func (m *MockRunner) PauseAutomation(ctx context.Context, automationID string, tenant models.TenantConnection) error {
	args := m.Called(ctx, automationID, tenant)

	return args.Error(0)
}
