package scheduler

import (
	"testing"
	"time"

	"github.com/radiflow/radiflow/pkg/log"
	"github.com/radiflow/radiflow/pkg/mocks"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTenant = models.TenantConnection{
	TenantID:    "tenant-1",
	DatabaseURL: "memory://",
}

func periodicAutomation(id string, interval int) *models.Automation {
	return &models.Automation{
		ID:              id,
		Title:           "Periodic " + id,
		Status:          models.AutomationStatusActive,
		Active:          true,
		TriggerType:     models.TriggerScheduled,
		ScheduleType:    models.SchedulePeriodic,
		IntervalMinutes: interval,
	}
}

func oneShotAutomation(id string, at time.Time) *models.Automation {
	return &models.Automation{
		ID:            id,
		Title:         "One-shot " + id,
		Status:        models.AutomationStatusActive,
		Active:        true,
		TriggerType:   models.TriggerScheduled,
		ScheduleType:  models.ScheduleAtTime,
		ScheduledTime: &at,
	}
}

func TestJobID(t *testing.T) {
	assert.Equal(t, "schedule:tenant-1:auto-9", JobID("tenant-1", "auto-9"))
}

func TestRegister_Periodic(t *testing.T) {
	adapter := NewAdapter(log.WithModule("test"), &mocks.MockRunner{})
	defer adapter.Stop(t.Context())

	err := adapter.Register(testTenant, periodicAutomation("auto-1", 5))
	require.NoError(t, err)

	assert.True(t, adapter.Registered(JobID("tenant-1", "auto-1")))
}

func TestRegister_IsIdempotent(t *testing.T) {
	adapter := NewAdapter(log.WithModule("test"), &mocks.MockRunner{})
	defer adapter.Stop(t.Context())

	automation := periodicAutomation("auto-1", 5)

	require.NoError(t, adapter.Register(testTenant, automation))
	require.NoError(t, adapter.Register(testTenant, automation))

	assert.True(t, adapter.Registered(JobID("tenant-1", "auto-1")))
}

func TestRegister_PastOneShotRejected(t *testing.T) {
	adapter := NewAdapter(log.WithModule("test"), &mocks.MockRunner{})
	defer adapter.Stop(t.Context())

	err := adapter.Register(testTenant, oneShotAutomation("auto-1", time.Now().UTC().Add(-time.Hour)))
	assert.ErrorIs(t, err, models.ErrScheduleInPast)
	assert.False(t, adapter.Registered(JobID("tenant-1", "auto-1")))
}

func TestRegister_NonScheduledRejected(t *testing.T) {
	adapter := NewAdapter(log.WithModule("test"), &mocks.MockRunner{})
	defer adapter.Stop(t.Context())

	automation := periodicAutomation("auto-1", 5)
	automation.TriggerType = "user_registered"

	err := adapter.Register(testTenant, automation)
	assert.ErrorIs(t, err, models.ErrNotScheduled)
}

func TestOneShot_RunsAndAutoPauses(t *testing.T) {
	runner := &mocks.MockRunner{}
	runner.On("RunScheduled", mock.Anything, "auto-1", testTenant).Return(nil)
	runner.On("PauseAutomation", mock.Anything, "auto-1", testTenant).Return(nil)

	adapter := NewAdapter(log.WithModule("test"), runner)
	defer adapter.Stop(t.Context())

	err := adapter.Register(testTenant, oneShotAutomation("auto-1", time.Now().UTC().Add(30*time.Millisecond)))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !adapter.Registered(JobID("tenant-1", "auto-1"))
	}, 2*time.Second, 10*time.Millisecond)

	runner.AssertExpectations(t)
}

func TestOneShot_FailedRunSkipsPause(t *testing.T) {
	runner := &mocks.MockRunner{}
	runner.On("RunScheduled", mock.Anything, "auto-1", testTenant).Return(assert.AnError)

	adapter := NewAdapter(log.WithModule("test"), runner)
	defer adapter.Stop(t.Context())

	err := adapter.Register(testTenant, oneShotAutomation("auto-1", time.Now().UTC().Add(30*time.Millisecond)))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !adapter.Registered(JobID("tenant-1", "auto-1"))
	}, 2*time.Second, 10*time.Millisecond)

	runner.AssertExpectations(t)
	runner.AssertNotCalled(t, "PauseAutomation", mock.Anything, "auto-1", testTenant)
}

func TestRemove_UnknownJobIsNoOp(t *testing.T) {
	adapter := NewAdapter(log.WithModule("test"), &mocks.MockRunner{})
	defer adapter.Stop(t.Context())

	adapter.Remove("schedule:tenant-1:ghost")
	assert.False(t, adapter.Registered("schedule:tenant-1:ghost"))
}

func TestSync_SkipsPastAndBrokenEntries(t *testing.T) {
	adapter := NewAdapter(log.WithModule("test"), &mocks.MockRunner{})
	defer adapter.Stop(t.Context())

	broken := periodicAutomation("broken", 0)
	past := oneShotAutomation("past", time.Now().UTC().Add(-time.Minute))
	good := periodicAutomation("good", 15)

	adapter.Sync(testTenant, []*models.Automation{broken, past, good})

	assert.False(t, adapter.Registered(JobID("tenant-1", "broken")))
	assert.False(t, adapter.Registered(JobID("tenant-1", "past")))
	assert.True(t, adapter.Registered(JobID("tenant-1", "good")))
}

func TestScheduledEvent_Shape(t *testing.T) {
	now := time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC)
	event := ScheduledEvent(now)

	assert.Equal(t, models.TriggerScheduled, event.TriggerType)
	assert.Equal(t, "system", event.SubjectName)
	assert.Equal(t, "scheduler", event.PerformedBy)
	assert.Equal(t, now, event.OccurredAt)
}
