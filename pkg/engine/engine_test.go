package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/conditions"
	"github.com/radiflow/radiflow/pkg/log"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAction struct {
	err    error
	output map[string]any
	panics bool
}

func (s *stubAction) Execute(_ context.Context, _ actions.Scope) (*actions.Result, error) {
	if s.panics {
		panic("stub action exploded")
	}

	if s.err != nil {
		return nil, s.err
	}

	return &actions.Result{Output: s.output}, nil
}

type stubFactory struct {
	kind   string
	action *stubAction
}

func (f *stubFactory) Kind() string { return f.kind }

func (f *stubFactory) Create(_ models.NodeData) (actions.Action, error) {
	return f.action, nil
}

func newTestEngine(t *testing.T) (*Engine, *memory.Persistence) {
	t.Helper()

	logger := log.WithModule("engine-test")

	registry := actions.NewRegistry(logger)
	registry.Register(&stubFactory{kind: "ok-action", action: &stubAction{output: map[string]any{"done": true}}})
	registry.Register(&stubFactory{kind: "fail-action", action: &stubAction{err: errors.New("boom")}})
	registry.Register(&stubFactory{kind: "panic-action", action: &stubAction{panics: true}})

	condRegistry := conditions.NewRegistry(logger)
	condRegistry.Register("always-false", func(map[string]any) bool { return false })
	condRegistry.Register("panic-condition", func(map[string]any) bool { panic("predicate exploded") })

	eng := New(logger, registry, condRegistry).
		WithClock(func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) })

	return eng, memory.NewPersistence()
}

func saveAutomation(t *testing.T, store *memory.Persistence, id, workflow string) {
	t.Helper()

	err := store.Automations().Save(context.Background(), &models.Automation{
		ID:          id,
		Title:       "Automation " + id,
		Status:      models.AutomationStatusActive,
		Active:      true,
		TriggerType: "user_registered",
		Workflow:    json.RawMessage(workflow),
	})
	require.NoError(t, err)
}

func userEvent(eventContext map[string]any) *models.AutomationEvent {
	return &models.AutomationEvent{
		TriggerType: "user_registered",
		SubjectName: "joao",
		PerformedBy: "admin",
		OccurredAt:  time.Now().UTC(),
		Context:     eventContext,
	}
}

func listLogs(t *testing.T, store *memory.Persistence) []*models.ExecutionLog {
	t.Helper()

	logs, err := store.ExecutionLogs().List(context.Background(), 100, 0)
	require.NoError(t, err)

	return logs
}

func listSteps(t *testing.T, store *memory.Persistence, logID string) []*models.ExecutionStep {
	t.Helper()

	steps, err := store.ExecutionSteps().ListByLog(context.Background(), logID)
	require.NoError(t, err)

	return steps
}

func TestFireEvent_TriggerThenAction(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "n1", "kind": "action", "data": {"actionType": "ok-action", "label": "Notify"}}
		],
		"edges": [{"id": "e1", "source": "t1", "target": "n1"}]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	require.Len(t, logs, 1)

	logRow := logs[0]
	assert.Equal(t, models.ExecutionStatusCompleted, logRow.Status)
	assert.Equal(t, 2, logRow.NodesVisited)
	assert.Equal(t, 1, logRow.ActionsExecuted)
	assert.Equal(t, 1, logRow.ActionsSucceeded)
	assert.Equal(t, 0, logRow.ActionsFailed)
	require.NotNil(t, logRow.FinishedAt)

	steps := listSteps(t, store, logRow.ID)
	require.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].Sequence)
	assert.Equal(t, models.NodeKindTrigger, steps[0].NodeKind)
	assert.Equal(t, models.StepStatusCompleted, steps[0].Status)

	assert.Equal(t, 2, steps[1].Sequence)
	assert.Equal(t, models.NodeKindAction, steps[1].NodeKind)
	assert.Equal(t, "ok-action", steps[1].NodeSubtype)
	assert.Equal(t, "Notify", steps[1].Label)
	assert.Equal(t, map[string]any{"done": true}, steps[1].Result)
}

func TestFireEvent_ConditionBranching(t *testing.T) {
	workflow := `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "c1", "kind": "condition", "data": {"conditionType": "balance-check"}},
			{"id": "yes", "kind": "action", "data": {"actionType": "ok-action", "label": "has balance"}},
			{"id": "no", "kind": "action", "data": {"actionType": "ok-action", "label": "no balance"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "c1"},
			{"id": "e2", "source": "c1", "target": "yes", "branchLabel": "true"},
			{"id": "e3", "source": "c1", "target": "no", "branchLabel": "false"}
		]
	}`

	t.Run("true branch", func(t *testing.T) {
		eng, store := newTestEngine(t)
		saveAutomation(t, store, "a1", workflow)

		err := eng.FireEvent(context.Background(), store, userEvent(map[string]any{"balance": 50.0}))
		require.NoError(t, err)

		logs := listLogs(t, store)
		require.Len(t, logs, 1)

		steps := listSteps(t, store, logs[0].ID)
		require.Len(t, steps, 3)
		assert.Equal(t, models.StepStatusConditionTrue, steps[1].Status)
		assert.Equal(t, "yes", steps[2].NodeID)
		assert.Equal(t, 1, logs[0].ConditionsEvaluated)
	})

	t.Run("false branch", func(t *testing.T) {
		eng, store := newTestEngine(t)
		saveAutomation(t, store, "a1", workflow)

		err := eng.FireEvent(context.Background(), store, userEvent(map[string]any{"balance": -10.0}))
		require.NoError(t, err)

		logs := listLogs(t, store)
		steps := listSteps(t, store, logs[0].ID)
		require.Len(t, steps, 3)
		assert.Equal(t, models.StepStatusConditionFalse, steps[1].Status)
		assert.Equal(t, "no", steps[2].NodeID)
	})
}

func TestFireEvent_UnlabeledEdgeBelongsToTrueBranch(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "c1", "kind": "condition", "data": {"conditionType": "always-false"}},
			{"id": "next", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "c1"},
			{"id": "e2", "source": "c1", "target": "next"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	steps := listSteps(t, store, logs[0].ID)

	// Condition is false and the unlabeled edge is a true-branch edge, so
	// traversal stops at the condition.
	require.Len(t, steps, 2)
	assert.Equal(t, models.StepStatusConditionFalse, steps[1].Status)
}

func TestFireEvent_FailedConditionFailsOpen(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "c1", "kind": "condition", "data": {"conditionType": "panic-condition"}},
			{"id": "yes", "kind": "action", "data": {"actionType": "ok-action"}},
			{"id": "no", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "c1"},
			{"id": "e2", "source": "c1", "target": "yes", "branchLabel": "true"},
			{"id": "e3", "source": "c1", "target": "no", "branchLabel": "false"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	steps := listSteps(t, store, logs[0].ID)
	require.Len(t, steps, 3)

	assert.Equal(t, models.StepStatusFailed, steps[1].Status)
	assert.Contains(t, steps[1].Error, "panicked")
	assert.Equal(t, "yes", steps[2].NodeID)
}

func TestFireEvent_ActionFailureDoesNotStopTraversal(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "bad", "kind": "action", "data": {"actionType": "fail-action"}},
			{"id": "good", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "bad"},
			{"id": "e2", "source": "bad", "target": "good"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ExecutionStatusCompletedWithErrors, logs[0].Status)
	assert.Equal(t, 2, logs[0].ActionsExecuted)
	assert.Equal(t, 1, logs[0].ActionsFailed)
	assert.Equal(t, 1, logs[0].ActionsSucceeded)

	steps := listSteps(t, store, logs[0].ID)
	require.Len(t, steps, 3)
	assert.Equal(t, models.StepStatusFailed, steps[1].Status)
	assert.Equal(t, "boom", steps[1].Error)
	assert.Equal(t, models.StepStatusCompleted, steps[2].Status)
}

func TestFireEvent_OnlyFailuresMarkLogFailed(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "bad", "kind": "action", "data": {"actionType": "fail-action"}}
		],
		"edges": [{"id": "e1", "source": "t1", "target": "bad"}]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	assert.Equal(t, models.ExecutionStatusFailed, logs[0].Status)
}

func TestFireEvent_PanickingActionRecordedAsFailure(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "boom", "kind": "action", "data": {"actionType": "panic-action"}},
			{"id": "after", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "boom"},
			{"id": "e2", "source": "boom", "target": "after"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	steps := listSteps(t, store, logs[0].ID)
	require.Len(t, steps, 3)
	assert.Equal(t, models.StepStatusFailed, steps[1].Status)
	assert.Contains(t, steps[1].Error, "panicked")
	assert.Equal(t, "after", steps[2].NodeID)
}

func TestFireEvent_CommentNodesPassThroughSilently(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "note", "kind": "comment", "data": {"label": "review this path"}},
			{"id": "n1", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "note"},
			{"id": "e2", "source": "note", "target": "n1"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	steps := listSteps(t, store, logs[0].ID)

	require.Len(t, steps, 2)
	assert.Equal(t, "t1", steps[0].NodeID)
	assert.Equal(t, "n1", steps[1].NodeID)
	assert.Equal(t, 2, logs[0].NodesVisited)
}

func TestFireEvent_CyclicGraphTerminates(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "a", "kind": "action", "data": {"actionType": "ok-action"}},
			{"id": "b", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "a"},
			{"id": "e2", "source": "a", "target": "b"},
			{"id": "e3", "source": "b", "target": "a"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	steps := listSteps(t, store, logs[0].ID)

	// Each node visited exactly once despite the a<->b cycle.
	require.Len(t, steps, 3)
	assert.Equal(t, 3, logs[0].NodesVisited)
}

func TestFireEvent_ActionFanOut(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "bad", "kind": "action", "data": {"actionType": "fail-action"}},
			{"id": "x", "kind": "action", "data": {"actionType": "ok-action"}},
			{"id": "y", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "bad"},
			{"id": "e2", "source": "bad", "target": "x"},
			{"id": "e3", "source": "bad", "target": "y"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	steps := listSteps(t, store, logs[0].ID)

	// All fan-out successors run even though the action failed.
	require.Len(t, steps, 4)
	assert.Equal(t, 2, logs[0].ActionsSucceeded)
	assert.Equal(t, 1, logs[0].ActionsFailed)
}

func TestFireEvent_NoMatchingTriggerLeavesNoLog(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [{"id": "t1", "kind": "trigger", "data": {"triggerType": "payment_received"}}],
		"edges": []
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	assert.Empty(t, listLogs(t, store))
}

func TestFireEvent_PausedAutomationIsSkipped(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}}],
		"edges": []
	}`)

	require.NoError(t, store.Automations().Pause(context.Background(), "a1"))

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	assert.Empty(t, listLogs(t, store))
}

func TestFireEvent_MalformedWorkflowDoesNotBlockSiblings(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "broken", `{"nodes": "garbage"}`)
	saveAutomation(t, store, "healthy", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "n1", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [{"id": "e1", "source": "t1", "target": "n1"}]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	require.Len(t, logs, 1)
	assert.Equal(t, "healthy", logs[0].AutomationID)
}

func TestFireEvent_EdgeToMissingNodeIsSkipped(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "n1", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "ghost"},
			{"id": "e2", "source": "t1", "target": "n1"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	steps := listSteps(t, store, logs[0].ID)
	require.Len(t, steps, 2)
	assert.Equal(t, "n1", steps[1].NodeID)
}

func TestFireEvent_MultipleTriggersShareVisitedSet(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "a1", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "t2", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "shared", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [
			{"id": "e1", "source": "t1", "target": "shared"},
			{"id": "e2", "source": "t2", "target": "shared"}
		]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	require.Len(t, logs, 1)

	steps := listSteps(t, store, logs[0].ID)

	// One log, both triggers recorded, the shared action exactly once.
	require.Len(t, steps, 3)
	assert.Equal(t, 1, logs[0].ActionsExecuted)
}

func TestFireEvent_IsolatesAutomations(t *testing.T) {
	eng, store := newTestEngine(t)
	saveAutomation(t, store, "panics", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "boom", "kind": "action", "data": {"actionType": "panic-action"}}
		],
		"edges": [{"id": "e1", "source": "t1", "target": "boom"}]
	}`)
	saveAutomation(t, store, "sibling", `{
		"nodes": [
			{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}},
			{"id": "n1", "kind": "action", "data": {"actionType": "ok-action"}}
		],
		"edges": [{"id": "e1", "source": "t1", "target": "n1"}]
	}`)

	err := eng.FireEvent(context.Background(), store, userEvent(nil))
	require.NoError(t, err)

	logs := listLogs(t, store)
	require.Len(t, logs, 2)
}

func TestRunScheduled_HappyPath(t *testing.T) {
	eng, store := newTestEngine(t)

	err := store.Automations().Save(context.Background(), &models.Automation{
		ID:           "sched-1",
		Title:        "Nightly recharge",
		Status:       models.AutomationStatusActive,
		Active:       true,
		TriggerType:  models.TriggerScheduled,
		ScheduleType: models.SchedulePeriodic,
		Workflow: json.RawMessage(`{
			"nodes": [
				{"id": "t1", "kind": "trigger", "data": {"triggerType": "scheduled"}},
				{"id": "n1", "kind": "action", "data": {"actionType": "ok-action"}}
			],
			"edges": [{"id": "e1", "source": "t1", "target": "n1"}]
		}`),
	})
	require.NoError(t, err)

	event := &models.AutomationEvent{
		TriggerType: models.TriggerScheduled,
		SubjectName: "system",
		PerformedBy: "scheduler",
		OccurredAt:  time.Now().UTC(),
	}

	err = eng.RunScheduled(context.Background(), store, "sched-1", event)
	require.NoError(t, err)

	logs := listLogs(t, store)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ExecutionStatusCompleted, logs[0].Status)
	assert.Equal(t, models.TriggerScheduled, logs[0].TriggerType)
}

func TestRunScheduled_UnknownAutomation(t *testing.T) {
	eng, store := newTestEngine(t)

	err := eng.RunScheduled(context.Background(), store, "nope", &models.AutomationEvent{
		TriggerType: models.TriggerScheduled,
	})
	assert.Error(t, err)
}

func TestRunScheduled_NonRunnableIsSkipped(t *testing.T) {
	eng, store := newTestEngine(t)

	err := store.Automations().Save(context.Background(), &models.Automation{
		ID:          "paused-1",
		Title:       "Paused",
		Status:      models.AutomationStatusPaused,
		Active:      true,
		TriggerType: models.TriggerScheduled,
		Workflow:    json.RawMessage(`{"nodes": [{"id": "t1", "kind": "trigger", "data": {"triggerType": "scheduled"}}], "edges": []}`),
	})
	require.NoError(t, err)

	err = eng.RunScheduled(context.Background(), store, "paused-1", &models.AutomationEvent{
		TriggerType: models.TriggerScheduled,
	})
	require.NoError(t, err)

	assert.Empty(t, listLogs(t, store))
}

func TestRunScheduled_NoScheduledTriggerNode(t *testing.T) {
	eng, store := newTestEngine(t)

	err := store.Automations().Save(context.Background(), &models.Automation{
		ID:          "odd-1",
		Title:       "Mismatched",
		Status:      models.AutomationStatusActive,
		Active:      true,
		TriggerType: models.TriggerScheduled,
		Workflow:    json.RawMessage(`{"nodes": [{"id": "t1", "kind": "trigger", "data": {"triggerType": "user_registered"}}], "edges": []}`),
	})
	require.NoError(t, err)

	err = eng.RunScheduled(context.Background(), store, "odd-1", &models.AutomationEvent{
		TriggerType: models.TriggerScheduled,
	})
	require.NoError(t, err)

	assert.Empty(t, listLogs(t, store))
}
