package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// traversal is one depth-first walk over an automation's graph for one
// event. The visited set guarantees termination on cyclic graphs: revisiting
// a node is a silent no-op.
type traversal struct {
	engine *Engine
	store  persistence.Persistence
	event  *models.AutomationEvent
	def    *models.WorkflowDefinition
	rec    *recorder
	vars   map[string]any
	logger *slog.Logger

	visited map[string]bool
}

func (t *traversal) walk(ctx context.Context, node *models.WorkflowNode) {
	if t.visited[node.ID] {
		return
	}

	t.visited[node.ID] = true

	switch node.Kind {
	case models.NodeKindTrigger:
		started := t.engine.clock()
		t.rec.record(ctx, &models.ExecutionStep{
			NodeID:      node.ID,
			NodeKind:    node.Kind,
			NodeSubtype: node.Subtype(),
			Label:       node.Data.Label,
			Status:      models.StepStatusCompleted,
			StartedAt:   started,
			FinishedAt:  t.engine.clock(),
		})
		t.walkEdges(ctx, node.ID, nil)

	case models.NodeKindComment:
		// Annotations produce no step but traversal passes through.
		t.walkEdges(ctx, node.ID, nil)

	case models.NodeKindCondition:
		t.walkCondition(ctx, node)

	case models.NodeKindAction:
		t.walkAction(ctx, node)
		t.walkEdges(ctx, node.ID, nil)

	default:
		t.logger.Warn("Skipping node of unknown kind", "node_id", node.ID, "kind", node.Kind)
		t.walkEdges(ctx, node.ID, nil)
	}
}

// walkEdges follows every outgoing edge passing the filter. Action nodes may
// fan out to multiple successors; all of them are walked.
func (t *traversal) walkEdges(ctx context.Context, nodeID string, filter func(models.WorkflowEdge) bool) {
	for _, edge := range t.def.OutgoingEdges(nodeID) {
		if filter != nil && !filter(edge) {
			continue
		}

		next, ok := t.def.NodeByID(edge.Target)
		if !ok {
			t.logger.Warn("Edge points at missing node", "edge_id", edge.ID, "target", edge.Target)

			continue
		}

		t.walk(ctx, next)
	}
}

// walkCondition evaluates the predicate once and branches. Unlabeled edges
// off a condition belong to the true branch. A fault during evaluation marks
// the step failed and continues fail-open along the true branch.
func (t *traversal) walkCondition(ctx context.Context, node *models.WorkflowNode) {
	started := t.engine.clock()

	result, err := t.engine.evalCondition(node.Data.ConditionType, t.event.Context)

	step := &models.ExecutionStep{
		NodeID:      node.ID,
		NodeKind:    node.Kind,
		NodeSubtype: node.Subtype(),
		Label:       node.Data.Label,
		StartedAt:   started,
		FinishedAt:  t.engine.clock(),
	}

	switch {
	case err != nil:
		step.Status = models.StepStatusFailed
		step.Error = err.Error()
	case result:
		step.Status = models.StepStatusConditionTrue
	default:
		step.Status = models.StepStatusConditionFalse
	}

	t.rec.record(ctx, step)

	takeTrue := result || err != nil

	t.walkEdges(ctx, node.ID, func(edge models.WorkflowEdge) bool {
		if edge.BranchLabel == models.BranchFalse {
			return !takeTrue
		}

		return takeTrue
	})
}

// walkAction executes the node and records exactly one step. Traversal
// continues past the action regardless of its outcome.
func (t *traversal) walkAction(ctx context.Context, node *models.WorkflowNode) {
	started := t.engine.clock()

	scope := actions.Scope{
		Event:  t.event,
		Store:  t.store,
		Logger: t.logger,
		Vars:   t.vars,
	}

	result, err := t.engine.execAction(ctx, node, scope)

	step := &models.ExecutionStep{
		NodeID:      node.ID,
		NodeKind:    node.Kind,
		NodeSubtype: node.Subtype(),
		Label:       node.Data.Label,
		StartedAt:   started,
		FinishedAt:  t.engine.clock(),
	}

	if result != nil {
		step.HTTPTrace = result.HTTPTrace
	}

	if err != nil {
		step.Status = models.StepStatusFailed
		step.Error = err.Error()

		t.logger.Warn("Action failed",
			"node_id", node.ID,
			"action_type", node.Data.ActionType,
			"error", err,
		)
	} else {
		step.Status = models.StepStatusCompleted

		if result != nil {
			step.Result = result.Output
		}
	}

	t.rec.record(ctx, step)
}

// evalCondition guards the registry call: a panicking predicate is caught at
// node granularity.
func (e *Engine) evalCondition(conditionType string, eventContext map[string]any) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("condition %s panicked: %v", conditionType, r)
		}
	}()

	return e.conditions.Evaluate(conditionType, eventContext), nil
}

// execAction guards action creation and execution the same way.
func (e *Engine) execAction(ctx context.Context, node *models.WorkflowNode, scope actions.Scope) (result *actions.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("action %s panicked: %v", node.Data.ActionType, r)
		}
	}()

	action, err := e.registry.Create(node.Data.ActionType, node.Data)
	if err != nil {
		return nil, err
	}

	return action.Execute(ctx, scope)
}
