package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// NodeKind is the closed set of workflow node kinds.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition"
	NodeKindComment   NodeKind = "comment" // Annotation only, traversal passes through
)

// Built-in action types. The registry is open: new kinds register a factory.
const (
	ActionHTTPRequest      = "http-request"
	ActionSendEmail        = "send-email"
	ActionSendNotification = "send-notification"
	ActionCreditWallet     = "credit-wallet"
	ActionDebitWallet      = "debit-wallet"
	ActionApplyDiscount    = "apply-discount"
	ActionUpdateProfile    = "update-profile"
	ActionSuspendUser      = "suspend-user"
)

// Built-in condition types.
const (
	ConditionBalanceCheck = "balance-check"
	ConditionUserStatus   = "user-status"
	ConditionDateCheck    = "date-check"
)

// Branch labels on edges leaving a condition node. An unlabeled edge off a
// condition defaults to the true branch.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// WorkflowDefinition is the persisted graph of one automation. The JSON field
// names are camelCase because the graph is authored and stored by the admin
// front end, not by this service.
type WorkflowDefinition struct {
	Nodes []WorkflowNode `json:"nodes"`
	Edges []WorkflowEdge `json:"edges"`
}

// WorkflowNode is one node of the graph with its kind-specific payload.
type WorkflowNode struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Data NodeData `json:"data"`
}

// NodeData carries the kind-specific payload of a node. Only the fields
// matching the node kind are meaningful.
type NodeData struct {
	Label         string `json:"label,omitempty"`
	TriggerType   string `json:"triggerType,omitempty"`
	ActionType    string `json:"actionType,omitempty"`
	ConditionType string `json:"conditionType,omitempty"`

	// http-request action payload.
	HTTPMethod              string `json:"httpMethod,omitempty"`
	HTTPURL                 string `json:"httpUrl,omitempty"`
	HTTPHeaders             string `json:"httpHeaders,omitempty"`
	HTTPBody                string `json:"httpBody,omitempty"`
	HTTPContentType         string `json:"httpContentType,omitempty"`
	HTTPExpectedStatusCodes string `json:"httpExpectedStatusCodes,omitempty"`
	HTTPTimeoutSeconds      int    `json:"httpTimeoutSeconds,omitempty"`
}

// Subtype returns the kind-specific type string of the node, used for the
// execution trace.
func (n *WorkflowNode) Subtype() string {
	switch n.Kind {
	case NodeKindTrigger:
		return n.Data.TriggerType
	case NodeKindAction:
		return n.Data.ActionType
	case NodeKindCondition:
		return n.Data.ConditionType
	case NodeKindComment:
		return ""
	}

	return ""
}

// WorkflowEdge connects two nodes, optionally labeled with a branch.
type WorkflowEdge struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	BranchLabel string `json:"branchLabel,omitempty"`
}

// ErrEmptyWorkflow is returned when a workflow parses but has no nodes.
var ErrEmptyWorkflow = errors.New("workflow has no nodes")

// workflowSchema structurally validates a raw workflow document before the
// engine walks it. Unknown data fields are allowed so new node payloads do
// not break older engines.
var workflowSchema = map[string]any{
	"type":     "object",
	"required": []any{"nodes", "edges"},
	"properties": map[string]any{
		"nodes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "kind"},
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"kind": map[string]any{"type": "string", "enum": []any{"trigger", "action", "condition", "comment"}},
					"data": map[string]any{"type": "object"},
				},
			},
		},
		"edges": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"source", "target"},
				"properties": map[string]any{
					"source": map[string]any{"type": "string", "minLength": 1},
					"target": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

// ParseWorkflow validates and decodes the automation's stored graph. A nil
// error guarantees the definition has at least one node and passed the
// structural schema.
func (a *Automation) ParseWorkflow() (*WorkflowDefinition, error) {
	if len(a.Workflow) == 0 {
		return nil, ErrEmptyWorkflow
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(workflowSchema),
		gojsonschema.NewBytesLoader(a.Workflow),
	)
	if err != nil {
		return nil, fmt.Errorf("workflow schema validation: %w", err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("workflow schema validation: %v", result.Errors())
	}

	var def WorkflowDefinition

	err = json.Unmarshal(a.Workflow, &def)
	if err != nil {
		return nil, fmt.Errorf("workflow decode: %w", err)
	}

	if len(def.Nodes) == 0 {
		return nil, ErrEmptyWorkflow
	}

	return &def, nil
}

// NodeByID returns the node with the given id, if present.
func (d *WorkflowDefinition) NodeByID(id string) (*WorkflowNode, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}

	return nil, false
}

// TriggerNodes returns every trigger node whose trigger type equals the
// event's. Multiple matches are legal and each is traversed independently.
func (d *WorkflowDefinition) TriggerNodes(triggerType string) []*WorkflowNode {
	var matches []*WorkflowNode

	for i := range d.Nodes {
		node := &d.Nodes[i]
		if node.Kind == NodeKindTrigger && node.Data.TriggerType == triggerType {
			matches = append(matches, node)
		}
	}

	return matches
}

// OutgoingEdges returns every edge leaving the given node, in definition
// order.
func (d *WorkflowDefinition) OutgoingEdges(nodeID string) []WorkflowEdge {
	var out []WorkflowEdge

	for _, edge := range d.Edges {
		if edge.Source == nodeID {
			out = append(out, edge)
		}
	}

	return out
}
