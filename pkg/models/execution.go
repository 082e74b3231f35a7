package models

import (
	"fmt"
	"time"
)

// ExecutionStatus is the terminal state of one (automation, event)
// evaluation.
type ExecutionStatus string

const (
	ExecutionStatusRunning             ExecutionStatus = "running"
	ExecutionStatusCompleted           ExecutionStatus = "completed"
	ExecutionStatusCompletedWithErrors ExecutionStatus = "completed_with_errors"
	ExecutionStatusFailed              ExecutionStatus = "failed"
)

// StepStatus is the per-node outcome recorded on an execution step. A
// condition step is exactly one of condition_true, condition_false or
// failed.
type StepStatus string

const (
	StepStatusCompleted      StepStatus = "completed"
	StepStatusFailed         StepStatus = "failed"
	StepStatusConditionTrue  StepStatus = "condition_true"
	StepStatusConditionFalse StepStatus = "condition_false"
)

// ExecutionLog records one evaluation of one automation against one event.
// It is created before traversal starts so partial progress is observable,
// and its counters are updated live as steps complete.
type ExecutionLog struct {
	ID                  string          `json:"id"`
	AutomationID        string          `json:"automation_id"`
	TriggerType         string          `json:"trigger_type"`
	Status              ExecutionStatus `json:"status"`
	NodesVisited        int             `json:"nodes_visited"`
	ActionsExecuted     int             `json:"actions_executed"`
	ActionsSucceeded    int             `json:"actions_succeeded"`
	ActionsFailed       int             `json:"actions_failed"`
	ConditionsEvaluated int             `json:"conditions_evaluated"`
	Context             map[string]any  `json:"context,omitempty"`
	CorrelationID       string          `json:"correlation_id"`
	Summary             string          `json:"summary,omitempty"`
	StartedAt           time.Time       `json:"started_at"`
	FinishedAt          *time.Time      `json:"finished_at,omitempty"`
}

// Finalize derives the terminal status from the action counters and writes
// the human-readable summary. Any failed action alongside a succeeded one
// yields completed_with_errors; failures with zero successes yield failed.
func (l *ExecutionLog) Finalize(finishedAt time.Time) {
	switch {
	case l.ActionsFailed > 0 && l.ActionsSucceeded > 0:
		l.Status = ExecutionStatusCompletedWithErrors
	case l.ActionsFailed > 0:
		l.Status = ExecutionStatusFailed
	default:
		l.Status = ExecutionStatusCompleted
	}

	l.FinishedAt = &finishedAt
	l.Summary = fmt.Sprintf(
		"%d nodes visited, %d/%d actions succeeded, %d conditions evaluated in %s",
		l.NodesVisited,
		l.ActionsSucceeded,
		l.ActionsExecuted,
		l.ConditionsEvaluated,
		finishedAt.Sub(l.StartedAt).Round(time.Millisecond),
	)
}

// ExecutionStep records one node visited during one evaluation. Sequence
// numbers are contiguous and strictly increasing within a log, starting
// at 1.
type ExecutionStep struct {
	ID          string         `json:"id"`
	LogID       string         `json:"log_id"`
	Sequence    int            `json:"sequence"`
	NodeID      string         `json:"node_id"`
	NodeKind    NodeKind       `json:"node_kind"`
	NodeSubtype string         `json:"node_subtype,omitempty"`
	Label       string         `json:"label,omitempty"`
	Status      StepStatus     `json:"status"`
	Error       string         `json:"error,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	HTTPTrace   *HTTPTrace     `json:"http_trace,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// HTTPTrace is the full request/response capture of one http-request action,
// with the response body truncated to a fixed maximum.
type HTTPTrace struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestBody     string            `json:"request_body,omitempty"`
	StatusCode      int               `json:"status_code,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ResponseBody    string            `json:"response_body,omitempty"`
	BodyTruncated   bool              `json:"body_truncated,omitempty"`
	DurationMS      int64             `json:"duration_ms"`
}

// RadiusAccount is the subject account mutated by the suspend-user action.
// Full account management lives in the owning subsystem; the engine only
// flips the enabled flag.
type RadiusAccount struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
