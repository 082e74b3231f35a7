package models

import "time"

// AutomationEvent is a typed domain occurrence fed into the engine. It is
// ephemeral: only the context snapshot survives on the execution log. The
// camelCase JSON names are the wire contract shared with every event
// producer in the platform.
type AutomationEvent struct {
	TriggerType   string         `json:"triggerType"   validate:"required"`
	SubjectID     int64          `json:"subjectId,omitempty"`
	SubjectUUID   string         `json:"subjectUuid,omitempty"`
	SubjectName   string         `json:"subjectName,omitempty"`
	PerformedBy   string         `json:"performedBy,omitempty"`
	SourceAddress string         `json:"sourceAddress,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Context       map[string]any `json:"context,omitempty"`
}

// TenantConnection is the coordinate pair a background invocation needs to
// open its own tenant-scoped persistence handle. No ambient tenant
// resolution exists on that path.
type TenantConnection struct {
	TenantID    string `json:"tenant_id"    validate:"required"`
	DatabaseURL string `json:"database_url" validate:"required"`
}
