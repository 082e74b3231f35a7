// Package web provides the HTTP surface of the automation service: event
// intake plus read access to automations and execution traces.
package web

import "github.com/radiflow/radiflow/pkg/models"

// FireEventRequest is the body of POST /events. Tenant coordinates travel
// with the event; background selects hand-off through the event bus instead
// of inline evaluation.
type FireEventRequest struct {
	Tenant     models.TenantConnection `json:"tenant"`
	Event      *models.AutomationEvent `json:"event"`
	Background bool                    `json:"background"`
}

// FireEventResponse reports how the event was handled.
type FireEventResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id,omitempty"`
}

// ExecutionLogsResponse pages execution logs newest-first.
type ExecutionLogsResponse struct {
	Logs   []*models.ExecutionLog `json:"logs"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}
