// Package events defines the envelope published when an automation event is
// queued for background evaluation.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/radiflow/radiflow/pkg/models"
)

type EventType string

// Topic is the broker topic carrying queued automation events.
const Topic = "radiflow.automation.events"

const EventTypeMetadataKey = "event_type"

const (
	// AutomationEventQueuedType marks an event handed off for asynchronous
	// evaluation by the worker.
	AutomationEventQueuedType EventType = "automation.event.queued"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// AutomationEventQueued wraps a domain event with the tenant coordinates the
// worker needs to open the right database. The engine side never infers the
// tenant from anything else.
type AutomationEventQueued struct {
	BaseEvent

	Tenant models.TenantConnection `json:"tenant"`
	Event  *models.AutomationEvent `json:"event"`
}

func (e AutomationEventQueued) GetType() EventType {
	return AutomationEventQueuedType
}

// NewAutomationEventQueued builds the envelope for one domain event.
func NewAutomationEventQueued(tenant models.TenantConnection, event *models.AutomationEvent) AutomationEventQueued {
	return AutomationEventQueued{
		BaseEvent: NewBaseEvent(AutomationEventQueuedType),
		Tenant:    tenant,
		Event:     event,
	}
}
