// Package models holds the domain types shared by every service: automations,
// their workflow graphs, domain events and execution traces.
package models

import (
	"encoding/json"
	"time"
)

// AutomationStatus is the lifecycle state of an automation.
type AutomationStatus string

const (
	AutomationStatusActive AutomationStatus = "active"
	AutomationStatusPaused AutomationStatus = "paused"
	AutomationStatusDraft  AutomationStatus = "draft"
)

// ScheduleType selects how a schedule-driven automation fires.
type ScheduleType string

const (
	SchedulePeriodic ScheduleType = "periodic"
	ScheduleAtTime   ScheduleType = "at_time"
)

// TriggerScheduled is the trigger type of synthetic events injected by the
// scheduler. Schedule-driven automations match on it.
const TriggerScheduled = "scheduled"

// Automation is one tenant-owned workflow registration. Both the status and
// the active flag gate evaluation: a paused or deactivated automation is
// never matched.
type Automation struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"            validate:"required"`
	Status          AutomationStatus `json:"status"           validate:"required,oneof=active paused draft"`
	Active          bool             `json:"active"`
	TriggerType     string           `json:"trigger_type"     validate:"required"`
	ScheduleType    ScheduleType     `json:"schedule_type,omitempty"`
	CronExpression  string           `json:"cron_expression,omitempty"`
	IntervalMinutes int              `json:"interval_minutes,omitempty"`
	ScheduledTime   *time.Time       `json:"scheduled_time,omitempty"`
	Workflow        json.RawMessage  `json:"workflow"`
	Deleted         bool             `json:"deleted"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Runnable reports whether the automation is eligible for evaluation.
func (a *Automation) Runnable() bool {
	return a.Status == AutomationStatusActive && a.Active && !a.Deleted
}

// IsScheduled reports whether the automation fires from the scheduler rather
// than from live domain events.
func (a *Automation) IsScheduled() bool {
	return a.TriggerType == TriggerScheduled
}
