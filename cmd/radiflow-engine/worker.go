// Package main provides the background worker that evaluates queued
// automation events.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/radiflow/radiflow/pkg/engine"
	"github.com/radiflow/radiflow/pkg/eventbus"
	"github.com/radiflow/radiflow/pkg/events"
	"github.com/radiflow/radiflow/pkg/queue"
	"github.com/radiflow/radiflow/pkg/tenant"
)

type WorkerManager struct {
	workerID string
	engine   *engine.Engine
	tenants  *tenant.Manager
	eventBus eventbus.EventBus
	intake   *queue.Intake
	logger   *slog.Logger
}

func NewWorkerManager(
	workerID string,
	eng *engine.Engine,
	tenants *tenant.Manager,
	eventBus eventbus.EventBus,
	intake *queue.Intake,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		workerID: workerID,
		engine:   eng,
		tenants:  tenants,
		eventBus: eventBus,
		intake:   intake,
		logger:   logger,
	}
}

// Start subscribes to the queued-event topic and blocks until a shutdown
// signal arrives.
func (w *WorkerManager) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := w.eventBus.Subscribe(ctx, events.Topic, w.handleQueuedEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	if w.intake != nil {
		w.intake.Start(ctx)
	}

	w.logger.InfoContext(ctx, "Worker started", "topic", events.Topic)

	<-ctx.Done()

	w.logger.Info("Shutting down worker")

	if w.intake != nil {
		err := w.intake.Stop(context.Background())
		if err != nil {
			w.logger.Error("Failed to stop queue intake", "error", err)
		}
	}

	return nil
}

// handleQueuedEvent evaluates one envelope. Returning an error nacks the
// message; anything the engine already swallowed stays swallowed.
func (w *WorkerManager) handleQueuedEvent(ctx context.Context, event any) error {
	envelope, ok := event.(*events.AutomationEventQueued)
	if !ok {
		w.logger.WarnContext(ctx, "Ignoring event of unexpected type",
			"type", fmt.Sprintf("%T", event))

		return nil
	}

	if envelope.Event == nil {
		w.logger.WarnContext(ctx, "Ignoring envelope without event", "event_id", envelope.ID)

		return nil
	}

	store, err := w.tenants.Store(ctx, envelope.Tenant)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Evaluating queued event",
		"event_id", envelope.ID,
		"tenant_id", envelope.Tenant.TenantID,
		"trigger_type", envelope.Event.TriggerType,
	)

	return w.engine.FireEvent(ctx, store, envelope.Event)
}
