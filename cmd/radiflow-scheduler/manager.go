// Package main provides the scheduler service: it keeps one cron/timer
// registration per scheduled automation across every configured tenant.
package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/scheduler"
	"github.com/radiflow/radiflow/pkg/tenant"
)

type SchedulerManager struct {
	adapter  *scheduler.Adapter
	tenants  *tenant.Manager
	roster   []models.TenantConnection
	interval time.Duration
	logger   *slog.Logger
}

func NewSchedulerManager(
	adapter *scheduler.Adapter,
	tenants *tenant.Manager,
	roster []models.TenantConnection,
	interval time.Duration,
	logger *slog.Logger,
) *SchedulerManager {
	return &SchedulerManager{
		adapter:  adapter,
		tenants:  tenants,
		roster:   roster,
		interval: interval,
		logger:   logger,
	}
}

// Start syncs every tenant, starts the cron engine and resyncs periodically
// so automations created after startup get picked up.
func (m *SchedulerManager) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m.syncAll(ctx)
	m.adapter.Start()

	m.logger.InfoContext(ctx, "Scheduler started",
		"tenants", len(m.roster), "resync_interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.syncAll(ctx)
		case <-ctx.Done():
			m.logger.Info("Shutting down scheduler")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			m.adapter.Stop(shutdownCtx)

			return nil
		}
	}
}

// syncAll registers the scheduled automations of every tenant. A failing
// tenant is logged and skipped.
func (m *SchedulerManager) syncAll(ctx context.Context) {
	for _, conn := range m.roster {
		store, err := m.tenants.Store(ctx, conn)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to open tenant store",
				"tenant_id", conn.TenantID, "error", err)

			continue
		}

		automations, err := store.Automations().ListScheduled(ctx)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to list scheduled automations",
				"tenant_id", conn.TenantID, "error", err)

			continue
		}

		m.adapter.Sync(conn, automations)
	}
}
