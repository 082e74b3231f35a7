// Package tenant caches per-tenant persistence handles. Every tenant owns an
// isolated database reached through explicit connection coordinates carried
// on each event; nothing here resolves a tenant from ambient state.
package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// OpenFunc builds a persistence handle from a database URL. Wiring it in
// keeps this package free of driver imports.
type OpenFunc func(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error)

// Manager hands out one shared persistence handle per tenant, opening it
// lazily on first use.
type Manager struct {
	logger *slog.Logger
	open   OpenFunc

	mu     sync.Mutex
	stores map[string]persistence.Persistence
}

// NewManager creates an empty manager.
func NewManager(logger *slog.Logger, open OpenFunc) *Manager {
	return &Manager{
		logger: logger.With("module", "tenant"),
		open:   open,
		stores: make(map[string]persistence.Persistence),
	}
}

// Store returns the tenant's persistence handle, opening it on first use.
//
//nolint:ireturn // Persistence is the package's seam.
func (m *Manager) Store(ctx context.Context, conn models.TenantConnection) (persistence.Persistence, error) {
	if conn.TenantID == "" {
		return nil, fmt.Errorf("tenant connection is missing a tenant id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[conn.TenantID]; ok {
		return store, nil
	}

	store, err := m.open(ctx, m.logger, conn.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store for tenant %s: %w", conn.TenantID, err)
	}

	m.logger.Info("Opened tenant store", "tenant_id", conn.TenantID)
	m.stores[conn.TenantID] = store

	return store, nil
}

// Close shuts every cached handle. Errors are collected, the last one wins.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := context.Background()

	var lastErr error

	for tenantID, store := range m.stores {
		if err := store.Close(ctx); err != nil {
			m.logger.Error("Failed to close tenant store", "tenant_id", tenantID, "error", err)
			lastErr = err
		}

		delete(m.stores, tenantID)
	}

	return lastErr
}
