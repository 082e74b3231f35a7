package tenant

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/radiflow/radiflow/pkg/log"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
	"github.com/radiflow/radiflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OpensOncePerTenant(t *testing.T) {
	opened := 0

	manager := NewManager(log.WithModule("test"), func(_ context.Context, _ *slog.Logger, _ string) (persistence.Persistence, error) {
		opened++

		return memory.NewPersistence(), nil
	})

	ctx := context.Background()
	connA := models.TenantConnection{TenantID: "a", DatabaseURL: "memory://a"}
	connB := models.TenantConnection{TenantID: "b", DatabaseURL: "memory://b"}

	first, err := manager.Store(ctx, connA)
	require.NoError(t, err)

	second, err := manager.Store(ctx, connA)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, opened)

	other, err := manager.Store(ctx, connB)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, opened)
}

func TestStore_RequiresTenantID(t *testing.T) {
	manager := NewManager(log.WithModule("test"), func(_ context.Context, _ *slog.Logger, _ string) (persistence.Persistence, error) {
		return memory.NewPersistence(), nil
	})

	_, err := manager.Store(context.Background(), models.TenantConnection{DatabaseURL: "memory://"})
	assert.Error(t, err)
}

func TestStore_PropagatesOpenFailure(t *testing.T) {
	openErr := errors.New("connection refused")

	manager := NewManager(log.WithModule("test"), func(_ context.Context, _ *slog.Logger, _ string) (persistence.Persistence, error) {
		return nil, openErr
	})

	_, err := manager.Store(context.Background(), models.TenantConnection{TenantID: "a", DatabaseURL: "x"})
	assert.ErrorIs(t, err, openErr)
}

func TestClose_EmptiesCache(t *testing.T) {
	manager := NewManager(log.WithModule("test"), func(_ context.Context, _ *slog.Logger, _ string) (persistence.Persistence, error) {
		return memory.NewPersistence(), nil
	})

	_, err := manager.Store(context.Background(), models.TenantConnection{TenantID: "a", DatabaseURL: "x"})
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	assert.Empty(t, manager.stores)
}
