package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/radiflow/radiflow/pkg/persistence"
	"github.com/radiflow/radiflow/pkg/persistence/memory"
	"github.com/radiflow/radiflow/pkg/persistence/postgres"
)

// NewPersistence dispatches on the URL scheme: postgres:// opens the real
// store, anything else falls back to the in-memory one used for development
// and tests.
//
//nolint:ireturn // Dispatch helper returns the seam on purpose.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgres.NewPersistence(ctx, logger, databaseURL)
	default:
		return memory.NewPersistence(), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	return provider
}
