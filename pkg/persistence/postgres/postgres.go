// Package postgres implements the tenant-scoped persistence layer on
// PostgreSQL. Each tenant owns one database; opening a handle binds this
// layer to it.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // postgres driver
	"github.com/radiflow/radiflow/pkg/persistence"
	"github.com/radiflow/radiflow/pkg/persistence/sqlbase"
)

// psql builds statements with $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Persistence is one tenant's PostgreSQL-backed storage handle.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	automations *AutomationRepository
	logs        *ExecutionLogRepository
	steps       *ExecutionStepRepository
	accounts    *AccountRepository
}

// NewPersistence connects to the tenant database and runs pending
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping tenant database: %w", err)
	}

	err = sqlbase.NewMigrationManager(logger, db, migrations()).RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          db,
		logger:      logger,
		automations: &AutomationRepository{db: db},
		logs:        &ExecutionLogRepository{db: db},
		steps:       &ExecutionStepRepository{db: db},
		accounts:    &AccountRepository{db: db},
	}, nil
}

func (p *Persistence) Automations() persistence.AutomationRepository     { return p.automations }
func (p *Persistence) ExecutionLogs() persistence.ExecutionLogRepository { return p.logs }
func (p *Persistence) ExecutionSteps() persistence.ExecutionStepRepository {
	return p.steps
}
func (p *Persistence) Accounts() persistence.AccountRepository { return p.accounts }

// HealthCheck pings the tenant database.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("tenant database unhealthy: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (p *Persistence) Close(_ context.Context) error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close tenant database: %w", err)
	}

	return nil
}
