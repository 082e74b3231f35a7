package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// AutomationRepository reads and pauses the tenant's automations.
type AutomationRepository struct {
	db *sql.DB
}

var automationColumns = []string{
	"id", "title", "status", "active", "trigger_type", "schedule_type",
	"cron_expression", "interval_minutes", "scheduled_time", "workflow",
	"deleted", "created_at", "updated_at",
}

func (r *AutomationRepository) ListRunnable(ctx context.Context) ([]*models.Automation, error) {
	query := psql.Select(automationColumns...).
		From("automations").
		Where(sq.Eq{"status": models.AutomationStatusActive, "active": true, "deleted": false}).
		OrderBy("created_at ASC, id ASC")

	return r.list(ctx, query)
}

func (r *AutomationRepository) ListScheduled(ctx context.Context) ([]*models.Automation, error) {
	query := psql.Select(automationColumns...).
		From("automations").
		Where(sq.Eq{
			"status":       models.AutomationStatusActive,
			"active":       true,
			"deleted":      false,
			"trigger_type": models.TriggerScheduled,
		}).
		OrderBy("created_at ASC, id ASC")

	return r.list(ctx, query)
}

func (r *AutomationRepository) list(ctx context.Context, query sq.SelectBuilder) ([]*models.Automation, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build automation query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Automation

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, automation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate automations: %w", err)
	}

	return out, nil
}

func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	sqlStr, args, err := psql.Select(automationColumns...).
		From("automations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build automation query: %w", err)
	}

	automation, err := scanAutomation(r.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrAutomationNotFound
	}

	if err != nil {
		return nil, err
	}

	return automation, nil
}

func (r *AutomationRepository) Pause(ctx context.Context, id string) error {
	sqlStr, args, err := psql.Update("automations").
		Set("status", models.AutomationStatusPaused).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build automation pause: %w", err)
	}

	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to pause automation %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.ErrAutomationNotFound
	}

	return nil
}

func (r *AutomationRepository) Save(ctx context.Context, a *models.Automation) error {
	workflow := a.Workflow
	if len(workflow) == 0 {
		workflow = json.RawMessage("{}")
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}

	a.UpdatedAt = now

	sqlStr, args, err := psql.Insert("automations").
		Columns(automationColumns...).
		Values(
			a.ID, a.Title, a.Status, a.Active, a.TriggerType,
			nullString(string(a.ScheduleType)), nullString(a.CronExpression),
			a.IntervalMinutes, a.ScheduledTime, []byte(workflow),
			a.Deleted, a.CreatedAt, a.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			active = EXCLUDED.active,
			trigger_type = EXCLUDED.trigger_type,
			schedule_type = EXCLUDED.schedule_type,
			cron_expression = EXCLUDED.cron_expression,
			interval_minutes = EXCLUDED.interval_minutes,
			scheduled_time = EXCLUDED.scheduled_time,
			workflow = EXCLUDED.workflow,
			deleted = EXCLUDED.deleted,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build automation upsert: %w", err)
	}

	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to save automation %s: %w", a.ID, err)
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		a            models.Automation
		scheduleType sql.NullString
		cronExpr     sql.NullString
		scheduledAt  sql.NullTime
		workflow     []byte
	)

	err := row.Scan(
		&a.ID, &a.Title, &a.Status, &a.Active, &a.TriggerType,
		&scheduleType, &cronExpr, &a.IntervalMinutes, &scheduledAt,
		&workflow, &a.Deleted, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan automation: %w", err)
	}

	a.ScheduleType = models.ScheduleType(scheduleType.String)
	a.CronExpression = cronExpr.String

	if scheduledAt.Valid {
		t := scheduledAt.Time
		a.ScheduledTime = &t
	}

	a.Workflow = json.RawMessage(workflow)

	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
