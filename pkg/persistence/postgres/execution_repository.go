package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// ExecutionLogRepository persists per-evaluation logs.
type ExecutionLogRepository struct {
	db *sql.DB
}

var logColumns = []string{
	"id", "automation_id", "trigger_type", "status", "nodes_visited",
	"actions_executed", "actions_succeeded", "actions_failed",
	"conditions_evaluated", "context", "correlation_id", "summary",
	"started_at", "finished_at",
}

func (r *ExecutionLogRepository) Create(ctx context.Context, log *models.ExecutionLog) error {
	contextJSON, err := marshalNullable(log.Context)
	if err != nil {
		return fmt.Errorf("failed to encode log context: %w", err)
	}

	sqlStr, args, err := psql.Insert("execution_logs").
		Columns(logColumns...).
		Values(
			log.ID, log.AutomationID, log.TriggerType, log.Status,
			log.NodesVisited, log.ActionsExecuted, log.ActionsSucceeded,
			log.ActionsFailed, log.ConditionsEvaluated, contextJSON,
			log.CorrelationID, nullString(log.Summary), log.StartedAt,
			log.FinishedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build log insert: %w", err)
	}

	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to create execution log %s: %w", log.ID, err)
	}

	return nil
}

func (r *ExecutionLogRepository) Update(ctx context.Context, log *models.ExecutionLog) error {
	sqlStr, args, err := psql.Update("execution_logs").
		Set("status", log.Status).
		Set("nodes_visited", log.NodesVisited).
		Set("actions_executed", log.ActionsExecuted).
		Set("actions_succeeded", log.ActionsSucceeded).
		Set("actions_failed", log.ActionsFailed).
		Set("conditions_evaluated", log.ConditionsEvaluated).
		Set("summary", nullString(log.Summary)).
		Set("finished_at", log.FinishedAt).
		Where(sq.Eq{"id": log.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build log update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to update execution log %s: %w", log.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.ErrExecutionLogNotFound
	}

	return nil
}

func (r *ExecutionLogRepository) GetByID(ctx context.Context, id string) (*models.ExecutionLog, error) {
	sqlStr, args, err := psql.Select(logColumns...).
		From("execution_logs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build log query: %w", err)
	}

	log, err := scanLog(r.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrExecutionLogNotFound
	}

	if err != nil {
		return nil, err
	}

	return log, nil
}

func (r *ExecutionLogRepository) ListByAutomation(ctx context.Context, automationID string, limit, offset int) ([]*models.ExecutionLog, error) {
	query := psql.Select(logColumns...).
		From("execution_logs").
		Where(sq.Eq{"automation_id": automationID})

	return r.listLogs(ctx, query, limit, offset)
}

func (r *ExecutionLogRepository) List(ctx context.Context, limit, offset int) ([]*models.ExecutionLog, error) {
	return r.listLogs(ctx, psql.Select(logColumns...).From("execution_logs"), limit, offset)
}

func (r *ExecutionLogRepository) listLogs(ctx context.Context, query sq.SelectBuilder, limit, offset int) ([]*models.ExecutionLog, error) {
	query = query.OrderBy("started_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	if offset > 0 {
		query = query.Offset(uint64(offset))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build log list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.ExecutionLog

	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution logs: %w", err)
	}

	return out, nil
}

func scanLog(row rowScanner) (*models.ExecutionLog, error) {
	var (
		log         models.ExecutionLog
		contextJSON []byte
		summary     sql.NullString
		finishedAt  sql.NullTime
	)

	err := row.Scan(
		&log.ID, &log.AutomationID, &log.TriggerType, &log.Status,
		&log.NodesVisited, &log.ActionsExecuted, &log.ActionsSucceeded,
		&log.ActionsFailed, &log.ConditionsEvaluated, &contextJSON,
		&log.CorrelationID, &summary, &log.StartedAt, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan execution log: %w", err)
	}

	log.Summary = summary.String

	if finishedAt.Valid {
		t := finishedAt.Time
		log.FinishedAt = &t
	}

	if len(contextJSON) > 0 {
		err = json.Unmarshal(contextJSON, &log.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to decode log context: %w", err)
		}
	}

	return &log, nil
}

// ExecutionStepRepository persists per-node steps.
type ExecutionStepRepository struct {
	db *sql.DB
}

var stepColumns = []string{
	"id", "log_id", "seq", "node_id", "node_kind", "node_subtype", "label",
	"status", "error", "result", "http_trace", "started_at", "finished_at",
}

func (r *ExecutionStepRepository) Append(ctx context.Context, step *models.ExecutionStep) error {
	resultJSON, err := marshalNullable(step.Result)
	if err != nil {
		return fmt.Errorf("failed to encode step result: %w", err)
	}

	var traceJSON []byte

	if step.HTTPTrace != nil {
		traceJSON, err = json.Marshal(step.HTTPTrace)
		if err != nil {
			return fmt.Errorf("failed to encode step http trace: %w", err)
		}
	}

	sqlStr, args, err := psql.Insert("execution_steps").
		Columns(stepColumns...).
		Values(
			step.ID, step.LogID, step.Sequence, step.NodeID, step.NodeKind,
			nullString(step.NodeSubtype), nullString(step.Label), step.Status,
			nullString(step.Error), resultJSON, traceJSON, step.StartedAt,
			step.FinishedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build step insert: %w", err)
	}

	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to append execution step %d of log %s: %w", step.Sequence, step.LogID, err)
	}

	return nil
}

func (r *ExecutionStepRepository) ListByLog(ctx context.Context, logID string) ([]*models.ExecutionStep, error) {
	sqlStr, args, err := psql.Select(stepColumns...).
		From("execution_steps").
		Where(sq.Eq{"log_id": logID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build step query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.ExecutionStep

	for rows.Next() {
		var (
			step        models.ExecutionStep
			subtype     sql.NullString
			label       sql.NullString
			stepErr     sql.NullString
			resultJSON  []byte
			traceJSON   []byte
		)

		err = rows.Scan(
			&step.ID, &step.LogID, &step.Sequence, &step.NodeID,
			&step.NodeKind, &subtype, &label, &step.Status, &stepErr,
			&resultJSON, &traceJSON, &step.StartedAt, &step.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution step: %w", err)
		}

		step.NodeSubtype = subtype.String
		step.Label = label.String
		step.Error = stepErr.String

		if len(resultJSON) > 0 {
			err = json.Unmarshal(resultJSON, &step.Result)
			if err != nil {
				return nil, fmt.Errorf("failed to decode step result: %w", err)
			}
		}

		if len(traceJSON) > 0 {
			step.HTTPTrace = &models.HTTPTrace{}

			err = json.Unmarshal(traceJSON, step.HTTPTrace)
			if err != nil {
				return nil, fmt.Errorf("failed to decode step http trace: %w", err)
			}
		}

		out = append(out, &step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution steps: %w", err)
	}

	return out, nil
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}

	return json.Marshal(m)
}
