package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
)

// AccountRepository exposes the subject RADIUS accounts.
type AccountRepository struct {
	db *sql.DB
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.RadiusAccount, error) {
	sqlStr, args, err := psql.Select("id", "uuid", "username", "enabled", "created_at", "updated_at").
		From("radius_accounts").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build account query: %w", err)
	}

	var account models.RadiusAccount

	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&account.ID, &account.UUID, &account.Username, &account.Enabled,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return &account, nil
}

func (r *AccountRepository) SetEnabled(ctx context.Context, username string, enabled bool) error {
	sqlStr, args, err := psql.Update("radius_accounts").
		Set("enabled", enabled).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build account update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", username, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.ErrAccountNotFound
	}

	return nil
}

func (r *AccountRepository) Save(ctx context.Context, account *models.RadiusAccount) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}

	account.UpdatedAt = now

	sqlStr, args, err := psql.Insert("radius_accounts").
		Columns("uuid", "username", "enabled", "created_at", "updated_at").
		Values(account.UUID, account.Username, account.Enabled, account.CreatedAt, account.UpdatedAt).
		Suffix(`ON CONFLICT (username) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build account upsert: %w", err)
	}

	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.Username, err)
	}

	return nil
}
