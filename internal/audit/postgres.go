package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepository stores events in the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO audit_logs (id, action, user_id, session_id, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, q, e.ID, e.Action, e.UserID, e.SessionID, e.Detail, e.At); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
