package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/upb/retrieval-gateway/models"
	"go.uber.org/zap"
)

// ViolationRepository persists violations in PostgreSQL
type ViolationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewViolationRepository creates a PostgreSQL-backed violation repository
func NewViolationRepository(db *sql.DB, logger *zap.Logger) *ViolationRepository {
	return &ViolationRepository{db: db, logger: logger}
}

// EnsureSchema creates the violations table if it does not exist
func (r *ViolationRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS violations (
			id UUID PRIMARY KEY,
			identity TEXT NOT NULL,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			excerpt TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_violations_created_at ON violations(created_at);
		CREATE INDEX IF NOT EXISTS idx_violations_identity ON violations(identity);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure violations schema: %w", err)
	}
	return nil
}

// Insert appends one violation record
func (r *ViolationRepository) Insert(ctx context.Context, v *models.Violation) error {
	query := `
		INSERT INTO violations (id, identity, kind, severity, message, excerpt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.Identity, string(v.Kind), v.Severity.String(), v.Message, v.Excerpt, v.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// GetByTimeRange returns violations within [start, end), newest first
func (r *ViolationRepository) GetByTimeRange(ctx context.Context, start, end time.Time, limit int) ([]models.Violation, error) {
	query := `
		SELECT id, identity, kind, severity, message, excerpt, created_at
		FROM violations
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	return r.queryViolations(ctx, query, start, end, limit)
}

// DeleteOlderThan purges records older than cutoff, returning the count removed
func (r *ViolationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM violations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old violations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// queryViolations executes a query and scans the resulting rows
func (r *ViolationRepository) queryViolations(ctx context.Context, query string, args ...interface{}) ([]models.Violation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var violations []models.Violation
	for rows.Next() {
		var v models.Violation
		var severity string
		var excerpt sql.NullString
		if err := rows.Scan(&v.ID, &v.Identity, &v.Kind, &severity, &v.Message, &excerpt, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan violation row: %w", err)
		}
		v.Severity = models.ParseSeverity(severity)
		v.Excerpt = excerpt.String
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating violation rows: %w", err)
	}
	return violations, nil
}
