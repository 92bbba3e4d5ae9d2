package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/melo-app/melo-api/internal/models"
)

// CompletionCodeRepository stores the per-work completion secrets.
type CompletionCodeRepository struct {
	db *sqlx.DB
}

// NewCompletionCodeRepository creates a new instance of CompletionCodeRepository.
func NewCompletionCodeRepository(db *sqlx.DB) *CompletionCodeRepository {
	return &CompletionCodeRepository{db: db}
}

// Upsert stores the code for a work, replacing any previous one. The primary
// key on work_id makes concurrent generation last-writer-wins.
func (r *CompletionCodeRepository) Upsert(ctx context.Context, code *models.CompletionCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO completion_codes (work_id, code, created_at)
VALUES (:work_id, :code, :created_at)
ON CONFLICT (work_id) DO UPDATE SET code = EXCLUDED.code, created_at = EXCLUDED.created_at`
	if _, err := r.db.NamedExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("upsert completion code: %w", err)
	}
	return nil
}

// FindByWork returns the current code for the work.
func (r *CompletionCodeRepository) FindByWork(ctx context.Context, workID string) (*models.CompletionCode, error) {
	const query = `SELECT work_id, code, created_at FROM completion_codes WHERE work_id = $1 LIMIT 1`
	var code models.CompletionCode
	if err := r.db.GetContext(ctx, &code, query, workID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find completion code: %w", err)
	}
	return &code, nil
}

// DeleteByWork removes the code record, used when a work is deleted.
func (r *CompletionCodeRepository) DeleteByWork(ctx context.Context, workID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM completion_codes WHERE work_id = $1", workID); err != nil {
		return fmt.Errorf("delete completion code: %w", err)
	}
	return nil
}
