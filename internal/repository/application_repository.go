package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/melo-app/melo-api/internal/models"
)

const applicationColumns = "id, work_id, applicant_id, applicant_name, employer_id, status, applied_at, updated_at"

// ApplicationRepository provides database access for work applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new instance of ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new application. The partial unique index on
// (work_id, applicant_id) over non-withdrawn rows serialises concurrent
// first-time applies; callers map the unique violation to a conflict.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.AppliedAt.IsZero() {
		app.AppliedAt = now
	}
	app.UpdatedAt = now
	const query = `INSERT INTO applications (id, work_id, applicant_id, applicant_name, employer_id, status, applied_at, updated_at)
VALUES (:id, :work_id, :applicant_id, :applicant_name, :employer_id, :status, :applied_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by identifier.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1 LIMIT 1", applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application by id: %w", err)
	}
	return &app, nil
}

// ListByWork returns all applications referencing the work, newest first.
func (r *ApplicationRepository) ListByWork(ctx context.Context, workID string) ([]models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE work_id = $1 ORDER BY applied_at DESC", applicationColumns)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, workID); err != nil {
		return nil, fmt.Errorf("list applications for work: %w", err)
	}
	return apps, nil
}

// FindActiveByWorkAndApplicant returns the candidate's non-withdrawn
// application for the work, if any.
func (r *ApplicationRepository) FindActiveByWorkAndApplicant(ctx context.Context, workID, applicantID string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE work_id = $1 AND applicant_id = $2 AND status <> $3 LIMIT 1", applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, workID, applicantID, models.ApplicationWithdrawn); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application by work and applicant: %w", err)
	}
	return &app, nil
}

// HasAccepted reports whether the candidate has an accepted application for the work.
func (r *ApplicationRepository) HasAccepted(ctx context.Context, workID, applicantID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM applications WHERE work_id = $1 AND applicant_id = $2 AND status = $3)`
	var accepted bool
	if err := r.db.GetContext(ctx, &accepted, query, workID, applicantID, models.ApplicationAccepted); err != nil {
		return false, fmt.Errorf("check accepted application: %w", err)
	}
	return accepted, nil
}

// UpdateStatus transitions an application.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	const query = `UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return requireRowChange(res, "update application status")
}

// DeleteByWork removes every application referencing the work. Runs before
// the work row is deleted so a failure leaves both resources intact.
func (r *ApplicationRepository) DeleteByWork(ctx context.Context, workID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM applications WHERE work_id = $1", workID)
	if err != nil {
		return 0, fmt.Errorf("delete applications for work: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete applications for work: rows affected: %w", err)
	}
	return affected, nil
}
