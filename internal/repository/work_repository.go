package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/melo-app/melo-api/internal/models"
)

const workColumns = "id, title, description, location, category, skills, employer_id, employer_name, employee_id, wage, payment_type, status, created_at, updated_at"

// WorkRepository provides database access for work items.
type WorkRepository struct {
	db *sqlx.DB
}

// NewWorkRepository creates a new instance of WorkRepository.
func NewWorkRepository(db *sqlx.DB) *WorkRepository {
	return &WorkRepository{db: db}
}

// Create inserts a new work item.
func (r *WorkRepository) Create(ctx context.Context, work *models.Work) error {
	if work.ID == "" {
		work.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	work.CreatedAt = now
	work.UpdatedAt = now
	const query = `INSERT INTO works (id, title, description, location, category, skills, employer_id, employer_name, employee_id, wage, payment_type, status, created_at, updated_at)
VALUES (:id, :title, :description, :location, :category, :skills, :employer_id, :employer_name, :employee_id, :wage, :payment_type, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, work); err != nil {
		return fmt.Errorf("create work: %w", err)
	}
	return nil
}

// FindByID returns a work item by identifier.
func (r *WorkRepository) FindByID(ctx context.Context, id string) (*models.Work, error) {
	query := fmt.Sprintf("SELECT %s FROM works WHERE id = $1 LIMIT 1", workColumns)
	var work models.Work
	if err := r.db.GetContext(ctx, &work, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find work by id: %w", err)
	}
	return &work, nil
}

// List returns work items per provided filter with total count.
func (r *WorkRepository) List(ctx context.Context, filter models.WorkFilter) ([]models.Work, int, error) {
	baseQuery := "FROM works WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.EmployerID != "" {
		conditions = append(conditions, fmt.Sprintf("employer_id = $%d", len(args)+1))
		args = append(args, filter.EmployerID)
	}
	if filter.EmployeeID != "" {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := filter.Limits()
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", workColumns, baseQuery, pageSize, offset)
	var works []models.Work
	if err := r.db.SelectContext(ctx, &works, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list works: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count works: %w", err)
	}
	return works, total, nil
}

// FindActiveByEmployee returns the single in-progress work assigned to the
// employee. If multiple exist the most recently updated one wins so callers
// get a deterministic result.
func (r *WorkRepository) FindActiveByEmployee(ctx context.Context, employeeID string) (*models.Work, error) {
	query := fmt.Sprintf("SELECT %s FROM works WHERE employee_id = $1 AND status = $2 ORDER BY updated_at DESC LIMIT 1", workColumns)
	var work models.Work
	if err := r.db.GetContext(ctx, &work, query, employeeID, models.WorkStatusInProgress); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active work for employee: %w", err)
	}
	return &work, nil
}

// UpdateDetails rewrites the descriptive fields of a work item.
func (r *WorkRepository) UpdateDetails(ctx context.Context, work *models.Work) error {
	work.UpdatedAt = time.Now().UTC()
	const query = `UPDATE works SET title = :title, description = :description, location = :location, category = :category, skills = :skills, wage = :wage, payment_type = :payment_type, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, work)
	if err != nil {
		return fmt.Errorf("update work details: %w", err)
	}
	return requireRowChange(res, "update work details")
}

// Assign sets the employee and status in one write.
func (r *WorkRepository) Assign(ctx context.Context, workID, employeeID string, status models.WorkStatus) error {
	const query = `UPDATE works SET employee_id = $2, status = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, workID, employeeID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign employee: %w", err)
	}
	return requireRowChange(res, "assign employee")
}

// UpdateStatus overwrites the lifecycle status.
func (r *WorkRepository) UpdateStatus(ctx context.Context, workID string, status models.WorkStatus) error {
	const query = `UPDATE works SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, workID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update work status: %w", err)
	}
	return requireRowChange(res, "update work status")
}

// Delete removes a work item.
func (r *WorkRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM works WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete work: %w", err)
	}
	return requireRowChange(res, "delete work")
}

// requireRowChange maps zero affected rows onto sql.ErrNoRows so services can
// translate it into a not-found error.
func requireRowChange(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
