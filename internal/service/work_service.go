package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/melo-app/melo-api/internal/models"
	"github.com/melo-app/melo-api/internal/repository"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
)

type workRepository interface {
	Create(ctx context.Context, work *models.Work) error
	FindByID(ctx context.Context, id string) (*models.Work, error)
	List(ctx context.Context, filter models.WorkFilter) ([]models.Work, int, error)
	FindActiveByEmployee(ctx context.Context, employeeID string) (*models.Work, error)
	UpdateDetails(ctx context.Context, work *models.Work) error
	Assign(ctx context.Context, workID, employeeID string, status models.WorkStatus) error
	UpdateStatus(ctx context.Context, workID string, status models.WorkStatus) error
	Delete(ctx context.Context, id string) error
}

type workApplicationRepository interface {
	HasAccepted(ctx context.Context, workID, applicantID string) (bool, error)
	DeleteByWork(ctx context.Context, workID string) (int64, error)
}

type workUserReader interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type completionCodeCleaner interface {
	DeleteByWork(ctx context.Context, workID string) error
}

// WorkService owns the lifecycle of work items: publication, assignment,
// status transitions and deletion.
type WorkService struct {
	works     workRepository
	apps      workApplicationRepository
	users     workUserReader
	codes     completionCodeCleaner
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWorkService constructs the service.
func NewWorkService(works workRepository, apps workApplicationRepository, users workUserReader, codes completionCodeCleaner, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *WorkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkService{works: works, apps: apps, users: users, codes: codes, cache: cache, validator: validate, logger: logger}
}

// PublishWorkRequest describes the publish payload.
type PublishWorkRequest struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	Category     string   `json:"category"`
	Skills       []string `json:"skills"`
	EmployerID   string   `json:"-"`
	EmployerName string   `json:"employer_name" validate:"required"`
	Wage         float64  `json:"wage" validate:"required,gt=0"`
	PaymentType  string   `json:"payment_type" validate:"required"`
}

// UpdateWorkRequest rewrites the descriptive fields, employer only.
type UpdateWorkRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	Skills      []string `json:"skills"`
	Wage        float64  `json:"wage" validate:"required,gt=0"`
	PaymentType string   `json:"payment_type" validate:"required"`
}

// AssignEmployeeRequest sets the worker on a work item.
type AssignEmployeeRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
}

// Publish creates a new work item in Published state.
func (s *WorkService) Publish(ctx context.Context, req PublishWorkRequest) (*models.Work, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid work payload")
	}
	if req.EmployerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employer identity required")
	}

	work := &models.Work{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		Category:     req.Category,
		Skills:       req.Skills,
		EmployerID:   req.EmployerID,
		EmployerName: req.EmployerName,
		Wage:         req.Wage,
		PaymentType:  models.PaymentType(req.PaymentType),
		Status:       models.WorkStatusPublished,
	}
	if err := s.works.Create(ctx, work); err != nil {
		if repository.IsCheckViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "work violates a data constraint")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create work")
	}
	s.invalidateWorkCache(ctx, work.ID)
	return work, nil
}

// Get fetches a single work item.
func (s *WorkService) Get(ctx context.Context, id string) (*models.Work, error) {
	if s.cache.Enabled() {
		var cached models.Work
		if hit, _ := s.cache.Get(ctx, workCacheKey(id), &cached); hit {
			return &cached, nil
		}
	}
	work, err := s.works.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch work")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, workCacheKey(id), work, 0)
	}
	return work, nil
}

// List returns works matching the filter.
func (s *WorkService) List(ctx context.Context, filter models.WorkFilter) ([]models.Work, *models.Pagination, error) {
	if filter.Status != "" && !models.ValidWorkStatus(filter.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}
	works, total, err := s.works.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list works")
	}
	page, pageSize := filter.Limits()
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return works, pagination, nil
}

// ActiveForEmployee returns the single in-progress work assigned to the caller.
func (s *WorkService) ActiveForEmployee(ctx context.Context, employeeID string) (*models.Work, error) {
	work, err := s.works.FindActiveByEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active work")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch active work")
	}
	return work, nil
}

// Update rewrites descriptive fields; only the employer may edit.
func (s *WorkService) Update(ctx context.Context, workID string, req UpdateWorkRequest, requestedBy *models.JWTClaims) (*models.Work, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid work payload")
	}
	work, err := s.ownedWork(ctx, workID, requestedBy)
	if err != nil {
		return nil, err
	}

	work.Title = req.Title
	work.Description = req.Description
	work.Location = req.Location
	work.Category = req.Category
	work.Skills = req.Skills
	work.Wage = req.Wage
	work.PaymentType = models.PaymentType(req.PaymentType)
	if err := s.works.UpdateDetails(ctx, work); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		if repository.IsCheckViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "work violates a data constraint")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update work")
	}
	s.invalidateWorkCache(ctx, workID)
	return work, nil
}

// Assign sets the employee on a work item and moves it to the requested
// status. Allowed for the employer, or for the candidate themself when the
// employer has accepted their application.
func (s *WorkService) Assign(ctx context.Context, workID string, req AssignEmployeeRequest, requestedBy *models.JWTClaims) (*models.Work, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assign payload")
	}
	if !models.ValidWorkStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch work")
	}

	exists, err := s.users.Exists(ctx, req.EmployeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve employee")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
	}

	if !isOwner(work, requestedBy) {
		// A candidate may self-assign only onto an accepted application.
		if requestedBy == nil || requestedBy.UserID != req.EmployeeID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the employer may assign this work")
		}
		accepted, err := s.apps.HasAccepted(ctx, workID, req.EmployeeID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check application")
		}
		if !accepted {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no accepted application for this work")
		}
	}

	if models.WorkStatus(req.Status) == models.WorkStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completion requires the completion code")
	}

	if err := s.works.Assign(ctx, workID, req.EmployeeID, models.WorkStatus(req.Status)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign employee")
	}
	s.invalidateWorkCache(ctx, workID)

	work.EmployeeID = &req.EmployeeID
	work.Status = models.WorkStatus(req.Status)
	return work, nil
}

// SetStatus overwrites the lifecycle status. Employer only; the terminal
// Completed state is reachable solely through the completion handshake.
func (s *WorkService) SetStatus(ctx context.Context, workID, status string, requestedBy *models.JWTClaims) (*models.Work, error) {
	if !models.ValidWorkStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
	}

	work, err := s.ownedWork(ctx, workID, requestedBy)
	if err != nil {
		return nil, err
	}

	next := models.WorkStatus(status)
	if next == models.WorkStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completion requires the completion code")
	}
	if next == models.WorkStatusInProgress && work.EmployeeID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "work has no assigned employee")
	}

	if err := s.works.UpdateStatus(ctx, workID, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	s.invalidateWorkCache(ctx, workID)

	work.Status = next
	return work, nil
}

// Delete removes a work item after cascading to its applications and
// completion code. The cascade is sequential and best-effort: when the
// application step fails the work row is left untouched and the error names
// the failed step.
func (s *WorkService) Delete(ctx context.Context, workID string, requestedBy *models.JWTClaims) error {
	if _, err := s.ownedWork(ctx, workID, requestedBy); err != nil {
		return err
	}

	deleted, err := s.apps.DeleteByWork(ctx, workID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete applications for work")
	}
	if err := s.codes.DeleteByWork(ctx, workID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete completion code for work")
	}
	if err := s.works.Delete(ctx, workID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete work")
	}
	s.invalidateWorkCache(ctx, workID)
	s.logger.Info("work deleted", zap.String("work_id", workID), zap.Int64("applications_removed", deleted))
	return nil
}

// ownedWork fetches the work and verifies the caller is its employer or an admin.
func (s *WorkService) ownedWork(ctx context.Context, workID string, requestedBy *models.JWTClaims) (*models.Work, error) {
	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch work")
	}
	if !isOwner(work, requestedBy) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the employer may modify this work")
	}
	return work, nil
}

func isOwner(work *models.Work, claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	return claims.UserID == work.EmployerID || claims.IsAdmin()
}

func (s *WorkService) invalidateWorkCache(ctx context.Context, workID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, workCacheKey(workID)); err != nil {
		s.logger.Warn("work cache invalidation failed", zap.String("work_id", workID), zap.Error(err))
	}
}

func workCacheKey(id string) string {
	return "work:" + id
}
