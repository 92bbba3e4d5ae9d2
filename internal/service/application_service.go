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

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ListByWork(ctx context.Context, workID string) ([]models.Application, error)
	FindActiveByWorkAndApplicant(ctx context.Context, workID, applicantID string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error
}

type applicationWorkReader interface {
	FindByID(ctx context.Context, id string) (*models.Work, error)
}

// ApplicationService owns candidate applications and their transitions.
type ApplicationService struct {
	apps      applicationRepository
	works     applicationWorkReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService constructs the service.
func NewApplicationService(apps applicationRepository, works applicationWorkReader, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{apps: apps, works: works, validator: validate, logger: logger}
}

// ApplyRequest describes an application payload.
type ApplyRequest struct {
	ApplicantName string `json:"applicant_name" validate:"required"`
}

// Apply records a candidate's application to a work item. The employer id is
// denormalized from the work at creation time; later employer changes would
// not retroactively affect old applications. Duplicate live applications are
// rejected by the store constraint, which also closes the concurrent-apply race.
func (s *ApplicationService) Apply(ctx context.Context, workID string, req ApplyRequest, claims *models.JWTClaims) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}

	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch work")
	}
	if work.EmployerID == claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot apply to your own work")
	}
	if work.Status == models.WorkStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "work is already completed")
	}

	app := &models.Application{
		WorkID:        workID,
		ApplicantID:   claims.UserID,
		ApplicantName: req.ApplicantName,
		EmployerID:    work.EmployerID,
		Status:        models.ApplicationPending,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already applied to this work")
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return app, nil
}

// ListForWork returns applications for the work, employer only.
func (s *ApplicationService) ListForWork(ctx context.Context, workID string, claims *models.JWTClaims) ([]models.Application, error) {
	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch work")
	}
	if !isOwner(work, claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the employer may list applications")
	}
	apps, err := s.apps.ListByWork(ctx, workID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, nil
}

// CheckApplied reports whether the caller already applied and with what status.
func (s *ApplicationService) CheckApplied(ctx context.Context, workID string, claims *models.JWTClaims) (*models.ApplicationCheck, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	app, err := s.apps.FindActiveByWorkAndApplicant(ctx, workID, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ApplicationCheck{Applied: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check application")
	}
	return &models.ApplicationCheck{Applied: true, Status: &app.Status}, nil
}

// UpdateStatus transitions an application to Accepted or Rejected. Only the
// employer denormalized on the record may decide.
func (s *ApplicationService) UpdateStatus(ctx context.Context, applicationID, status string, claims *models.JWTClaims) (*models.Application, error) {
	next := models.ApplicationStatus(status)
	if next != models.ApplicationAccepted && next != models.ApplicationRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid application status %q", status))
	}

	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch application")
	}
	if claims == nil || (claims.UserID != app.EmployerID && !claims.IsAdmin()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the employer may decide applications")
	}

	if err := s.apps.UpdateStatus(ctx, applicationID, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}
	app.Status = next
	return app, nil
}

// Withdraw retracts the caller's own application. A withdrawn application
// frees the uniqueness slot, so the candidate may apply again later.
func (s *ApplicationService) Withdraw(ctx context.Context, applicationID string, claims *models.JWTClaims) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch application")
	}
	if claims == nil || claims.UserID != app.ApplicantID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the applicant may withdraw")
	}
	if app.Status == models.ApplicationWithdrawn {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already withdrawn")
	}

	if err := s.apps.UpdateStatus(ctx, applicationID, models.ApplicationWithdrawn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw application")
	}
	app.Status = models.ApplicationWithdrawn
	return app, nil
}
