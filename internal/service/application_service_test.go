package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/melo-app/melo-api/internal/models"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
)

type appRepoStub struct {
	apps      map[string]*models.Application
	active    *models.Application
	created   []*models.Application
	statuses  []models.ApplicationStatus
	createErr error
}

func (s *appRepoStub) Create(ctx context.Context, app *models.Application) error {
	if s.createErr != nil {
		return s.createErr
	}
	app.ID = "app-generated"
	s.created = append(s.created, app)
	return nil
}

func (s *appRepoStub) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if app, ok := s.apps[id]; ok {
		clone := *app
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *appRepoStub) ListByWork(ctx context.Context, workID string) ([]models.Application, error) {
	var out []models.Application
	for _, app := range s.apps {
		if app.WorkID == workID {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *appRepoStub) FindActiveByWorkAndApplicant(ctx context.Context, workID, applicantID string) (*models.Application, error) {
	if s.active != nil {
		return s.active, nil
	}
	return nil, sql.ErrNoRows
}

func (s *appRepoStub) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	s.statuses = append(s.statuses, status)
	if app, ok := s.apps[id]; ok {
		app.Status = status
	}
	return nil
}

type appWorkReaderStub struct {
	works map[string]*models.Work
}

func (s appWorkReaderStub) FindByID(ctx context.Context, id string) (*models.Work, error) {
	if work, ok := s.works[id]; ok {
		return work, nil
	}
	return nil, sql.ErrNoRows
}

func pendingApplication(id, workID, applicantID, employerID string) *models.Application {
	return &models.Application{ID: id, WorkID: workID, ApplicantID: applicantID, ApplicantName: "Bob", EmployerID: employerID, Status: models.ApplicationPending}
}

func TestApplicationApply(t *testing.T) {
	repo := &appRepoStub{}
	works := appWorkReaderStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewApplicationService(repo, works, nil, zap.NewNop())

	app, err := service.Apply(context.Background(), "work-1", ApplyRequest{ApplicantName: "Bob"}, employerClaims("worker-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, "emp-1", app.EmployerID)
	require.Len(t, repo.created, 1)
}

func TestApplicationApplyOwnWorkRejected(t *testing.T) {
	works := appWorkReaderStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewApplicationService(&appRepoStub{}, works, nil, zap.NewNop())

	_, err := service.Apply(context.Background(), "work-1", ApplyRequest{ApplicantName: "Alice"}, employerClaims("emp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationApplyCompletedWorkRejected(t *testing.T) {
	repo := &appRepoStub{}
	completed := publishedWork("work-1", "emp-1")
	completed.Status = models.WorkStatusCompleted
	works := appWorkReaderStub{works: map[string]*models.Work{"work-1": completed}}
	service := NewApplicationService(repo, works, nil, zap.NewNop())

	_, err := service.Apply(context.Background(), "work-1", ApplyRequest{ApplicantName: "Bob"}, employerClaims("worker-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestApplicationApplyDuplicateConflict(t *testing.T) {
	repo := &appRepoStub{createErr: &pq.Error{Code: "23505"}}
	works := appWorkReaderStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewApplicationService(repo, works, nil, zap.NewNop())

	_, err := service.Apply(context.Background(), "work-1", ApplyRequest{ApplicantName: "Bob"}, employerClaims("worker-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApplicationListForWorkEmployerOnly(t *testing.T) {
	repo := &appRepoStub{apps: map[string]*models.Application{"app-1": pendingApplication("app-1", "work-1", "worker-1", "emp-1")}}
	works := appWorkReaderStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewApplicationService(repo, works, nil, zap.NewNop())

	_, err := service.ListForWork(context.Background(), "work-1", employerClaims("worker-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	apps, err := service.ListForWork(context.Background(), "work-1", employerClaims("emp-1"))
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestApplicationCheckApplied(t *testing.T) {
	repo := &appRepoStub{}
	service := NewApplicationService(repo, appWorkReaderStub{}, nil, zap.NewNop())

	check, err := service.CheckApplied(context.Background(), "work-1", employerClaims("worker-1"))
	require.NoError(t, err)
	assert.False(t, check.Applied)

	repo.active = pendingApplication("app-1", "work-1", "worker-1", "emp-1")
	check, err = service.CheckApplied(context.Background(), "work-1", employerClaims("worker-1"))
	require.NoError(t, err)
	assert.True(t, check.Applied)
	require.NotNil(t, check.Status)
	assert.Equal(t, models.ApplicationPending, *check.Status)
}

func TestApplicationUpdateStatusOnlyAcceptOrReject(t *testing.T) {
	repo := &appRepoStub{apps: map[string]*models.Application{"app-1": pendingApplication("app-1", "work-1", "worker-1", "emp-1")}}
	service := NewApplicationService(repo, appWorkReaderStub{}, nil, zap.NewNop())

	_, err := service.UpdateStatus(context.Background(), "app-1", string(models.ApplicationWithdrawn), employerClaims("emp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	app, err := service.UpdateStatus(context.Background(), "app-1", string(models.ApplicationAccepted), employerClaims("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, app.Status)
}

func TestApplicationUpdateStatusForbiddenForApplicant(t *testing.T) {
	repo := &appRepoStub{apps: map[string]*models.Application{"app-1": pendingApplication("app-1", "work-1", "worker-1", "emp-1")}}
	service := NewApplicationService(repo, appWorkReaderStub{}, nil, zap.NewNop())

	_, err := service.UpdateStatus(context.Background(), "app-1", string(models.ApplicationAccepted), employerClaims("worker-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplicationWithdraw(t *testing.T) {
	repo := &appRepoStub{apps: map[string]*models.Application{"app-1": pendingApplication("app-1", "work-1", "worker-1", "emp-1")}}
	service := NewApplicationService(repo, appWorkReaderStub{}, nil, zap.NewNop())

	_, err := service.Withdraw(context.Background(), "app-1", employerClaims("emp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	app, err := service.Withdraw(context.Background(), "app-1", employerClaims("worker-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationWithdrawn, app.Status)

	_, err = service.Withdraw(context.Background(), "app-1", employerClaims("worker-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
