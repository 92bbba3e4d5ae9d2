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

type workRepoStub struct {
	works     map[string]*models.Work
	created   []*models.Work
	assigned  []string
	statuses  []models.WorkStatus
	deleted   []string
	listWorks []models.Work
	listTotal int
	active    *models.Work
	createErr error
	updateErr error
	deleteErr error
}

func (s *workRepoStub) Create(ctx context.Context, work *models.Work) error {
	if s.createErr != nil {
		return s.createErr
	}
	work.ID = "work-generated"
	s.created = append(s.created, work)
	return nil
}

func (s *workRepoStub) FindByID(ctx context.Context, id string) (*models.Work, error) {
	if work, ok := s.works[id]; ok {
		clone := *work
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *workRepoStub) List(ctx context.Context, filter models.WorkFilter) ([]models.Work, int, error) {
	return s.listWorks, s.listTotal, nil
}

func (s *workRepoStub) FindActiveByEmployee(ctx context.Context, employeeID string) (*models.Work, error) {
	if s.active != nil {
		return s.active, nil
	}
	return nil, sql.ErrNoRows
}

func (s *workRepoStub) UpdateDetails(ctx context.Context, work *models.Work) error {
	return s.updateErr
}

func (s *workRepoStub) Assign(ctx context.Context, workID, employeeID string, status models.WorkStatus) error {
	s.assigned = append(s.assigned, workID+":"+employeeID)
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *workRepoStub) UpdateStatus(ctx context.Context, workID string, status models.WorkStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *workRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type workAppsStub struct {
	accepted    bool
	removed     int64
	removeErr   error
	removeCalls int
}

func (s *workAppsStub) HasAccepted(ctx context.Context, workID, applicantID string) (bool, error) {
	return s.accepted, nil
}

func (s *workAppsStub) DeleteByWork(ctx context.Context, workID string) (int64, error) {
	s.removeCalls++
	return s.removed, s.removeErr
}

type userReaderStub struct {
	exists bool
}

func (s userReaderStub) Exists(ctx context.Context, id string) (bool, error) {
	return s.exists, nil
}

type codeCleanerStub struct {
	calls int
	err   error
}

func (s *codeCleanerStub) DeleteByWork(ctx context.Context, workID string) error {
	s.calls++
	return s.err
}

func employerClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleUser}
}

func publishedWork(id, employerID string) *models.Work {
	return &models.Work{ID: id, Title: "Paint fence", EmployerID: employerID, EmployerName: "Alice", Wage: 50, Status: models.WorkStatusPublished}
}

func TestWorkServicePublish(t *testing.T) {
	repo := &workRepoStub{}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	work, err := service.Publish(context.Background(), PublishWorkRequest{
		Title:        "Paint fence",
		EmployerID:   "emp-1",
		EmployerName: "Alice",
		Wage:         50,
		PaymentType:  "Cash",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkStatusPublished, work.Status)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "emp-1", repo.created[0].EmployerID)
}

func TestWorkServicePublishRejectsZeroWage(t *testing.T) {
	service := NewWorkService(&workRepoStub{}, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.Publish(context.Background(), PublishWorkRequest{
		Title:        "Paint fence",
		EmployerID:   "emp-1",
		EmployerName: "Alice",
		Wage:         0,
		PaymentType:  "Cash",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkServicePublishMapsCheckViolation(t *testing.T) {
	repo := &workRepoStub{createErr: &pq.Error{Code: "23514", Constraint: "works_wage_check"}}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.Publish(context.Background(), PublishWorkRequest{
		Title:        "Paint fence",
		EmployerID:   "emp-1",
		EmployerName: "Alice",
		Wage:         50,
		PaymentType:  "Cash",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkServiceSetStatusBlocksCompleted(t *testing.T) {
	work := publishedWork("work-1", "emp-1")
	work.Status = models.WorkStatusInProgress
	emp := "worker-1"
	work.EmployeeID = &emp
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": work}}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.SetStatus(context.Background(), "work-1", string(models.WorkStatusCompleted), employerClaims("emp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.statuses)
}

func TestWorkServiceSetStatusInProgressRequiresEmployee(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.SetStatus(context.Background(), "work-1", string(models.WorkStatusInProgress), employerClaims("emp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkServiceSetStatusForbiddenForNonOwner(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.SetStatus(context.Background(), "work-1", string(models.WorkStatusNotStarted), employerClaims("intruder"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestWorkServiceSetStatusAdminOverride(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	work, err := service.SetStatus(context.Background(), "work-1", string(models.WorkStatusNotStarted), &models.JWTClaims{UserID: "mod-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.WorkStatusNotStarted, work.Status)
}

func TestWorkServiceAssignSelfWithAcceptedApplication(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewWorkService(repo, &workAppsStub{accepted: true}, userReaderStub{exists: true}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	work, err := service.Assign(context.Background(), "work-1", AssignEmployeeRequest{
		EmployeeID: "worker-1",
		Status:     string(models.WorkStatusInProgress),
	}, employerClaims("worker-1"))
	require.NoError(t, err)
	require.NotNil(t, work.EmployeeID)
	assert.Equal(t, "worker-1", *work.EmployeeID)
	assert.Equal(t, []string{"work-1:worker-1"}, repo.assigned)
}

func TestWorkServiceAssignSelfWithoutAcceptance(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewWorkService(repo, &workAppsStub{accepted: false}, userReaderStub{exists: true}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.Assign(context.Background(), "work-1", AssignEmployeeRequest{
		EmployeeID: "worker-1",
		Status:     string(models.WorkStatusNotStarted),
	}, employerClaims("worker-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestWorkServiceAssignCannotJumpToCompleted(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{exists: true}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.Assign(context.Background(), "work-1", AssignEmployeeRequest{
		EmployeeID: "worker-1",
		Status:     string(models.WorkStatusCompleted),
	}, employerClaims("emp-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkServiceDeleteCascades(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	apps := &workAppsStub{removed: 3}
	codes := &codeCleanerStub{}
	service := NewWorkService(repo, apps, userReaderStub{}, codes, nil, nil, zap.NewNop())

	err := service.Delete(context.Background(), "work-1", employerClaims("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, apps.removeCalls)
	assert.Equal(t, 1, codes.calls)
	assert.Equal(t, []string{"work-1"}, repo.deleted)
}

func TestWorkServiceDeleteStopsWhenApplicationsFail(t *testing.T) {
	repo := &workRepoStub{works: map[string]*models.Work{"work-1": publishedWork("work-1", "emp-1")}}
	apps := &workAppsStub{removeErr: assert.AnError}
	codes := &codeCleanerStub{}
	service := NewWorkService(repo, apps, userReaderStub{}, codes, nil, nil, zap.NewNop())

	err := service.Delete(context.Background(), "work-1", employerClaims("emp-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applications")
	assert.Zero(t, codes.calls)
	assert.Empty(t, repo.deleted)
}

func TestWorkServiceListRejectsUnknownStatus(t *testing.T) {
	service := NewWorkService(&workRepoStub{}, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, _, err := service.List(context.Background(), models.WorkFilter{Status: "Paused"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkServiceListPaginationMatchesClamp(t *testing.T) {
	repo := &workRepoStub{listWorks: []models.Work{*publishedWork("w1", "emp-1")}, listTotal: 50}
	service := NewWorkService(repo, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, pagination, err := service.List(context.Background(), models.WorkFilter{PageSize: 200})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPageSize, pagination.PageSize)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.TotalCount)
}

func TestWorkServiceActiveForEmployeeNotFound(t *testing.T) {
	service := NewWorkService(&workRepoStub{}, &workAppsStub{}, userReaderStub{}, &codeCleanerStub{}, nil, nil, zap.NewNop())

	_, err := service.ActiveForEmployee(context.Background(), "worker-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
