package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/melo-app/melo-api/internal/models"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
)

type completionCodeRepository interface {
	Upsert(ctx context.Context, code *models.CompletionCode) error
	FindByWork(ctx context.Context, workID string) (*models.CompletionCode, error)
}

type completionWorkRepository interface {
	FindByID(ctx context.Context, id string) (*models.Work, error)
	UpdateStatus(ctx context.Context, workID string, status models.WorkStatus) error
}

// codeGenerator produces the 6-digit shared secret. Swappable in tests.
type codeGenerator func() (string, error)

// CompletionService implements the completion handshake: the employer
// generates a code, hands it over out of band, and either party submits it to
// close out the work. Neither side can reach Completed unilaterally.
type CompletionService struct {
	codes    completionCodeRepository
	works    completionWorkRepository
	cache    *CacheService
	generate codeGenerator
	logger   *zap.Logger
}

// NewCompletionService constructs the service.
func NewCompletionService(codes completionCodeRepository, works completionWorkRepository, cache *CacheService, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{codes: codes, works: works, cache: cache, generate: randomCode, logger: logger}
}

// WithGenerator overrides the code source, used by tests.
func (s *CompletionService) WithGenerator(gen codeGenerator) *CompletionService {
	if gen != nil {
		s.generate = gen
	}
	return s
}

// GenerateCode creates and stores a fresh code for the work, replacing any
// previous one. Employer only.
func (s *CompletionService) GenerateCode(ctx context.Context, workID string, claims *models.JWTClaims) (*models.CompletionCode, error) {
	work, err := s.fetchWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if !isOwner(work, claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the employer may generate the completion code")
	}

	value, err := s.generate()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate completion code")
	}
	code := &models.CompletionCode{WorkID: workID, Code: value}
	if err := s.codes.Upsert(ctx, code); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store completion code")
	}
	return code, nil
}

// GetCode returns the current code for re-display. Restricted to the
// employer: the employee is meant to receive the code out of band, not read
// it back from the API before the handover.
func (s *CompletionService) GetCode(ctx context.Context, workID string, claims *models.JWTClaims) (*models.CompletionCode, error) {
	work, err := s.fetchWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if !isOwner(work, claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the employer may read the completion code")
	}

	code, err := s.codes.FindByWork(ctx, workID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no completion code generated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch completion code")
	}
	return code, nil
}

// VerifyAndComplete matches the submitted code against the stored one and,
// on success, moves the work to Completed. The code record is kept for
// audit and re-display; a mismatch is reported and never retried internally.
func (s *CompletionService) VerifyAndComplete(ctx context.Context, workID, submittedCode string, claims *models.JWTClaims) (*models.Work, error) {
	work, err := s.fetchWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(work, claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the employer or assigned employee may complete this work")
	}
	if work.Status != models.WorkStatusInProgress && work.Status != models.WorkStatusAwaitingReview {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("work in status %q cannot be completed", work.Status))
	}

	stored, err := s.codes.FindByWork(ctx, workID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no completion code generated for this work")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch completion code")
	}
	if submittedCode != stored.Code {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid completion code")
	}

	if err := s.works.UpdateStatus(ctx, workID, models.WorkStatusCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete work")
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, workCacheKey(workID))
	}
	s.logger.Info("work completed", zap.String("work_id", workID), zap.String("by", claims.UserID))

	work.Status = models.WorkStatusCompleted
	return work, nil
}

func (s *CompletionService) fetchWork(ctx context.Context, workID string) (*models.Work, error) {
	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch work")
	}
	return work, nil
}

func isParticipant(work *models.Work, claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	if isOwner(work, claims) {
		return true
	}
	return work.EmployeeID != nil && *work.EmployeeID == claims.UserID
}

// randomCode draws a uniformly random 6-digit numeric string. Collisions
// across different works are fine; the code's scope is keyed by work.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
