package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/melo-app/melo-api/internal/models"
	"github.com/melo-app/melo-api/internal/repository"
	appErrors "github.com/melo-app/melo-api/pkg/errors"
)

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id string) (*models.Review, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error)
	Delete(ctx context.Context, id string) error
	RatingSummary(ctx context.Context, userID string) (*models.UserRatingSummary, error)
	UpdateUserAverage(ctx context.Context, userID string, average float64) error
}

type reviewWorkReader interface {
	FindByID(ctx context.Context, id string) (*models.Work, error)
}

type reviewUserReader interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ReviewService records reviews and keeps the denormalized per-user rating
// average in sync. Recomputation is a full scan of the user's reviews; with
// an optional scheduler it runs on a background queue, otherwise inline.
type ReviewService struct {
	reviews   reviewRepository
	works     reviewWorkReader
	users     reviewUserReader
	cache     *CacheService
	scheduler func(userID string) error
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs the service.
func NewReviewService(reviews reviewRepository, works reviewWorkReader, users reviewUserReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{reviews: reviews, works: works, users: users, cache: cache, validator: validate, logger: logger}
}

// WithScheduler routes recomputation through the provided function, typically
// an enqueue onto the ratings worker queue.
func (s *ReviewService) WithScheduler(scheduler func(userID string) error) *ReviewService {
	s.scheduler = scheduler
	return s
}

// RecordReviewRequest describes the review payload.
type RecordReviewRequest struct {
	ReviewerName   string `json:"reviewer_name" validate:"required"`
	ReviewedUserID string `json:"reviewed_user_id" validate:"required"`
	WorkID         string `json:"work_id" validate:"required"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment"`
	IsReliable     bool   `json:"is_reliable"`
	IsPaid         bool   `json:"is_paid"`
	Type           string `json:"type" validate:"required"`
}

// Record inserts a review and triggers recomputation of the reviewed user's
// average. Out-of-range ratings are rejected, never clamped; duplicates per
// (reviewer, reviewed user, work) are refused by the store constraint.
func (s *ReviewService) Record(ctx context.Context, req RecordReviewRequest, claims *models.JWTClaims) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.ValidReviewType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown review type")
	}
	if req.ReviewedUserID == claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot review yourself")
	}

	if _, err := s.works.FindByID(ctx, req.WorkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch work")
	}
	exists, err := s.users.Exists(ctx, req.ReviewedUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve reviewed user")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reviewed user not found")
	}

	review := &models.Review{
		ReviewerID:     claims.UserID,
		ReviewerName:   req.ReviewerName,
		ReviewedUserID: req.ReviewedUserID,
		WorkID:         req.WorkID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		IsReliable:     req.IsReliable,
		IsPaid:         req.IsPaid,
		Type:           models.ReviewType(req.Type),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "review already exists for this work")
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	s.scheduleRecompute(ctx, req.ReviewedUserID)
	return review, nil
}

// Delete removes a review; author only (admins may moderate). Triggers
// recomputation for the reviewed user.
func (s *ReviewService) Delete(ctx context.Context, reviewID string, claims *models.JWTClaims) error {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch review")
	}
	if claims == nil || (claims.UserID != review.ReviewerID && !claims.IsAdmin()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author may delete this review")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}

	s.scheduleRecompute(ctx, review.ReviewedUserID)
	return nil
}

// ListForUser returns reviews about the user, optionally filtered by type.
func (s *ReviewService) ListForUser(ctx context.Context, userID, reviewType string) ([]models.Review, error) {
	if reviewType != "" && !models.ValidReviewType(reviewType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown review type")
	}
	reviews, err := s.reviews.List(ctx, models.ReviewFilter{ReviewedUserID: userID, Type: reviewType})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// ListForWork returns reviews attached to a work item.
func (s *ReviewService) ListForWork(ctx context.Context, workID string) ([]models.Review, error) {
	reviews, err := s.reviews.List(ctx, models.ReviewFilter{WorkID: workID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// ListAuthoredBy returns reviews written by the given user.
func (s *ReviewService) ListAuthoredBy(ctx context.Context, reviewerID string) ([]models.Review, error) {
	reviews, err := s.reviews.List(ctx, models.ReviewFilter{ReviewerID: reviewerID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// RatingSummary returns the user's current average, preferring the cache.
func (s *ReviewService) RatingSummary(ctx context.Context, userID string) (*models.UserRatingSummary, error) {
	if s.cache.Enabled() {
		var cached models.UserRatingSummary
		if hit, _ := s.cache.Get(ctx, ratingCacheKey(userID), &cached); hit {
			return &cached, nil
		}
	}
	summary, err := s.reviews.RatingSummary(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute rating summary")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, ratingCacheKey(userID), summary, 0)
	}
	return summary, nil
}

// Recompute recalculates and persists the denormalized average for the user.
// The average converges once in-flight review writes settle; it is not
// required to be linearizable with them.
func (s *ReviewService) Recompute(ctx context.Context, userID string) error {
	summary, err := s.reviews.RatingSummary(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute rating summary")
	}
	if err := s.reviews.UpdateUserAverage(ctx, userID, summary.AverageRating); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rating average")
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, ratingCacheKey(userID))
	}
	return nil
}

func (s *ReviewService) scheduleRecompute(ctx context.Context, userID string) {
	if s.scheduler != nil {
		err := s.scheduler(userID)
		if err == nil {
			return
		}
		s.logger.Warn("rating recompute enqueue failed, running inline", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.Recompute(ctx, userID); err != nil {
		s.logger.Error("rating recompute failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func ratingCacheKey(userID string) string {
	return "rating:" + userID
}
