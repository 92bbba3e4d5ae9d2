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

const reviewColumns = "id, reviewer_id, reviewer_name, reviewed_user_id, work_id, rating, comment, is_reliable, is_paid, type, created_at"

// ReviewRepository provides database access for reviews and the denormalized
// per-user rating average.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new instance of ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review. The unique index on
// (reviewer_id, reviewed_user_id, work_id) rejects duplicates at the store.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reviews (id, reviewer_id, reviewer_name, reviewed_user_id, work_id, rating, comment, is_reliable, is_paid, type, created_at)
VALUES (:id, :reviewer_id, :reviewer_name, :reviewed_user_id, :work_id, :rating, :comment, :is_reliable, :is_paid, :type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// FindByID returns a review by identifier.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = $1 LIMIT 1", reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find review by id: %w", err)
	}
	return &review, nil
}

// List returns reviews per provided filter, newest first.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, error) {
	baseQuery := "FROM reviews WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ReviewedUserID != "" {
		conditions = append(conditions, fmt.Sprintf("reviewed_user_id = $%d", len(args)+1))
		args = append(args, filter.ReviewedUserID)
	}
	if filter.ReviewerID != "" {
		conditions = append(conditions, fmt.Sprintf("reviewer_id = $%d", len(args)+1))
		args = append(args, filter.ReviewerID)
	}
	if filter.WorkID != "" {
		conditions = append(conditions, fmt.Sprintf("work_id = $%d", len(args)+1))
		args = append(args, filter.WorkID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC", reviewColumns, baseQuery)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return requireRowChange(res, "delete review")
}

// RatingSummary computes the arithmetic mean of all ratings for the user,
// rounded to one decimal, 0.0 when no reviews remain.
func (r *ReviewRepository) RatingSummary(ctx context.Context, userID string) (*models.UserRatingSummary, error) {
	const query = `SELECT COALESCE(ROUND(AVG(rating)::numeric, 1), 0.0) AS average_rating, COUNT(*) AS review_count
FROM reviews WHERE reviewed_user_id = $1`
	summary := models.UserRatingSummary{UserID: userID}
	if err := r.db.QueryRowxContext(ctx, query, userID).Scan(&summary.AverageRating, &summary.ReviewCount); err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return &summary, nil
}

// UpdateUserAverage persists the denormalized average on the users table.
func (r *ReviewRepository) UpdateUserAverage(ctx context.Context, userID string, average float64) error {
	const query = `UPDATE users SET average_rating = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, average, time.Now().UTC()); err != nil {
		return fmt.Errorf("update user average rating: %w", err)
	}
	return nil
}
