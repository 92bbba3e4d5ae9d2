package models

import "time"

// ReviewType distinguishes who is being reviewed.
type ReviewType string

const (
	// ReviewTypeEmployee is a review written about the worker.
	ReviewTypeEmployee ReviewType = "Employee"
	// ReviewTypeEmployer is a review written about the work giver; the
	// reliability and payment flags are only meaningful here.
	ReviewTypeEmployer ReviewType = "Employer"
)

// ValidReviewType reports whether the raw value names a known review type.
func ValidReviewType(raw string) bool {
	switch ReviewType(raw) {
	case ReviewTypeEmployee, ReviewTypeEmployer:
		return true
	default:
		return false
	}
}

// Review is a rating left after a completed work interaction. At most one
// review exists per (reviewer, reviewed user, work) triple.
type Review struct {
	ID             string     `db:"id" json:"id"`
	ReviewerID     string     `db:"reviewer_id" json:"reviewer_id"`
	ReviewerName   string     `db:"reviewer_name" json:"reviewer_name"`
	ReviewedUserID string     `db:"reviewed_user_id" json:"reviewed_user_id"`
	WorkID         string     `db:"work_id" json:"work_id"`
	Rating         int        `db:"rating" json:"rating"`
	Comment        string     `db:"comment" json:"comment"`
	IsReliable     bool       `db:"is_reliable" json:"is_reliable"`
	IsPaid         bool       `db:"is_paid" json:"is_paid"`
	Type           ReviewType `db:"type" json:"type"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// ReviewFilter captures filtering criteria for listing reviews.
type ReviewFilter struct {
	ReviewedUserID string
	ReviewerID     string
	WorkID         string
	Type           string
}
