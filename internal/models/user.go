package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

// User represents an application user stored in the users table. Every user
// can act as employer and employee; the role only gates moderation rights.
type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	FullName      string     `db:"full_name" json:"full_name"`
	Role          UserRole   `db:"role" json:"role"`
	AverageRating float64    `db:"average_rating" json:"average_rating"`
	Active        bool       `db:"active" json:"active"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserRatingSummary is the denormalized rating view of a user.
type UserRatingSummary struct {
	UserID        string  `db:"user_id" json:"user_id"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
	ReviewCount   int     `db:"review_count" json:"review_count"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
