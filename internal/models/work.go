package models

import (
	"time"

	"github.com/lib/pq"
)

// WorkStatus enumerates the lifecycle states of a work item.
type WorkStatus string

const (
	WorkStatusPublished      WorkStatus = "Published"
	WorkStatusNotStarted     WorkStatus = "NotStarted"
	WorkStatusInProgress     WorkStatus = "InProgress"
	WorkStatusAwaitingReview WorkStatus = "AwaitingReview"
	WorkStatusCompleted      WorkStatus = "Completed"
)

// ValidWorkStatus reports whether the raw value names a known status.
func ValidWorkStatus(raw string) bool {
	switch WorkStatus(raw) {
	case WorkStatusPublished, WorkStatusNotStarted, WorkStatusInProgress, WorkStatusAwaitingReview, WorkStatusCompleted:
		return true
	default:
		return false
	}
}

// PaymentType enumerates supported payment mediums.
type PaymentType string

const (
	PaymentCash     PaymentType = "Cash"
	PaymentTransfer PaymentType = "Transfer"
	PaymentRevolut  PaymentType = "Revolut"
)

// Work represents a published work item.
type Work struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	Location     string         `db:"location" json:"location"`
	Category     string         `db:"category" json:"category"`
	Skills       pq.StringArray `db:"skills" json:"skills"`
	EmployerID   string         `db:"employer_id" json:"employer_id"`
	EmployerName string         `db:"employer_name" json:"employer_name"`
	EmployeeID   *string        `db:"employee_id" json:"employee_id,omitempty"`
	Wage         float64        `db:"wage" json:"wage"`
	PaymentType  PaymentType    `db:"payment_type" json:"payment_type"`
	Status       WorkStatus     `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Page size bounds applied to every work listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// WorkFilter captures filtering criteria for listing works.
type WorkFilter struct {
	EmployerID string
	EmployeeID string
	Status     string
	Category   string
	Page       int
	PageSize   int
}

// Limits returns the effective page and page size after clamping. The
// repository and the pagination metadata must agree on these values, so
// every consumer goes through here instead of clamping locally.
func (f WorkFilter) Limits() (page, pageSize int) {
	page = f.Page
	if page < 1 {
		page = 1
	}
	pageSize = f.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// CompletionCode is the shared secret gating the terminal transition.
// At most one code exists per work; regeneration overwrites.
type CompletionCode struct {
	WorkID    string    `db:"work_id" json:"work_id"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
