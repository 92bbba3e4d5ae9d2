package models

import "time"

// ApplicationStatus enumerates candidate application states.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "Pending"
	ApplicationAccepted  ApplicationStatus = "Accepted"
	ApplicationRejected  ApplicationStatus = "Rejected"
	ApplicationWithdrawn ApplicationStatus = "Withdrawn"
)

// Application represents a candidate's application to a work item. EmployerID
// is denormalized from the work at creation time and drives authorization for
// employer-side transitions.
type Application struct {
	ID            string            `db:"id" json:"id"`
	WorkID        string            `db:"work_id" json:"work_id"`
	ApplicantID   string            `db:"applicant_id" json:"applicant_id"`
	ApplicantName string            `db:"applicant_name" json:"applicant_name"`
	EmployerID    string            `db:"employer_id" json:"employer_id"`
	Status        ApplicationStatus `db:"status" json:"status"`
	AppliedAt     time.Time         `db:"applied_at" json:"applied_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationCheck reports whether a candidate already applied and with what status.
type ApplicationCheck struct {
	Applied bool               `json:"applied"`
	Status  *ApplicationStatus `json:"status,omitempty"`
}
