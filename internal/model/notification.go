package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message for a patient.
type Notification struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Title      string     `db:"title" json:"title"`
	Body       *string    `db:"body" json:"body"`
	IsRead     bool       `db:"is_read" json:"is_read"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

type SendNotificationRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Title     string    `json:"title" binding:"max=200"`
	Body      string    `json:"body" binding:"max=2000"`
}

// Notification titles used by the workflow.
const (
	TitleAppointmentApproved = "Appointment Approved"
	TitleAppointmentRejected = "Appointment Rejected"
	TitleBookingConfirmed    = "Booking confirmed"
	TitleResultsReleased     = "Results Released"
)
