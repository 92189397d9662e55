package model

import (
	"time"

	"github.com/google/uuid"
)

// Vitals recorded by the nurse at triage.
type Vitals struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	RecordedBy    uuid.UUID  `db:"recorded_by" json:"recorded_by"`
	HeightCm      *float64   `db:"height_cm" json:"height_cm"`
	WeightKg      *float64   `db:"weight_kg" json:"weight_kg"`
	Systolic      *int       `db:"systolic" json:"systolic"`
	Diastolic     *int       `db:"diastolic" json:"diastolic"`
	HeartRate     *int       `db:"heart_rate" json:"heart_rate"`
	TemperatureC  *float64   `db:"temperature_c" json:"temperature_c"`
	Notes         *string    `db:"notes" json:"notes"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt    *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

// RecordVitalsRequest carries every vital sign. Ranges are checked by the
// workflow service so the nurse gets a per-field message.
type RecordVitalsRequest struct {
	HeightCm     *float64 `json:"height_cm"`
	WeightKg     *float64 `json:"weight_kg"`
	Systolic     *int     `json:"systolic"`
	Diastolic    *int     `json:"diastolic"`
	HeartRate    *int     `json:"heart_rate"`
	TemperatureC *float64 `json:"temperature_c"`
	Notes        string   `json:"notes" binding:"max=2000"`
}

type LabApproval string

const (
	LabApprovalPending  LabApproval = "pending"
	LabApprovalApproved LabApproval = "approved"
)

// LabResult holds the lab technician's findings as free-form JSON.
type LabResult struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	AppointmentID  uuid.UUID   `db:"appointment_id" json:"appointment_id"`
	PatientID      uuid.UUID   `db:"patient_id" json:"patient_id"`
	RecordedBy     uuid.UUID   `db:"recorded_by" json:"recorded_by"`
	Results        []byte      `db:"results" json:"results"`
	Remarks        *string     `db:"remarks" json:"remarks"`
	ApprovalStatus LabApproval `db:"approval_status" json:"approval_status"`
	DoctorNotes    *string     `db:"doctor_notes" json:"doctor_notes"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

type RecordLabRequest struct {
	Results JSONMap `json:"results" binding:"required"`
	Remarks string  `json:"remarks" binding:"max=4000"`
}

// XrayResult is 1:1 with an appointment; FilePath points into the x-ray bucket.
type XrayResult struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	RecordedBy    uuid.UUID  `db:"recorded_by" json:"recorded_by"`
	Findings      *string    `db:"findings" json:"findings"`
	Impression    *string    `db:"impression" json:"impression"`
	FilePath      *string    `db:"file_path" json:"file_path"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	ArchivedAt    *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

type RecordXrayRequest struct {
	Findings   string `json:"findings" binding:"max=4000"`
	Impression string `json:"impression" binding:"max=4000"`
	FilePath   string `json:"file_path" binding:"max=1024"`
}

type ReportStatus string

const (
	ReportDraft    ReportStatus = "draft"
	ReportReleased ReportStatus = "released"
)

type DoctorReport struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	AppointmentID  uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	PatientID      uuid.UUID    `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Evaluation     string       `db:"evaluation" json:"evaluation"`
	Recommendation *string      `db:"recommendation" json:"recommendation"`
	Classification *string      `db:"classification" json:"classification"`
	ReportStatus   ReportStatus `db:"report_status" json:"report_status"`
	ReleasedAt     *time.Time   `db:"released_at" json:"released_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

type RecordDoctorReportRequest struct {
	Evaluation     string `json:"evaluation"`
	Recommendation string `json:"recommendation" binding:"max=4000"`
	Classification string `json:"classification" binding:"max=64"`
	LabNotes       string `json:"lab_notes" binding:"max=4000"`
}
