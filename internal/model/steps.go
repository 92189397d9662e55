package model

import (
	"time"

	"github.com/google/uuid"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// Step names one of the seven per-appointment sub-statuses.
type Step string

const (
	StepRegistration Step = "registration"
	StepPayment      Step = "payment"
	StepTriage       Step = "triage"
	StepLab          Step = "lab"
	StepXray         Step = "xray"
	StepDoctor       Step = "doctor"
	StepRelease      Step = "release"
)

// Column is the appointment_steps column holding the step status.
func (s Step) Column() string {
	return string(s) + "_status"
}

// AppointmentSteps is 1:1 with an appointment.
type AppointmentSteps struct {
	AppointmentID      uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	RegistrationStatus StepStatus `db:"registration_status" json:"registration_status"`
	PaymentStatus      StepStatus `db:"payment_status" json:"payment_status"`
	TriageStatus       StepStatus `db:"triage_status" json:"triage_status"`
	LabStatus          StepStatus `db:"lab_status" json:"lab_status"`
	XrayStatus         StepStatus `db:"xray_status" json:"xray_status"`
	DoctorStatus       StepStatus `db:"doctor_status" json:"doctor_status"`
	ReleaseStatus      StepStatus `db:"release_status" json:"release_status"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// NewSteps is the initial row: registration done, everything else pending.
func NewSteps(appointmentID, patientID uuid.UUID) *AppointmentSteps {
	return &AppointmentSteps{
		AppointmentID:      appointmentID,
		PatientID:          patientID,
		RegistrationStatus: StepCompleted,
		PaymentStatus:      StepPending,
		TriageStatus:       StepPending,
		LabStatus:          StepPending,
		XrayStatus:         StepPending,
		DoctorStatus:       StepPending,
		ReleaseStatus:      StepPending,
		UpdatedAt:          time.Now().UTC(),
	}
}

// PaidSteps is the fresh set written when payment completes.
func PaidSteps(appointmentID, patientID uuid.UUID) *AppointmentSteps {
	s := NewSteps(appointmentID, patientID)
	s.PaymentStatus = StepCompleted
	return s
}

// Status returns the status of step.
func (s *AppointmentSteps) Status(step Step) StepStatus {
	switch step {
	case StepRegistration:
		return s.RegistrationStatus
	case StepPayment:
		return s.PaymentStatus
	case StepTriage:
		return s.TriageStatus
	case StepLab:
		return s.LabStatus
	case StepXray:
		return s.XrayStatus
	case StepDoctor:
		return s.DoctorStatus
	case StepRelease:
		return s.ReleaseStatus
	}
	return ""
}

func (s *AppointmentSteps) PaymentCompleted() bool {
	return s != nil && s.PaymentStatus == StepCompleted
}

func (s *AppointmentSteps) Released() bool {
	return s != nil && s.ReleaseStatus == StepCompleted
}
