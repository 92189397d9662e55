package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// WorkflowStatus is the coarse appointment state.
type WorkflowStatus string

const (
	WorkflowPending        WorkflowStatus = "pending"
	WorkflowApproved       WorkflowStatus = "approved"
	WorkflowAwaitingForms  WorkflowStatus = "awaiting_forms"
	WorkflowReadyForTriage WorkflowStatus = "ready_for_triage"
	WorkflowRejected       WorkflowStatus = "rejected"
	WorkflowReleased       WorkflowStatus = "released"
)

// OccupyingStatuses reserve a clinic timeslot.
var OccupyingStatuses = []WorkflowStatus{
	WorkflowApproved,
	WorkflowAwaitingForms,
	WorkflowReadyForTriage,
}

func (s WorkflowStatus) Occupying() bool {
	return lo.Contains(OccupyingStatuses, s)
}

// Legacy status values seen in the appointments.status column besides the
// workflow statuses themselves.
const (
	StatusInProgress = "in_progress"
	StatusCancelled  = "cancelled"
	StatusCanceled   = "canceled"
	StatusDone       = "done"
	StatusCompleted  = "completed"
)

// LegacyStatus is the value mirrored into appointments.status.
func LegacyStatus(ws WorkflowStatus) string {
	if ws == WorkflowReadyForTriage {
		return string(WorkflowApproved)
	}
	return string(ws)
}

type AppointmentType string

const (
	AppointmentTypePreEmployment AppointmentType = "pre-employment"
	AppointmentTypeAPE           AppointmentType = "ape"
)

type Appointment struct {
	Base
	PatientID         uuid.UUID       `db:"patient_id" json:"patient_id"`
	AppointmentType   AppointmentType `db:"appointment_type" json:"appointment_type"`
	PreferredDate     *time.Time      `db:"preferred_date" json:"preferred_date,omitempty"`
	ScheduledAt       *time.Time      `db:"scheduled_at" json:"scheduled_at"`
	WorkflowStatus    WorkflowStatus  `db:"workflow_status" json:"workflow_status"`
	Status            string          `db:"status" json:"status"`
	RejectionReason   *string         `db:"rejection_reason" json:"rejection_reason"`
	AssignedDoctorID  *uuid.UUID      `db:"assigned_doctor_id" json:"assigned_doctor_id"`
	AssignedAt        *time.Time      `db:"assigned_at" json:"assigned_at,omitempty"`
	AssignedByAdminID *uuid.UUID      `db:"assigned_by_admin_id" json:"assigned_by_admin_id,omitempty"`
	UpdatedAt         *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}

// EffectiveStatus prefers workflow_status, falling back to the legacy column.
func (a *Appointment) EffectiveStatus() string {
	s := string(a.WorkflowStatus)
	if s == "" {
		s = a.Status
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// Closed reports whether the appointment was rejected or cancelled.
func (a *Appointment) Closed() bool {
	for _, s := range []string{string(a.WorkflowStatus), a.Status} {
		switch strings.ToLower(s) {
		case string(WorkflowRejected), StatusCancelled, StatusCanceled:
			return true
		}
	}
	return false
}

// Released reports whether the final report has been handed out.
func (a *Appointment) Released() bool {
	for _, s := range []string{string(a.WorkflowStatus), a.Status} {
		switch strings.ToLower(s) {
		case string(WorkflowReleased), StatusDone, StatusCompleted:
			return true
		}
	}
	return false
}

// StatusUpdate is a guarded write of the status columns. Nil pointers leave
// the column unchanged, ClearSchedule nulls scheduled_at.
type StatusUpdate struct {
	WorkflowStatus    WorkflowStatus
	RejectionReason   *string
	ScheduledAt       *time.Time
	ClearSchedule     bool
	AssignedDoctorID  *uuid.UUID
	AssignedByAdminID *uuid.UUID
}

type BookAppointmentRequest struct {
	AppointmentType AppointmentType `json:"appointment_type" binding:"required,oneof=pre-employment ape"`
	PreferredDate   string          `json:"preferred_date" binding:"required,datetime=2006-01-02"`
	PreferredTime   string          `json:"preferred_time" binding:"required,datetime=15:04"`
}

type ApproveRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	DoctorID    *uuid.UUID `json:"doctor_id"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejection_reason"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
}

// BookingLock tells a patient whether they may book again.
type BookingLock struct {
	CanBook bool   `json:"canBook"`
	Reason  string `json:"reason,omitempty"`
}
