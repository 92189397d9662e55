package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken is returned when the store rejects a write on the
	// unique occupied-slot index.
	ErrSlotTaken = errors.New("slot already occupied")
)

// AppointmentFilter narrows List. Zero values mean no filter.
type AppointmentFilter struct {
	PatientID *uuid.UUID
	Status    string
	Limit     int
}

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filter AppointmentFilter) ([]*model.Appointment, error)
		Latest(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, update model.StatusUpdate) (*model.Appointment, error)
		SetLegacyStatus(ctx context.Context, id uuid.UUID, status string) error
		SlotTaken(ctx context.Context, excludeID uuid.UUID, scheduledAt time.Time, doctorID *uuid.UUID) (bool, error)
		ListScheduled(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
	}

	StepsRepository interface {
		Get(ctx context.Context, appointmentID uuid.UUID) (*model.AppointmentSteps, error)
		// EnsureExists inserts steps unless a row for the appointment exists.
		EnsureExists(ctx context.Context, steps *model.AppointmentSteps) error
		Upsert(ctx context.Context, steps *model.AppointmentSteps) error
		SetStatus(ctx context.Context, appointmentID uuid.UUID, step model.Step, status model.StepStatus) error
	}

	RequirementsRepository interface {
		Get(ctx context.Context, appointmentID uuid.UUID) (*model.Requirements, error)
		EnsureExists(ctx context.Context, req *model.Requirements) error
		Save(ctx context.Context, req *model.Requirements) error
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Latest(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error)
		HasCompleted(ctx context.Context, appointmentID uuid.UUID) (bool, error)
		TokenExists(ctx context.Context, token string) (bool, error)
	}

	ClinicalRepository interface {
		CreateVitals(ctx context.Context, vitals *model.Vitals) error
		CreateLabResult(ctx context.Context, result *model.LabResult) error
		ApproveLabResults(ctx context.Context, appointmentID uuid.UUID, doctorNotes *string) error
		UpsertXrayResult(ctx context.Context, result *model.XrayResult) error
		GetDoctorReport(ctx context.Context, appointmentID uuid.UUID) (*model.DoctorReport, error)
		UpsertDoctorReport(ctx context.Context, report *model.DoctorReport) error
		ReleaseDoctorReport(ctx context.Context, appointmentID uuid.UUID, at time.Time) error
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Notification, error)
		MarkRead(ctx context.Context, id, patientID uuid.UUID) error
	}

	ActivityRepository interface {
		Create(ctx context.Context, log *model.ActivityLog) error
	}

	ProfileRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
		GetByEmail(ctx context.Context, email string) (*model.Profile, error)
		// EmailRegistered checks the auth user table, not profiles.
		EmailRegistered(ctx context.Context, email string) (bool, error)
	}

	ArchiveRepository interface {
		CountEligible(ctx context.Context, table model.ArchiveTable, cutoff time.Time) (int64, error)
		StampTable(ctx context.Context, table model.ArchiveTable, cutoff, at time.Time) (int64, error)
		CountXrayFiles(ctx context.Context, cutoff time.Time) (int64, error)
		ListXrayFiles(ctx context.Context, cutoff time.Time, limit int) ([]model.XrayArchiveRow, error)
		ArchiveXrayFile(ctx context.Context, id uuid.UUID, filePath string, at time.Time) error
		StampXrayWithoutFile(ctx context.Context, cutoff, at time.Time) (int64, error)
	}
)
