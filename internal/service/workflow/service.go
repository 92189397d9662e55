package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	"github.com/sghealthtrack/healthtrack-api/internal/service/audit"
	"github.com/sghealthtrack/healthtrack-api/internal/service/notification"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
	"github.com/sghealthtrack/healthtrack-api/pkg/messaging"
	"github.com/sghealthtrack/healthtrack-api/pkg/metrics"
)

// Deps are the collaborators of the workflow service.
type Deps struct {
	Appointments repository.AppointmentRepository
	Steps        repository.StepsRepository
	Requirements repository.RequirementsRepository
	Payments     repository.PaymentRepository
	Clinical     repository.ClinicalRepository
	Notifier     notification.Service
	Auditor      *audit.Service
	Publisher    *messaging.Publisher
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service moves appointments and their steps through the clinic workflow.
// Each operation is a short sequence of guarded writes; a failed follow-up
// write is reported as a PartialError and never compensated.
type Service struct {
	appointments repository.AppointmentRepository
	steps        repository.StepsRepository
	requirements repository.RequirementsRepository
	payments     repository.PaymentRepository
	clinical     repository.ClinicalRepository
	notifier     notification.Service
	auditor      *audit.Service
	publisher    *messaging.Publisher
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		appointments: d.Appointments,
		steps:        d.Steps,
		requirements: d.Requirements,
		payments:     d.Payments,
		clinical:     d.Clinical,
		notifier:     d.Notifier,
		auditor:      d.Auditor,
		publisher:    d.Publisher,
		metrics:      d.Metrics,
		logger:       d.Logger,
		now:          now,
	}
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, storeErr("Appointment", err)
	}
	return appt, nil
}

// EnsureRecords creates the steps and requirements rows of an appointment
// if they do not exist yet. Calling it again is a no-op.
func (s *Service) EnsureRecords(ctx context.Context, appt *model.Appointment) error {
	if err := s.steps.EnsureExists(ctx, model.NewSteps(appt.ID, appt.PatientID)); err != nil {
		return err
	}
	return s.requirements.EnsureExists(ctx, model.DefaultRequirements(appt))
}

func (s *Service) notify(ctx context.Context, patientID uuid.UUID, title, body string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Send(ctx, patientID, title, body); err != nil {
		s.logger.Warn().Err(err).
			Str("patient_id", patientID.String()).
			Str("title", title).
			Msg("failed to send notification")
	}
}

func (s *Service) changed(ctx context.Context, table, action string, appt *model.Appointment, status string) {
	s.publisher.PublishChange(ctx, messaging.ChangeEvent{
		Table:         table,
		Action:        action,
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		Status:        status,
	})
}

// done records the transition outcome in metrics and returns err unchanged.
func (s *Service) done(name string, err error) error {
	s.metrics.Transition(name, err)
	if err != nil {
		var partialErr *PartialError
		if errors.As(err, &partialErr) || apperrors.StatusOf(err) >= 500 {
			s.logger.Error().Err(err).Str("transition", name).Msg("workflow transition failed")
		}
	}
	return err
}

// requirePaid guards clinical steps on payment_status = completed.
func (s *Service) requirePaid(ctx context.Context, appointmentID uuid.UUID, what string) (*model.AppointmentSteps, error) {
	steps, err := s.steps.Get(ctx, appointmentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if !steps.PaymentCompleted() {
		return nil, apperrors.Unprocessable("Payment must be completed before " + what + ".")
	}
	return steps, nil
}
