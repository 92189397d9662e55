package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

// BookingLock decides whether the patient may create a new appointment.
// Only the most recently created appointment counts. When its steps row
// cannot be read the patient stays locked.
func (s *Service) BookingLock(ctx context.Context, patientID uuid.UUID) (*model.BookingLock, error) {
	latest, err := s.appointments.Latest(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.BookingLock{CanBook: true}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if latest.Closed() || latest.Released() {
		return &model.BookingLock{CanBook: true}, nil
	}

	steps, err := s.steps.Get(ctx, latest.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Err(err).Str("appointment_id", latest.ID.String()).Msg("steps unreadable, keeping booking locked")
		}
		return &model.BookingLock{CanBook: false, Reason: MsgBookingLocked}, nil
	}
	if steps.Released() {
		return &model.BookingLock{CanBook: true}, nil
	}
	return &model.BookingLock{CanBook: false, Reason: MsgBookingLocked}, nil
}

// Book creates a pending appointment for the calling patient.
func (s *Service) Book(ctx context.Context, actor *model.Actor, req model.BookAppointmentRequest) (*model.Appointment, error) {
	appt, err := s.book(ctx, actor, req)
	return appt, s.done("book", err)
}

func (s *Service) book(ctx context.Context, actor *model.Actor, req model.BookAppointmentRequest) (*model.Appointment, error) {
	lock, err := s.BookingLock(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !lock.CanBook {
		return nil, apperrors.Conflict(lock.Reason, nil)
	}

	preferred, err := time.ParseInLocation("2006-01-02 15:04", req.PreferredDate+" "+req.PreferredTime, ClinicLocation)
	if err != nil {
		return nil, apperrors.BadRequest("Please choose an appointment date and time.", err)
	}
	if err := checkClinicTime(preferred); err != nil {
		return nil, err
	}
	today := s.now().In(ClinicLocation)
	if preferred.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, ClinicLocation)) {
		return nil, apperrors.BadRequest("Please choose a date that is not in the past.", nil)
	}

	taken, err := s.appointments.SlotTaken(ctx, uuid.Nil, preferred, nil)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if taken {
		return nil, apperrors.Conflict(MsgSlotTaken, nil)
	}

	appt := &model.Appointment{
		PatientID:       actor.UserID,
		AppointmentType: req.AppointmentType,
		PreferredDate:   &preferred,
		WorkflowStatus:  model.WorkflowPending,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.auditor.Log(ctx, actor, model.ActivityBook, model.EntityAppointment, &appt.ID, map[string]interface{}{
		"appointment_type": appt.AppointmentType,
		"preferred_date":   preferred,
	})
	s.changed(ctx, "appointments", "insert", appt, string(appt.WorkflowStatus))
	return appt, nil
}

// ListMine returns the caller's appointments, newest first.
func (s *Service) ListMine(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	list, err := s.appointments.List(ctx, repository.AppointmentFilter{PatientID: &patientID})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// ownAppointment loads an appointment and hides other patients' rows.
func (s *Service) ownAppointment(ctx context.Context, patientID, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if appt == nil || appt.PatientID != patientID {
		return nil, apperrors.Forbidden("Appointment not found for this user")
	}
	return appt, nil
}

// SubmitFormSlip saves the patient's test selection and recomputes totals.
// The Form Slip locks once payment completes or arrival is confirmed.
func (s *Service) SubmitFormSlip(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.FormSlipRequest) (*model.Requirements, error) {
	r, err := s.submitFormSlip(ctx, actor, id, req)
	return r, s.done("form_slip", err)
}

func (s *Service) submitFormSlip(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.FormSlipRequest) (*model.Requirements, error) {
	appt, err := s.ownAppointment(ctx, actor.UserID, id)
	if err != nil {
		return nil, err
	}
	if appt.Closed() {
		return nil, apperrors.Conflict("This appointment was rejected or cancelled.", nil)
	}

	paid, err := s.payments.HasCompleted(ctx, appt.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if paid {
		return nil, apperrors.Conflict("Form Slip is locked because payment is completed.", nil)
	}
	if appt.WorkflowStatus == model.WorkflowReadyForTriage || appt.Released() {
		return nil, apperrors.Conflict("Form Slip is locked because your schedule is confirmed.", nil)
	}

	tests := make(map[model.TestKey]bool, len(req.Tests))
	for _, k := range req.Tests {
		if !lo.Contains(model.StandardTests, k) {
			return nil, apperrors.BadRequest(fmt.Sprintf("Unknown test: %s", k), nil)
		}
		tests[k] = true
	}
	labItems, err := cleanItems(req.LabCustomItems, "lab")
	if err != nil {
		return nil, err
	}
	xrayItems, err := cleanItems(req.XrayCustomItems, "xray")
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	r := &model.Requirements{
		SchemaVersion:   model.RequirementsSchemaVersion,
		AppointmentID:   appt.ID,
		PatientID:       appt.PatientID,
		PackageCode:     lo.Ternary(req.PackageCode == "", model.PackageCustom, req.PackageCode),
		Tests:           tests,
		LabCustomItems:  labItems,
		XrayCustomItems: xrayItems,
		FormSubmitted:   true,
		FormSubmittedAt: &now,
		UpdatedAt:       &now,
	}
	r.Recompute()

	if err := s.requirements.Save(ctx, r); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.auditor.Log(ctx, actor, model.ActivityFormSlip, model.EntityAppointment, &appt.ID, map[string]interface{}{
		"package_code":   r.PackageCode,
		"total_estimate": r.TotalEstimate,
	})
	s.changed(ctx, "appointment_requirements", "update", appt, "")
	return r, nil
}

func cleanItems(items []model.CustomItem, category string) ([]model.CustomItem, error) {
	out := make([]model.CustomItem, 0, len(items))
	for _, it := range items {
		it.Label = strings.TrimSpace(it.Label)
		if it.Label == "" {
			continue
		}
		if it.Price != nil && (*it.Price < 0 || math.IsNaN(*it.Price)) {
			return nil, apperrors.BadRequest(fmt.Sprintf("Price for %s must not be negative.", it.Label), nil)
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Category == "" {
			it.Category = category
		}
		out = append(out, it)
	}
	return out, nil
}

// MockQRPayment is the patient's simulated QR PH self-payment.
func (s *Service) MockQRPayment(ctx context.Context, actor *model.Actor, req model.MockQRPaymentRequest) (*model.Payment, *model.MockQR, error) {
	p, qr, err := s.mockQRPayment(ctx, actor, req)
	return p, qr, s.done("qrph_payment", err)
}

func (s *Service) mockQRPayment(ctx context.Context, actor *model.Actor, req model.MockQRPaymentRequest) (*model.Payment, *model.MockQR, error) {
	if req.AppointmentID == uuid.Nil {
		return nil, nil, apperrors.BadRequest("appointment_id is required", nil)
	}
	if !(req.Amount > 0) || math.IsInf(req.Amount, 0) {
		return nil, nil, apperrors.BadRequest("amount must be a positive number", nil)
	}

	appt, err := s.ownAppointment(ctx, actor.UserID, req.AppointmentID)
	if err != nil {
		return nil, nil, err
	}
	if appt.Closed() {
		return nil, nil, apperrors.BadRequest("Cannot pay for a rejected/cancelled appointment", nil)
	}

	paid, err := s.payments.HasCompleted(ctx, appt.ID)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}
	if paid {
		return nil, nil, apperrors.BadRequest("Payment already completed for this appointment", nil)
	}

	reference, err := s.uniqueToken(ctx, "QRPH")
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}
	orNumber, err := s.uniqueToken(ctx, "OR")
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	now := s.now().UTC()
	payment := &model.Payment{
		AppointmentID: appt.ID,
		PatientID:     actor.UserID,
		PaymentStatus: model.PaymentCompleted,
		ORNumber:      &orNumber,
		ReferenceNo:   &reference,
		Amount:        &req.Amount,
		Notes:         lo.ToPtr("QR PH mock payment • Ref " + reference),
		RecordedAt:    now,
		PaymentMethod: model.PaymentMethodQRPH,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, nil, apperrors.BadRequest(err.Error(), err)
	}

	qr := &model.MockQR{
		DataURL:     mockQRDataURL(req.Amount, reference, orNumber),
		Amount:      req.Amount,
		ReferenceNo: reference,
		ORNumber:    orNumber,
		ExpiresAt:   now.Add(qrValidity),
	}

	s.auditor.Log(ctx, actor, model.ActivityPayment, model.EntityPayment, &payment.ID, map[string]interface{}{
		"method": payment.PaymentMethod,
		"amount": req.Amount,
	})
	s.changed(ctx, "payments", "insert", appt, string(payment.PaymentStatus))

	if err := s.markPaid(ctx, appt); err != nil {
		return payment, qr, partial("Payment saved but failed to update flow", err)
	}
	return payment, qr, nil
}

// markPaid completes the payment step, creating the steps row if needed.
// Other sub-statuses are left alone.
func (s *Service) markPaid(ctx context.Context, appt *model.Appointment) error {
	_, err := s.steps.Get(ctx, appt.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return s.steps.EnsureExists(ctx, model.PaidSteps(appt.ID, appt.PatientID))
	case err != nil:
		return err
	}
	return s.steps.SetStatus(ctx, appt.ID, model.StepPayment, model.StepCompleted)
}
