package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

// RecordPayment is the cashier's payment entry. A completed payment resets
// the steps to a fresh paid set and moves the legacy status to in_progress.
func (s *Service) RecordPayment(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordPaymentRequest) (*model.Payment, error) {
	p, err := s.recordPayment(ctx, actor, id, req)
	return p, s.done("payment", err)
}

func (s *Service) recordPayment(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordPaymentRequest) (*model.Payment, error) {
	if req.Status != model.PaymentCompleted && req.Status != model.PaymentUnpaid {
		return nil, apperrors.BadRequest("Payment status must be completed or unpaid.", nil)
	}

	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Closed() {
		return nil, apperrors.Conflict("Cannot record payment for a rejected/cancelled appointment.", nil)
	}

	paid, err := s.payments.HasCompleted(ctx, appt.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if paid {
		return nil, apperrors.Conflict(MsgPaymentLocked, nil)
	}

	method := lo.Ternary(req.Method == "", model.PaymentMethodCash, req.Method)
	gcashRef := strings.TrimSpace(req.GCashReference)
	if method == model.PaymentMethodGCash && gcashRef == "" {
		return nil, apperrors.BadRequest("Reference No. is required for Gcash payments.", nil)
	}

	orNumber := strings.TrimSpace(req.ORNumber)
	completed := req.Status == model.PaymentCompleted
	if completed {
		switch {
		case orNumber == "":
			return nil, apperrors.BadRequest("OR Number is required when marking COMPLETED.", nil)
		case len([]rune(orNumber)) < 3:
			return nil, apperrors.BadRequest("OR Number must be at least 3 characters.", nil)
		case req.Amount == nil || !(*req.Amount > 0):
			return nil, apperrors.BadRequest("Amount must be a positive number.", nil)
		case *req.Amount > model.MaxPaymentAmount:
			return nil, apperrors.BadRequest("Amount is too large. Please verify.", nil)
		}
	}

	notes := []string{strings.TrimSpace(req.Notes)}
	if method == model.PaymentMethodGCash {
		notes = append(notes, "GCash Ref: "+gcashRef)
	}
	combined := strings.Join(lo.Compact(notes), " | ")

	payment := &model.Payment{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		RecordedBy:    &actor.UserID,
		PaymentStatus: req.Status,
		Notes:         lo.EmptyableToPtr(combined),
		RecordedAt:    s.now().UTC(),
		PaymentMethod: method,
	}
	if completed {
		payment.ORNumber = &orNumber
		payment.Amount = req.Amount
	}

	// Package details come from the Form Slip; a missing one means no package.
	if r, err := s.requirements.Get(ctx, appt.ID); err == nil {
		if r.PackageCode != model.PackageCustom && model.PackagePrices[r.PackageCode] > 0 {
			payment.PackageAvailed = true
			payment.PackageName = lo.ToPtr("Package " + r.PackageCode)
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to load requirements for payment")
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.auditor.Log(ctx, actor, model.ActivityPayment, model.EntityPayment, &payment.ID, map[string]interface{}{
		"appointment_id": appt.ID,
		"status":         payment.PaymentStatus,
		"method":         payment.PaymentMethod,
		"amount":         payment.Amount,
	})
	s.changed(ctx, "payments", "insert", appt, string(payment.PaymentStatus))

	if !completed {
		return payment, nil
	}

	if err := s.steps.Upsert(ctx, model.PaidSteps(appt.ID, appt.PatientID)); err != nil {
		return payment, partial("Payment saved but failed to update flow", err)
	}
	if err := s.appointments.SetLegacyStatus(ctx, appt.ID, model.StatusInProgress); err != nil {
		return payment, partial("Payment saved but failed to update flow", err)
	}
	s.changed(ctx, "appointment_steps", "update", appt, string(model.StepCompleted))
	return payment, nil
}

type vitalRange struct {
	min, max float64
	msg      string
}

var (
	heightRange      = vitalRange{50, 250, "Height must be 50-250 cm."}
	weightRange      = vitalRange{2, 300, "Weight must be 2-300 kg."}
	systolicRange    = vitalRange{70, 250, "Systolic must be 70-250."}
	diastolicRange   = vitalRange{40, 150, "Diastolic must be 40-150."}
	heartRateRange   = vitalRange{30, 220, "Heart rate must be 30-220."}
	temperatureRange = vitalRange{30, 45, "Temperature must be 30-45 °C."}
)

func validateVitals(req model.RecordVitalsRequest) error {
	if req.HeightCm == nil || req.WeightKg == nil || req.Systolic == nil ||
		req.Diastolic == nil || req.HeartRate == nil || req.TemperatureC == nil {
		return apperrors.BadRequest("All vitals are required and must be numbers.", nil)
	}
	checks := []struct {
		v float64
		r vitalRange
	}{
		{*req.HeightCm, heightRange},
		{*req.WeightKg, weightRange},
		{float64(*req.Systolic), systolicRange},
		{float64(*req.Diastolic), diastolicRange},
		{float64(*req.HeartRate), heartRateRange},
		{*req.TemperatureC, temperatureRange},
	}
	for _, c := range checks {
		if c.v < c.r.min || c.v > c.r.max {
			return apperrors.BadRequest(c.r.msg, nil)
		}
	}
	return nil
}

// RecordVitals stores the nurse's vitals and completes triage.
func (s *Service) RecordVitals(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordVitalsRequest) (*model.Vitals, error) {
	v, err := s.recordVitals(ctx, actor, id, req)
	return v, s.done("vitals", err)
}

func (s *Service) recordVitals(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordVitalsRequest) (*model.Vitals, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.requirePaid(ctx, appt.ID, "vitals"); err != nil {
		return nil, err
	}
	if err := validateVitals(req); err != nil {
		return nil, err
	}

	vitals := &model.Vitals{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		RecordedBy:    actor.UserID,
		HeightCm:      req.HeightCm,
		WeightKg:      req.WeightKg,
		Systolic:      req.Systolic,
		Diastolic:     req.Diastolic,
		HeartRate:     req.HeartRate,
		TemperatureC:  req.TemperatureC,
		Notes:         lo.EmptyableToPtr(strings.TrimSpace(req.Notes)),
	}
	if err := s.clinical.CreateVitals(ctx, vitals); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.changed(ctx, "vitals", "insert", appt, "")

	if err := s.advance(ctx, appt, model.StepTriage); err != nil {
		return vitals, partial("Vitals saved but failed to update triage status", err)
	}
	return vitals, nil
}

// RecordLab stores the lab findings and completes the lab step.
func (s *Service) RecordLab(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordLabRequest) (*model.LabResult, error) {
	r, err := s.recordLab(ctx, actor, id, req)
	return r, s.done("lab", err)
}

func (s *Service) recordLab(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordLabRequest) (*model.LabResult, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.requirePaid(ctx, appt.ID, "lab results"); err != nil {
		return nil, err
	}
	if len(req.Results) == 0 {
		return nil, apperrors.BadRequest("Lab results are required.", nil)
	}
	raw, err := json.Marshal(req.Results)
	if err != nil {
		return nil, apperrors.BadRequest("Lab results must be a JSON object.", err)
	}

	result := &model.LabResult{
		AppointmentID:  appt.ID,
		PatientID:      appt.PatientID,
		RecordedBy:     actor.UserID,
		Results:        raw,
		Remarks:        lo.EmptyableToPtr(strings.TrimSpace(req.Remarks)),
		ApprovalStatus: model.LabApprovalPending,
	}
	if err := s.clinical.CreateLabResult(ctx, result); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.changed(ctx, "lab_results", "insert", appt, "")

	if err := s.advance(ctx, appt, model.StepLab); err != nil {
		return result, partial("Lab result saved but failed to update lab status", err)
	}
	return result, nil
}

// RecordXray stores the radiology findings and completes the x-ray step.
func (s *Service) RecordXray(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordXrayRequest) (*model.XrayResult, error) {
	r, err := s.recordXray(ctx, actor, id, req)
	return r, s.done("xray", err)
}

func (s *Service) recordXray(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordXrayRequest) (*model.XrayResult, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.requirePaid(ctx, appt.ID, "x-ray"); err != nil {
		return nil, err
	}

	result := &model.XrayResult{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		RecordedBy:    actor.UserID,
		Findings:      lo.EmptyableToPtr(strings.TrimSpace(req.Findings)),
		Impression:    lo.EmptyableToPtr(strings.TrimSpace(req.Impression)),
		FilePath:      lo.EmptyableToPtr(strings.TrimSpace(req.FilePath)),
	}
	if err := s.clinical.UpsertXrayResult(ctx, result); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.changed(ctx, "xray_results", "update", appt, "")

	if err := s.advance(ctx, appt, model.StepXray); err != nil {
		return result, partial("X-ray saved but failed to update x-ray status", err)
	}
	return result, nil
}

// guardDoctor allows only the assigned doctor, if any, to touch the report.
func guardDoctor(appt *model.Appointment, actor *model.Actor) error {
	if appt.AssignedDoctorID != nil && *appt.AssignedDoctorID != actor.UserID {
		return apperrors.Forbidden(MsgOtherDoctor)
	}
	return nil
}

// RecordDoctorReport finalizes the doctor's evaluation. The report stays a
// draft until Release.
func (s *Service) RecordDoctorReport(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordDoctorReportRequest) (*model.DoctorReport, error) {
	r, err := s.recordDoctorReport(ctx, actor, id, req)
	return r, s.done("doctor", err)
}

func (s *Service) recordDoctorReport(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RecordDoctorReportRequest) (*model.DoctorReport, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardDoctor(appt, actor); err != nil {
		return nil, err
	}
	evaluation := strings.TrimSpace(req.Evaluation)
	if evaluation == "" {
		return nil, apperrors.BadRequest(MsgEvaluation, nil)
	}
	if _, err := s.requirePaid(ctx, appt.ID, "doctor review"); err != nil {
		return nil, err
	}

	recommendation := strings.TrimSpace(req.Recommendation)
	report := &model.DoctorReport{
		AppointmentID:  appt.ID,
		PatientID:      appt.PatientID,
		DoctorID:       actor.UserID,
		Evaluation:     evaluation,
		Recommendation: lo.EmptyableToPtr(recommendation),
		Classification: lo.EmptyableToPtr(strings.TrimSpace(req.Classification)),
		ReportStatus:   model.ReportDraft,
	}
	if err := s.clinical.UpsertDoctorReport(ctx, report); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.changed(ctx, "doctor_reports", "update", appt, string(report.ReportStatus))

	notes := strings.Join(lo.Compact([]string{
		"EVALUATION: " + evaluation,
		lo.Ternary(strings.TrimSpace(req.LabNotes) != "", "REMARKS: "+strings.TrimSpace(req.LabNotes), ""),
		lo.Ternary(recommendation != "", "RECOMMENDATION: "+recommendation, ""),
	}), "\n")
	if err := s.clinical.ApproveLabResults(ctx, appt.ID, &notes); err != nil {
		return report, partial("Report saved but failed to approve lab results", err)
	}
	if err := s.advance(ctx, appt, model.StepDoctor); err != nil {
		return report, partial("Report saved but failed to update doctor status", err)
	}
	return report, nil
}

// Release hands the report to the patient. It is the only transition that
// opens the booking lock.
func (s *Service) Release(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.release(ctx, actor, id)
	return appt, s.done("release", err)
}

func (s *Service) release(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardDoctor(appt, actor); err != nil {
		return nil, err
	}

	steps, err := s.steps.Get(ctx, appt.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if steps == nil || steps.DoctorStatus != model.StepCompleted {
		return nil, apperrors.Unprocessable("Doctor review must be completed before release.")
	}

	now := s.now().UTC()
	if err := s.clinical.ReleaseDoctorReport(ctx, appt.ID, now); err != nil {
		return nil, storeErr("Doctor report", err)
	}

	if err := s.steps.SetStatus(ctx, appt.ID, model.StepRelease, model.StepCompleted); err != nil {
		return nil, partial("Report released but failed to update release status", err)
	}
	updated, err := s.appointments.UpdateStatus(ctx, appt.ID, model.StatusUpdate{WorkflowStatus: model.WorkflowReleased})
	if err != nil {
		return appt, partial("Report released but failed to update appointment", err)
	}

	s.auditor.Log(ctx, actor, model.ActivityRelease, model.EntityAppointment, &updated.ID, map[string]interface{}{
		"released_at": now,
	})
	s.changed(ctx, "appointments", "update", updated, string(updated.WorkflowStatus))
	s.notify(ctx, updated.PatientID, model.TitleResultsReleased,
		fmt.Sprintf("Your medical report for %s is ready. You may now download it and book again.", updated.AppointmentType))
	return updated, nil
}

// advance completes a single clinical step.
func (s *Service) advance(ctx context.Context, appt *model.Appointment, step model.Step) error {
	if err := s.steps.SetStatus(ctx, appt.ID, step, model.StepCompleted); err != nil {
		return err
	}
	s.changed(ctx, "appointment_steps", "update", appt, string(step))
	return nil
}
