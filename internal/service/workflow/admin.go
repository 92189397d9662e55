package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

// ListAll returns every live appointment, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*model.Appointment, error) {
	list, err := s.appointments.List(ctx, repository.AppointmentFilter{})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// ListApproved is the staff queue. The legacy status mirror keeps
// ready_for_triage appointments in it.
func (s *Service) ListApproved(ctx context.Context) ([]*model.Appointment, error) {
	list, err := s.appointments.List(ctx, repository.AppointmentFilter{Status: string(model.WorkflowApproved)})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

var (
	// approvable states; once the patient has arrived the schedule is fixed.
	approvable = []model.WorkflowStatus{model.WorkflowPending, model.WorkflowApproved, model.WorkflowAwaitingForms}
	// reopenable states; arrival and release are never undone.
	reopenable = []model.WorkflowStatus{model.WorkflowPending, model.WorkflowApproved, model.WorkflowAwaitingForms, model.WorkflowRejected}
)

// inState also refuses paid appointments, whose legacy status is in_progress.
func inState(a *model.Appointment, states []model.WorkflowStatus) bool {
	if a.Released() || strings.EqualFold(a.Status, model.StatusInProgress) {
		return false
	}
	return lo.Contains(states, model.WorkflowStatus(a.EffectiveStatus()))
}

// Approve schedules a pending appointment.
func (s *Service) Approve(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.ApproveRequest) (*model.Appointment, error) {
	appt, err := s.approve(ctx, actor, id, req)
	return appt, s.done("approve", err)
}

func (s *Service) approve(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.ApproveRequest) (*model.Appointment, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Closed() || !inState(appt, approvable) {
		return nil, apperrors.Conflict(MsgCannotApprove, nil)
	}

	scheduledAt := lo.CoalesceOrEmpty(req.ScheduledAt, appt.ScheduledAt)
	if scheduledAt == nil {
		return nil, apperrors.BadRequest(MsgScheduleRequired, nil)
	}
	if err := checkClinicTime(*scheduledAt); err != nil {
		return nil, err
	}

	doctorID := lo.CoalesceOrEmpty(req.DoctorID, appt.AssignedDoctorID)

	// Fast path only; the unique slot index has the final say.
	taken, err := s.appointments.SlotTaken(ctx, appt.ID, *scheduledAt, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if taken {
		return nil, apperrors.Conflict(MsgSlotTaken, nil)
	}

	update := model.StatusUpdate{
		WorkflowStatus: model.WorkflowApproved,
		ScheduledAt:    scheduledAt,
	}
	if req.DoctorID != nil {
		update.AssignedDoctorID = req.DoctorID
		update.AssignedByAdminID = &actor.UserID
	}

	updated, err := s.appointments.UpdateStatus(ctx, appt.ID, update)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperrors.Conflict(MsgSlotTaken, err)
		}
		return nil, storeErr("Appointment", err)
	}

	s.auditor.Log(ctx, actor, model.ActivityApprove, model.EntityAppointment, &updated.ID, map[string]interface{}{
		"scheduled_at": updated.ScheduledAt,
		"doctor_id":    updated.AssignedDoctorID,
	})
	s.changed(ctx, "appointments", "update", updated, string(updated.WorkflowStatus))

	if err := s.EnsureRecords(ctx, updated); err != nil {
		return updated, partial("Appointment approved but failed to prepare workflow records", err)
	}

	s.notify(ctx, updated.PatientID, model.TitleAppointmentApproved, fmt.Sprintf(
		"Your appointment was approved and scheduled at %s. Please complete the required forms.",
		formatSchedule(*scheduledAt),
	))
	return updated, nil
}

// Reject closes an appointment with a reason and frees its slot.
func (s *Service) Reject(ctx context.Context, actor *model.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	appt, err := s.reject(ctx, actor, id, reason, model.ActivityReject)
	return appt, s.done("reject", err)
}

func (s *Service) reject(ctx context.Context, actor *model.Actor, id uuid.UUID, reason, activity string) (*model.Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.BadRequest(MsgReasonRequired, nil)
	}

	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Released() {
		return nil, apperrors.Conflict("Released appointments cannot be rejected.", nil)
	}

	updated, err := s.appointments.UpdateStatus(ctx, appt.ID, model.StatusUpdate{
		WorkflowStatus:  model.WorkflowRejected,
		RejectionReason: &reason,
		ClearSchedule:   true,
	})
	if err != nil {
		return nil, storeErr("Appointment", err)
	}

	s.auditor.Log(ctx, actor, activity, model.EntityAppointment, &updated.ID, map[string]interface{}{"reason": reason})
	s.changed(ctx, "appointments", "update", updated, string(updated.WorkflowStatus))
	s.notify(ctx, updated.PatientID, model.TitleAppointmentRejected, "Reason: "+reason)
	return updated, nil
}

// NoShow rejects an occupying appointment whose patient never arrived.
func (s *Service) NoShow(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.noShow(ctx, actor, id)
	return appt, s.done("no_show", err)
}

func (s *Service) noShow(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.WorkflowStatus.Occupying() {
		return nil, apperrors.Conflict("Only scheduled appointments can be marked as no-show.", nil)
	}
	return s.reject(ctx, actor, id, "No show", model.ActivityNoShow)
}

// ConfirmArrival hands an approved appointment over to the clinical steps.
func (s *Service) ConfirmArrival(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.confirmArrival(ctx, actor, id)
	return appt, s.done("arrival", err)
}

func (s *Service) confirmArrival(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.WorkflowStatus != model.WorkflowApproved && appt.WorkflowStatus != model.WorkflowAwaitingForms {
		return nil, apperrors.Conflict("Only approved appointments can be confirmed.", nil)
	}

	req, err := s.requirements.Get(ctx, appt.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if !req.FormDone() {
		return nil, apperrors.Unprocessable(MsgFormNotDone)
	}

	if err := s.EnsureRecords(ctx, appt); err != nil {
		return nil, apperrors.Internal(err)
	}

	updated, err := s.appointments.UpdateStatus(ctx, appt.ID, model.StatusUpdate{
		WorkflowStatus: model.WorkflowReadyForTriage,
	})
	if err != nil {
		return nil, storeErr("Appointment", err)
	}

	s.auditor.Log(ctx, actor, model.ActivityArrival, model.EntityAppointment, &updated.ID, nil)
	s.changed(ctx, "appointments", "update", updated, string(updated.WorkflowStatus))
	s.notify(ctx, updated.PatientID, model.TitleBookingConfirmed,
		"Your appointment is confirmed for today. You can now proceed to your medical screening.")
	return updated, nil
}

// UpdateStatus is the generic admin status change. approved and rejected
// go through Approve and Reject so their guards apply.
func (s *Service) UpdateStatus(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.UpdateStatusRequest) (*model.Appointment, error) {
	switch model.WorkflowStatus(strings.ToLower(strings.TrimSpace(req.Status))) {
	case model.WorkflowApproved:
		return s.Approve(ctx, actor, id, model.ApproveRequest{ScheduledAt: req.ScheduledAt})
	case model.WorkflowRejected:
		return s.Reject(ctx, actor, id, lo.FromPtr(req.RejectionReason))
	case model.WorkflowPending:
		appt, err := s.reopen(ctx, actor, id)
		return appt, s.done("pending", err)
	default:
		return nil, apperrors.BadRequest(MsgInvalidStatus, nil)
	}
}

func (s *Service) reopen(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inState(appt, reopenable) {
		return nil, apperrors.Conflict(MsgCannotReopen, nil)
	}
	updated, err := s.appointments.UpdateStatus(ctx, id, model.StatusUpdate{WorkflowStatus: model.WorkflowPending})
	if err != nil {
		return nil, storeErr("Appointment", err)
	}
	s.auditor.Log(ctx, actor, model.ActivityStatus, model.EntityAppointment, &updated.ID, map[string]interface{}{"status": "pending"})
	s.changed(ctx, "appointments", "update", updated, string(updated.WorkflowStatus))
	return updated, nil
}

// Availability maps each day of month (YYYY-MM) to its booked HH:MM slots.
func (s *Service) Availability(ctx context.Context, month string) (map[string][]string, error) {
	start, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), ClinicLocation)
	if err != nil {
		return nil, apperrors.BadRequest("month must be YYYY-MM", err)
	}

	list, err := s.appointments.ListScheduled(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	booked := map[string][]string{}
	for _, a := range list {
		if a.ScheduledAt == nil {
			continue
		}
		local := a.ScheduledAt.In(ClinicLocation)
		day := local.Format("2006-01-02")
		booked[day] = append(booked[day], local.Format("15:04"))
	}
	return booked, nil
}

// SendNotification is the manual notification from the front desk.
func (s *Service) SendNotification(ctx context.Context, req model.SendNotificationRequest) (*model.Notification, error) {
	if s.notifier == nil {
		return nil, apperrors.Internal(errors.New("notifications are not configured"))
	}
	return s.notifier.Send(ctx, req.PatientID, req.Title, req.Body)
}
