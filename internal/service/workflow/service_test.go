package workflow

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

func at(day, hour, min int) time.Time {
	return time.Date(2025, 6, day, hour, min, 0, 0, ClinicLocation)
}

var admin = &model.Actor{UserID: uuid.New(), Role: model.RoleAdmin}

func pendingAppointment(s *store) *model.Appointment {
	return s.seed(&model.Appointment{
		PatientID:       uuid.New(),
		AppointmentType: model.AppointmentTypePreEmployment,
		WorkflowStatus:  model.WorkflowPending,
	})
}

func TestRejectionReasonPresentOnlyWhenRejected(t *testing.T) {
	svc, s, n := newTestService()
	ctx := context.Background()
	appt := pendingAppointment(s)

	_, err := svc.Reject(ctx, admin, appt.ID, "   ")
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	assert.Equal(t, MsgReasonRequired, apperrors.MessageOf(err))

	rejected, err := svc.Reject(ctx, admin, appt.ID, "Incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowRejected, rejected.WorkflowStatus)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Incomplete documents", *rejected.RejectionReason)
	assert.Nil(t, rejected.ScheduledAt)
	assert.Contains(t, n.titles(), model.TitleAppointmentRejected)

	reopened, err := svc.UpdateStatus(ctx, admin, appt.ID, model.UpdateStatusRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowPending, reopened.WorkflowStatus)
	assert.Nil(t, reopened.RejectionReason)
}

func TestAdminTransitionsRespectSourceState(t *testing.T) {
	tests := []struct {
		name     string
		workflow model.WorkflowStatus
		legacy   string
		target   string
		msg      string
	}{
		{"approve after arrival", model.WorkflowReadyForTriage, "approved", "approved", MsgCannotApprove},
		{"approve released", model.WorkflowReleased, "released", "approved", MsgCannotApprove},
		{"approve rejected", model.WorkflowRejected, "rejected", "approved", MsgCannotApprove},
		{"approve paid", model.WorkflowApproved, model.StatusInProgress, "approved", MsgCannotApprove},
		{"reopen released", model.WorkflowReleased, "released", "pending", MsgCannotReopen},
		{"reopen after arrival", model.WorkflowReadyForTriage, "approved", "pending", MsgCannotReopen},
		{"reopen paid", model.WorkflowApproved, model.StatusInProgress, "pending", MsgCannotReopen},
		{"reopen legacy done", "", model.StatusDone, "pending", MsgCannotReopen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s, _ := newTestService()
			when := at(3, 8, 0)
			appt := s.seed(&model.Appointment{
				PatientID:       uuid.New(),
				AppointmentType: model.AppointmentTypePreEmployment,
				WorkflowStatus:  tt.workflow,
				ScheduledAt:     &when,
			})
			s.appointments[appt.ID].Status = tt.legacy

			later := at(4, 9, 0)
			_, err := svc.UpdateStatus(context.Background(), admin, appt.ID, model.UpdateStatusRequest{
				Status:      tt.target,
				ScheduledAt: &later,
			})
			assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
			assert.Equal(t, tt.msg, apperrors.MessageOf(err))

			stored := s.appointments[appt.ID]
			assert.Equal(t, tt.workflow, stored.WorkflowStatus)
			assert.Equal(t, tt.legacy, stored.Status)
			assert.True(t, when.Equal(*stored.ScheduledAt))
		})
	}
}

func TestApproveReschedulesBeforeArrival(t *testing.T) {
	svc, s, _ := newTestService()
	appt := approvedAppointment(t, svc, s, 8)

	later := at(3, 10, 0)
	moved, err := svc.Approve(context.Background(), admin, appt.ID, model.ApproveRequest{ScheduledAt: &later})
	require.NoError(t, err)
	assert.True(t, later.Equal(*moved.ScheduledAt))

	reopened, err := svc.UpdateStatus(context.Background(), admin, appt.ID, model.UpdateStatusRequest{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowPending, reopened.WorkflowStatus)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, s, _ := newTestService()
	appt := pendingAppointment(s)

	_, err := svc.UpdateStatus(context.Background(), admin, appt.ID, model.UpdateStatusRequest{Status: "done"})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	assert.Equal(t, MsgInvalidStatus, apperrors.MessageOf(err))
}

func TestEnsureRecordsIsIdempotent(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	appt := pendingAppointment(s)

	require.NoError(t, svc.EnsureRecords(ctx, appt))
	s.steps[appt.ID].PaymentStatus = model.StepCompleted
	s.requirements[appt.ID].FormSubmitted = true

	require.NoError(t, svc.EnsureRecords(ctx, appt))
	assert.Len(t, s.steps, 1)
	assert.Len(t, s.requirements, 1)
	assert.Equal(t, model.StepCompleted, s.steps[appt.ID].PaymentStatus)
	assert.True(t, s.requirements[appt.ID].FormSubmitted)
}

func TestApproveCreatesRecordsAndNotifies(t *testing.T) {
	svc, s, n := newTestService()
	appt := pendingAppointment(s)
	when := at(3, 8, 0)

	approved, err := svc.Approve(context.Background(), admin, appt.ID, model.ApproveRequest{ScheduledAt: &when})
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowApproved, approved.WorkflowStatus)
	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, s.steps[appt.ID])
	assert.Equal(t, model.StepCompleted, s.steps[appt.ID].RegistrationStatus)
	assert.Equal(t, model.StepPending, s.steps[appt.ID].PaymentStatus)
	require.NotNil(t, s.requirements[appt.ID])
	assert.Equal(t, []string{model.TitleAppointmentApproved}, n.titles())
}

func TestApproveGuards(t *testing.T) {
	tests := []struct {
		name   string
		when   *time.Time
		status int
		msg    string
	}{
		{"missing schedule", nil, http.StatusBadRequest, MsgScheduleRequired},
		{"sunday", lo.ToPtr(at(8, 9, 0)), http.StatusBadRequest, MsgClinicSunday},
		{"before opening", lo.ToPtr(at(3, 6, 30)), http.StatusBadRequest, MsgClinicHours},
		{"after closing", lo.ToPtr(at(3, 15, 30)), http.StatusBadRequest, MsgClinicHours},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s, _ := newTestService()
			appt := pendingAppointment(s)

			_, err := svc.Approve(context.Background(), admin, appt.ID, model.ApproveRequest{ScheduledAt: tt.when})
			require.Error(t, err)
			assert.Equal(t, tt.status, apperrors.StatusOf(err))
			assert.Equal(t, tt.msg, apperrors.MessageOf(err))
		})
	}
}

func TestApproveSlotConflictSameDoctorAndTime(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	doctor := uuid.New()
	first := pendingAppointment(s)
	second := pendingAppointment(s)
	eight := at(3, 8, 0)

	_, err := svc.Approve(ctx, admin, first.ID, model.ApproveRequest{ScheduledAt: &eight, DoctorID: &doctor})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, admin, second.ID, model.ApproveRequest{ScheduledAt: &eight, DoctorID: &doctor})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	assert.Equal(t, MsgSlotTaken, apperrors.MessageOf(err))
	assert.Equal(t, model.WorkflowPending, s.appointments[second.ID].WorkflowStatus)

	eightThirty := at(3, 8, 30)
	approved, err := svc.Approve(ctx, admin, second.ID, model.ApproveRequest{ScheduledAt: &eightThirty, DoctorID: &doctor})
	require.NoError(t, err)
	assert.True(t, approved.ScheduledAt.Equal(eightThirty))
}

func TestApproveStoreUniqueViolationIsSlotConflict(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	first := pendingAppointment(s)
	second := pendingAppointment(s)
	eight := at(3, 8, 0)

	_, err := svc.Approve(ctx, admin, first.ID, model.ApproveRequest{ScheduledAt: &eight})
	require.NoError(t, err)

	// Simulate a concurrent approval that slipped past the advisory check.
	s.skipSlotPre = true
	_, err = svc.Approve(ctx, admin, second.ID, model.ApproveRequest{ScheduledAt: &eight})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	assert.Equal(t, MsgSlotTaken, apperrors.MessageOf(err))
}

func TestNoShowFreesTheSlot(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	first := pendingAppointment(s)
	second := pendingAppointment(s)
	eight := at(3, 8, 0)

	_, err := svc.Approve(ctx, admin, first.ID, model.ApproveRequest{ScheduledAt: &eight})
	require.NoError(t, err)

	rejected, err := svc.NoShow(ctx, admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "No show", lo.FromPtr(rejected.RejectionReason))
	assert.Nil(t, rejected.ScheduledAt)

	_, err = svc.Approve(ctx, admin, second.ID, model.ApproveRequest{ScheduledAt: &eight})
	assert.NoError(t, err)

	_, err = svc.NoShow(ctx, admin, first.ID)
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
}

func approvedAppointment(t *testing.T, svc *Service, s *store, hour int) *model.Appointment {
	t.Helper()
	appt := pendingAppointment(s)
	when := at(3, hour, 0)
	approved, err := svc.Approve(context.Background(), admin, appt.ID, model.ApproveRequest{ScheduledAt: &when})
	require.NoError(t, err)
	return approved
}

func TestConfirmArrivalRequiresForm(t *testing.T) {
	svc, s, n := newTestService()
	ctx := context.Background()
	appt := approvedAppointment(t, svc, s, 9)

	s.requirements[appt.ID] = &model.Requirements{AppointmentID: appt.ID, Tests: map[model.TestKey]bool{}}
	_, err := svc.ConfirmArrival(ctx, admin, appt.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.StatusOf(err))
	assert.Equal(t, MsgFormNotDone, apperrors.MessageOf(err))
	assert.Equal(t, model.WorkflowApproved, s.appointments[appt.ID].WorkflowStatus)

	s.requirements[appt.ID].LabCustomItems = []model.CustomItem{{ID: "x", Label: "Lipid panel"}}
	confirmed, err := svc.ConfirmArrival(ctx, admin, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowReadyForTriage, confirmed.WorkflowStatus)
	assert.Equal(t, "approved", confirmed.Status)
	assert.Contains(t, n.titles(), model.TitleBookingConfirmed)
}

func TestRecordPaymentShortORNumberWritesNothing(t *testing.T) {
	svc, s, _ := newTestService()
	appt := approvedAppointment(t, svc, s, 9)
	cashier := &model.Actor{UserID: uuid.New(), Role: model.RoleCashier}

	_, err := svc.RecordPayment(context.Background(), cashier, appt.ID, model.RecordPaymentRequest{
		Status:   model.PaymentCompleted,
		ORNumber: "12",
		Amount:   lo.ToPtr(900.0),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	assert.Equal(t, "OR Number must be at least 3 characters.", apperrors.MessageOf(err))
	assert.Empty(t, s.payments)
}

func TestRecordPaymentValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.RecordPaymentRequest
		msg  string
	}{
		{"missing OR", model.RecordPaymentRequest{Status: model.PaymentCompleted, Amount: lo.ToPtr(10.0)}, "OR Number is required when marking COMPLETED."},
		{"zero amount", model.RecordPaymentRequest{Status: model.PaymentCompleted, ORNumber: "OR-1", Amount: lo.ToPtr(0.0)}, "Amount must be a positive number."},
		{"too large", model.RecordPaymentRequest{Status: model.PaymentCompleted, ORNumber: "OR-1", Amount: lo.ToPtr(1_000_001.0)}, "Amount is too large. Please verify."},
		{"gcash without ref", model.RecordPaymentRequest{Status: model.PaymentUnpaid, Method: model.PaymentMethodGCash}, "Reference No. is required for Gcash payments."},
		{"empty status", model.RecordPaymentRequest{}, "Payment status must be completed or unpaid."},
		{"unknown status", model.RecordPaymentRequest{Status: "refunded", ORNumber: "OR-1", Amount: lo.ToPtr(10.0)}, "Payment status must be completed or unpaid."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s, _ := newTestService()
			appt := approvedAppointment(t, svc, s, 9)

			_, err := svc.RecordPayment(context.Background(), admin, appt.ID, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.msg, apperrors.MessageOf(err))
			assert.Empty(t, s.payments)
		})
	}
}

func TestRecordPaymentCompletedResetsSteps(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	appt := approvedAppointment(t, svc, s, 9)
	cashier := &model.Actor{UserID: uuid.New(), Role: model.RoleCashier}

	s.requirements[appt.ID].PackageCode = "A"
	s.steps[appt.ID].LabStatus = model.StepInProgress

	payment, err := svc.RecordPayment(ctx, cashier, appt.ID, model.RecordPaymentRequest{
		Status:         model.PaymentCompleted,
		ORNumber:       " OR-1001 ",
		Amount:         lo.ToPtr(900.0),
		Method:         model.PaymentMethodGCash,
		GCashReference: "GC-77",
		Notes:          "walk-in",
	})
	require.NoError(t, err)
	assert.Equal(t, "OR-1001", lo.FromPtr(payment.ORNumber))
	assert.Equal(t, "walk-in | GCash Ref: GC-77", lo.FromPtr(payment.Notes))
	assert.True(t, payment.PackageAvailed)
	assert.Equal(t, "Package A", lo.FromPtr(payment.PackageName))

	steps := s.steps[appt.ID]
	assert.Equal(t, model.StepCompleted, steps.RegistrationStatus)
	assert.Equal(t, model.StepCompleted, steps.PaymentStatus)
	for _, st := range []model.Step{model.StepTriage, model.StepLab, model.StepXray, model.StepDoctor, model.StepRelease} {
		assert.Equal(t, model.StepPending, steps.Status(st), string(st))
	}
	assert.Equal(t, model.StatusInProgress, s.appointments[appt.ID].Status)

	_, err = svc.RecordPayment(ctx, cashier, appt.ID, model.RecordPaymentRequest{
		Status: model.PaymentCompleted, ORNumber: "OR-1002", Amount: lo.ToPtr(1.0),
	})
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	assert.Equal(t, MsgPaymentLocked, apperrors.MessageOf(err))
	assert.Len(t, s.payments, 1)
}

func TestRecordPaymentPartialFailureIsSurfaced(t *testing.T) {
	svc, s, _ := newTestService()
	appt := approvedAppointment(t, svc, s, 9)
	s.stepsErr = errors.New("permission denied for table appointment_steps")

	payment, err := svc.RecordPayment(context.Background(), admin, appt.ID, model.RecordPaymentRequest{
		Status: model.PaymentCompleted, ORNumber: "OR-1", Amount: lo.ToPtr(100.0),
	})
	require.Error(t, err)
	var partialErr *PartialError
	require.ErrorAs(t, err, &partialErr)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
	assert.Contains(t, err.Error(), "Payment saved but failed to update flow")
	require.NotNil(t, payment)
	assert.Len(t, s.payments, 1)
}

func TestClinicalStepsRequirePayment(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	appt := approvedAppointment(t, svc, s, 9)
	nurse := &model.Actor{UserID: uuid.New(), Role: model.RoleNurse}

	vitals := model.RecordVitalsRequest{
		HeightCm: lo.ToPtr(170.0), WeightKg: lo.ToPtr(65.0),
		Systolic: lo.ToPtr(120), Diastolic: lo.ToPtr(80),
		HeartRate: lo.ToPtr(72), TemperatureC: lo.ToPtr(36.6),
	}
	_, err := svc.RecordVitals(ctx, nurse, appt.ID, vitals)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.StatusOf(err))
	assert.Equal(t, "Payment must be completed before vitals.", apperrors.MessageOf(err))
	assert.Empty(t, s.vitals)

	_, err = svc.RecordLab(ctx, nurse, appt.ID, model.RecordLabRequest{Results: model.JSONMap{"cbc": "normal"}})
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.StatusOf(err))
	_, err = svc.RecordXray(ctx, nurse, appt.ID, model.RecordXrayRequest{Findings: "clear"})
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.StatusOf(err))

	s.steps[appt.ID].PaymentStatus = model.StepCompleted
	_, err = svc.RecordVitals(ctx, nurse, appt.ID, vitals)
	require.NoError(t, err)
	assert.Equal(t, model.StepCompleted, s.steps[appt.ID].TriageStatus)
	assert.Equal(t, model.StepPending, s.steps[appt.ID].LabStatus)
}

func TestRecordVitalsRanges(t *testing.T) {
	svc, s, _ := newTestService()
	appt := approvedAppointment(t, svc, s, 9)
	s.steps[appt.ID].PaymentStatus = model.StepCompleted

	req := model.RecordVitalsRequest{
		HeightCm: lo.ToPtr(170.0), WeightKg: lo.ToPtr(65.0),
		Systolic: lo.ToPtr(120), Diastolic: lo.ToPtr(80),
		HeartRate: lo.ToPtr(300), TemperatureC: lo.ToPtr(36.6),
	}
	_, err := svc.RecordVitals(context.Background(), admin, appt.ID, req)
	assert.Equal(t, "Heart rate must be 30-220.", apperrors.MessageOf(err))

	req.HeartRate = nil
	_, err = svc.RecordVitals(context.Background(), admin, appt.ID, req)
	assert.Equal(t, "All vitals are required and must be numbers.", apperrors.MessageOf(err))
	assert.Empty(t, s.vitals)
}

func TestDoctorReportAndRelease(t *testing.T) {
	svc, s, n := newTestService()
	ctx := context.Background()
	doctor := &model.Actor{UserID: uuid.New(), Role: model.RoleDoctor}
	other := &model.Actor{UserID: uuid.New(), Role: model.RoleDoctor}

	appt := pendingAppointment(s)
	when := at(3, 10, 0)
	_, err := svc.Approve(ctx, admin, appt.ID, model.ApproveRequest{ScheduledAt: &when, DoctorID: &doctor.UserID})
	require.NoError(t, err)
	s.steps[appt.ID].PaymentStatus = model.StepCompleted

	_, err = svc.RecordLab(ctx, admin, appt.ID, model.RecordLabRequest{Results: model.JSONMap{"cbc": "normal"}})
	require.NoError(t, err)

	_, err = svc.Release(ctx, doctor, appt.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.StatusOf(err))

	_, err = svc.RecordDoctorReport(ctx, other, appt.ID, model.RecordDoctorReportRequest{Evaluation: "Fit"})
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))
	assert.Equal(t, MsgOtherDoctor, apperrors.MessageOf(err))

	_, err = svc.RecordDoctorReport(ctx, doctor, appt.ID, model.RecordDoctorReportRequest{Evaluation: "  "})
	assert.Equal(t, MsgEvaluation, apperrors.MessageOf(err))

	report, err := svc.RecordDoctorReport(ctx, doctor, appt.ID, model.RecordDoctorReportRequest{
		Evaluation:     "Fit to work",
		Recommendation: "None",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReportDraft, report.ReportStatus)
	assert.Equal(t, model.StepCompleted, s.steps[appt.ID].DoctorStatus)
	require.Len(t, s.labs, 1)
	assert.Equal(t, model.LabApprovalApproved, s.labs[0].ApprovalStatus)
	assert.Equal(t, "EVALUATION: Fit to work\nRECOMMENDATION: None", lo.FromPtr(s.labs[0].DoctorNotes))

	_, err = svc.Release(ctx, other, appt.ID)
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))

	released, err := svc.Release(ctx, doctor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowReleased, released.WorkflowStatus)
	assert.Equal(t, model.StepCompleted, s.steps[appt.ID].ReleaseStatus)
	assert.Equal(t, model.ReportReleased, s.reports[appt.ID].ReportStatus)
	assert.Contains(t, n.titles(), model.TitleResultsReleased)
}

func TestBookingLock(t *testing.T) {
	ctx := context.Background()
	patient := uuid.New()

	latest := func(s *store, ws model.WorkflowStatus) *model.Appointment {
		return s.seed(&model.Appointment{PatientID: patient, WorkflowStatus: ws})
	}

	t.Run("no appointments", func(t *testing.T) {
		svc, _, _ := newTestService()
		lock, err := svc.BookingLock(ctx, patient)
		require.NoError(t, err)
		assert.True(t, lock.CanBook)
	})

	t.Run("rejected allows", func(t *testing.T) {
		svc, s, _ := newTestService()
		latest(s, model.WorkflowRejected)
		lock, err := svc.BookingLock(ctx, patient)
		require.NoError(t, err)
		assert.True(t, lock.CanBook)
	})

	t.Run("released allows", func(t *testing.T) {
		svc, s, _ := newTestService()
		latest(s, model.WorkflowReleased)
		lock, err := svc.BookingLock(ctx, patient)
		require.NoError(t, err)
		assert.True(t, lock.CanBook)
	})

	t.Run("release step completed allows", func(t *testing.T) {
		svc, s, _ := newTestService()
		a := latest(s, model.WorkflowReadyForTriage)
		st := model.PaidSteps(a.ID, patient)
		st.ReleaseStatus = model.StepCompleted
		s.steps[a.ID] = st
		lock, err := svc.BookingLock(ctx, patient)
		require.NoError(t, err)
		assert.True(t, lock.CanBook)
	})

	t.Run("unreleased blocks", func(t *testing.T) {
		svc, s, _ := newTestService()
		a := latest(s, model.WorkflowReadyForTriage)
		s.steps[a.ID] = model.PaidSteps(a.ID, patient)
		lock, err := svc.BookingLock(ctx, patient)
		require.NoError(t, err)
		assert.False(t, lock.CanBook)
		assert.Equal(t, MsgBookingLocked, lock.Reason)
	})

	t.Run("older released does not unlock", func(t *testing.T) {
		svc, s, _ := newTestService()
		latest(s, model.WorkflowReleased)
		latest(s, model.WorkflowPending)
		lock, err := svc.BookingLock(ctx, patient)
		require.NoError(t, err)
		assert.False(t, lock.CanBook)
	})

	t.Run("steps read error blocks", func(t *testing.T) {
		svc, s, _ := newTestService()
		latest(s, model.WorkflowApproved)
		s.stepsGetErr = errors.New("connection reset")
		lock, err := svc.BookingLock(ctx, patient)
		require.NoError(t, err)
		assert.False(t, lock.CanBook)
	})
}

func TestBookCreatesPendingAndLocks(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	patient := &model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	req := model.BookAppointmentRequest{
		AppointmentType: model.AppointmentTypeAPE,
		PreferredDate:   "2025-06-04",
		PreferredTime:   "10:30",
	}

	appt, err := svc.Book(ctx, patient, req)
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowPending, appt.WorkflowStatus)
	assert.True(t, appt.PreferredDate.Equal(at(4, 10, 30)))
	assert.Empty(t, s.steps)

	_, err = svc.Book(ctx, patient, req)
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	assert.Equal(t, MsgBookingLocked, apperrors.MessageOf(err))

	mine, err := svc.ListMine(ctx, patient.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestBookRejectsClosedDaysAndHours(t *testing.T) {
	svc, _, _ := newTestService()
	patient := &model.Actor{UserID: uuid.New(), Role: model.RolePatient}

	_, err := svc.Book(context.Background(), patient, model.BookAppointmentRequest{
		AppointmentType: model.AppointmentTypeAPE, PreferredDate: "2025-06-08", PreferredTime: "09:00",
	})
	assert.Equal(t, MsgClinicSunday, apperrors.MessageOf(err))

	_, err = svc.Book(context.Background(), patient, model.BookAppointmentRequest{
		AppointmentType: model.AppointmentTypeAPE, PreferredDate: "2025-06-04", PreferredTime: "16:00",
	})
	assert.Equal(t, MsgClinicHours, apperrors.MessageOf(err))

	_, err = svc.Book(context.Background(), patient, model.BookAppointmentRequest{
		AppointmentType: model.AppointmentTypeAPE, PreferredDate: "2025-05-31", PreferredTime: "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
}

func TestSubmitFormSlipComputesTotalsAndLocks(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	appt := approvedAppointment(t, svc, s, 11)
	patient := &model.Actor{UserID: appt.PatientID, Role: model.RolePatient}

	_, err := svc.SubmitFormSlip(ctx, &model.Actor{UserID: uuid.New()}, appt.ID, model.FormSlipRequest{})
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))

	_, err = svc.SubmitFormSlip(ctx, patient, appt.ID, model.FormSlipRequest{Tests: []model.TestKey{"lab_unknown"}})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

	req, err := svc.SubmitFormSlip(ctx, patient, appt.ID, model.FormSlipRequest{
		PackageCode:    "a",
		Tests:          []model.TestKey{model.TestPhysicalExam, model.TestHepatitisB},
		LabCustomItems: []model.CustomItem{{Label: " Lipid panel ", Price: lo.ToPtr(500.0)}, {Label: " "}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A", req.PackageCode)
	assert.True(t, req.FormSubmitted)
	require.Len(t, req.LabCustomItems, 1)
	assert.Equal(t, "Lipid panel", req.LabCustomItems[0].Label)
	assert.Equal(t, "lab", req.LabCustomItems[0].Category)
	assert.Equal(t, float64(900+500+350), req.TotalEstimate)
	assert.Equal(t, req.TotalEstimate, s.requirements[appt.ID].TotalEstimate)

	_, err = svc.RecordPayment(ctx, admin, appt.ID, model.RecordPaymentRequest{
		Status: model.PaymentCompleted, ORNumber: "OR-9", Amount: lo.ToPtr(req.TotalEstimate),
	})
	require.NoError(t, err)

	_, err = svc.SubmitFormSlip(ctx, patient, appt.ID, model.FormSlipRequest{PackageCode: "B"})
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	assert.Equal(t, "Form Slip is locked because payment is completed.", apperrors.MessageOf(err))
}

func TestMockQRPayment(t *testing.T) {
	svc, s, _ := newTestService()
	ctx := context.Background()
	appt := pendingAppointment(s)
	patient := &model.Actor{UserID: appt.PatientID, Role: model.RolePatient}

	_, _, err := svc.MockQRPayment(ctx, patient, model.MockQRPaymentRequest{AppointmentID: appt.ID, Amount: -5})
	assert.Equal(t, "amount must be a positive number", apperrors.MessageOf(err))

	_, _, err = svc.MockQRPayment(ctx, &model.Actor{UserID: uuid.New()}, model.MockQRPaymentRequest{AppointmentID: appt.ID, Amount: 5})
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))

	payment, qr, err := svc.MockQRPayment(ctx, patient, model.MockQRPaymentRequest{AppointmentID: appt.ID, Amount: 930})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodQRPH, payment.PaymentMethod)
	assert.Regexp(t, `^QRPH-[0-9A-Z]+$`, qr.ReferenceNo)
	assert.Regexp(t, `^OR-[0-9A-Z]+$`, qr.ORNumber)
	assert.Contains(t, qr.DataURL, "data:image/svg+xml;base64,")
	assert.Equal(t, fixedNow.UTC().Add(10*time.Minute), qr.ExpiresAt)
	require.NotNil(t, s.steps[appt.ID])
	assert.Equal(t, model.StepCompleted, s.steps[appt.ID].PaymentStatus)
	assert.Equal(t, model.StepCompleted, s.steps[appt.ID].RegistrationStatus)

	_, _, err = svc.MockQRPayment(ctx, patient, model.MockQRPaymentRequest{AppointmentID: appt.ID, Amount: 930})
	assert.Equal(t, "Payment already completed for this appointment", apperrors.MessageOf(err))
}

func TestAvailability(t *testing.T) {
	svc, s, _ := newTestService()
	approvedAppointment(t, svc, s, 8)
	approvedAppointment(t, svc, s, 13)

	booked, err := svc.Availability(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"08:00", "13:00"}, booked["2025-06-03"])

	_, err = svc.Availability(context.Background(), "June")
	assert.Equal(t, "month must be YYYY-MM", apperrors.MessageOf(err))
}

func TestSlotsCoverClinicDay(t *testing.T) {
	slots := Slots()
	assert.Equal(t, "07:00", slots[0])
	assert.Equal(t, "15:00", slots[len(slots)-1])
	assert.Len(t, slots, 17)
}
