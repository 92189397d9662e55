package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
)

// store is an in-memory stand-in for the clinic tables. It enforces the
// occupied-slot unique index the way Postgres does.
type store struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	steps        map[uuid.UUID]*model.AppointmentSteps
	requirements map[uuid.UUID]*model.Requirements
	payments     []*model.Payment
	vitals       []*model.Vitals
	labs         []*model.LabResult
	xrays        map[uuid.UUID]*model.XrayResult
	reports      map[uuid.UUID]*model.DoctorReport
	activity     []*model.ActivityLog

	stepsErr    error
	stepsGetErr error
	legacyErr   error
	skipSlotPre bool
	seq         int
}

func newStore() *store {
	return &store{
		appointments: map[uuid.UUID]*model.Appointment{},
		steps:        map[uuid.UUID]*model.AppointmentSteps{},
		requirements: map[uuid.UUID]*model.Requirements{},
		xrays:        map[uuid.UUID]*model.XrayResult{},
		reports:      map[uuid.UUID]*model.DoctorReport{},
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// appointments

type fakeAppointments struct{ s *store }

func (f fakeAppointments) Create(_ context.Context, a *model.Appointment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.s.seq++
	a.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.s.seq) * time.Minute)
	a.Status = model.LegacyStatus(a.WorkflowStatus)
	f.s.appointments[a.ID] = clone(a)
	return nil
}

func (f fakeAppointments) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (f fakeAppointments) List(_ context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Appointment
	for _, a := range f.s.appointments {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeAppointments) Latest(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error) {
	list, _ := f.List(ctx, repository.AppointmentFilter{PatientID: &patientID})
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return list[0], nil
}

func (f fakeAppointments) UpdateStatus(_ context.Context, id uuid.UUID, u model.StatusUpdate) (*model.Appointment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := clone(a)
	next.WorkflowStatus = u.WorkflowStatus
	next.Status = model.LegacyStatus(u.WorkflowStatus)
	next.RejectionReason = nil
	if u.WorkflowStatus == model.WorkflowRejected {
		next.RejectionReason = u.RejectionReason
	}
	if u.ScheduledAt != nil {
		next.ScheduledAt = u.ScheduledAt
	}
	if u.ClearSchedule {
		next.ScheduledAt = nil
	}
	if u.AssignedDoctorID != nil {
		next.AssignedDoctorID = u.AssignedDoctorID
		next.AssignedByAdminID = u.AssignedByAdminID
	}

	if next.WorkflowStatus.Occupying() && next.ScheduledAt != nil {
		for _, other := range f.s.appointments {
			if other.ID != id && other.WorkflowStatus.Occupying() && other.ScheduledAt != nil &&
				other.ScheduledAt.Equal(*next.ScheduledAt) {
				return nil, repository.ErrSlotTaken
			}
		}
	}
	f.s.appointments[id] = next
	return clone(next), nil
}

func (f fakeAppointments) SetLegacyStatus(_ context.Context, id uuid.UUID, status string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.legacyErr != nil {
		return f.s.legacyErr
	}
	a, ok := f.s.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	return nil
}

func (f fakeAppointments) SlotTaken(_ context.Context, excludeID uuid.UUID, at time.Time, doctorID *uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.skipSlotPre {
		return false, nil
	}
	for _, a := range f.s.appointments {
		if a.ID == excludeID || a.ScheduledAt == nil || !a.ScheduledAt.Equal(at) {
			continue
		}
		if a.WorkflowStatus.Occupying() {
			return true, nil
		}
		if doctorID != nil && a.AssignedDoctorID != nil && *a.AssignedDoctorID == *doctorID && !a.Closed() {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeAppointments) ListScheduled(_ context.Context, from, to time.Time) ([]*model.Appointment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Appointment
	for _, a := range f.s.appointments {
		if a.ScheduledAt != nil && a.WorkflowStatus.Occupying() &&
			!a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			out = append(out, clone(a))
		}
	}
	return out, nil
}

// steps

type fakeSteps struct{ s *store }

func (f fakeSteps) Get(_ context.Context, id uuid.UUID) (*model.AppointmentSteps, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.stepsGetErr != nil {
		return nil, f.s.stepsGetErr
	}
	st, ok := f.s.steps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(st), nil
}

func (f fakeSteps) EnsureExists(_ context.Context, st *model.AppointmentSteps) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.stepsErr != nil {
		return f.s.stepsErr
	}
	if _, ok := f.s.steps[st.AppointmentID]; !ok {
		f.s.steps[st.AppointmentID] = clone(st)
	}
	return nil
}

func (f fakeSteps) Upsert(_ context.Context, st *model.AppointmentSteps) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.stepsErr != nil {
		return f.s.stepsErr
	}
	f.s.steps[st.AppointmentID] = clone(st)
	return nil
}

func (f fakeSteps) SetStatus(_ context.Context, id uuid.UUID, step model.Step, status model.StepStatus) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.stepsErr != nil {
		return f.s.stepsErr
	}
	st, ok := f.s.steps[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch step {
	case model.StepRegistration:
		st.RegistrationStatus = status
	case model.StepPayment:
		st.PaymentStatus = status
	case model.StepTriage:
		st.TriageStatus = status
	case model.StepLab:
		st.LabStatus = status
	case model.StepXray:
		st.XrayStatus = status
	case model.StepDoctor:
		st.DoctorStatus = status
	case model.StepRelease:
		st.ReleaseStatus = status
	default:
		return errors.New("unknown step")
	}
	return nil
}

// requirements

type fakeRequirements struct{ s *store }

func (f fakeRequirements) Get(_ context.Context, id uuid.UUID) (*model.Requirements, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.requirements[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r), nil
}

func (f fakeRequirements) EnsureExists(_ context.Context, r *model.Requirements) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.requirements[r.AppointmentID]; !ok {
		f.s.requirements[r.AppointmentID] = clone(r)
	}
	return nil
}

func (f fakeRequirements) Save(_ context.Context, r *model.Requirements) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.requirements[r.AppointmentID] = clone(r)
	return nil
}

// payments

type fakePayments struct{ s *store }

func (f fakePayments) Create(_ context.Context, p *model.Payment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p.ID = uuid.New()
	f.s.payments = append(f.s.payments, clone(p))
	return nil
}

func (f fakePayments) Latest(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for i := len(f.s.payments) - 1; i >= 0; i-- {
		if f.s.payments[i].AppointmentID == id {
			return clone(f.s.payments[i]), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakePayments) HasCompleted(_ context.Context, id uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.payments {
		if p.AppointmentID == id && p.PaymentStatus == model.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (f fakePayments) TokenExists(_ context.Context, token string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.payments {
		if (p.ReferenceNo != nil && *p.ReferenceNo == token) || (p.ORNumber != nil && *p.ORNumber == token) {
			return true, nil
		}
	}
	return false, nil
}

// clinical

type fakeClinical struct{ s *store }

func (f fakeClinical) CreateVitals(_ context.Context, v *model.Vitals) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	v.ID = uuid.New()
	f.s.vitals = append(f.s.vitals, clone(v))
	return nil
}

func (f fakeClinical) CreateLabResult(_ context.Context, r *model.LabResult) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r.ID = uuid.New()
	f.s.labs = append(f.s.labs, clone(r))
	return nil
}

func (f fakeClinical) ApproveLabResults(_ context.Context, id uuid.UUID, notes *string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.labs {
		if l.AppointmentID == id {
			l.ApprovalStatus = model.LabApprovalApproved
			l.DoctorNotes = notes
		}
	}
	return nil
}

func (f fakeClinical) UpsertXrayResult(_ context.Context, r *model.XrayResult) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.xrays[r.AppointmentID] = clone(r)
	return nil
}

func (f fakeClinical) GetDoctorReport(_ context.Context, id uuid.UUID) (*model.DoctorReport, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r), nil
}

func (f fakeClinical) UpsertDoctorReport(_ context.Context, r *model.DoctorReport) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.reports[r.AppointmentID] = clone(r)
	return nil
}

func (f fakeClinical) ReleaseDoctorReport(_ context.Context, id uuid.UUID, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.ReportStatus = model.ReportReleased
	r.ReleasedAt = &at
	return nil
}

// notifications

type sentNotification struct {
	patientID uuid.UUID
	title     string
	body      string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *fakeNotifier) Send(_ context.Context, patientID uuid.UUID, title, body string) (*model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{patientID, title, body})
	return &model.Notification{ID: uuid.New(), PatientID: patientID, Title: title}, nil
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.title)
	}
	return out
}

// fixedNow is Monday 2025-06-02 09:00 clinic time.
var fixedNow = time.Date(2025, 6, 2, 9, 0, 0, 0, ClinicLocation)

func newTestService() (*Service, *store, *fakeNotifier) {
	s := newStore()
	n := &fakeNotifier{}
	svc := NewService(Deps{
		Appointments: fakeAppointments{s},
		Steps:        fakeSteps{s},
		Requirements: fakeRequirements{s},
		Payments:     fakePayments{s},
		Clinical:     fakeClinical{s},
		Notifier:     n,
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return fixedNow },
	})
	return svc, s, n
}

// seed inserts an appointment directly into the store.
func (s *store) seed(a *model.Appointment) *model.Appointment {
	_ = fakeAppointments{s}.Create(context.Background(), a)
	return a
}
