package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
)

const appointmentColumns = `
	id, patient_id, appointment_type, preferred_date, scheduled_at,
	COALESCE(workflow_status, '') AS workflow_status, COALESCE(status, '') AS status,
	rejection_reason, assigned_doctor_id, assigned_at, assigned_by_admin_id,
	created_at, updated_at, archived_at`

func occupyingStatuses() pq.StringArray {
	return lo.Map(model.OccupyingStatuses, func(s model.WorkflowStatus, _ int) string { return string(s) })
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, appointment_type, preferred_date, scheduled_at,
			workflow_status, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now().UTC()
	appointment.Status = model.LegacyStatus(appointment.WorkflowStatus)

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.AppointmentType,
		appointment.PreferredDate,
		appointment.ScheduledAt,
		appointment.WorkflowStatus,
		appointment.Status,
		appointment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", notFound(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter repository.AppointmentFilter) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE archived_at IS NULL`
	var args []interface{}

	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Latest returns the patient's most recently created appointment.
func (r *appointmentRepository) Latest(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1 AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to get latest appointment: %w", notFound(err))
	}
	return &appointment, nil
}

// UpdateStatus writes workflow_status and its legacy mirror together.
// rejection_reason is only kept for rejected appointments.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, update model.StatusUpdate) (*model.Appointment, error) {
	now := time.Now().UTC()

	var reason *string
	if update.WorkflowStatus == model.WorkflowRejected {
		reason = update.RejectionReason
	}

	args := []interface{}{update.WorkflowStatus, model.LegacyStatus(update.WorkflowStatus), reason, now}
	sets := []string{"workflow_status = $1", "status = $2", "rejection_reason = $3", "updated_at = $4"}

	switch {
	case update.ClearSchedule:
		sets = append(sets, "scheduled_at = NULL")
	case update.ScheduledAt != nil:
		args = append(args, update.ScheduledAt.UTC())
		sets = append(sets, fmt.Sprintf("scheduled_at = $%d", len(args)))
	}

	if update.AssignedDoctorID != nil {
		args = append(args, *update.AssignedDoctorID, now)
		sets = append(sets,
			fmt.Sprintf("assigned_doctor_id = $%d", len(args)-1),
			fmt.Sprintf("assigned_at = $%d", len(args)),
		)
		if update.AssignedByAdminID != nil {
			args = append(args, *update.AssignedByAdminID)
			sets = append(sets, fmt.Sprintf("assigned_by_admin_id = $%d", len(args)))
		}
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE appointments SET %s WHERE id = $%d RETURNING`+appointmentColumns,
		strings.Join(sets, ", "), len(args))

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", notFound(err))
	}
	return &appointment, nil
}

// SetLegacyStatus touches only the status column, leaving workflow_status as is.
func (r *appointmentRepository) SetLegacyStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// SlotTaken reports whether another live appointment holds scheduledAt,
// either as an occupying booking or as the same doctor's open booking.
func (r *appointmentRepository) SlotTaken(ctx context.Context, excludeID uuid.UUID, scheduledAt time.Time, doctorID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE id <> $1
			AND archived_at IS NULL
			AND scheduled_at = $2
			AND (
				workflow_status = ANY($3)
				OR (
					$4::uuid IS NOT NULL
					AND assigned_doctor_id = $4
					AND COALESCE(NULLIF(workflow_status, ''), status) NOT IN ('rejected', 'cancelled', 'canceled')
				)
			)
		)
	`
	var taken bool
	err := r.db.GetContext(ctx, &taken, query, excludeID, scheduledAt.UTC(), occupyingStatuses(), doctorID)
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

// ListScheduled returns occupying appointments scheduled in [from, to).
func (r *appointmentRepository) ListScheduled(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE archived_at IS NULL
		AND scheduled_at >= $1 AND scheduled_at < $2
		AND workflow_status = ANY($3)
		ORDER BY scheduled_at ASC`

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, from.UTC(), to.UTC(), occupyingStatuses()); err != nil {
		return nil, fmt.Errorf("failed to list scheduled appointments: %w", err)
	}
	return appointments, nil
}
