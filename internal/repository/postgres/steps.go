package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

const stepsColumns = `
	appointment_id, patient_id, registration_status, payment_status,
	triage_status, lab_status, xray_status, doctor_status, release_status,
	updated_at`

const stepsInsert = `
	INSERT INTO appointment_steps (` + stepsColumns + `)
	VALUES (
		:appointment_id, :patient_id, :registration_status, :payment_status,
		:triage_status, :lab_status, :xray_status, :doctor_status, :release_status,
		:updated_at
	)`

var stepColumns = map[model.Step]string{
	model.StepRegistration: model.StepRegistration.Column(),
	model.StepPayment:      model.StepPayment.Column(),
	model.StepTriage:       model.StepTriage.Column(),
	model.StepLab:          model.StepLab.Column(),
	model.StepXray:         model.StepXray.Column(),
	model.StepDoctor:       model.StepDoctor.Column(),
	model.StepRelease:      model.StepRelease.Column(),
}

func (r *stepsRepository) Get(ctx context.Context, appointmentID uuid.UUID) (*model.AppointmentSteps, error) {
	query := `SELECT` + stepsColumns + ` FROM appointment_steps WHERE appointment_id = $1`

	var steps model.AppointmentSteps
	if err := r.db.GetContext(ctx, &steps, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get appointment steps: %w", notFound(err))
	}
	return &steps, nil
}

func (r *stepsRepository) EnsureExists(ctx context.Context, steps *model.AppointmentSteps) error {
	query := stepsInsert + ` ON CONFLICT (appointment_id) DO NOTHING`

	if _, err := r.db.NamedExecContext(ctx, query, steps); err != nil {
		return fmt.Errorf("failed to ensure appointment steps: %w", err)
	}
	return nil
}

// Upsert replaces every sub-status of the row with the given set.
func (r *stepsRepository) Upsert(ctx context.Context, steps *model.AppointmentSteps) error {
	query := stepsInsert + `
		ON CONFLICT (appointment_id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			registration_status = EXCLUDED.registration_status,
			payment_status = EXCLUDED.payment_status,
			triage_status = EXCLUDED.triage_status,
			lab_status = EXCLUDED.lab_status,
			xray_status = EXCLUDED.xray_status,
			doctor_status = EXCLUDED.doctor_status,
			release_status = EXCLUDED.release_status,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, steps); err != nil {
		return fmt.Errorf("failed to upsert appointment steps: %w", err)
	}
	return nil
}

func (r *stepsRepository) SetStatus(ctx context.Context, appointmentID uuid.UUID, step model.Step, status model.StepStatus) error {
	column, ok := stepColumns[step]
	if !ok {
		return fmt.Errorf("unknown step %q", step)
	}
	query := fmt.Sprintf(`UPDATE appointment_steps SET %s = $1, updated_at = $2 WHERE appointment_id = $3`, column)

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), appointmentID)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}
