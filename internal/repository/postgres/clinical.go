package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

func (r *clinicalRepository) CreateVitals(ctx context.Context, vitals *model.Vitals) error {
	query := `
		INSERT INTO vitals (
			id, appointment_id, patient_id, recorded_by, height_cm, weight_kg,
			systolic, diastolic, heart_rate, temperature_c, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	vitals.ID = uuid.New()
	vitals.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		vitals.ID,
		vitals.AppointmentID,
		vitals.PatientID,
		vitals.RecordedBy,
		vitals.HeightCm,
		vitals.WeightKg,
		vitals.Systolic,
		vitals.Diastolic,
		vitals.HeartRate,
		vitals.TemperatureC,
		vitals.Notes,
		vitals.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vitals: %w", err)
	}
	return nil
}

func (r *clinicalRepository) CreateLabResult(ctx context.Context, result *model.LabResult) error {
	query := `
		INSERT INTO lab_results (
			id, appointment_id, patient_id, recorded_by, results, remarks,
			approval_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	result.ID = uuid.New()
	result.CreatedAt = time.Now().UTC()
	if result.ApprovalStatus == "" {
		result.ApprovalStatus = model.LabApprovalPending
	}

	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.AppointmentID,
		result.PatientID,
		result.RecordedBy,
		result.Results,
		result.Remarks,
		result.ApprovalStatus,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lab result: %w", err)
	}
	return nil
}

// ApproveLabResults marks every lab result of the appointment as reviewed.
func (r *clinicalRepository) ApproveLabResults(ctx context.Context, appointmentID uuid.UUID, doctorNotes *string) error {
	query := `
		UPDATE lab_results
		SET approval_status = $1, doctor_notes = COALESCE($2, doctor_notes)
		WHERE appointment_id = $3 AND archived_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, model.LabApprovalApproved, doctorNotes, appointmentID); err != nil {
		return fmt.Errorf("failed to approve lab results: %w", err)
	}
	return nil
}

func (r *clinicalRepository) UpsertXrayResult(ctx context.Context, result *model.XrayResult) error {
	query := `
		INSERT INTO xray_results (
			id, appointment_id, patient_id, recorded_by, findings, impression,
			file_path, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id) DO UPDATE SET
			recorded_by = EXCLUDED.recorded_by,
			findings = EXCLUDED.findings,
			impression = EXCLUDED.impression,
			file_path = COALESCE(EXCLUDED.file_path, xray_results.file_path),
			updated_at = EXCLUDED.updated_at
	`
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	result.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.AppointmentID,
		result.PatientID,
		result.RecordedBy,
		result.Findings,
		result.Impression,
		result.FilePath,
		result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save xray result: %w", err)
	}
	return nil
}

func (r *clinicalRepository) GetDoctorReport(ctx context.Context, appointmentID uuid.UUID) (*model.DoctorReport, error) {
	query := `
		SELECT id, appointment_id, patient_id, doctor_id, evaluation, recommendation,
			classification, report_status, released_at, updated_at
		FROM doctor_reports
		WHERE appointment_id = $1
	`
	var report model.DoctorReport
	if err := r.db.GetContext(ctx, &report, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get doctor report: %w", notFound(err))
	}
	return &report, nil
}

func (r *clinicalRepository) UpsertDoctorReport(ctx context.Context, report *model.DoctorReport) error {
	query := `
		INSERT INTO doctor_reports (
			id, appointment_id, patient_id, doctor_id, evaluation, recommendation,
			classification, report_status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (appointment_id) DO UPDATE SET
			doctor_id = EXCLUDED.doctor_id,
			evaluation = EXCLUDED.evaluation,
			recommendation = EXCLUDED.recommendation,
			classification = EXCLUDED.classification,
			report_status = EXCLUDED.report_status,
			updated_at = EXCLUDED.updated_at
	`
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.AppointmentID,
		report.PatientID,
		report.DoctorID,
		report.Evaluation,
		report.Recommendation,
		report.Classification,
		report.ReportStatus,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save doctor report: %w", err)
	}
	return nil
}

func (r *clinicalRepository) ReleaseDoctorReport(ctx context.Context, appointmentID uuid.UUID, at time.Time) error {
	query := `
		UPDATE doctor_reports
		SET report_status = $1, released_at = $2, updated_at = $2
		WHERE appointment_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, model.ReportReleased, at.UTC(), appointmentID)
	if err != nil {
		return fmt.Errorf("failed to release doctor report: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to release doctor report: %w", err)
	}
	return nil
}
