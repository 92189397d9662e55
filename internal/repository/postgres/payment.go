package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

const paymentColumns = `
	id, appointment_id, patient_id, recorded_by, payment_status, or_number,
	reference_no, amount, notes, recorded_at, package_availed, package_name,
	payment_method, created_at`

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (
			:id, :appointment_id, :patient_id, :recorded_by, :payment_status, :or_number,
			:reference_no, :amount, :notes, :recorded_at, :package_availed, :package_name,
			:payment_method, :created_at
		)
	`
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now().UTC()
	if payment.RecordedAt.IsZero() {
		payment.RecordedAt = payment.CreatedAt
	}

	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Latest(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments
		WHERE appointment_id = $1 AND archived_at IS NULL
		ORDER BY recorded_at DESC
		LIMIT 1`

	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", notFound(err))
	}
	return &payment, nil
}

func (r *paymentRepository) HasCompleted(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE appointment_id = $1 AND payment_status = $2 AND archived_at IS NULL
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, appointmentID, model.PaymentCompleted); err != nil {
		return false, fmt.Errorf("failed to check payments: %w", err)
	}
	return exists, nil
}

// TokenExists reports whether token is already used as a reference or OR number.
func (r *paymentRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE reference_no = $1 OR or_number = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, token); err != nil {
		return false, fmt.Errorf("failed to check payment token: %w", err)
	}
	return exists, nil
}
