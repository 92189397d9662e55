package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	query := `
		INSERT INTO notifications (id, patient_id, title, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.PatientID,
		notification.Title,
		notification.Body,
		notification.IsRead,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByPatient returns the patient's live notifications, newest first.
func (r *notificationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Notification, error) {
	query := `
		SELECT id, patient_id, title, body, is_read, created_at, archived_at
		FROM notifications
		WHERE patient_id = $1 AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	notifications := []*model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, patientID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags one of the patient's notifications as read. Rows owned by
// someone else report ErrNotFound.
func (r *notificationRepository) MarkRead(ctx context.Context, id, patientID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND patient_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
