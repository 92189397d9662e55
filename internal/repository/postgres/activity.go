package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
)

type activityRepository struct {
	BaseRepository
}

func NewActivityRepository(base BaseRepository) repository.ActivityRepository {
	return &activityRepository{base}
}

func (r *activityRepository) Create(ctx context.Context, log *model.ActivityLog) error {
	query := `
        INSERT INTO activity_logs (
            id, actor_id, actor_role, action, entity_type, entity_id, details, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	details := []byte(log.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			log.ID,
			log.ActorID,
			log.ActorRole,
			log.Action,
			log.EntityType,
			log.EntityID,
			details,
			log.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create activity log: %w", err)
		}
		return nil
	})
}
