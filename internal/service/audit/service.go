package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
)

// Service writes the activity_logs trail. Logging never fails the
// operation being logged.
type Service struct {
	repo   repository.ActivityRepository
	logger zerolog.Logger
}

func NewService(repo repository.ActivityRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Log creates an activity log entry
func (s *Service) Log(ctx context.Context, actor *model.Actor, action, entityType string, entityID *uuid.UUID, details interface{}) {
	if s == nil || s.repo == nil {
		return
	}

	entry := &model.ActivityLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}
	if actor != nil {
		entry.ActorID = &actor.UserID
		role := string(actor.Role)
		entry.ActorRole = &role
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn().Err(err).Str("action", action).Msg("failed to encode activity details")
		} else {
			entry.Details = raw
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to write activity log")
	}
}
