package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

// inboxLimit caps how many notifications one inbox read returns.
const inboxLimit = 50

// Inbox is the patient-facing side of notifications.
type Inbox interface {
	List(ctx context.Context, actor *model.Actor) ([]*model.Notification, error)
	MarkRead(ctx context.Context, actor *model.Actor, id uuid.UUID) error
}

type inbox struct {
	repo repository.NotificationRepository
}

func NewInbox(repo repository.NotificationRepository) Inbox {
	return &inbox{repo: repo}
}

func (i *inbox) List(ctx context.Context, actor *model.Actor) ([]*model.Notification, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, apperrors.Unauthorized("Missing authenticated user.", nil)
	}
	list, err := i.repo.ListByPatient(ctx, actor.UserID, inboxLimit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// MarkRead only touches the caller's own rows; anything else is a 404.
func (i *inbox) MarkRead(ctx context.Context, actor *model.Actor, id uuid.UUID) error {
	if actor == nil || actor.UserID == uuid.Nil {
		return apperrors.Unauthorized("Missing authenticated user.", nil)
	}
	if err := i.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Notification", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}
