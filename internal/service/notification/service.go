package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sghealthtrack/healthtrack-api/internal/email"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
	"github.com/sghealthtrack/healthtrack-api/pkg/messaging"
)

type Service interface {
	Send(ctx context.Context, patientID uuid.UUID, title, body string) (*model.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	profiles  repository.ProfileRepository
	emailSvc  email.Service
	publisher *messaging.Publisher
	logger    zerolog.Logger
}

func NewService(repo repository.NotificationRepository, profiles repository.ProfileRepository, emailSvc email.Service, publisher *messaging.Publisher, logger zerolog.Logger) Service {
	if emailSvc == nil {
		emailSvc = email.NewNoopService()
	}
	return &service{
		repo:      repo,
		profiles:  profiles,
		emailSvc:  emailSvc,
		publisher: publisher,
		logger:    logger,
	}
}

// Send stores an in-app notification for the patient, then mirrors it by
// email when the patient has an address. Email failures are only logged.
func (s *service) Send(ctx context.Context, patientID uuid.UUID, title, body string) (*model.Notification, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if patientID == uuid.Nil {
		return nil, apperrors.BadRequest("Patient ID is required.", nil)
	}
	if title == "" {
		return nil, apperrors.BadRequest("Title is required.", nil)
	}

	n := &model.Notification{PatientID: patientID, Title: title}
	if body != "" {
		n.Body = &body
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.publisher.PublishChange(ctx, messaging.ChangeEvent{
		Table:     "notifications",
		Action:    "insert",
		PatientID: patientID,
	})

	s.sendEmail(ctx, n)
	return n, nil
}

func (s *service) sendEmail(ctx context.Context, n *model.Notification) {
	if s.profiles == nil {
		return
	}
	profile, err := s.profiles.Get(ctx, n.PatientID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Err(err).Str("patient_id", n.PatientID.String()).Msg("failed to load profile for email")
		}
		return
	}
	if profile.Email == nil || *profile.Email == "" {
		return
	}

	content := n.Title
	if n.Body != nil {
		content = *n.Body
	}
	if err := s.emailSvc.SendCustom(ctx, *profile.Email, n.Title, content); err != nil {
		s.logger.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("failed to email notification")
	}
}
