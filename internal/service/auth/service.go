package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

const (
	MsgMissingToken = "Missing Bearer token"
	MsgInvalidToken = "Invalid token"
)

type Service struct {
	verifier Verifier
	profiles repository.ProfileRepository
	roles    *cache.Cache
}

func NewService(verifier Verifier, profiles repository.ProfileRepository, roleTTL time.Duration) *Service {
	if roleTTL <= 0 {
		roleTTL = time.Minute
	}
	return &Service{
		verifier: verifier,
		profiles: profiles,
		roles:    cache.New(roleTTL, 2*roleTTL),
	}
}

// Authenticate verifies the bearer token and resolves the caller's role.
// Role is empty when no profile carries a known role.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Unauthorized(MsgMissingToken, nil)
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, apperrors.Unauthorized(MsgInvalidToken, err)
	}

	role, err := s.ResolveRole(ctx, identity.UserID, identity.Email)
	if err != nil {
		return nil, err
	}
	return &model.Actor{UserID: identity.UserID, Email: identity.Email, Role: role}, nil
}

// ResolveRole looks the profile up by id and falls back to email.
func (s *Service) ResolveRole(ctx context.Context, userID uuid.UUID, email string) (model.Role, error) {
	key := userID.String()
	if cached, ok := s.roles.Get(key); ok {
		return cached.(model.Role), nil
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", apperrors.Internal(err)
	}

	if (profile == nil || profile.Role == "") && email != "" {
		profile, err = s.profiles.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.Internal(err)
		}
	}

	var role model.Role
	if profile != nil {
		if r, ok := model.ParseRole(profile.Role); ok {
			role = r
		}
	}
	if role != "" {
		s.roles.SetDefault(key, role)
	}
	return role, nil
}

// EmailExists reports whether an auth account uses email.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, apperrors.BadRequest("email is required", nil)
	}

	exists, err := s.profiles.EmailRegistered(ctx, email)
	if err != nil {
		return false, apperrors.Internal(err)
	}
	return exists, nil
}
