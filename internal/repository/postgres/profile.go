package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

const profileColumns = `id, email, full_name, COALESCE(role, '') AS role, created_at`

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	var profile model.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", notFound(err))
	}
	return &profile, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = $1 LIMIT 1`

	var profile model.Profile
	if err := r.db.GetContext(ctx, &profile, query, strings.ToLower(email)); err != nil {
		return nil, fmt.Errorf("failed to get profile by email: %w", notFound(err))
	}
	return &profile, nil
}

func (r *profileRepository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM auth.users WHERE lower(email) = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, strings.ToLower(email)); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}
