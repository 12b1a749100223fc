package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tasktrack/internal/clock"
	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

type userServiceImpl struct {
	logger      zerolog.Logger
	credentials store.CredentialStore
	clock       clock.Clock
}

func NewUserService(
	logger zerolog.Logger,
	credentials store.CredentialStore,
	clk clock.Clock,
) UserService {
	return &userServiceImpl{
		logger:      logger,
		credentials: credentials,
		clock:       clk,
	}
}

func (s *userServiceImpl) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.credentials.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	s.logger.Debug().
		Int("count", len(users)).
		Msg("selected users")
	return users, nil
}

func (s *userServiceImpl) SetActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	user, err := s.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user.Active = active
	user.UpdatedAt = s.clock.Now()

	err = s.credentials.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Bool("active", active).
		Msg("updated user active flag")
	return user, nil
}
