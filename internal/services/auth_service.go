package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tasktrack/internal/auth"
	"tasktrack/internal/clock"
	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

type authServiceImpl struct {
	logger      zerolog.Logger
	credentials store.CredentialStore
	tokens      *auth.TokenService
	clock       clock.Clock
}

func NewAuthService(
	logger zerolog.Logger,
	credentials store.CredentialStore,
	tokens *auth.TokenService,
	clk clock.Clock,
) AuthService {
	return &authServiceImpl{
		logger:      logger,
		credentials: credentials,
		tokens:      tokens,
		clock:       clk,
	}
}

func (s *authServiceImpl) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	now := s.clock.Now()
	user := &models.User{
		Username:   params.Username,
		Email:      params.Email,
		Role:       models.RoleUser,
		Active:     true,
		LastAuthAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	userUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}
	user.ID = userUUID.String()

	passwordHash, err := argon2id.CreateHash(params.Password, argon2id.DefaultParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}
	user.PasswordHash = passwordHash

	err = s.credentials.Save(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	s.logger.Debug().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("saved user")

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to issue token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("registered user")
	return &AuthResult{
		User:           user,
		Token:          token,
		TokenExpiresAt: expiresAt,
	}, nil
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	user, err := s.credentials.FindByEmailOrUsername(ctx, params.EmailOrUsername)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Warn().Msg("login for unknown user")
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(params.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Warn().
			Str("user_id", user.ID).
			Msg("password mismatch")
		return nil, ErrUserPasswordMismatch
	}

	if !user.Active {
		s.logger.Warn().
			Str("user_id", user.ID).
			Msg("login for deactivated user")
		return nil, ErrUserDeactivated
	}

	now := s.clock.Now()
	user.LastAuthAt = now
	user.UpdatedAt = now
	err = s.credentials.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to issue token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("logged in")
	return &AuthResult{
		User:           user,
		Token:          token,
		TokenExpiresAt: expiresAt,
	}, nil
}

func (s *authServiceImpl) ChangePassword(ctx context.Context, params ChangePasswordParams) (*AuthResult, error) {
	user, err := s.credentials.FindByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(params.CurrentPassword, user.PasswordHash)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Warn().
			Str("user_id", user.ID).
			Msg("current password mismatch")
		return nil, ErrUserPasswordMismatch
	}

	passwordHash, err := argon2id.CreateHash(params.NewPassword, argon2id.DefaultParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}

	// The watermark invalidates every token issued before this moment.
	// The replacement token below is issued at or after it, so it
	// survives the comparison.
	now := s.clock.Now()
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = &now
	user.UpdatedAt = now

	err = s.credentials.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	s.logger.Debug().
		Str("user_id", user.ID).
		Time("password_changed_at", now).
		Msg("rotated password")

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to issue token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("changed password")
	return &AuthResult{
		User:           user,
		Token:          token,
		TokenExpiresAt: expiresAt,
	}, nil
}
