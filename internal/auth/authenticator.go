package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

// Identity is the terminal success state of the authentication flow.
type Identity struct {
	User *models.User
	Role models.Role
}

// Authenticator runs the bearer-header-to-identity flow. Verification
// is stateless: nothing is looked up beyond the subject's own record,
// and the password-changed-at watermark is the only early-invalidation
// mechanism besides expiry.
type Authenticator struct {
	logger      zerolog.Logger
	tokens      *TokenService
	credentials store.CredentialStore
}

func NewAuthenticator(
	logger zerolog.Logger,
	tokens *TokenService,
	credentials store.CredentialStore,
) *Authenticator {
	return &Authenticator{
		logger:      logger,
		tokens:      tokens,
		credentials: credentials,
	}
}

// Authenticate resolves an Authorization header value to an identity.
// Every failure is one of the package's rejection sentinels.
func (a *Authenticator) Authenticate(ctx context.Context, bearerHeader string) (*Identity, error) {
	tokenString, err := ExtractBearer(bearerHeader)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Msg("rejected bearer header")
		return nil, err
	}

	claims, err := a.tokens.Verify(tokenString)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Msg("rejected token")
		return nil, err
	}

	user, err := a.credentials.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			a.logger.Warn().
				Str("subject", claims.Subject).
				Msg("token subject not found")
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("failed to load token subject: %w", err)
	}

	if !user.Active {
		a.logger.Warn().
			Str("user_id", user.ID).
			Msg("deactivated account presented a token")
		return nil, ErrDeactivated
	}

	// Tokens issued strictly before the password-changed-at watermark
	// are dead: rotating the secret forces re-authentication.
	if user.PasswordChangedAt != nil &&
		claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
		a.logger.Warn().
			Str("user_id", user.ID).
			Time("issued_at", claims.IssuedAt.Time).
			Time("password_changed_at", *user.PasswordChangedAt).
			Msg("token predates password change")
		return nil, ErrStaleCredential
	}

	return &Identity{
		User: user,
		Role: user.Role,
	}, nil
}
