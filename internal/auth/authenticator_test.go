package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tasktrack/internal/auth"
	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

type fakeCredentialStore struct {
	users map[string]*models.User
}

func (f *fakeCredentialStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeCredentialStore) FindByEmailOrUsername(_ context.Context, emailOrUsername string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == emailOrUsername || user.Username == emailOrUsername {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeCredentialStore) Save(_ context.Context, user *models.User) error {
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeCredentialStore) List(_ context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, len(f.users))
	for _, user := range f.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func newAuthenticator(t *testing.T, users ...*models.User) (*auth.Authenticator, *auth.TokenService, *fakeCredentialStore) {
	t.Helper()

	credentials := &fakeCredentialStore{users: make(map[string]*models.User)}
	for _, user := range users {
		credentials.users[user.ID] = user
	}

	tokens := newTokenService(t, testT0)
	authenticator := auth.NewAuthenticator(zerolog.Nop(), tokens, credentials)
	return authenticator, tokens, credentials
}

func bearer(t *testing.T, tokens *auth.TokenService, subjectID string, role models.Role) string {
	t.Helper()
	signed, _, err := tokens.Issue(subjectID, role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + signed
}

func TestAuthenticateSuccess(t *testing.T) {
	user := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser, Active: true}
	authenticator, tokens, _ := newAuthenticator(t, user)

	identity, err := authenticator.Authenticate(context.Background(), bearer(t, tokens, "u1", models.RoleUser))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.User.ID != "u1" {
		t.Errorf("user id = %q, want %q", identity.User.ID, "u1")
	}
	if identity.Role != models.RoleUser {
		t.Errorf("role = %q, want %q", identity.Role, models.RoleUser)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	active := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser, Active: true}
	inactive := &models.User{ID: "u2", Username: "bob", Role: models.RoleUser, Active: false}

	watermark := testT0.Add(time.Hour)
	rotated := &models.User{
		ID:                "u3",
		Username:          "carol",
		Role:              models.RoleUser,
		Active:            true,
		PasswordChangedAt: &watermark,
	}

	authenticator, tokens, _ := newAuthenticator(t, active, inactive, rotated)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"missing header", "", auth.ErrMissingAuth},
		{"malformed header", "Token abc", auth.ErrMalformedAuth},
		{"invalid token", "Bearer garbage", auth.ErrInvalidToken},
		{"unknown subject", bearer(t, tokens, "nobody", models.RoleUser), auth.ErrUnknownSubject},
		{"deactivated account", bearer(t, tokens, "u2", models.RoleUser), auth.ErrDeactivated},
		{"token predates password change", bearer(t, tokens, "u3", models.RoleUser), auth.ErrStaleCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authenticator.Authenticate(context.Background(), tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthenticateTokenAtWatermarkSurvives(t *testing.T) {
	// A token issued exactly at the watermark is the one handed back
	// by the password change itself; only strictly older tokens die.
	watermark := testT0
	user := &models.User{
		ID:                "u1",
		Username:          "alice",
		Role:              models.RoleUser,
		Active:            true,
		PasswordChangedAt: &watermark,
	}
	authenticator, tokens, _ := newAuthenticator(t, user)

	_, err := authenticator.Authenticate(context.Background(), bearer(t, tokens, "u1", models.RoleUser))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

func TestAuthenticateUsesStoredRole(t *testing.T) {
	// Promotion takes effect immediately: the identity carries the
	// stored role even when the token still says user.
	user := &models.User{ID: "u1", Username: "alice", Role: models.RoleAdmin, Active: true}
	authenticator, tokens, _ := newAuthenticator(t, user)

	identity, err := authenticator.Authenticate(context.Background(), bearer(t, tokens, "u1", models.RoleUser))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.Role != models.RoleAdmin {
		t.Errorf("role = %q, want %q", identity.Role, models.RoleAdmin)
	}
}
