// Package store implements the credential store over Postgres.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"tasktrack/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// CredentialStore is the identity boundary: the only component allowed
// to see password hashes.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, emailOrUsername string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
}

type pgCredentialStore struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewCredentialStore(logger zerolog.Logger, pgPool *pgxpool.Pool) CredentialStore {
	return &pgCredentialStore{
		logger: logger,
		pgPool: pgPool,
	}
}

const userColumns = `id,
       username,
       email,
       password_hash,
       role,
       active,
       password_changed_at,
       last_auth_at,
       created_at,
       updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := new(models.User)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Active,
		&user.PasswordChangedAt,
		&user.LastAuthAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *pgCredentialStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	const selectUserByIDQuery = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`
	user, err := scanUser(s.pgPool.QueryRow(ctx, selectUserByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("user_id", id).
			Msg("failed to select user by id")
		return nil, err
	}
	return user, nil
}

func (s *pgCredentialStore) FindByEmailOrUsername(ctx context.Context, emailOrUsername string) (*models.User, error) {
	const selectUserQuery = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1 OR username = $1
`
	user, err := scanUser(s.pgPool.QueryRow(ctx, selectUserQuery, emailOrUsername))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select user by email or username")
		return nil, err
	}
	return user, nil
}

// Save inserts the user or, when the id already exists, updates the
// mutable columns. Username and email uniqueness is enforced by the
// database.
func (s *pgCredentialStore) Save(ctx context.Context, user *models.User) error {
	const upsertUserQuery = `
INSERT INTO users (id,
                   username,
                   email,
                   password_hash,
                   role,
                   active,
                   password_changed_at,
                   last_auth_at,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE
SET username = EXCLUDED.username,
    email = EXCLUDED.email,
    password_hash = EXCLUDED.password_hash,
    role = EXCLUDED.role,
    active = EXCLUDED.active,
    password_changed_at = EXCLUDED.password_changed_at,
    last_auth_at = EXCLUDED.last_auth_at,
    updated_at = EXCLUDED.updated_at
`
	_, err := s.pgPool.Exec(
		ctx,
		upsertUserQuery,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.PasswordChangedAt,
		user.LastAuthAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			s.logger.Error().
				Str("email", user.Email).
				Str("username", user.Username).
				Msg("user with this email or username already exists")
			return ErrUserAlreadyExists
		}

		s.logger.Error().
			Err(err).
			Msg("failed to save user")
		return err
	}

	s.logger.Debug().
		Str("user_id", user.ID).
		Msg("saved user")
	return nil
}

func (s *pgCredentialStore) List(ctx context.Context) ([]*models.User, error) {
	const selectUsersQuery = `
SELECT ` + userColumns + `
FROM users
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(ctx, selectUsersQuery)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select users")
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan user")
			return nil, err
		}
		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return users, nil
}
