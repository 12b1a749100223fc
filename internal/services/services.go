package services

import (
	"context"
	"errors"
	"time"

	"tasktrack/internal/models"
	"tasktrack/internal/query"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrUserDeactivated      = errors.New("user is deactivated")
	ErrTaskNotFound         = errors.New("task not found")
	ErrForbidden            = errors.New("forbidden")
)

type AuthService interface {
	// Register creates an identity with the user role, hashes the
	// password and issues a bearer token.
	//
	// It returns ErrUserAlreadyExists if the username or email is
	// taken.
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)

	// Login authenticates by email or username plus password and
	// issues a fresh bearer token.
	//
	// It returns ErrUserNotFound, ErrUserPasswordMismatch or
	// ErrUserDeactivated.
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)

	// ChangePassword verifies the current password, stores a new hash
	// and back-dates the password-changed-at watermark, which kills
	// every previously issued token. A fresh token is returned.
	ChangePassword(ctx context.Context, params ChangePasswordParams) (*AuthResult, error)
}

type TaskService interface {
	// List executes the caller-scoped filter and returns one page plus
	// the total count under the same predicate.
	List(ctx context.Context, callerID string, role models.Role, params query.Params) (*TaskPage, error)

	// Get loads a single task with its comments.
	Get(ctx context.Context, callerID string, role models.Role, taskID string) (*TaskDetail, error)

	// Create persists a new task, self-assigned unless an admin says
	// otherwise.
	Create(ctx context.Context, callerID string, role models.Role, params CreateTaskParams) (*models.Task, error)

	// Update applies a partial update through the writable-field
	// schema after the ownership and reassignment checks.
	Update(ctx context.Context, callerID string, role models.Role, taskID string, changes models.TaskChanges) (*models.Task, error)

	Delete(ctx context.Context, callerID string, role models.Role, taskID string) error

	AddComment(ctx context.Context, callerID string, role models.Role, taskID, content string) (*models.Comment, error)

	// StatsByScope aggregates the caller's visible tasks.
	StatsByScope(ctx context.Context, callerID string, role models.Role) (*TaskStats, error)
}

type UserService interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	SetActive(ctx context.Context, userID string, active bool) (*models.User, error)
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
}

type LoginParams struct {
	EmailOrUsername string
	Password        string
}

type ChangePasswordParams struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
}

type AuthResult struct {
	User           *models.User
	Token          string
	TokenExpiresAt time.Time
}

type CreateTaskParams struct {
	Title        string
	Description  string
	Status       string
	Priority     string
	Category     string
	DueDate      *time.Time
	AssignedToID string
	Tags         []string
}

type TaskPage struct {
	Items    []*models.Task
	Total    int64
	Page     int
	PageSize int
	Pages    int64
}

type TaskDetail struct {
	Task     *models.Task
	Comments []*models.Comment
}

type TaskStats struct {
	ByStatus           map[models.Status]int64
	ByPriority         map[models.Priority]int64
	Overdue            int64
	CompletedThisMonth int64
}
