package models

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const DefaultCategory = "general"

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
	maxCategoryLen    = 50
	maxTagLen         = 30
	maxCommentLen     = 500
)

// ErrValidation marks every field-constraint failure; callers match it
// with errors.Is and surface the wrapped reason.
var ErrValidation = errors.New("validation failed")

type Task struct {
	ID           string
	Title        string
	Description  string
	Status       Status
	Priority     Priority
	Category     string
	DueDate      *time.Time
	CompletedAt  *time.Time
	AssignedToID string
	CreatedByID  string
	Tags         []string
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Comment struct {
	ID        string
	TaskID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
}

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
	}
}

// SetStatus transitions the task and keeps CompletedAt in sync:
// it is set exactly when the status becomes completed and cleared
// whenever the status leaves it. Applying the same status twice
// yields the same state.
func (t *Task) SetStatus(status Status, now time.Time) {
	if status == StatusCompleted {
		if t.Status != StatusCompleted {
			completedAt := now
			t.CompletedAt = &completedAt
		}
	} else {
		t.CompletedAt = nil
	}
	t.Status = status
}

// Validate checks the field constraints for a task about to be written.
// The due date must be strictly in the future at creation time; updates
// pass requireFutureDue=false so an already-overdue task stays editable.
func (t *Task) Validate(now time.Time, requireFutureDue bool) error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(t.Title) > maxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, maxTitleLen)
	}
	if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxDescriptionLen)
	}
	if utf8.RuneCountInString(t.Category) > maxCategoryLen {
		return fmt.Errorf("%w: category exceeds %d characters", ErrValidation, maxCategoryLen)
	}
	if requireFutureDue && t.DueDate != nil && !t.DueDate.After(now) {
		return fmt.Errorf("%w: due date must be in the future", ErrValidation)
	}
	for _, tag := range t.Tags {
		if tag == "" {
			return fmt.Errorf("%w: empty tag", ErrValidation)
		}
		if utf8.RuneCountInString(tag) > maxTagLen {
			return fmt.Errorf("%w: tag %q exceeds %d characters", ErrValidation, tag, maxTagLen)
		}
	}
	return nil
}

func ValidateComment(content string) error {
	if content == "" {
		return fmt.Errorf("%w: comment content is required", ErrValidation)
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, maxCommentLen)
	}
	return nil
}
