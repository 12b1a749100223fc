package models_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tasktrack/internal/models"
)

var testNow = time.Date(2025, time.June, 15, 14, 30, 0, 0, time.UTC)

func TestSetStatusDerivesCompletedAt(t *testing.T) {
	task := &models.Task{Status: models.StatusPending}

	task.SetStatus(models.StatusCompleted, testNow)
	if task.CompletedAt == nil || !task.CompletedAt.Equal(testNow) {
		t.Fatalf("completedAt = %v, want %v", task.CompletedAt, testNow)
	}

	// Idempotent: completing again keeps the original timestamp.
	later := testNow.Add(time.Hour)
	task.SetStatus(models.StatusCompleted, later)
	if !task.CompletedAt.Equal(testNow) {
		t.Errorf("completedAt = %v, want original %v", task.CompletedAt, testNow)
	}

	task.SetStatus(models.StatusInProgress, later)
	if task.CompletedAt != nil {
		t.Errorf("completedAt = %v, want nil after leaving completed", task.CompletedAt)
	}

	// Clearing twice is also a no-op.
	task.SetStatus(models.StatusPending, later)
	if task.CompletedAt != nil {
		t.Errorf("completedAt = %v, want nil", task.CompletedAt)
	}
}

func TestValidate(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	tests := []struct {
		name    string
		task    models.Task
		future  bool
		wantErr bool
	}{
		{"valid minimal", models.Task{Title: "t"}, true, false},
		{"empty title", models.Task{}, true, true},
		{"title too long", models.Task{Title: strings.Repeat("x", 201)}, true, true},
		{"description too long", models.Task{Title: "t", Description: strings.Repeat("x", 1001)}, true, true},
		{"category too long", models.Task{Title: "t", Category: strings.Repeat("x", 51)}, true, true},
		{"past due date at creation", models.Task{Title: "t", DueDate: &past}, true, true},
		{"due date now at creation", models.Task{Title: "t", DueDate: &testNow}, true, true},
		{"future due date at creation", models.Task{Title: "t", DueDate: &future}, true, false},
		{"past due date on update", models.Task{Title: "t", DueDate: &past}, false, false},
		{"tag too long", models.Task{Title: "t", Tags: []string{strings.Repeat("x", 31)}}, true, true},
		{"empty tag", models.Task{Title: "t", Tags: []string{""}}, true, true},
		// Limits count characters, not bytes: 150 two-byte runes are
		// well inside the 200-character title limit.
		{"multibyte title within limit", models.Task{Title: strings.Repeat("я", 150)}, true, false},
		{"multibyte title too long", models.Task{Title: strings.Repeat("я", 201)}, true, true},
		{"multibyte description within limit", models.Task{Title: "t", Description: strings.Repeat("я", 1000)}, true, false},
		{"multibyte category within limit", models.Task{Title: "t", Category: strings.Repeat("я", 50)}, true, false},
		{"multibyte tag within limit", models.Task{Title: "t", Tags: []string{strings.Repeat("я", 30)}}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate(testNow, tt.future)
			if tt.wantErr {
				if !errors.Is(err, models.ErrValidation) {
					t.Errorf("Validate = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestValidateComment(t *testing.T) {
	if err := models.ValidateComment("looks good"); err != nil {
		t.Errorf("ValidateComment: %v", err)
	}
	if err := models.ValidateComment(""); !errors.Is(err, models.ErrValidation) {
		t.Errorf("empty comment = %v, want ErrValidation", err)
	}
	if err := models.ValidateComment(strings.Repeat("x", 501)); !errors.Is(err, models.ErrValidation) {
		t.Errorf("oversized comment = %v, want ErrValidation", err)
	}
	if err := models.ValidateComment(strings.Repeat("я", 500)); err != nil {
		t.Errorf("500-character multibyte comment = %v, want nil", err)
	}
	if err := models.ValidateComment(strings.Repeat("я", 501)); !errors.Is(err, models.ErrValidation) {
		t.Errorf("501-character multibyte comment = %v, want ErrValidation", err)
	}
}

func TestApplyWritesSubmittedFields(t *testing.T) {
	dueDate := testNow.Add(48 * time.Hour)
	title := "new title"
	status := models.StatusCompleted
	archived := true

	task := &models.Task{
		Title:        "old title",
		Status:       models.StatusPending,
		Priority:     models.PriorityMedium,
		AssignedToID: "u1",
		CreatedByID:  "u1",
	}

	task.Apply(models.TaskChanges{
		Title:    &title,
		Status:   &status,
		DueDate:  &dueDate,
		Tags:     []string{"q3", "urgent"},
		Archived: &archived,
	}, models.RoleUser, testNow)

	if task.Title != "new title" {
		t.Errorf("title = %q", task.Title)
	}
	if task.Status != models.StatusCompleted {
		t.Errorf("status = %q", task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(testNow) {
		t.Errorf("completedAt = %v, want %v", task.CompletedAt, testNow)
	}
	if task.DueDate == nil || !task.DueDate.Equal(dueDate) {
		t.Errorf("dueDate = %v, want %v", task.DueDate, dueDate)
	}
	if len(task.Tags) != 2 {
		t.Errorf("tags = %v", task.Tags)
	}
	if !task.Archived {
		t.Error("archived not applied")
	}
	if !task.UpdatedAt.Equal(testNow) {
		t.Errorf("updatedAt = %v, want %v", task.UpdatedAt, testNow)
	}

	// Priority was not submitted and must survive untouched.
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want unchanged", task.Priority)
	}
}

func TestApplyClearDueDate(t *testing.T) {
	dueDate := testNow.Add(time.Hour)
	task := &models.Task{Title: "t", DueDate: &dueDate}

	task.Apply(models.TaskChanges{ClearDueDate: true}, models.RoleUser, testNow)
	if task.DueDate != nil {
		t.Errorf("dueDate = %v, want nil", task.DueDate)
	}
}

func TestApplyAssignedToBothRoles(t *testing.T) {
	// The schema admits both roles for assigned_to; the value-level
	// reassignment policy lives with the caller.
	target := "u2"
	for _, role := range []models.Role{models.RoleUser, models.RoleAdmin} {
		task := &models.Task{Title: "t", AssignedToID: "u1"}
		task.Apply(models.TaskChanges{AssignedToID: &target}, role, testNow)
		if task.AssignedToID != "u2" {
			t.Errorf("role %q: assignedToID = %q, want u2", role, task.AssignedToID)
		}
	}
}

func TestParseStatusAndPriority(t *testing.T) {
	for _, valid := range []string{"pending", "in-progress", "completed", "cancelled"} {
		if _, err := models.ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q): %v", valid, err)
		}
	}
	if _, err := models.ParseStatus("done"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("ParseStatus(done) = %v, want ErrValidation", err)
	}

	for _, valid := range []string{"low", "medium", "high", "urgent"} {
		if _, err := models.ParsePriority(valid); err != nil {
			t.Errorf("ParsePriority(%q): %v", valid, err)
		}
	}
	if _, err := models.ParsePriority("asap"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("ParsePriority(asap) = %v, want ErrValidation", err)
	}
}

func TestParseRole(t *testing.T) {
	if role, err := models.ParseRole("admin"); err != nil || role != models.RoleAdmin {
		t.Errorf("ParseRole(admin) = %q, %v", role, err)
	}
	if role, err := models.ParseRole("user"); err != nil || role != models.RoleUser {
		t.Errorf("ParseRole(user) = %q, %v", role, err)
	}
	if _, err := models.ParseRole("root"); err == nil {
		t.Error("ParseRole(root) must fail")
	}
}
