package models

import "time"

// TaskChanges is a partial update: nil means the field was not
// submitted. Fields outside this set are dropped at the decoding
// boundary and never reach the schema.
type TaskChanges struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	Category     *string
	DueDate      *time.Time
	ClearDueDate bool
	Tags         []string
	Archived     *bool
	AssignedToID *string
}

type roleSet map[Role]struct{}

func rolesOf(roles ...Role) roleSet {
	set := make(roleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// taskWriteSchema declares, per field, which roles may write it on
// update. Consulted once per update instead of scattering membership
// checks. The assigned_to entry admits both roles because a caller may
// always assign a task to themselves; moving it to anyone else is the
// reassignment policy's decision, enforced before the schema applies.
var taskWriteSchema = map[string]roleSet{
	"title":       rolesOf(RoleUser, RoleAdmin),
	"description": rolesOf(RoleUser, RoleAdmin),
	"status":      rolesOf(RoleUser, RoleAdmin),
	"priority":    rolesOf(RoleUser, RoleAdmin),
	"category":    rolesOf(RoleUser, RoleAdmin),
	"due_date":    rolesOf(RoleUser, RoleAdmin),
	"tags":        rolesOf(RoleUser, RoleAdmin),
	"archived":    rolesOf(RoleUser, RoleAdmin),
	"assigned_to": rolesOf(RoleUser, RoleAdmin),
}

func (s roleSet) allows(role Role) bool {
	_, ok := s[role]
	return ok
}

func writable(field string, role Role) bool {
	set, ok := taskWriteSchema[field]
	return ok && set.allows(role)
}

// Apply writes the submitted changes the schema permits for the caller's
// role onto the task, silently dropping the rest, and keeps the
// completed-at derivation in step with status changes.
func (t *Task) Apply(changes TaskChanges, role Role, now time.Time) {
	if changes.Title != nil && writable("title", role) {
		t.Title = *changes.Title
	}
	if changes.Description != nil && writable("description", role) {
		t.Description = *changes.Description
	}
	if changes.Status != nil && writable("status", role) {
		t.SetStatus(*changes.Status, now)
	}
	if changes.Priority != nil && writable("priority", role) {
		t.Priority = *changes.Priority
	}
	if changes.Category != nil && writable("category", role) {
		t.Category = *changes.Category
	}
	if writable("due_date", role) {
		if changes.ClearDueDate {
			t.DueDate = nil
		} else if changes.DueDate != nil {
			dueDate := *changes.DueDate
			t.DueDate = &dueDate
		}
	}
	if changes.Tags != nil && writable("tags", role) {
		t.Tags = changes.Tags
	}
	if changes.Archived != nil && writable("archived", role) {
		t.Archived = *changes.Archived
	}
	if changes.AssignedToID != nil && writable("assigned_to", role) {
		t.AssignedToID = *changes.AssignedToID
	}
	t.UpdatedAt = now
}
