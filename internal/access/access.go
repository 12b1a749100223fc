// Package access holds the pure authorization predicates. Nothing here
// performs I/O; callers turn a false result into the error response.
package access

import "tasktrack/internal/models"

// CanView reports whether the caller may read the task: admins see
// everything, everyone else only tasks they created or are assigned to.
func CanView(callerID string, role models.Role, task *models.Task) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleUser:
		return task.AssignedToID == callerID || task.CreatedByID == callerID
	}
	return false
}

// CanModify currently shares the ownership rule with CanView. It stays
// a separate function so a read-only role can diverge the two without
// touching call sites.
func CanModify(callerID string, role models.Role, task *models.Task) bool {
	return CanView(callerID, role, task)
}

// CanReassign reports whether the caller may hand a task to an identity
// other than themselves.
func CanReassign(role models.Role) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleUser:
		return false
	}
	return false
}

// Authorize reports whether the role is in the required set, for
// role-gated endpoints such as admin user management.
func Authorize(role models.Role, required ...models.Role) bool {
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}
