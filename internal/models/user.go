package models

import "time"

// User is the identity record backing authentication and ownership
// checks. PasswordHash never leaves the credential store boundary.
type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string `json:"-"`
	Role              Role
	Active            bool
	PasswordChangedAt *time.Time
	LastAuthAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
