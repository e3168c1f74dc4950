package users

import "time"

// User represents a user account for management. Responses never expose the
// password hash.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserRequest carries the attributes for a new account.
type CreateUserRequest struct {
	Username string
	Password string
	Roles    []string
}

// UpdateUserRequest carries optional fields per updatable attribute. A nil
// field leaves the attribute unchanged; a nil Roles slice leaves the role set
// unchanged while an empty one clears it.
type UpdateUserRequest struct {
	Username *string
	Password *string
	Roles    []string
}
