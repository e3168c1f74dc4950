package auth

import "time"

// User represents an identity record in the credential store.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminRole is the literal role name gating privileged operations.
// Membership is exact-string based, no hierarchy.
const AdminRole = "admin"
