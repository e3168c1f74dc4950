package roles

import "time"

// Role is a named capability tag referenced by users and webapps.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerKind selects which link relation a role assignment lives in.
type OwnerKind string

const (
	// OwnerUser targets the user_roles link relation.
	OwnerUser OwnerKind = "user"
	// OwnerWebApp targets the webapp_roles link relation.
	OwnerWebApp OwnerKind = "webapp"
)

// Owner identifies the record whose role links are being read or reconciled.
type Owner struct {
	Kind OwnerKind
	ID   int64
}
