package webapps

import "time"

// WebApp is a registered sub-application. RequiredRoles is the role-name set
// gating visibility: a caller sees the app iff it holds at least one of them.
type WebApp struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Description   string     `json:"description,omitempty"`
	RequiredRoles []string   `json:"required_roles"`
	Healthy       *bool      `json:"healthy,omitempty"`
	CheckedAt     *time.Time `json:"checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateWebAppRequest carries the attributes for a new registration.
type CreateWebAppRequest struct {
	Name          string
	URL           string
	Description   string
	RequiredRoles []string
}

// UpdateWebAppRequest carries optional fields per updatable attribute. A nil
// field leaves the attribute unchanged; a nil RequiredRoles slice leaves the
// role set unchanged while an empty one clears it (hiding the app from all
// callers).
type UpdateWebAppRequest struct {
	Name          *string
	URL           *string
	Description   *string
	RequiredRoles []string
}
