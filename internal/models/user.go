package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
	RoleMember  UserRole = "MEMBER"
)

// User represents an application user stored in the users table. The
// registered device pair is null until the first successful check-in binds
// it; after that it only changes through an administrative reset.
type User struct {
	ID                  string     `db:"id" json:"id"`
	OrgID               string     `db:"org_id" json:"org_id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	FullName            string     `db:"full_name" json:"full_name"`
	Role                UserRole   `db:"role" json:"role"`
	Active              bool       `db:"active" json:"active"`
	RegisteredDeviceID  *string    `db:"registered_device_id" json:"registered_device_id,omitempty"`
	RegisteredUserAgent *string    `db:"registered_user_agent" json:"registered_user_agent,omitempty"`
	LastLogin           *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// DeviceBound reports whether the user already has a registered device.
func (u *User) DeviceBound() bool {
	return u != nil && u.RegisteredDeviceID != nil && *u.RegisteredDeviceID != ""
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
