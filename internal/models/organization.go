package models

import "time"

// Organization represents a tenant. Attendance policy knobs live on the row
// so operators can tune lateness handling per tenant.
type Organization struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	UTCOffsetMinutes int       `db:"utc_offset_minutes" json:"utc_offset_minutes"`
	LateLimitMinutes int       `db:"late_limit_minutes" json:"late_limit_minutes"`
	StrictLateMode   bool      `db:"strict_late_mode" json:"strict_late_mode"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// OrgSettings is the policy slice the admission pipeline consumes. Lateness
// parameters fall back to documented defaults when the row cannot be read;
// they classify lateness only and never gate admission security.
type OrgSettings struct {
	LateLimitMinutes int  `db:"late_limit_minutes" json:"late_limit_minutes"`
	StrictLateMode   bool `db:"strict_late_mode" json:"strict_late_mode"`
	UTCOffsetMinutes int  `db:"utc_offset_minutes" json:"utc_offset_minutes"`
}
