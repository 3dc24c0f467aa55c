package models

import "time"

// AttendanceRecord is one accepted check-in. Created at most once per
// (user_id, session_id, occurrence_date); immutable after creation.
// LocationVerified is true for every committed record: either the location
// gate verified the attempt, or the session's policy did not require
// verification.
type AttendanceRecord struct {
	ID               string                `db:"id" json:"id"`
	OrgID            string                `db:"org_id" json:"org_id"`
	UserID           string                `db:"user_id" json:"user_id"`
	SessionID        string                `db:"session_id" json:"session_id"`
	OccurrenceDate   time.Time             `db:"occurrence_date" json:"occurrence_date"`
	CheckInTime      time.Time             `db:"check_in_time" json:"check_in_time"`
	ClientTimestamp  *time.Time            `db:"client_timestamp" json:"client_timestamp,omitempty"`
	IsLate           bool                  `db:"is_late" json:"is_late"`
	LateByMinutes    *int                  `db:"late_by_minutes" json:"late_by_minutes,omitempty"`
	LocationVerified bool                  `db:"location_verified" json:"location_verified"`
	Latitude         *float64              `db:"latitude" json:"latitude,omitempty"`
	Longitude        *float64              `db:"longitude" json:"longitude,omitempty"`
	AccuracyMeters   *float64              `db:"accuracy_meters" json:"accuracy_meters,omitempty"`
	DeviceID         string                `db:"device_id" json:"device_id"`
	UserAgent        string                `db:"user_agent" json:"user_agent"`
	Verification     *VerificationSnapshot `db:"verification" json:"verification,omitempty"`
	CreatedAt        time.Time             `db:"created_at" json:"created_at"`
}

// AttendanceFilter scopes history listing queries.
type AttendanceFilter struct {
	OrgID     string
	UserID    string
	SessionID string
	DateFrom  *time.Time
	DateTo    *time.Time
	IsLate    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AttendanceSummary aggregates a user's accepted check-ins.
type AttendanceSummary struct {
	Total       int     `db:"total" json:"total"`
	OnTime      int     `db:"on_time" json:"on_time"`
	Late        int     `db:"late" json:"late"`
	LatePercent float64 `json:"late_percent"`
}

// AttendanceExportRow is the joined row shape rendered into CSV/PDF reports.
type AttendanceExportRow struct {
	OccurrenceDate   time.Time `db:"occurrence_date" json:"occurrence_date"`
	SessionTitle     string    `db:"session_title" json:"session_title"`
	FullName         string    `db:"full_name" json:"full_name"`
	Email            string    `db:"email" json:"email"`
	CheckInTime      time.Time `db:"check_in_time" json:"check_in_time"`
	IsLate           bool      `db:"is_late" json:"is_late"`
	LateByMinutes    *int      `db:"late_by_minutes" json:"late_by_minutes,omitempty"`
	LocationVerified bool      `db:"location_verified" json:"location_verified"`
}

// SessionRosterRow joins an assignment with its attendance for one
// occurrence, used by the per-session report.
type SessionRosterRow struct {
	UserID           string         `db:"user_id" json:"user_id"`
	FullName         string         `db:"full_name" json:"full_name"`
	Email            string         `db:"email" json:"email"`
	Mode             AssignmentMode `db:"mode" json:"mode"`
	AttendanceStatus RosterStatus   `db:"attendance_status" json:"attendance_status"`
	IsLate           bool           `db:"is_late" json:"is_late"`
	CheckInTime      *time.Time     `db:"check_in_time" json:"check_in_time,omitempty"`
	LateByMinutes    *int           `db:"late_by_minutes" json:"late_by_minutes,omitempty"`
}
