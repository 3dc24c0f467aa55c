package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/upasthit/attendance-api/pkg/geo"
)

// SessionType distinguishes how attendees are expected to join.
type SessionType string

const (
	SessionTypePhysical SessionType = "PHYSICAL"
	SessionTypeRemote   SessionType = "REMOTE"
	SessionTypeHybrid   SessionType = "HYBRID"
)

// Valid returns true when the type is a supported value.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypePhysical, SessionTypeRemote, SessionTypeHybrid:
		return true
	default:
		return false
	}
}

// SessionFrequency describes the recurrence shape of a session.
type SessionFrequency string

const (
	FrequencyOneTime SessionFrequency = "ONE_TIME"
	FrequencyDaily   SessionFrequency = "DAILY"
	FrequencyWeekly  SessionFrequency = "WEEKLY"
	FrequencyMonthly SessionFrequency = "MONTHLY"
)

// Valid returns true when the frequency is a supported value.
func (f SessionFrequency) Valid() bool {
	switch f {
	case FrequencyOneTime, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// Recurring reports whether occurrences repeat across calendar days.
func (f SessionFrequency) Recurring() bool {
	return f != FrequencyOneTime
}

// AssignmentMode is how one assigned user joins a HYBRID session.
type AssignmentMode string

const (
	ModePhysical AssignmentMode = "PHYSICAL"
	ModeRemote   AssignmentMode = "REMOTE"
)

// RosterStatus is the per-assignment attendance projection maintained by the
// admission pipeline after a successful commit.
type RosterStatus string

const (
	RosterStatusPending RosterStatus = "PENDING"
	RosterStatusPresent RosterStatus = "PRESENT"
	RosterStatusAbsent  RosterStatus = "ABSENT"
)

// GeofencePolygon is an ordered vertex list persisted as JSONB.
type GeofencePolygon []geo.Point

// Value marshals the polygon to JSON for persistence.
func (g GeofencePolygon) Value() (driver.Value, error) {
	if len(g) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal geofence polygon: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the polygon.
func (g *GeofencePolygon) Scan(value interface{}) error {
	if value == nil {
		*g = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for GeofencePolygon", value)
	}
	if len(data) == 0 {
		*g = nil
		return nil
	}
	if err := json.Unmarshal(data, g); err != nil {
		return fmt.Errorf("unmarshal geofence polygon: %w", err)
	}
	return nil
}

// Session represents a scheduled session. The location descriptor has three
// historical variants: direct coordinates, a shareable map link, and a legacy
// "lat,lng" text field. Resolution across them is centralised so none can
// bypass verification.
type Session struct {
	ID             string           `db:"id" json:"id"`
	OrgID          string           `db:"org_id" json:"org_id"`
	Title          string           `db:"title" json:"title"`
	SessionType    SessionType      `db:"session_type" json:"session_type"`
	Frequency      SessionFrequency `db:"frequency" json:"frequency"`
	StartDate      time.Time        `db:"start_date" json:"start_date"`
	EndDate        *time.Time       `db:"end_date" json:"end_date,omitempty"`
	StartTime      string           `db:"start_time" json:"start_time"`
	EndTime        string           `db:"end_time" json:"end_time"`
	WeeklyDays     pq.StringArray   `db:"weekly_days" json:"weekly_days,omitempty"`
	Latitude       *float64         `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64         `db:"longitude" json:"longitude,omitempty"`
	LocationLink   *string          `db:"location_link" json:"location_link,omitempty"`
	LegacyLocation *string          `db:"legacy_location" json:"legacy_location,omitempty"`
	Geofence       GeofencePolygon  `db:"geofence" json:"geofence,omitempty"`
	RadiusMeters   *float64         `db:"radius_meters" json:"radius_meters,omitempty"`
	City           *string          `db:"city" json:"city,omitempty"`
	State          *string          `db:"state" json:"state,omitempty"`
	Active         bool             `db:"active" json:"active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// SessionAssignment links a user to a session. A user appears at most once
// per session (unique constraint). AttendanceStatus/IsLate are the roster
// projection flipped after a successful check-in; the attendance table is the
// source of truth.
type SessionAssignment struct {
	ID               string         `db:"id" json:"id"`
	SessionID        string         `db:"session_id" json:"session_id"`
	UserID           string         `db:"user_id" json:"user_id"`
	Mode             AssignmentMode `db:"mode" json:"mode"`
	AttendanceStatus RosterStatus   `db:"attendance_status" json:"attendance_status"`
	IsLate           bool           `db:"is_late" json:"is_late"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// SessionOccurrence is one concrete calendar instance of a session: the local
// civil day plus the resolved UTC start/end instants.
type SessionOccurrence struct {
	Date  time.Time `json:"date"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SessionFilter scopes session listing queries.
type SessionFilter struct {
	OrgID       string
	UserID      string
	SessionType *SessionType
	Active      *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
