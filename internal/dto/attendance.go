package dto

import (
	"time"

	"github.com/upasthit/attendance-api/internal/models"
)

// HistoryRequest captures filters for GET /attendance/history.
type HistoryRequest struct {
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

// SummaryResponse aggregates a user's attendance figures.
type SummaryResponse struct {
	UserID      string  `json:"userId"`
	Total       int     `json:"total"`
	OnTime      int     `json:"onTime"`
	Late        int     `json:"late"`
	LatePercent float64 `json:"latePercent"`
}

// RosterResponse is the per-occurrence roster report for a session.
type RosterResponse struct {
	SessionID string                    `json:"sessionId"`
	Date      string                    `json:"date"`
	Assigned  int                       `json:"assigned"`
	Present   int                       `json:"present"`
	Late      int                       `json:"late"`
	Rows      []models.SessionRosterRow `json:"rows"`
}

// TodaySession pairs a session with its resolved occurrence instants for the
// caller's local day.
type TodaySession struct {
	Session     models.Session `json:"session"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	ScanOpensAt time.Time      `json:"scanOpensAt"`
}
