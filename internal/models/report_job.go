package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportStatus tracks a background job through its lifecycle. Jobs move
// QUEUED -> PROCESSING -> FINISHED or FAILED; there are no other transitions.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusFinished || s == ReportStatusFailed
}

// ReportType names a report category that can be generated asynchronously.
type ReportType string

const (
	ReportTypeAttendanceHistory ReportType = "attendance_history"
	ReportTypeSessionRoster     ReportType = "session_roster"
)

// Valid reports whether the type is one this service can generate.
func (t ReportType) Valid() bool {
	return t == ReportTypeAttendanceHistory || t == ReportTypeSessionRoster
}

// ReportFormat names an output file format.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ReportFormat) Valid() bool {
	return f == ReportFormatCSV || f == ReportFormatPDF
}

// ReportJob is the persisted metadata of one background report run.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	OrgID        string          `db:"org_id" json:"org_id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams are the request-scoped options of a job, stored as JSONB
// in the params column.
type ReportJobParams struct {
	SessionID *string      `json:"sessionId,omitempty"`
	UserID    *string      `json:"userId,omitempty"`
	DateFrom  *time.Time   `json:"dateFrom,omitempty"`
	DateTo    *time.Time   `json:"dateTo,omitempty"`
	Format    ReportFormat `json:"format"`
}

// Value implements driver.Valuer, serializing params to JSON.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report job params: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner, accepting []byte or string JSONB payloads.
// NULL and empty payloads reset the struct to its zero value.
func (p *ReportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportJobParams", value)
	}
	if len(data) == 0 {
		*p = ReportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report job params: %w", err)
	}
	return nil
}
