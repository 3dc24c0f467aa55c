package dto

import (
	"time"

	"github.com/upasthit/attendance-api/internal/models"
)

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" validate:"required,report_type"`
	SessionID *string             `json:"sessionId,omitempty"`
	UserID    *string             `json:"userId,omitempty"`
	DateFrom  *time.Time          `json:"dateFrom,omitempty"`
	DateTo    *time.Time          `json:"dateTo,omitempty"`
	Format    models.ReportFormat `json:"format" validate:"required,report_format"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
