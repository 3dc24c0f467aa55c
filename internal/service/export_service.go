package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/pkg/export"
	"github.com/upasthit/attendance-api/pkg/storage"
)

type attendanceExportRepository interface {
	ListForExport(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceExportRow, error)
}

type rosterExportRepository interface {
	Roster(ctx context.Context, sessionID string, occurrenceDate time.Time) ([]models.SessionRosterRow, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files. Download
// links embed an HMAC signed token; nothing under the storage directory is
// reachable without one.
type ExportService struct {
	attendance attendanceExportRepository
	roster     rosterExportRepository
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(attendance attendanceExportRepository, roster rosterExportRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		attendance: attendance,
		roster:     roster,
		storage:    store,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := buildExportFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download?token=%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeAttendanceHistory:
		return s.buildHistoryDataset(ctx, job)
	case models.ReportTypeSessionRoster:
		return s.buildRosterDataset(ctx, job)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildHistoryDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	filter := models.AttendanceFilter{
		OrgID:     job.OrgID,
		UserID:    deref(job.Params.UserID),
		SessionID: deref(job.Params.SessionID),
		DateFrom:  job.Params.DateFrom,
		DateTo:    job.Params.DateTo,
	}
	rows, err := s.attendance.ListForExport(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Date":          row.OccurrenceDate.Format("2006-01-02"),
			"Session":       row.SessionTitle,
			"Name":          row.FullName,
			"Email":         row.Email,
			"Check-In":      row.CheckInTime.UTC().Format(time.RFC3339),
			"Late":          formatBool(row.IsLate),
			"Late By (min)": formatMinutes(row.LateByMinutes),
			"Verified":      formatBool(row.LocationVerified),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Date", "Session", "Name", "Email", "Check-In", "Late", "Late By (min)", "Verified"},
		Rows:    dataRows,
	}
	return dataset, "Attendance History", nil
}

func (s *ExportService) buildRosterDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	sessionID := deref(job.Params.SessionID)
	if sessionID == "" {
		return export.Dataset{}, "", fmt.Errorf("roster report requires a session id")
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if job.Params.DateFrom != nil {
		date = dateOnly(*job.Params.DateFrom)
	}

	rows, err := s.roster.Roster(ctx, sessionID, date)
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		checkIn := ""
		if row.CheckInTime != nil {
			checkIn = row.CheckInTime.UTC().Format(time.RFC3339)
		}
		dataRows = append(dataRows, map[string]string{
			"Name":          row.FullName,
			"Email":         row.Email,
			"Mode":          string(row.Mode),
			"Status":        string(row.AttendanceStatus),
			"Late":          formatBool(row.IsLate),
			"Late By (min)": formatMinutes(row.LateByMinutes),
			"Check-In":      checkIn,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Mode", "Status", "Late", "Late By (min)", "Check-In"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Session Roster %s", date.Format("2006-01-02"))
	return dataset, title, nil
}

func buildExportFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s.%s", job.OrgID, job.Type, timestamp, job.Params.Format)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatMinutes(minutes *int) string {
	if minutes == nil {
		return ""
	}
	return fmt.Sprintf("%d", *minutes)
}
