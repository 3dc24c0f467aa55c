package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/dto"
	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/internal/repository"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
	"github.com/upasthit/attendance-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

type reportAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// statusUpdate builds the common status+progress change set; callers attach
// the extra fields they need before handing it to the store.
func statusUpdate(status models.ReportStatus, progress int) repository.UpdateReportJobParams {
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress}
}

// terminalUpdate marks a job finished or failed at 100% with a timestamp.
func terminalUpdate(status models.ReportStatus, errMsg string) repository.UpdateReportJobParams {
	params := statusUpdate(status, 100)
	now := time.Now().UTC()
	params.FinishedAt = &now
	if errMsg != "" {
		params.ErrorMessage = &errMsg
	}
	return params
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates report job lifecycle management.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	exporter  *ExportService
	auditor   reportAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// NewReportService constructs the report service and registers the
// report_type and report_format validation tags on the shared validator.
func NewReportService(repo reportJobStore, queue jobDispatcher, exporter *ExportService, auditor reportAuditWriter, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	svc := &ReportService{
		repo:      repo,
		queue:     queue,
		exporter:  exporter,
		auditor:   auditor,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	svc.validator.RegisterValidation("report_type", func(fl validator.FieldLevel) bool {
		return models.ReportType(fl.Field().String()).Valid()
	})
	svc.validator.RegisterValidation("report_format", func(fl validator.FieldLevel) bool {
		return models.ReportFormat(fl.Field().String()).Valid()
	})
	return svc
}

// CreateJob persists a QUEUED job for the scoped request and hands it to the
// queue. Members may only export their own history; roster exports require a
// manager role.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, requester Requester) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	scoped, err := s.scopeRequest(req, requester)
	if err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		OrgID: requester.OrgID,
		Type:  scoped.Type,
		Params: models.ReportJobParams{
			SessionID: scoped.SessionID,
			UserID:    scoped.UserID,
			DateFrom:  scoped.DateFrom,
			DateTo:    scoped.DateTo,
			Format:    scoped.Format,
		},
		Status:    models.ReportStatusQueued,
		Progress:  0,
		CreatedBy: requester.ID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		// The row already exists; fail it so the client sees a terminal
		// status rather than a job stuck in QUEUED.
		_ = s.repo.Update(ctx, job.ID, terminalUpdate(models.ReportStatusFailed, "failed to enqueue job"))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.audit(ctx, requester.ID, job)
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata. Jobs are visible inside their own org only;
// members additionally must be the creator.
func (s *ReportService) GetStatus(ctx context.Context, id string, requester Requester) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.OrgID != requester.OrgID {
		// Cross-org probes get the same answer as a missing id.
		return nil, appErrors.ErrNotFound
	}
	if !requester.CanViewOthers() && job.CreatedBy != requester.ID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ReportStatusResponse{
		ID:       job.ID,
		Status:   job.Status,
		Progress: job.Progress,
	}
	if job.ResultURL != nil {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the signed token and opens the stored export
// file. Every token failure maps to the same invalid-link error so the
// endpoint leaks nothing about job existence.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.ErrDownloadLinkInvalid
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrDownloadLinkInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.ErrDownloadLinkInvalid
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.ErrReportNotReady
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs (e.g. after process restart).
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

const cleanupBatchSize = 100

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		batch, err := s.repo.ListFinishedBefore(ctx, cutoff, cleanupBatchSize)
		if err != nil {
			s.logger.Warn("cleanup list failed", zap.Error(err))
			return
		}
		if len(batch) == 0 {
			break
		}
		for _, job := range batch {
			s.purgeArtifact(job)
		}
		if len(batch) < cleanupBatchSize {
			break
		}
	}
	// Sweep orphans left behind by rows deleted out of band.
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
}

// purgeArtifact removes the export file referenced by an expired job row.
func (s *ReportService) purgeArtifact(job models.ReportJob) {
	if job.ResultURL == nil {
		return
	}
	token := extractToken(*job.ResultURL)
	if token == "" {
		return
	}
	// allowExpired: the link being past its TTL is exactly why we are here.
	_, relPath, _, err := s.exporter.ParseToken(token, true)
	if err != nil {
		return
	}
	if err := s.exporter.Delete(relPath); err != nil {
		s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// scopeRequest normalises the request against the requester's role and
// returns the params the job may legally carry. Enum fields are already
// validated by the struct tags.
func (s *ReportService) scopeRequest(req dto.ReportRequest, requester Requester) (dto.ReportRequest, error) {
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return req, appErrors.Clone(appErrors.ErrValidation, "dateFrom must not be after dateTo")
	}
	switch req.Type {
	case models.ReportTypeSessionRoster:
		if !requester.CanViewOthers() {
			return req, appErrors.Clone(appErrors.ErrForbidden, "roster reports require a manager role")
		}
		if req.SessionID == nil || *req.SessionID == "" {
			return req, appErrors.Clone(appErrors.ErrValidation, "sessionId is required for roster reports")
		}
	case models.ReportTypeAttendanceHistory:
		if !requester.CanViewOthers() {
			if req.UserID != nil && *req.UserID != requester.ID {
				return req, appErrors.Clone(appErrors.ErrForbidden, "members can only export their own attendance")
			}
			self := requester.ID
			req.UserID = &self
		}
	}
	return req, nil
}

func (s *ReportService) audit(ctx context.Context, userID string, job *models.ReportJob) {
	if s.auditor == nil {
		return
	}
	detail, _ := json.Marshal(map[string]string{"type": string(job.Type), "format": string(job.Params.Format)})
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &userID,
		Action:     models.AuditActionReportCreate,
		Resource:   "report",
		ResourceID: &job.ID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.auditor.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", models.AuditActionReportCreate), zap.Error(err))
	}
}

// extractToken pulls the signed token out of a stored result URL. Links use a
// token query parameter; older rows may carry path-suffixed tokens.
func extractToken(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.Index(url, "token="); idx >= 0 {
		token := url[idx+len("token="):]
		if amp := strings.IndexByte(token, '&'); amp >= 0 {
			token = token[:amp]
		}
		return token
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job. Generation failures requeue the job until
// the attempt budget runs out, then fail it permanently.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		// Duplicate delivery after a restart replay; nothing to do.
		return nil
	}
	if err := w.repo.Update(ctx, job.ID, statusUpdate(models.ReportStatusProcessing, 10)); err != nil {
		return err
	}
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		w.recordFailure(ctx, job, err)
		return err
	}
	finished := terminalUpdate(models.ReportStatusFinished, "")
	finished.ResultURL = &result.URL
	clear := ""
	finished.ErrorMessage = &clear
	if err := w.repo.Update(ctx, job.ID, finished); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}

func (w *ReportWorker) recordFailure(ctx context.Context, job jobs.Job, cause error) {
	msg := cause.Error()
	if job.Attempt >= w.maxRetries {
		if err := w.repo.Update(ctx, job.ID, terminalUpdate(models.ReportStatusFailed, msg)); err != nil {
			w.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return
	}
	requeue := statusUpdate(models.ReportStatusQueued, 0)
	requeue.ErrorMessage = &msg
	if err := w.repo.Update(ctx, job.ID, requeue); err != nil {
		w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(err))
	}
}
