package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/models"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

type attendanceHistoryRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	Summary(ctx context.Context, userID string, from, to *time.Time) (*models.AttendanceSummary, error)
}

// AttendanceService serves the read side of attendance: history listings and
// per-user summaries. Writes happen exclusively through the admission
// pipeline.
type AttendanceService struct {
	repo      attendanceHistoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance query service.
func NewAttendanceService(repo attendanceHistoryRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// Requester identifies the authenticated caller for scoping decisions.
type Requester struct {
	ID    string `validate:"required"`
	OrgID string `validate:"required"`
	Role  models.UserRole
}

// CanViewOthers reports whether the requester may read records that are not
// their own.
func (r Requester) CanViewOthers() bool {
	return r.Role == models.RoleAdmin || r.Role == models.RoleManager
}

// AttendanceListRequest describes filters for history listing. Dates are
// inclusive occurrence-date bounds.
type AttendanceListRequest struct {
	Requester Requester `validate:"required"`
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

// AttendanceSummaryRequest describes a summary query.
type AttendanceSummaryRequest struct {
	Requester Requester `validate:"required"`
	UserID    string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// History returns paginated attendance records scoped to the requester's
// organization. Members only ever see their own records.
func (s *AttendanceService) History(ctx context.Context, req AttendanceListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	userID, err := s.scopeUser(req.Requester, req.UserID)
	if err != nil {
		return nil, nil, err
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.AttendanceFilter{
		OrgID:     req.Requester.OrgID,
		UserID:    userID,
		SessionID: req.SessionID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		IsLate:    req.IsLate,
		Page:      page,
		PageSize:  size,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Summary aggregates a user's accepted check-ins over an optional date range.
func (s *AttendanceService) Summary(ctx context.Context, req AttendanceSummaryRequest) (*models.AttendanceSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	userID, err := s.scopeUser(req.Requester, req.UserID)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = req.Requester.ID
	}
	summary, err := s.repo.Summary(ctx, userID, req.DateFrom, req.DateTo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	if summary.Total > 0 {
		summary.LatePercent = float64(summary.Late) / float64(summary.Total) * 100
	}
	return summary, nil
}

// scopeUser applies the self-only rule for members. An empty result means no
// user filter, which History interprets as org-wide.
func (s *AttendanceService) scopeUser(requester Requester, requested string) (string, error) {
	if requester.CanViewOthers() {
		return requested, nil
	}
	if requested != "" && requested != requester.ID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "members can only view their own attendance")
	}
	return requester.ID, nil
}
