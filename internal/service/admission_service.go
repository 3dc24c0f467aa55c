package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/dto"
	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/pkg/config"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

type admissionSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindAssignment(ctx context.Context, sessionID, userID string) (*models.SessionAssignment, error)
	UpdateRosterStatus(ctx context.Context, sessionID, userID string, status models.RosterStatus, isLate bool) error
}

type admissionAttendanceRepository interface {
	Insert(ctx context.Context, rec *models.AttendanceRecord) (bool, error)
	ExistsAny(ctx context.Context, userID, sessionID string) (bool, error)
	ExistsInWindow(ctx context.Context, userID, sessionID string, from, to time.Time) (bool, error)
}

type admissionUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	BindDevice(ctx context.Context, userID, deviceID, userAgent string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AdmissionService runs the check-in pipeline. Stages execute in a fixed
// order so cheap, local checks always disqualify an attempt before the
// external verification call: field validation, schedule, duplicate,
// admission window, lateness, location, device, commit. Each stage owns a
// distinct set of rejection codes; there is no retry state and no partial
// commit.
type AdmissionService struct {
	sessions   admissionSessionRepository
	attendance admissionAttendanceRepository
	users      admissionUserRepository
	settings   *SettingsService
	gate       *LocationGate
	guard      DeviceGuard
	resolver   ScheduleResolver
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        config.AttendanceConfig
	now        func() time.Time
}

// AdmissionServiceParams groups constructor dependencies.
type AdmissionServiceParams struct {
	Sessions   admissionSessionRepository
	Attendance admissionAttendanceRepository
	Users      admissionUserRepository
	Settings   *SettingsService
	Gate       *LocationGate
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Config     config.AttendanceConfig
}

// NewAdmissionService constructs the admission pipeline with sane defaults.
func NewAdmissionService(params AdmissionServiceParams) *AdmissionService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.ScanWindow <= 0 {
		cfg.ScanWindow = 2 * time.Hour
	}
	return &AdmissionService{
		sessions:   params.Sessions,
		attendance: params.Attendance,
		users:      params.Users,
		settings:   params.Settings,
		gate:       params.Gate,
		metrics:    params.Metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// CheckIn processes one attempt end to end. It either creates exactly one
// attendance record or rejects with a typed reason; both outcomes are
// counted and audited.
func (s *AdmissionService) CheckIn(ctx context.Context, userID string, req dto.CheckInRequest) (*dto.CheckInResult, error) {
	result, err := s.admit(ctx, userID, &req)
	if err != nil {
		reason := appErrors.FromError(err)
		s.logger.Info("check-in rejected",
			zap.String("user_id", userID),
			zap.String("session_id", req.SessionID),
			zap.String("reason", reason.Code))
		s.recordOutcome(ctx, userID, req.SessionID, models.AuditActionCheckInRejected, reason.Code)
		return nil, err
	}
	s.recordOutcome(ctx, userID, req.SessionID, models.AuditActionCheckInCreated, "created")
	return result, nil
}

func (s *AdmissionService) admit(ctx context.Context, userID string, req *dto.CheckInRequest) (*dto.CheckInResult, error) {
	// Received -> field validation.
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, appErrors.ErrInvalidPayload.Status, appErrors.ErrInvalidPayload.Message)
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, appErrors.ErrMissingDeviceID
	}
	if strings.TrimSpace(req.UserAgent) == "" {
		return nil, appErrors.ErrMissingUserAgent
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	// Schedule confirmation. Sessions outside the caller's organization are
	// indistinguishable from missing ones.
	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.OrgID != user.OrgID || !session.Active {
		return nil, appErrors.ErrSessionNotFound
	}

	assignment, err := s.sessions.FindAssignment(ctx, session.ID, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotAssigned
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	settings := s.settings.ForOrg(ctx, user.OrgID)
	clock := NewLocalClock(settings.UTCOffsetMinutes, s.now)

	occurrence, err := s.resolver.Occurrence(session, clock.Today(), clock)
	if err != nil {
		return nil, err
	}

	// Duplicate suppression. The lookup is the friendly fast path; the
	// unique index behind Insert is the real at-most-once guarantee.
	exists, err := s.duplicateExists(ctx, user.ID, session, occurrence, clock)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "duplicate check failed")
	}
	if exists {
		return nil, appErrors.ErrAlreadyCheckedIn
	}

	// Admission window. The boundary instant itself is open.
	now := clock.Now()
	opensAt := occurrence.Start.Add(-s.cfg.ScanWindow)
	if now.Before(opensAt) {
		minutes, _ := SplitMinutes(opensAt.Sub(now))
		return nil, appErrors.ErrTooEarly.WithDetails(map[string]interface{}{
			"hoursRemaining":   minutes / 60,
			"minutesRemaining": minutes % 60,
			"scanOpensAt":      opensAt.Format("15:04"),
			"sessionStartsAt":  occurrence.Start.Format("15:04"),
		})
	}

	// Lateness classification. Arriving exactly at start is on time; strict
	// mode turns lateness beyond the limit into a rejection.
	isLate := false
	var lateBy *int
	if late := now.Sub(occurrence.Start); late > 0 {
		minutes, seconds := SplitMinutes(late)
		if settings.StrictLateMode && late > time.Duration(settings.LateLimitMinutes)*time.Minute {
			return nil, appErrors.ErrTooLate.WithDetails(map[string]interface{}{
				"lateByMinutes":    minutes,
				"lateBySeconds":    seconds,
				"lateLimitMinutes": settings.LateLimitMinutes,
			})
		}
		isLate = true
		lateBy = &minutes
	}

	// Location gate: hard pass/fail, no fallback.
	snapshot, err := s.gate.Clear(ctx, session, assignment, req)
	if err != nil {
		return nil, err
	}

	// Device binding guard.
	bind, err := s.guard.Check(user, req.DeviceID, req.UserAgent)
	if err != nil {
		return nil, err
	}

	// Commit. Binding happens first so the stored identity always reflects
	// the attempt that produced the first record; racing losers rewrite the
	// same values.
	if bind {
		if err := s.users.BindDevice(ctx, user.ID, req.DeviceID, req.UserAgent); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bind device")
		}
	}

	record := &models.AttendanceRecord{
		ID:               uuid.NewString(),
		OrgID:            user.OrgID,
		UserID:           user.ID,
		SessionID:        session.ID,
		OccurrenceDate:   occurrence.Date,
		CheckInTime:      now.UTC(),
		ClientTimestamp:  req.ClientTimestamp,
		IsLate:           isLate,
		LateByMinutes:    lateBy,
		LocationVerified: true,
		DeviceID:         req.DeviceID,
		UserAgent:        req.UserAgent,
		Verification:     snapshot,
	}
	if req.Location != nil && req.Location.Latitude != nil && req.Location.Longitude != nil {
		record.Latitude = req.Location.Latitude
		record.Longitude = req.Location.Longitude
		record.AccuracyMeters = req.AccuracyRadiusMeters
	}

	created, err := s.attendance.Insert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	if !created {
		// A concurrent attempt won the unique index race.
		return nil, appErrors.ErrAlreadyCheckedIn
	}

	// The roster flag is a best-effort projection; the record is the source
	// of truth.
	if err := s.sessions.UpdateRosterStatus(ctx, session.ID, user.ID, models.RosterStatusPresent, isLate); err != nil {
		s.logger.Warn("roster update failed after commit",
			zap.String("session_id", session.ID),
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	return &dto.CheckInResult{
		Status:         "created",
		SessionID:      session.ID,
		OccurrenceDate: occurrence.Date.Format("2006-01-02"),
		CheckInTime:    record.CheckInTime,
		IsLate:         isLate,
		LateByMinutes:  lateBy,
	}, nil
}

// duplicateExists applies the recurrence-specific uniqueness shape: any
// record for one-time sessions, same local calendar day for recurring ones.
func (s *AdmissionService) duplicateExists(ctx context.Context, userID string, session *models.Session, occurrence *models.SessionOccurrence, clock *LocalClock) (bool, error) {
	if !session.Frequency.Recurring() {
		return s.attendance.ExistsAny(ctx, userID, session.ID)
	}
	from, to := clock.DayWindow(occurrence.Date)
	return s.attendance.ExistsInWindow(ctx, userID, session.ID, from, to)
}

func (s *AdmissionService) recordOutcome(ctx context.Context, userID, sessionID, action, reason string) {
	if s.metrics != nil {
		s.metrics.RecordCheckIn(reason)
	}
	detail, _ := json.Marshal(map[string]string{"session_id": sessionID, "reason": reason})
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &userID,
		Action:     action,
		Resource:   "attendance",
		ResourceID: &sessionID,
		Detail:     detail,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
