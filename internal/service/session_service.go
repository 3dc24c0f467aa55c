package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/dto"
	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/pkg/config"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

type sessionQueryRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListAssignedActive(ctx context.Context, orgID, userID string) ([]models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	Roster(ctx context.Context, sessionID string, occurrenceDate time.Time) ([]models.SessionRosterRow, error)
}

// SessionService serves session lookups: detail, listings, the caller's
// schedule for today, and the per-occurrence roster report.
type SessionService struct {
	repo     sessionQueryRepository
	settings *SettingsService
	cache    *CacheService
	resolver ScheduleResolver
	cfg      config.AttendanceConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService constructs the session query service. Cache is optional.
func NewSessionService(repo sessionQueryRepository, settings *SettingsService, cache *CacheService, cfg config.AttendanceConfig, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScanWindow <= 0 {
		cfg.ScanWindow = 2 * time.Hour
	}
	return &SessionService{repo: repo, settings: settings, cache: cache, cfg: cfg, logger: logger, now: time.Now}
}

// SessionListRequest scopes the session listing.
type SessionListRequest struct {
	Requester   Requester
	SessionType *models.SessionType
	Active      *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// Get returns one session. Sessions outside the requester's organization are
// reported as missing.
func (s *SessionService) Get(ctx context.Context, requester Requester, sessionID string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.OrgID != requester.OrgID {
		return nil, appErrors.ErrSessionNotFound
	}
	return session, nil
}

// List returns paginated sessions for the requester's organization. Members
// only see sessions they are assigned to.
func (s *SessionService) List(ctx context.Context, req SessionListRequest) ([]models.Session, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.SessionFilter{
		OrgID:       req.Requester.OrgID,
		SessionType: req.SessionType,
		Active:      req.Active,
		Page:        page,
		PageSize:    size,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	}
	if !req.Requester.CanViewOthers() {
		filter.UserID = req.Requester.ID
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Today returns the requester's assigned sessions that occur on the
// organization's current local day, with resolved instants. The boolean
// reports whether the result came from cache. A broken cache degrades to a
// fresh read.
func (s *SessionService) Today(ctx context.Context, requester Requester) ([]dto.TodaySession, bool, error) {
	settings := s.settings.ForOrg(ctx, requester.OrgID)
	clock := NewLocalClock(settings.UTCOffsetMinutes, s.now)
	today := clock.Today()

	cacheKey := fmt.Sprintf("sessions:today:%s:%s:%s", requester.OrgID, requester.ID, today.Format("2006-01-02"))
	var cached []dto.TodaySession
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	sessions, err := s.repo.ListAssignedActive(ctx, requester.OrgID, requester.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned sessions")
	}

	result := make([]dto.TodaySession, 0, len(sessions))
	for i := range sessions {
		occurrence, err := s.resolver.Occurrence(&sessions[i], today, clock)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrNotScheduledToday) {
				continue
			}
			return nil, false, err
		}
		result = append(result, dto.TodaySession{
			Session:     sessions[i],
			Start:       occurrence.Start,
			End:         occurrence.End,
			ScanOpensAt: occurrence.Start.Add(-s.cfg.ScanWindow),
		})
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, result, 0)
	}
	return result, false, nil
}

// Roster returns the assignment roster with attendance counters for one
// occurrence. Date defaults to the organization's current local day.
func (s *SessionService) Roster(ctx context.Context, requester Requester, sessionID string, date *time.Time) (*dto.RosterResponse, error) {
	if !requester.CanViewOthers() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "roster reports require a manager role")
	}
	session, err := s.Get(ctx, requester, sessionID)
	if err != nil {
		return nil, err
	}

	occurrenceDate := time.Time{}
	if date != nil {
		occurrenceDate = dateOnly(*date)
	} else {
		settings := s.settings.ForOrg(ctx, requester.OrgID)
		clock := NewLocalClock(settings.UTCOffsetMinutes, s.now)
		occurrenceDate = clock.Today()
	}

	rows, err := s.repo.Roster(ctx, session.ID, occurrenceDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	report := &dto.RosterResponse{
		SessionID: session.ID,
		Date:      occurrenceDate.Format("2006-01-02"),
		Assigned:  len(rows),
		Rows:      rows,
	}
	for _, row := range rows {
		if row.AttendanceStatus == models.RosterStatusPresent {
			report.Present++
			if row.IsLate {
				report.Late++
			}
		}
	}
	return report, nil
}
