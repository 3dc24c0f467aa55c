package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/pkg/config"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

type fakeSessionQuery struct {
	session    *models.Session
	sessionErr error
	assigned   []models.Session
	listRows   []models.Session
	listTotal  int
	lastFilter models.SessionFilter
	roster     []models.SessionRosterRow
	rosterDate time.Time
}

func (f *fakeSessionQuery) FindByID(context.Context, string) (*models.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeSessionQuery) ListAssignedActive(context.Context, string, string) ([]models.Session, error) {
	return f.assigned, nil
}

func (f *fakeSessionQuery) List(_ context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	f.lastFilter = filter
	return f.listRows, f.listTotal, nil
}

func (f *fakeSessionQuery) Roster(_ context.Context, _ string, occurrenceDate time.Time) ([]models.SessionRosterRow, error) {
	f.rosterDate = occurrenceDate
	return f.roster, nil
}

func newSessionService(repo *fakeSessionQuery, offsetMinutes int) *SessionService {
	settings := NewSettingsService(&settingsRepoStub{settings: &models.OrgSettings{
		LateLimitMinutes: 30,
		UTCOffsetMinutes: offsetMinutes,
	}}, nil, testAttendanceConfig(), zap.NewNop())
	svc := NewSessionService(repo, settings, nil, config.AttendanceConfig{ScanWindow: 2 * time.Hour}, zap.NewNop())
	svc.now = fixedNow(time.Date(2026, 8, 26, 4, 0, 0, 0, time.UTC))
	return svc
}

func TestSessionGetScopesOrganization(t *testing.T) {
	repo := &fakeSessionQuery{session: admissionSession()}
	svc := newSessionService(repo, 330)

	got, err := svc.Get(context.Background(), manager(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)

	repo.session.OrgID = "org-2"
	_, err = svc.Get(context.Background(), manager(), "sess-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionNotFound))

	repo.sessionErr = sql.ErrNoRows
	_, err = svc.Get(context.Background(), manager(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionNotFound))
}

func TestSessionListMemberScoped(t *testing.T) {
	repo := &fakeSessionQuery{}
	svc := newSessionService(repo, 330)

	_, _, err := svc.List(context.Background(), SessionListRequest{Requester: member()})
	require.NoError(t, err)
	assert.Equal(t, "user-1", repo.lastFilter.UserID)

	_, _, err = svc.List(context.Background(), SessionListRequest{Requester: manager()})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.UserID)
}

func TestSessionToday(t *testing.T) {
	daily := admissionSession()
	weekly := admissionSession()
	weekly.ID = "sess-2"
	weekly.Frequency = models.FrequencyWeekly
	// 2026-08-26 is a Wednesday.
	weekly.WeeklyDays = []string{"MONDAY"}

	repo := &fakeSessionQuery{assigned: []models.Session{*daily, *weekly}}
	svc := newSessionService(repo, 330)

	today, cacheHit, err := svc.Today(context.Background(), member())
	require.NoError(t, err)
	assert.False(t, cacheHit, "no cache configured")

	require.Len(t, today, 1, "sessions not occurring today are filtered out")
	assert.Equal(t, "sess-1", today[0].Session.ID)
	assert.Equal(t, time.Date(2026, 8, 26, 4, 30, 0, 0, time.UTC), today[0].Start.UTC())
	assert.Equal(t, time.Date(2026, 8, 26, 5, 30, 0, 0, time.UTC), today[0].End.UTC())
	assert.Equal(t, time.Date(2026, 8, 26, 2, 30, 0, 0, time.UTC), today[0].ScanOpensAt.UTC())
}

func TestSessionTodayCached(t *testing.T) {
	repo := &fakeSessionQuery{assigned: []models.Session{*admissionSession()}}
	settings := NewSettingsService(&settingsRepoStub{settings: &models.OrgSettings{
		LateLimitMinutes: 30,
		UTCOffsetMinutes: 330,
	}}, nil, testAttendanceConfig(), zap.NewNop())
	cache := NewCacheService(&settingsCacheStub{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewSessionService(repo, settings, cache, config.AttendanceConfig{ScanWindow: 2 * time.Hour}, zap.NewNop())
	svc.now = fixedNow(time.Date(2026, 8, 26, 4, 0, 0, 0, time.UTC))

	first, cacheHit, err := svc.Today(context.Background(), member())
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, first, 1)

	repo.assigned = nil
	second, cacheHit, err := svc.Today(context.Background(), member())
	require.NoError(t, err)
	assert.True(t, cacheHit, "second call served from cache")
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Start.UTC(), second[0].Start.UTC())
}

func TestSessionRoster(t *testing.T) {
	checkIn := time.Date(2026, 8, 26, 4, 35, 0, 0, time.UTC)
	repo := &fakeSessionQuery{
		session: admissionSession(),
		roster: []models.SessionRosterRow{
			{UserID: "user-1", AttendanceStatus: models.RosterStatusPending},
			{UserID: "user-2", AttendanceStatus: models.RosterStatusPresent, CheckInTime: &checkIn},
			{UserID: "user-3", AttendanceStatus: models.RosterStatusPresent, IsLate: true, CheckInTime: &checkIn},
		},
	}
	svc := newSessionService(repo, 330)

	report, err := svc.Roster(context.Background(), manager(), "sess-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-26", report.Date)
	assert.Equal(t, 3, report.Assigned)
	assert.Equal(t, 2, report.Present)
	assert.Equal(t, 1, report.Late)
	assert.Equal(t, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), repo.rosterDate)
}

func TestSessionRosterMemberForbidden(t *testing.T) {
	svc := newSessionService(&fakeSessionQuery{session: admissionSession()}, 330)

	_, err := svc.Roster(context.Background(), member(), "sess-1", nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSessionRosterExplicitDate(t *testing.T) {
	repo := &fakeSessionQuery{session: admissionSession()}
	svc := newSessionService(repo, 330)

	asked := time.Date(2026, 8, 20, 15, 4, 5, 0, time.UTC)
	report, err := svc.Roster(context.Background(), manager(), "sess-1", &asked)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-20", report.Date)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), repo.rosterDate)
}
