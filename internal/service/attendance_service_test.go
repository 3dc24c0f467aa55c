package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upasthit/attendance-api/internal/models"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
)

type fakeAttendanceHistory struct {
	rows       []models.AttendanceRecord
	total      int
	listErr    error
	lastFilter models.AttendanceFilter
	summary    *models.AttendanceSummary
	summaryErr error
	summaryFor string
}

func (f *fakeAttendanceHistory) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.rows, f.total, nil
}

func (f *fakeAttendanceHistory) Summary(_ context.Context, userID string, _, _ *time.Time) (*models.AttendanceSummary, error) {
	f.summaryFor = userID
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

func member() Requester {
	return Requester{ID: "user-1", OrgID: "org-1", Role: models.RoleMember}
}

func manager() Requester {
	return Requester{ID: "mgr-1", OrgID: "org-1", Role: models.RoleManager}
}

func TestHistoryMemberSelfScoped(t *testing.T) {
	repo := &fakeAttendanceHistory{rows: []models.AttendanceRecord{{ID: "att-1"}}, total: 1}
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	rows, pagination, err := svc.History(context.Background(), AttendanceListRequest{Requester: member()})
	require.NoError(t, err)

	assert.Len(t, rows, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, "user-1", repo.lastFilter.UserID)
	assert.Equal(t, "org-1", repo.lastFilter.OrgID)
}

func TestHistoryMemberCannotQueryOthers(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceHistory{}, nil, zap.NewNop())

	_, _, err := svc.History(context.Background(), AttendanceListRequest{Requester: member(), UserID: "user-2"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestHistoryManagerOrgWide(t *testing.T) {
	repo := &fakeAttendanceHistory{}
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	_, _, err := svc.History(context.Background(), AttendanceListRequest{Requester: manager(), SessionID: "sess-1"})
	require.NoError(t, err)

	assert.Empty(t, repo.lastFilter.UserID, "managers default to the whole organization")
	assert.Equal(t, "sess-1", repo.lastFilter.SessionID)
}

func TestHistoryPaginationDefaults(t *testing.T) {
	repo := &fakeAttendanceHistory{}
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	_, pagination, err := svc.History(context.Background(), AttendanceListRequest{Requester: manager(), Page: -2, PageSize: 0})
	require.NoError(t, err)

	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 50, repo.lastFilter.PageSize)
}

func TestHistoryRepositoryFailure(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceHistory{listErr: errors.New("timeout")}, nil, zap.NewNop())

	_, _, err := svc.History(context.Background(), AttendanceListRequest{Requester: manager()})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestSummaryLatePercent(t *testing.T) {
	repo := &fakeAttendanceHistory{summary: &models.AttendanceSummary{Total: 8, OnTime: 6, Late: 2}}
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	summary, err := svc.Summary(context.Background(), AttendanceSummaryRequest{Requester: member()})
	require.NoError(t, err)

	assert.Equal(t, "user-1", repo.summaryFor)
	assert.InDelta(t, 25.0, summary.LatePercent, 0.001)
}

func TestSummaryEmptyHistory(t *testing.T) {
	repo := &fakeAttendanceHistory{summary: &models.AttendanceSummary{}}
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	summary, err := svc.Summary(context.Background(), AttendanceSummaryRequest{Requester: member()})
	require.NoError(t, err)
	assert.Zero(t, summary.LatePercent)
}

func TestSummaryManagerForOtherUser(t *testing.T) {
	repo := &fakeAttendanceHistory{summary: &models.AttendanceSummary{Total: 1}}
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	_, err := svc.Summary(context.Background(), AttendanceSummaryRequest{Requester: manager(), UserID: "user-7"})
	require.NoError(t, err)
	assert.Equal(t, "user-7", repo.summaryFor)
}
