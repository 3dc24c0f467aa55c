package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/internal/service"
)

type attendanceQueryMock struct {
	records    []models.AttendanceRecord
	pagination *models.Pagination
	summary    *models.AttendanceSummary
	err        error

	lastList    service.AttendanceListRequest
	lastSummary service.AttendanceSummaryRequest
}

func (m *attendanceQueryMock) History(ctx context.Context, req service.AttendanceListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	m.lastList = req
	return m.records, m.pagination, m.err
}

func (m *attendanceQueryMock) Summary(ctx context.Context, req service.AttendanceSummaryRequest) (*models.AttendanceSummary, error) {
	m.lastSummary = req
	return m.summary, m.err
}

func TestAttendanceHandlerHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &attendanceQueryMock{
		records: []models.AttendanceRecord{
			{ID: "att-1", UserID: "user-1", SessionID: "sess-1", IsLate: true},
		},
		pagination: &models.Pagination{Page: 2, PageSize: 10, TotalCount: 11},
	}
	handler := NewAttendanceHandler(mock)

	c, w := newGinContext(http.MethodGet, "/attendance/history?sessionId=sess-1&from=2026-08-01&to=2026-08-26&isLate=true&page=2&page_size=10", nil)
	setClaims(c, "user-1", "org-1", models.RoleMember)

	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-1", mock.lastList.SessionID)
	assert.Equal(t, 2, mock.lastList.Page)
	assert.Equal(t, 10, mock.lastList.PageSize)
	require.NotNil(t, mock.lastList.DateFrom)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *mock.lastList.DateFrom)
	require.NotNil(t, mock.lastList.IsLate)
	assert.True(t, *mock.lastList.IsLate)
	assert.Equal(t, "user-1", mock.lastList.Requester.ID)
	assert.Contains(t, w.Body.String(), "att-1")
	assert.Contains(t, w.Body.String(), "total_count")
}

func TestAttendanceHandlerHistoryDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &attendanceQueryMock{pagination: &models.Pagination{Page: 1, PageSize: 50}}
	handler := NewAttendanceHandler(mock)

	c, w := newGinContext(http.MethodGet, "/attendance/history", nil)
	setClaims(c, "user-1", "org-1", models.RoleMember)

	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mock.lastList.Page)
	assert.Equal(t, 50, mock.lastList.PageSize)
	assert.Nil(t, mock.lastList.DateFrom)
	assert.Nil(t, mock.lastList.IsLate)
}

func TestAttendanceHandlerHistoryBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceQueryMock{})

	c, w := newGinContext(http.MethodGet, "/attendance/history?from=26-08-2026", nil)
	setClaims(c, "user-1", "org-1", models.RoleMember)

	handler.History(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "YYYY-MM-DD")
}

func TestAttendanceHandlerHistoryRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceQueryMock{})

	c, w := newGinContext(http.MethodGet, "/attendance/history", nil)

	handler.History(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAttendanceHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &attendanceQueryMock{
		summary: &models.AttendanceSummary{Total: 20, OnTime: 15, Late: 5, LatePercent: 25},
	}
	handler := NewAttendanceHandler(mock)

	c, w := newGinContext(http.MethodGet, "/attendance/summary?userId=user-2&from=2026-08-01", nil)
	setClaims(c, "mgr-1", "org-1", models.RoleManager)

	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-2", mock.lastSummary.UserID)
	assert.Equal(t, "mgr-1", mock.lastSummary.Requester.ID)
	assert.Contains(t, w.Body.String(), "late_percent")
}
