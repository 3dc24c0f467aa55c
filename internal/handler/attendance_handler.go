package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/internal/service"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
	"github.com/upasthit/attendance-api/pkg/response"
)

type attendanceQueryService interface {
	History(ctx context.Context, req service.AttendanceListRequest) ([]models.AttendanceRecord, *models.Pagination, error)
	Summary(ctx context.Context, req service.AttendanceSummaryRequest) (*models.AttendanceSummary, error)
}

// AttendanceHandler serves attendance history and summary queries.
type AttendanceHandler struct {
	service attendanceQueryService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceQueryService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// History godoc
// @Summary List attendance records
// @Description Members see their own records; managers and admins may filter by user
// @Tags Attendance
// @Produce json
// @Param userId query string false "User filter (managers only)"
// @Param sessionId query string false "Session filter"
// @Param from query string false "Occurrence date lower bound (YYYY-MM-DD)"
// @Param to query string false "Occurrence date upper bound (YYYY-MM-DD)"
// @Param isLate query bool false "Late filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := service.AttendanceListRequest{
		Requester: requester,
		UserID:    c.Query("userId"),
		SessionID: c.Query("sessionId"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 50),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	req.DateFrom = from
	req.DateTo = to
	if raw := c.Query("isLate"); raw != "" {
		if val, parseErr := strconv.ParseBool(raw); parseErr == nil {
			req.IsLate = &val
		}
	}

	rows, pagination, err := h.service.History(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Summary godoc
// @Summary Per-user attendance summary
// @Description Total, on-time and late counts plus late percentage
// @Tags Attendance
// @Produce json
// @Param userId query string false "User (managers only, defaults to caller)"
// @Param from query string false "Occurrence date lower bound (YYYY-MM-DD)"
// @Param to query string false "Occurrence date upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := service.AttendanceSummaryRequest{
		Requester: requester,
		UserID:    c.Query("userId"),
	}
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	req.DateFrom = from
	req.DateTo = to

	summary, err := h.service.Summary(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return &parsed, nil
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
