package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/upasthit/attendance-api/internal/dto"
	"github.com/upasthit/attendance-api/internal/middleware"
	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/internal/service"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
	"github.com/upasthit/attendance-api/pkg/response"
)

type sessionQueryService interface {
	Get(ctx context.Context, requester service.Requester, sessionID string) (*models.Session, error)
	List(ctx context.Context, req service.SessionListRequest) ([]models.Session, *models.Pagination, error)
	Today(ctx context.Context, requester service.Requester) ([]dto.TodaySession, bool, error)
	Roster(ctx context.Context, requester service.Requester, sessionID string, date *time.Time) (*dto.RosterResponse, error)
}

// SessionHandler serves the session read surface.
type SessionHandler struct {
	service sessionQueryService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionQueryService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List sessions
// @Description Members see sessions they are assigned to; managers see the whole organization
// @Tags Sessions
// @Produce json
// @Param type query string false "Session type (PHYSICAL, REMOTE, HYBRID)"
// @Param active query bool false "Active filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := service.SessionListRequest{
		Requester: requester,
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 50),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("type"); raw != "" {
		sessionType := models.SessionType(strings.ToUpper(raw))
		req.SessionType = &sessionType
	}
	if raw := c.Query("active"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			req.Active = &val
		}
	}

	rows, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get session detail
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.Get(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Today godoc
// @Summary Sessions occurring today for the caller
// @Description Resolved against the organization's local day, with scan-open instants
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/today [get]
func (h *SessionHandler) Today(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sessions, cacheHit, err := h.service.Today(c.Request.Context(), requester)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, sessions, nil, middleware.ExtractMeta(c))
}

// Roster godoc
// @Summary Per-occurrence attendance roster
// @Description Assignment roster with attendance counters; managers only
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param date query string false "Occurrence date (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/attendance [get]
func (h *SessionHandler) Roster(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	date, err := parseDateParam(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	roster, err := h.service.Roster(c.Request.Context(), requester, c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
