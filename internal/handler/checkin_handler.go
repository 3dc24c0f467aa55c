package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/upasthit/attendance-api/internal/dto"
	appErrors "github.com/upasthit/attendance-api/pkg/errors"
	"github.com/upasthit/attendance-api/pkg/response"
)

type admissionService interface {
	CheckIn(ctx context.Context, userID string, req dto.CheckInRequest) (*dto.CheckInResult, error)
}

// CheckInHandler exposes the attendance admission endpoint.
type CheckInHandler struct {
	admission admissionService
}

// NewCheckInHandler constructs the handler.
func NewCheckInHandler(admission admissionService) *CheckInHandler {
	return &CheckInHandler{admission: admission}
}

// CheckIn godoc
// @Summary Record attendance for the current user
// @Description Runs the full admission pipeline: schedule, window, location and device checks
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = c.GetHeader("User-Agent")
	}

	result, err := h.admission.CheckIn(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
