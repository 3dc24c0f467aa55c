package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/upasthit/attendance-api/internal/middleware"
	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/internal/repository"
	"github.com/upasthit/attendance-api/internal/service"
)

// RouterParams bundles everything route registration needs.
type RouterParams struct {
	APIPrefix string

	Auth       *AuthHandler
	CheckIn    *CheckInHandler
	Attendance *AttendanceHandler
	Sessions   *SessionHandler
	Reports    *ReportHandler
	Metrics    *MetricsHandler

	AuthService    *service.AuthService
	MetricsService *service.MetricsService
	Users          *repository.UserRepository
}

// RegisterRoutes mounts every endpoint on the engine. Ops endpoints live at
// the root; the API surface is grouped under the configured prefix.
func RegisterRoutes(r *gin.Engine, p RouterParams) {
	r.GET("/health", p.Metrics.Health)
	r.GET("/ready", p.Metrics.Ready)
	r.GET("/metrics", p.Metrics.Prometheus)

	prefix := strings.TrimRight(p.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	api := r.Group(prefix)
	api.Use(middleware.Metrics(p.MetricsService))
	api.Use(middleware.WithResponseMeta())
	{
		api.POST("/auth/login", p.Auth.Login)
		api.POST("/auth/refresh", p.Auth.Refresh)

		if p.Reports != nil {
			// Download links authorize themselves through the signed token.
			api.GET("/reports/download",
				middleware.Audit(p.Users, models.AuditActionReportDownload, "report"),
				p.Reports.DownloadReport)
		}
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(p.AuthService))
	{
		authed.POST("/auth/logout", p.Auth.Logout)
		authed.POST("/auth/change-password", p.Auth.ChangePassword)
		authed.GET("/auth/me", p.Auth.Me)

		authed.POST("/attendance/check-in", p.CheckIn.CheckIn)
		authed.GET("/attendance/history", p.Attendance.History)
		authed.GET("/attendance/summary", p.Attendance.Summary)

		authed.GET("/sessions", p.Sessions.List)
		authed.GET("/sessions/today", p.Sessions.Today)
		authed.GET("/sessions/:id", p.Sessions.Get)
		authed.GET("/sessions/:id/attendance",
			middleware.RequireRoles(models.RoleAdmin, models.RoleManager),
			p.Sessions.Roster)

		if p.Reports != nil {
			authed.POST("/reports", p.Reports.GenerateReport)
			authed.GET("/reports/:id", p.Reports.ReportStatus)
		}

		ops := authed.Group("/ops")
		ops.Use(middleware.RequireRoles(models.RoleAdmin))
		ops.GET("/metrics", p.Metrics.Snapshot)
	}
}
