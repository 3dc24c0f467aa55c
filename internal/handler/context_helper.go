package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/upasthit/attendance-api/internal/middleware"
	"github.com/upasthit/attendance-api/internal/models"
	"github.com/upasthit/attendance-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func requesterFromContext(c *gin.Context) (service.Requester, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Requester{}, false
	}
	return service.Requester{ID: claims.UserID, OrgID: claims.OrgID, Role: claims.Role}, true
}
