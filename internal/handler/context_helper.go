package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/didar-dev/didar-api/internal/middleware"
	"github.com/didar-dev/didar-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}
