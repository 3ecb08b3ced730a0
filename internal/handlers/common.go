package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"github.com/parkspot-ke/parkspot-backend/pkg/apperrors"
)

// respondError maps a service error to its HTTP status code.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.Status(err), gin.H{"error": err.Error()})
}

// requester pulls the authenticated participant out of the gin context.
func requester(c *gin.Context) (uint, models.ParticipantKind) {
	return c.GetUint("userId"), models.ParticipantKind(c.GetString("userKind"))
}
