package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/services"
)

// WebSocketHandler handles WebSocket connections
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		services.HandleWebSocket(hub, c.Writer, c.Request, userID, kind)
	}
}
