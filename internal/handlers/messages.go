package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/messaging"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
)

// SendMessage posts a chat message to a booking's conversation
func SendMessage(gw *messaging.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		var input struct {
			ReceiverID   uint   `json:"receiverId" binding:"required"`
			ReceiverKind string `json:"receiverKind" binding:"required,oneof=owner renter"`
			BookingID    uint   `json:"bookingId" binding:"required"`
			Content      string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		message, err := gw.Send(c.Request.Context(), messaging.SendInput{
			SenderID:     userID,
			SenderKind:   kind,
			ReceiverID:   input.ReceiverID,
			ReceiverKind: models.ParticipantKind(input.ReceiverKind),
			BookingID:    input.BookingID,
			Content:      input.Content,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, message)
	}
}

// ReplyMessage answers an earlier message; receiver and booking come from
// the original
func ReplyMessage(gw *messaging.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		messageID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid message ID"})
			return
		}

		var input struct {
			Content string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		message, err := gw.Reply(c.Request.Context(), userID, kind, uint(messageID), input.Content)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, message)
	}
}

// ViewMessages lists a booking's messages in timestamp order
func ViewMessages(gw *messaging.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		messages, err := gw.List(c.Request.Context(), bookingID, userID, kind)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, messages)
	}
}

// MarkMessageRead flips a message's read flag
func MarkMessageRead(gw *messaging.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		messageID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid message ID"})
			return
		}

		if err := gw.MarkRead(c.Request.Context(), uint(messageID), userID, kind); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"success": true})
	}
}
