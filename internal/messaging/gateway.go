package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"github.com/parkspot-ke/parkspot-backend/internal/services"
	"github.com/parkspot-ke/parkspot-backend/pkg/apperrors"
	"gorm.io/gorm"
)

// Gateway validates participant eligibility and persists chat messages
// scoped to an approved booking. Delivery fan-out goes to the websocket
// room for the booking and to the redis channel keyed by booking id.
type Gateway struct {
	db  *gorm.DB
	hub *services.Hub
}

// NewGateway creates a messaging gateway. hub may be nil (tests).
func NewGateway(db *gorm.DB, hub *services.Hub) *Gateway {
	return &Gateway{db: db, hub: hub}
}

// SendInput identifies both parties with tagged references.
type SendInput struct {
	SenderID     uint
	SenderKind   models.ParticipantKind
	ReceiverID   uint
	ReceiverKind models.ParticipantKind
	BookingID    uint
	Content      string
}

// Send persists a message after checking that the sender is a booking party,
// the receiver is exactly the counterpart, and the booking chat is open.
func (g *Gateway) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: message content is required", apperrors.ErrValidation)
	}
	if !in.SenderKind.Valid() || !in.ReceiverKind.Valid() {
		return nil, fmt.Errorf("%w: unknown participant kind", apperrors.ErrValidation)
	}

	var booking models.Booking
	if err := g.db.WithContext(ctx).First(&booking, in.BookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, in.BookingID)
		}
		return nil, err
	}

	if !booking.IsParty(in.SenderKind, in.SenderID) {
		return nil, fmt.Errorf("%w: sender is not a participant of booking %d", apperrors.ErrUnauthorized, in.BookingID)
	}
	counterKind, counterID := booking.Counterpart(in.SenderKind)
	if in.ReceiverKind != counterKind || in.ReceiverID != counterID {
		return nil, fmt.Errorf("%w: receiver must be the other participant of booking %d", apperrors.ErrUnauthorized, in.BookingID)
	}
	if !booking.CanMessage() {
		return nil, fmt.Errorf("%w: messaging opens once the booking is approved", apperrors.ErrUnauthorized)
	}

	message := models.Message{
		BookingID:    booking.ID,
		SenderID:     in.SenderID,
		SenderKind:   in.SenderKind,
		ReceiverID:   in.ReceiverID,
		ReceiverKind: in.ReceiverKind,
		Content:      in.Content,
	}
	if err := g.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}

	g.publish(ctx, &message)
	return &message, nil
}

// Reply sends a message back to the sender of an earlier message. Only the
// receiver of the original may reply; booking and counterpart are derived
// from the original, then Send's checks apply.
func (g *Gateway) Reply(ctx context.Context, senderID uint, senderKind models.ParticipantKind, messageID uint, content string) (*models.Message, error) {
	var original models.Message
	if err := g.db.WithContext(ctx).First(&original, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %d", apperrors.ErrNotFound, messageID)
		}
		return nil, err
	}

	if original.ReceiverID != senderID || original.ReceiverKind != senderKind {
		return nil, fmt.Errorf("%w: only the receiver of message %d may reply to it", apperrors.ErrUnauthorized, messageID)
	}

	return g.Send(ctx, SendInput{
		SenderID:     senderID,
		SenderKind:   senderKind,
		ReceiverID:   original.SenderID,
		ReceiverKind: original.SenderKind,
		BookingID:    original.BookingID,
		Content:      content,
	})
}

// List returns a booking's messages in timestamp order. The requester must
// be a participant.
func (g *Gateway) List(ctx context.Context, bookingID uint, requesterID uint, requesterKind models.ParticipantKind) ([]models.Message, error) {
	var booking models.Booking
	if err := g.db.WithContext(ctx).First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
		}
		return nil, err
	}

	if !booking.IsParty(requesterKind, requesterID) {
		return nil, fmt.Errorf("%w: not a participant of booking %d", apperrors.ErrUnauthorized, bookingID)
	}

	var messages []models.Message
	err := g.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// MarkRead flips a message's read flag. Only the receiver may mark it.
func (g *Gateway) MarkRead(ctx context.Context, messageID uint, readerID uint, readerKind models.ParticipantKind) error {
	var message models.Message
	if err := g.db.WithContext(ctx).First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: message %d", apperrors.ErrNotFound, messageID)
		}
		return err
	}

	if message.ReceiverID != readerID || message.ReceiverKind != readerKind {
		return fmt.Errorf("%w: only the receiver may mark message %d read", apperrors.ErrUnauthorized, messageID)
	}
	if message.ReadStatus {
		return nil
	}
	return g.db.WithContext(ctx).Model(&message).Update("read_status", true).Error
}

func (g *Gateway) publish(ctx context.Context, message *models.Message) {
	event := services.NewChatMessage{
		MessageID:    message.ID,
		BookingID:    message.BookingID,
		SenderID:     message.SenderID,
		SenderKind:   string(message.SenderKind),
		ReceiverID:   message.ReceiverID,
		ReceiverKind: string(message.ReceiverKind),
		Content:      message.Content,
		Timestamp:    message.CreatedAt.Format(time.RFC3339),
	}

	if g.hub != nil {
		g.hub.SendToBooking(message.BookingID, "receive_message", event)
	}

	if err := services.PublishChatMessage(ctx, message.BookingID, event); err != nil {
		log.Printf("Failed to publish chat message %d: %v", message.ID, err)
	}

	g.pushToReceiver(ctx, message)
}

// messagePreview shortens content for push notification bodies. Truncation
// is on runes so a multi-byte character is never split.
func messagePreview(content string) string {
	runes := []rune(content)
	if len(runes) > 80 {
		return string(runes[:80])
	}
	return content
}

func (g *Gateway) pushToReceiver(ctx context.Context, message *models.Message) {
	preview := messagePreview(message.Content)

	var token string
	var senderName string
	if message.ReceiverKind == models.KindOwner {
		var owner models.Owner
		if err := g.db.First(&owner, message.ReceiverID).Error; err != nil {
			return
		}
		token = owner.FCMToken
	} else {
		var renter models.Renter
		if err := g.db.First(&renter, message.ReceiverID).Error; err != nil {
			return
		}
		token = renter.FCMToken
	}
	if message.SenderKind == models.KindOwner {
		var owner models.Owner
		if err := g.db.First(&owner, message.SenderID).Error; err == nil {
			senderName = owner.Name
		}
	} else {
		var renter models.Renter
		if err := g.db.First(&renter, message.SenderID).Error; err == nil {
			senderName = renter.Name
		}
	}

	if token == "" {
		return
	}
	if err := services.SendNewMessageNotification(ctx, token, message.BookingID, senderName, preview); err != nil {
		log.Printf("Failed to send chat push for message %d: %v", message.ID, err)
	}
}
