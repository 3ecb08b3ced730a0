package models

import (
	"gorm.io/gorm"
)

// Message is a chat message scoped to a booking. Sender and receiver are
// tagged references (kind + id) so owner and renter ids never need to be
// disambiguated by table scans.
type Message struct {
	gorm.Model
	BookingID    uint            `gorm:"column:booking_id;not null;index" json:"bookingId"`
	Booking      Booking         `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID     uint            `gorm:"column:sender_id;not null" json:"senderId"`
	SenderKind   ParticipantKind `gorm:"column:sender_kind;not null" json:"senderKind"`
	ReceiverID   uint            `gorm:"column:receiver_id;not null" json:"receiverId"`
	ReceiverKind ParticipantKind `gorm:"column:receiver_kind;not null" json:"receiverKind"`
	Content      string          `gorm:"column:message_content;not null" json:"content"`
	ReadStatus   bool            `gorm:"column:read_status;default:false" json:"readStatus"`
}

func (Message) TableName() string {
	return "messages"
}
