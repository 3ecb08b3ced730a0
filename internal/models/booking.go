package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "Pending"
	BookingStatusApproved BookingStatus = "Approved"
	BookingStatusRejected BookingStatus = "Rejected"
)

// ValidBookingStatus reports whether s is one of the three legal labels.
func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusRejected:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusDue  PaymentStatus = "Due"
	PaymentStatusPaid PaymentStatus = "Paid"
)

// Booking links an owner, a renter and (while it exists) a location through
// the Pending -> Approved/Rejected lifecycle. LocationID is nullable so a
// booking survives deletion of its location.
type Booking struct {
	gorm.Model
	OwnerID       uint          `gorm:"column:car_owner_id;not null;index" json:"ownerId"`
	Owner         Owner         `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	RenterID      uint          `gorm:"column:renter_id;not null;index" json:"renterId"`
	Renter        Renter        `gorm:"foreignKey:RenterID" json:"renter,omitempty"`
	LocationID    *uint         `gorm:"column:location_id;index" json:"locationId"`
	Location      *Location     `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Message       string        `gorm:"column:message;not null" json:"message"`
	PreferredDate time.Time     `gorm:"column:preferred_date;not null" json:"preferredDate"`
	Contact       string        `gorm:"column:contact;not null" json:"contact"`
	Status        BookingStatus `gorm:"column:status;not null;default:'Pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"column:payment_status;not null;default:'Due'" json:"paymentStatus"`
	Deleted       bool          `gorm:"column:deleted;not null;default:false" json:"deleted"`
	Rating        *int          `gorm:"column:rating" json:"rating"`
}

func (Booking) TableName() string {
	return "bookings"
}

// CanMessage reports whether the chat for this booking is open.
func (b *Booking) CanMessage() bool {
	return b.Status == BookingStatusApproved
}

// IsParty reports whether (kind, id) is one of the booking's two participants.
func (b *Booking) IsParty(kind ParticipantKind, id uint) bool {
	switch kind {
	case KindOwner:
		return b.OwnerID == id
	case KindRenter:
		return b.RenterID == id
	}
	return false
}

// Counterpart returns the participant opposite the given kind.
func (b *Booking) Counterpart(kind ParticipantKind) (ParticipantKind, uint) {
	if kind == KindOwner {
		return KindRenter, b.RenterID
	}
	return KindOwner, b.OwnerID
}
