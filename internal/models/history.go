package models

import "time"

// HistoryEntry is one row of a participant's append-only booking history.
// Rows are only ever inserted, inside the transaction that approves the
// booking; read order is insertion order (id ascending).
type HistoryEntry struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	UserKind      ParticipantKind `gorm:"column:user_kind;not null;index:idx_history_user" json:"userKind"`
	UserID        uint            `gorm:"column:user_id;not null;index:idx_history_user" json:"userId"`
	BookingID     uint            `gorm:"column:booking_id;not null" json:"bookingId"`
	LocationName  string          `gorm:"column:location_name" json:"location"`
	PreferredDate string          `gorm:"column:preferred_date" json:"preferredDate"` // ISO date
	Status        string          `gorm:"column:status;not null" json:"status"`
}

func (HistoryEntry) TableName() string {
	return "history_entries"
}
