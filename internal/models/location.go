package models

import (
	"strings"

	"gorm.io/gorm"
)

// Location is a bookable parking space belonging to exactly one renter.
// Available is false exactly while an approved, non-deleted booking
// references the location; the bookings service owns that invariant.
type Location struct {
	gorm.Model
	RenterID  uint    `gorm:"column:renter_id;not null;index" json:"renterId"`
	Renter    Renter  `json:"-"`
	PlaceName string  `gorm:"column:place_name;not null" json:"placeName"`
	Address   string  `gorm:"column:address;not null" json:"address"`
	Price     float64 `gorm:"column:price;not null" json:"price"`
	Amenities string  `gorm:"column:amenities" json:"amenities"`
	Available bool    `gorm:"column:available;default:true" json:"available"`
	Lat       float64 `gorm:"column:lat;not null" json:"lat"`
	Lng       float64 `gorm:"column:lng;not null" json:"lng"`
}

func (Location) TableName() string {
	return "locations"
}

// AmenityList splits the stored comma-delimited amenities string.
func (l *Location) AmenityList() []string {
	if l.Amenities == "" {
		return nil
	}
	parts := strings.Split(l.Amenities, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SetAmenities stores the amenity set as delimited text.
func (l *Location) SetAmenities(amenities []string) {
	l.Amenities = strings.Join(amenities, ", ")
}

// AvailabilityEvent is an audit row written whenever a location's
// availability actually changes. Actor records what caused the flip,
// e.g. "booking:12:approve" or "renter:3:toggle".
type AvailabilityEvent struct {
	gorm.Model
	LocationID uint   `gorm:"column:location_id;not null;index" json:"locationId"`
	Available  bool   `gorm:"column:available;not null" json:"available"`
	Actor      string `gorm:"column:actor;not null" json:"actor"`
}

func (AvailabilityEvent) TableName() string {
	return "availability_events"
}
