package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Renter lists one or more parking locations for booking.
type Renter struct {
	gorm.Model
	Name                   string     `gorm:"column:name;not null" json:"name"`
	Username               string     `gorm:"column:username;unique;not null" json:"username"`
	Email                  string     `gorm:"column:email;unique;not null" json:"email"`
	Password               string     `gorm:"-" json:"-"`
	PasswordHash           string     `gorm:"column:password_hash;not null" json:"-"`
	ProfilePic             string     `gorm:"column:profile_pic" json:"profilePic"`
	Bio                    string     `gorm:"column:bio" json:"bio"`
	NotificationPreference string     `gorm:"column:notification_preference" json:"notificationPreference"`
	PaymentPreference      string     `gorm:"column:payment_preference" json:"paymentPreference"`
	RentingPlace           string     `gorm:"column:renting_place" json:"rentingPlace"`
	PlaceType              string     `gorm:"column:place_type" json:"placeType"` // residential, commercial
	Timing                 string     `gorm:"column:timing" json:"timing"`        // e.g. 9am-5pm
	Price                  float64    `gorm:"column:price" json:"price"`
	Amenities              string     `gorm:"column:amenities" json:"amenities"`
	Ratings                float64    `gorm:"column:ratings;default:0" json:"ratings"`
	FCMToken               string     `gorm:"column:fcm_token" json:"-"`
	Locations              []Location `gorm:"foreignKey:RenterID" json:"locations,omitempty"`
}

func (Renter) TableName() string {
	return "renters"
}

func (r *Renter) HashPassword() error {
	if r.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	r.PasswordHash = string(hashedPassword)
	return nil
}

func (r *Renter) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password))
}
