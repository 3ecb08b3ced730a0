package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Owner is a car owner looking for a parking space.
type Owner struct {
	gorm.Model
	Name                   string  `gorm:"column:name;not null" json:"name"`
	Username               string  `gorm:"column:username;unique;not null" json:"username"`
	Email                  string  `gorm:"column:email;unique;not null" json:"email"`
	Password               string  `gorm:"-" json:"-"` // Temporary field for password handling
	PasswordHash           string  `gorm:"column:password_hash;not null" json:"-"`
	ProfilePic             string  `gorm:"column:profile_pic" json:"profilePic"`
	Bio                    string  `gorm:"column:bio" json:"bio"`
	NotificationPreference string  `gorm:"column:notification_preference" json:"notificationPreference"`
	PaymentPreference      string  `gorm:"column:payment_preference" json:"paymentPreference"`
	CarModel               string  `gorm:"column:car_model;not null" json:"carModel"`
	Ratings                float64 `gorm:"column:ratings;default:0" json:"ratings"`
	FCMToken               string  `gorm:"column:fcm_token" json:"-"`
}

// TableName specifies the table name
func (Owner) TableName() string {
	return "car_owners"
}

func (o *Owner) HashPassword() error {
	if o.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = string(hashedPassword)
	return nil
}

func (o *Owner) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password))
}
