package database

import (
	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.Owner{},
		&models.Renter{},
		&models.Location{},
		&models.Booking{},
		&models.Message{},
		&models.HistoryEntry{},
		&models.AvailabilityEvent{},
	)
	if err != nil {
		return err
	}

	// Columns added after the initial schema
	userColumns := []string{
		"ADD COLUMN IF NOT EXISTS fcm_token text DEFAULT ''",
		"ADD COLUMN IF NOT EXISTS notification_preference text DEFAULT ''",
		"ADD COLUMN IF NOT EXISTS payment_preference text DEFAULT ''",
	}
	for _, table := range []string{"car_owners", "renters"} {
		for _, column := range userColumns {
			if err := db.Exec("ALTER TABLE " + table + " " + column).Error; err != nil {
				return err
			}
		}
	}

	// Enum labels are stored as text; keep them honest with check constraints.
	db.Exec(`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_status_check`)
	db.Exec(`ALTER TABLE bookings ADD CONSTRAINT bookings_status_check CHECK (status IN ('Pending', 'Approved', 'Rejected'))`)

	db.Exec(`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_payment_status_check`)
	db.Exec(`ALTER TABLE bookings ADD CONSTRAINT bookings_payment_status_check CHECK (payment_status IN ('Due', 'Paid'))`)

	db.Exec(`ALTER TABLE messages DROP CONSTRAINT IF EXISTS messages_sender_kind_check`)
	db.Exec(`ALTER TABLE messages ADD CONSTRAINT messages_sender_kind_check CHECK (sender_kind IN ('owner', 'renter'))`)

	db.Exec(`ALTER TABLE messages DROP CONSTRAINT IF EXISTS messages_receiver_kind_check`)
	db.Exec(`ALTER TABLE messages ADD CONSTRAINT messages_receiver_kind_check CHECK (receiver_kind IN ('owner', 'renter'))`)

	return nil
}
