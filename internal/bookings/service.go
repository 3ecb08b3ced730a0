package bookings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"github.com/parkspot-ke/parkspot-backend/internal/services"
	"github.com/parkspot-ke/parkspot-backend/pkg/apperrors"
	"gorm.io/gorm"
)

// Service owns the booking lifecycle and, through it, location availability
// and the per-participant history log. Every mutation runs inside a single
// database transaction; on any failure the transaction rolls back before the
// error is returned, so partial state is never observable.
type Service struct {
	db  *gorm.DB
	hub *services.Hub
}

// NewService creates a lifecycle service. hub may be nil (tests, workers);
// realtime notifications are then skipped.
func NewService(db *gorm.DB, hub *services.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// Request is the input for creating a booking.
type Request struct {
	OwnerID       uint
	RenterID      uint
	LocationID    uint
	PreferredDate time.Time
	Contact       string
	Message       string
}

// RequestBooking validates the referenced entities and creates a booking in
// Pending status. Availability is left untouched until approval.
func (s *Service) RequestBooking(ctx context.Context, req Request) (*models.Booking, error) {
	if req.Contact == "" {
		return nil, fmt.Errorf("%w: contact details are required", apperrors.ErrValidation)
	}
	if req.PreferredDate.IsZero() {
		return nil, fmt.Errorf("%w: preferred date is required", apperrors.ErrValidation)
	}

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.Owner
		if err := tx.First(&owner, req.OwnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: car owner %d does not exist", apperrors.ErrValidation, req.OwnerID)
			}
			return err
		}

		var renter models.Renter
		if err := tx.First(&renter, req.RenterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: renter %d does not exist", apperrors.ErrValidation, req.RenterID)
			}
			return err
		}

		var location models.Location
		if err := tx.First(&location, req.LocationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: location %d does not exist", apperrors.ErrValidation, req.LocationID)
			}
			return err
		}
		if !location.Available {
			return fmt.Errorf("%w: location %q is not available for booking", apperrors.ErrValidation, location.PlaceName)
		}

		locationID := location.ID
		booking = models.Booking{
			OwnerID:       owner.ID,
			RenterID:      renter.ID,
			LocationID:    &locationID,
			Message:       req.Message,
			PreferredDate: req.PreferredDate,
			Contact:       req.Contact,
			Status:        models.BookingStatusPending,
			PaymentStatus: models.PaymentStatusDue,
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

// Approve transitions a Pending booking to Approved, marks the location
// unavailable and appends one history entry per participant. The status
// update is a compare-and-set guarded on Pending, so of two concurrent
// approvals exactly one succeeds and the other gets ErrInvalidTransition.
func (s *Service) Approve(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
			}
			return err
		}
		if booking.Deleted {
			return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ? AND deleted = ?", bookingID, models.BookingStatusPending, false).
			Update("status", models.BookingStatusApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking %d has already been processed", apperrors.ErrInvalidTransition, bookingID)
		}
		booking.Status = models.BookingStatusApproved

		locationName := "N/A"
		if booking.LocationID != nil {
			var location models.Location
			err := tx.First(&location, *booking.LocationID).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Location deleted after the request was made; approve anyway.
			case err != nil:
				return err
			default:
				locationName = location.PlaceName
				if location.Available {
					if err := tx.Model(&location).Update("available", false).Error; err != nil {
						return err
					}
					event := models.AvailabilityEvent{
						LocationID: location.ID,
						Available:  false,
						Actor:      fmt.Sprintf("booking:%d:approve", bookingID),
					}
					if err := tx.Create(&event).Error; err != nil {
						return err
					}
				}
				booking.Location = &location
			}
		}

		date := booking.PreferredDate.Format("2006-01-02")
		entries := []models.HistoryEntry{
			{
				UserKind:      models.KindOwner,
				UserID:        booking.OwnerID,
				BookingID:     booking.ID,
				LocationName:  locationName,
				PreferredDate: date,
				Status:        string(models.BookingStatusApproved),
			},
			{
				UserKind:      models.KindRenter,
				UserID:        booking.RenterID,
				BookingID:     booking.ID,
				LocationName:  locationName,
				PreferredDate: date,
				Status:        string(models.BookingStatusApproved),
			},
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyApproved(ctx, &booking)
	return &booking, nil
}

// UpdateStatus sets a booking's status from the closed label set. An
// Approved target dispatches to Approve so the approval side effects cannot
// be skipped.
func (s *Service) UpdateStatus(ctx context.Context, bookingID uint, status models.BookingStatus) (*models.Booking, error) {
	if !models.ValidBookingStatus(status) {
		return nil, fmt.Errorf("%w: unknown booking status %q", apperrors.ErrValidation, status)
	}
	if status == models.BookingStatusApproved {
		return s.Approve(ctx, bookingID)
	}

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
			}
			return err
		}
		if booking.Deleted {
			return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
		}

		if err := tx.Model(&booking).Update("status", status).Error; err != nil {
			return err
		}
		booking.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == models.BookingStatusRejected {
		s.notifyRejected(ctx, &booking)
	}
	return &booking, nil
}

// CompleteStay frees the booking's location once the stay is over.
// Idempotent: completing an already-completed booking changes nothing.
func (s *Service) CompleteStay(ctx context.Context, bookingID uint) error {
	var locationID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
			}
			return err
		}

		if booking.LocationID == nil {
			return nil
		}

		var location models.Location
		if err := tx.First(&location, *booking.LocationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if location.Available {
			return nil
		}

		if err := tx.Model(&location).Update("available", true).Error; err != nil {
			return err
		}
		locationID = location.ID
		event := models.AvailabilityEvent{
			LocationID: location.ID,
			Available:  true,
			Actor:      fmt.Sprintf("booking:%d:complete", bookingID),
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	if locationID != 0 {
		if err := services.SetLocationAvailability(ctx, locationID, true); err != nil {
			log.Printf("Failed to refresh availability cache for location %d: %v", locationID, err)
		}
	}
	return nil
}

// SoftRemove marks a booking deleted; it stays queryable in history views.
func (s *Service) SoftRemove(ctx context.Context, bookingID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
			}
			return err
		}
		if booking.Deleted {
			return nil
		}
		return tx.Model(&booking).Update("deleted", true).Error
	})
}

// HardDelete removes the booking row and cascades to its messages.
func (s *Service) HardDelete(ctx context.Context, bookingID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
			}
			return err
		}

		if err := tx.Unscoped().Where("booking_id = ?", bookingID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&booking).Error
	})
}

// RecordPayment flags the booking as paid. No funds move here; the payment
// method and amount are validated and recorded only.
func (s *Service) RecordPayment(ctx context.Context, bookingID uint, method string, amount float64) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
			}
			return err
		}

		if booking.PaymentStatus == models.PaymentStatusPaid {
			return fmt.Errorf("%w: booking %d", apperrors.ErrAlreadyPaid, bookingID)
		}
		if method == "" || amount <= 0 {
			return fmt.Errorf("%w: payment method and amount are required", apperrors.ErrValidation)
		}

		if err := tx.Model(&booking).Update("payment_status", models.PaymentStatusPaid).Error; err != nil {
			return err
		}
		booking.PaymentStatus = models.PaymentStatusPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyPayment(ctx, &booking, method, amount)
	return &booking, nil
}

// Rate records a 1-5 rating on an approved booking and refreshes the
// renter's aggregate rating.
func (s *Service) Rate(ctx context.Context, bookingID uint, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", apperrors.ErrValidation)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
			}
			return err
		}
		if booking.Status != models.BookingStatusApproved {
			return fmt.Errorf("%w: only approved bookings can be rated", apperrors.ErrInvalidTransition)
		}

		if err := tx.Model(&booking).Update("rating", rating).Error; err != nil {
			return err
		}

		// Keep the renter's aggregate in step with their rated bookings.
		var avg float64
		err := tx.Model(&models.Booking{}).
			Where("renter_id = ? AND rating IS NOT NULL", booking.RenterID).
			Select("AVG(rating)").
			Scan(&avg).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Renter{}).
			Where("id = ?", booking.RenterID).
			Update("ratings", avg).Error
	})
}

// ForceSetAvailability is the audited escape hatch for flipping a location's
// availability outside the booking lifecycle. Idempotent: setting the
// current value writes no event.
func (s *Service) ForceSetAvailability(ctx context.Context, locationID uint, available bool, actor string) (*models.Location, error) {
	return s.setAvailability(ctx, locationID, func(current bool) bool { return available }, actor)
}

// ToggleAvailability flips a location's availability, audited like
// ForceSetAvailability.
func (s *Service) ToggleAvailability(ctx context.Context, locationID uint, actor string) (*models.Location, error) {
	return s.setAvailability(ctx, locationID, func(current bool) bool { return !current }, actor)
}

func (s *Service) setAvailability(ctx context.Context, locationID uint, next func(bool) bool, actor string) (*models.Location, error) {
	var location models.Location
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&location, locationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: location %d", apperrors.ErrNotFound, locationID)
			}
			return err
		}

		target := next(location.Available)
		if location.Available == target {
			return nil
		}

		if err := tx.Model(&location).Update("available", target).Error; err != nil {
			return err
		}
		location.Available = target
		changed = true
		event := models.AvailabilityEvent{
			LocationID: location.ID,
			Available:  target,
			Actor:      actor,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		if err := services.SetLocationAvailability(ctx, location.ID, location.Available); err != nil {
			log.Printf("Failed to refresh availability cache for location %d: %v", location.ID, err)
		}
		if s.hub != nil {
			s.hub.SendToUser(models.KindRenter, location.RenterID, "availability_changed", services.AvailabilityChanged{
				LocationID: location.ID,
				Available:  location.Available,
			})
		}
	}
	return &location, nil
}

// Get loads a booking with its associations.
func (s *Service) Get(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Renter").
		Preload("Location").
		First(&booking, bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: booking %d", apperrors.ErrNotFound, bookingID)
		}
		return nil, err
	}
	return &booking, nil
}

// OwnerBookings lists a car owner's non-removed bookings.
func (s *Service) OwnerBookings(ctx context.Context, ownerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("car_owner_id = ? AND deleted = ?", ownerID, false).
		Preload("Renter").
		Preload("Location").
		Find(&bookings).Error
	return bookings, err
}

// RenterBookings lists bookings against a renter's locations.
func (s *Service) RenterBookings(ctx context.Context, renterID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("renter_id = ? AND deleted = ?", renterID, false).
		Preload("Owner").
		Preload("Location").
		Find(&bookings).Error
	return bookings, err
}

// History returns a participant's append-only booking history in insertion
// order.
func (s *Service) History(ctx context.Context, kind models.ParticipantKind, userID uint) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := s.db.WithContext(ctx).
		Where("user_kind = ? AND user_id = ?", kind, userID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (s *Service) notifyApproved(ctx context.Context, booking *models.Booking) {
	date := booking.PreferredDate.Format("2006-01-02")
	event := services.BookingApproved{
		BookingID: booking.ID,
		Date:      date,
	}
	if booking.Location != nil {
		event.LocationID = booking.Location.ID
		event.LocationName = booking.Location.PlaceName
	}

	if s.hub != nil {
		s.hub.SendToUser(models.KindOwner, booking.OwnerID, "booking_approved", event)
		s.hub.SendToUser(models.KindRenter, booking.RenterID, "booking_approved", event)
	}

	if err := services.PublishBookingUpdate(ctx, booking.ID, string(booking.Status), map[string]interface{}{
		"ownerId":  booking.OwnerID,
		"renterId": booking.RenterID,
		"date":     date,
	}); err != nil {
		log.Printf("Failed to publish booking update for booking %d: %v", booking.ID, err)
	}

	var owner models.Owner
	if err := s.db.First(&owner, booking.OwnerID).Error; err == nil && owner.FCMToken != "" {
		if err := services.SendBookingApprovedNotification(ctx, owner.FCMToken, booking.ID, event.LocationName, date); err != nil {
			log.Printf("Failed to send approval push for booking %d: %v", booking.ID, err)
		}
	}
}

func (s *Service) notifyRejected(ctx context.Context, booking *models.Booking) {
	if s.hub != nil {
		s.hub.SendToUser(models.KindOwner, booking.OwnerID, "booking_rejected", services.BookingRejected{
			BookingID: booking.ID,
			Status:    string(booking.Status),
		})
	}

	if err := services.PublishBookingUpdate(ctx, booking.ID, string(booking.Status), nil); err != nil {
		log.Printf("Failed to publish booking update for booking %d: %v", booking.ID, err)
	}

	var owner models.Owner
	if err := s.db.First(&owner, booking.OwnerID).Error; err == nil && owner.FCMToken != "" {
		if err := services.SendBookingRejectedNotification(ctx, owner.FCMToken, booking.ID); err != nil {
			log.Printf("Failed to send rejection push for booking %d: %v", booking.ID, err)
		}
	}
}

func (s *Service) notifyPayment(ctx context.Context, booking *models.Booking, method string, amount float64) {
	if s.hub != nil {
		s.hub.SendToUser(models.KindRenter, booking.RenterID, "payment_received", services.PaymentReceived{
			BookingID: booking.ID,
			Method:    method,
			Amount:    amount,
		})
	}

	if err := services.PublishBookingUpdate(ctx, booking.ID, string(booking.Status), map[string]interface{}{
		"paymentStatus": string(booking.PaymentStatus),
		"method":        method,
		"amount":        amount,
	}); err != nil {
		log.Printf("Failed to publish payment update for booking %d: %v", booking.ID, err)
	}
}
