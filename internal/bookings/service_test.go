package bookings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"github.com/parkspot-ke/parkspot-backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Owner{},
		&models.Renter{},
		&models.Location{},
		&models.Booking{},
		&models.Message{},
		&models.HistoryEntry{},
		&models.AvailabilityEvent{},
	))
	return db
}

func seedMarketplace(t *testing.T, db *gorm.DB) (models.Owner, models.Renter, models.Location) {
	t.Helper()

	owner := models.Owner{
		Name:         "Otieno",
		Username:     "otieno",
		Email:        "otieno@example.com",
		PasswordHash: "x",
		CarModel:     "Mazda Demio",
	}
	require.NoError(t, db.Create(&owner).Error)

	renter := models.Renter{
		Name:         "Wairimu",
		Username:     "wairimu",
		Email:        "wairimu@example.com",
		PasswordHash: "x",
		RentingPlace: "Westlands",
		PlaceType:    "commercial",
		Timing:       "9am-5pm",
		Price:        100,
	}
	require.NoError(t, db.Create(&renter).Error)

	location := models.Location{
		RenterID:  renter.ID,
		PlaceName: "Westlands Yard",
		Address:   "12 Waiyaki Way",
		Price:     100,
		Available: true,
		Lat:       -1.2676,
		Lng:       36.8108,
	}
	require.NoError(t, db.Create(&location).Error)

	return owner, renter, location
}

func requestFor(owner models.Owner, renter models.Renter, location models.Location) Request {
	return Request{
		OwnerID:       owner.ID,
		RenterID:      renter.ID,
		LocationID:    location.ID,
		PreferredDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Contact:       "0712345678",
		Message:       "Need a spot for the week",
	}
}

func TestRequestBookingCreatesPending(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusDue, booking.PaymentStatus)
	require.NotNil(t, booking.LocationID)
	assert.Equal(t, location.ID, *booking.LocationID)

	// Availability is untouched until approval.
	var loc models.Location
	require.NoError(t, db.First(&loc, location.ID).Error)
	assert.True(t, loc.Available)
}

func TestRequestBookingValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	t.Run("missing contact", func(t *testing.T) {
		req := requestFor(owner, renter, location)
		req.Contact = ""
		_, err := svc.RequestBooking(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown owner", func(t *testing.T) {
		req := requestFor(owner, renter, location)
		req.OwnerID = 9999
		_, err := svc.RequestBooking(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown location", func(t *testing.T) {
		req := requestFor(owner, renter, location)
		req.LocationID = 9999
		_, err := svc.RequestBooking(context.Background(), req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unavailable location", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Location{}).Where("id = ?", location.ID).Update("available", false).Error)
		_, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		require.NoError(t, db.Model(&models.Location{}).Where("id = ?", location.ID).Update("available", true).Error)
	})
}

func TestApproveFlipsAvailabilityAndAppendsHistory(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, approved.Status)

	var loc models.Location
	require.NoError(t, db.First(&loc, location.ID).Error)
	assert.False(t, loc.Available)

	ownerHistory, err := svc.History(context.Background(), models.KindOwner, owner.ID)
	require.NoError(t, err)
	require.Len(t, ownerHistory, 1)
	assert.Equal(t, "Westlands Yard", ownerHistory[0].LocationName)
	assert.Equal(t, "2024-05-01", ownerHistory[0].PreferredDate)
	assert.Equal(t, "Approved", ownerHistory[0].Status)

	renterHistory, err := svc.History(context.Background(), models.KindRenter, renter.ID)
	require.NoError(t, err)
	require.Len(t, renterHistory, 1)

	// Availability flip is audited.
	var events []models.AvailabilityEvent
	require.NoError(t, db.Where("location_id = ?", location.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.False(t, events[0].Available)
	assert.Equal(t, fmt.Sprintf("booking:%d:approve", booking.ID), events[0].Actor)
}

func TestApproveRequiresPending(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), booking.ID)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = svc.Approve(context.Background(), 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConcurrentApproveExactlyOneWins(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(context.Background(), booking.ID)
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, apperrors.ErrInvalidTransition):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	// History gained exactly one entry per participant, not two.
	ownerHistory, err := svc.History(context.Background(), models.KindOwner, owner.ID)
	require.NoError(t, err)
	assert.Len(t, ownerHistory, 1)
	renterHistory, err := svc.History(context.Background(), models.KindRenter, renter.ID)
	require.NoError(t, err)
	assert.Len(t, renterHistory, 1)
}

func TestUpdateStatusClosedSet(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), booking.ID, "Cancelled")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	rejected, err := svc.UpdateStatus(context.Background(), booking.ID, models.BookingStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, rejected.Status)

	// Rejection does not touch availability.
	var loc models.Location
	require.NoError(t, db.First(&loc, location.ID).Error)
	assert.True(t, loc.Available)

	// Approving through UpdateStatus goes through the full approval path.
	back, err := svc.UpdateStatus(context.Background(), booking.ID, models.BookingStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, back.Status)

	approved, err := svc.UpdateStatus(context.Background(), booking.ID, models.BookingStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, approved.Status)
	require.NoError(t, db.First(&loc, location.ID).Error)
	assert.False(t, loc.Available)
}

func TestCompleteStayFreesLocationForRebooking(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), booking.ID)
	require.NoError(t, err)

	require.NoError(t, svc.CompleteStay(context.Background(), booking.ID))

	var loc models.Location
	require.NoError(t, db.First(&loc, location.ID).Error)
	assert.True(t, loc.Available)

	// Idempotent: completing again neither errors nor writes another event.
	require.NoError(t, svc.CompleteStay(context.Background(), booking.ID))
	var events []models.AvailabilityEvent
	require.NoError(t, db.Where("location_id = ? AND available = ?", location.ID, true).Find(&events).Error)
	assert.Len(t, events, 1)

	assert.ErrorIs(t, svc.CompleteStay(context.Background(), 9999), apperrors.ErrNotFound)

	// The freed location can immediately be booked again.
	_, err = svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)
}

func TestSoftRemoveAndHardDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), booking.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SoftRemove(context.Background(), booking.ID))

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.True(t, stored.Deleted)

	// Soft-removed bookings drop out of active listings.
	active, err := svc.OwnerBookings(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// No transition out of Deleted.
	_, err = svc.Approve(context.Background(), booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Hard delete removes the row and cascades to messages.
	msg := models.Message{
		BookingID:    booking.ID,
		SenderID:     owner.ID,
		SenderKind:   models.KindOwner,
		ReceiverID:   renter.ID,
		ReceiverKind: models.KindRenter,
		Content:      "hello",
	}
	require.NoError(t, db.Create(&msg).Error)

	require.NoError(t, svc.HardDelete(context.Background(), booking.ID))

	err = db.First(&stored, booking.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("booking_id = ?", booking.ID).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.HardDelete(context.Background(), booking.ID), apperrors.ErrNotFound)
}

func TestRecordPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), booking.ID, "", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	paid, err := svc.RecordPayment(context.Background(), booking.ID, "mpesa", 100)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

	// Second payment attempt fails and leaves state unchanged.
	_, err = svc.RecordPayment(context.Background(), booking.ID, "mpesa", 100)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)

	_, err = svc.RecordPayment(context.Background(), 9999, "mpesa", 100)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	booking, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Rate(context.Background(), booking.ID, 0), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.Rate(context.Background(), booking.ID, 6), apperrors.ErrValidation)

	// Pending bookings cannot be rated.
	assert.ErrorIs(t, svc.Rate(context.Background(), booking.ID, 4), apperrors.ErrInvalidTransition)

	_, err = svc.Approve(context.Background(), booking.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Rate(context.Background(), booking.ID, 4))

	var stored models.Booking
	require.NoError(t, db.First(&stored, booking.ID).Error)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 4, *stored.Rating)

	// The renter's aggregate follows their rated bookings.
	var ratedRenter models.Renter
	require.NoError(t, db.First(&ratedRenter, renter.ID).Error)
	assert.InDelta(t, 4.0, ratedRenter.Ratings, 0.001)
}

func TestForceSetAvailabilityIsAuditedAndIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	_, renter, location := seedMarketplace(t, db)

	actor := fmt.Sprintf("renter:%d:toggle", renter.ID)

	loc, err := svc.ForceSetAvailability(context.Background(), location.ID, false, actor)
	require.NoError(t, err)
	assert.False(t, loc.Available)

	// Same value again: no-op, no second event.
	_, err = svc.ForceSetAvailability(context.Background(), location.ID, false, actor)
	require.NoError(t, err)

	var events []models.AvailabilityEvent
	require.NoError(t, db.Where("location_id = ?", location.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, actor, events[0].Actor)

	toggled, err := svc.ToggleAvailability(context.Background(), location.ID, actor)
	require.NoError(t, err)
	assert.True(t, toggled.Available)

	_, err = svc.ForceSetAvailability(context.Background(), 9999, true, actor)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHistoryOrderMatchesApprovalOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	owner, renter, location := seedMarketplace(t, db)

	second := models.Location{
		RenterID:  renter.ID,
		PlaceName: "Kilimani Drive",
		Address:   "4 Argwings Kodhek Rd",
		Price:     80,
		Available: true,
		Lat:       -1.2921,
		Lng:       36.7872,
	}
	require.NoError(t, db.Create(&second).Error)

	first, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, location))
	require.NoError(t, err)
	other, err := svc.RequestBooking(context.Background(), requestFor(owner, renter, second))
	require.NoError(t, err)

	// Approve in reverse request order; history must follow approval order.
	_, err = svc.Approve(context.Background(), other.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), first.ID)
	require.NoError(t, err)

	history, err := svc.History(context.Background(), models.KindOwner, owner.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Kilimani Drive", history[0].LocationName)
	assert.Equal(t, "Westlands Yard", history[1].LocationName)
}
