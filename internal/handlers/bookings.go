package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/bookings"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
)

func bookingParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid booking ID"})
		return 0, false
	}
	return uint(id), true
}

// RequestBooking handles a car owner requesting a location
func RequestBooking(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		if kind != models.KindOwner {
			c.JSON(403, gin.H{"error": "Only car owners can request bookings"})
			return
		}

		var input struct {
			RenterID      uint   `json:"renterId" binding:"required"`
			LocationID    uint   `json:"locationId" binding:"required"`
			PreferredDate string `json:"preferredDate" binding:"required"`
			Contact       string `json:"contact" binding:"required"`
			Message       string `json:"message"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		date, err := time.Parse("2006-01-02", input.PreferredDate)
		if err != nil {
			c.JSON(400, gin.H{"error": "preferredDate must be formatted YYYY-MM-DD"})
			return
		}

		booking, err := svc.RequestBooking(c.Request.Context(), bookings.Request{
			OwnerID:       userID,
			RenterID:      input.RenterID,
			LocationID:    input.LocationID,
			PreferredDate: date,
			Contact:       input.Contact,
			Message:       input.Message,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, booking)
	}
}

// UpdateBookingStatus approves or rejects a booking request. Only the
// renter side of the booking decides.
func UpdateBookingStatus(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		var input struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := svc.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		if kind != models.KindRenter || booking.RenterID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to update this booking"})
			return
		}

		updated, err := svc.UpdateStatus(c.Request.Context(), bookingID, models.BookingStatus(input.Status))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, updated)
	}
}

// ProcessPayment flags a booking as paid
func ProcessPayment(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		var input struct {
			PaymentMethod string  `json:"paymentMethod"`
			Amount        float64 `json:"amount"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := svc.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !booking.IsParty(kind, userID) {
			c.JSON(403, gin.H{"error": "Unauthorized to pay for this booking"})
			return
		}

		updated, err := svc.RecordPayment(c.Request.Context(), bookingID, input.PaymentMethod, input.Amount)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Payment successful!", "booking": updated})
	}
}

// RemoveBooking soft deletes a booking; the booking remains in history views
func RemoveBooking(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		booking, err := svc.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		if kind != models.KindOwner || booking.OwnerID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to remove this booking"})
			return
		}

		if err := svc.SoftRemove(c.Request.Context(), bookingID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"success": true})
	}
}

// DeleteBooking permanently deletes a booking and its messages
func DeleteBooking(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		booking, err := svc.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		if kind != models.KindOwner || booking.OwnerID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to delete this booking"})
			return
		}

		if err := svc.HardDelete(c.Request.Context(), bookingID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"success": true})
	}
}

// CompleteStay frees the location once the booking's stay is over
func CompleteStay(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		booking, err := svc.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !booking.IsParty(kind, userID) {
			c.JSON(403, gin.H{"error": "Unauthorized to complete this booking"})
			return
		}

		if err := svc.CompleteStay(c.Request.Context(), bookingID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Stay completed, location is available again"})
	}
}

// RateBooking records the car owner's rating after an approved stay
func RateBooking(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		var input struct {
			Rating int `json:"rating" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := svc.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		if kind != models.KindOwner || booking.OwnerID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to rate this booking"})
			return
		}

		if err := svc.Rate(c.Request.Context(), bookingID, input.Rating); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Rating recorded"})
	}
}

// GetBookingStatus retrieves detailed booking information
func GetBookingStatus(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		bookingID, ok := bookingParam(c)
		if !ok {
			return
		}

		booking, err := svc.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !booking.IsParty(kind, userID) {
			c.JSON(403, gin.H{"error": "Unauthorized"})
			return
		}

		response := gin.H{
			"id":            booking.ID,
			"status":        booking.Status,
			"paymentStatus": booking.PaymentStatus,
			"preferredDate": booking.PreferredDate.Format("2006-01-02"),
			"contact":       booking.Contact,
			"message":       booking.Message,
			"ownerName":     booking.Owner.Name,
			"renterName":    booking.Renter.Name,
			"rating":        booking.Rating,
		}
		if booking.Location != nil {
			response["location"] = gin.H{
				"id":        booking.Location.ID,
				"placeName": booking.Location.PlaceName,
				"address":   booking.Location.Address,
				"price":     booking.Location.Price,
				"available": booking.Location.Available,
			}
		}

		c.JSON(200, response)
	}
}

// GetOwnerBookings retrieves all bookings made by the requesting car owner
func GetOwnerBookings(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		if kind != models.KindOwner {
			c.JSON(403, gin.H{"error": "Only car owners have owner bookings"})
			return
		}

		list, err := svc.OwnerBookings(c.Request.Context(), userID)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch bookings"})
			return
		}

		c.JSON(200, list)
	}
}

// GetRenterBookings retrieves all bookings against the requesting renter's locations
func GetRenterBookings(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		if kind != models.KindRenter {
			c.JSON(403, gin.H{"error": "Only renters have renter bookings"})
			return
		}

		list, err := svc.RenterBookings(c.Request.Context(), userID)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch bookings"})
			return
		}

		c.JSON(200, list)
	}
}

// GetBookingHistory returns the requester's append-only history log
func GetBookingHistory(svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		entries, err := svc.History(c.Request.Context(), kind, userID)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch history"})
			return
		}

		c.JSON(200, entries)
	}
}
