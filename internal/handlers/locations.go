package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/bookings"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"gorm.io/gorm"
)

func joinAmenities(amenities []string) string {
	return strings.Join(amenities, ", ")
}

// CreateLocation handles a renter listing a new parking space
func CreateLocation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		if kind != models.KindRenter {
			c.JSON(403, gin.H{"error": "Only renters can add locations"})
			return
		}

		var input struct {
			PlaceName string   `json:"placeName" binding:"required"`
			Address   string   `json:"address" binding:"required"`
			Price     float64  `json:"price" binding:"required"`
			Amenities []string `json:"amenities"`
			Lat       float64  `json:"lat" binding:"required"`
			Lng       float64  `json:"lng" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		location := models.Location{
			RenterID:  userID,
			PlaceName: input.PlaceName,
			Address:   input.Address,
			Price:     input.Price,
			Available: true,
			Lat:       input.Lat,
			Lng:       input.Lng,
		}
		location.SetAmenities(input.Amenities)

		if err := db.Create(&location).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create location"})
			return
		}

		c.JSON(201, location)
	}
}

// GetAvailableLocations retrieves available locations with optional search
func GetAvailableLocations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := strings.TrimSpace(c.Query("search"))

		var locations []models.Location
		query := db.Where("available = ?", true)

		if search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(place_name) LIKE ? OR LOWER(address) LIKE ?", pattern, pattern)
		}

		if err := query.Find(&locations).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch locations"})
			return
		}

		c.JSON(200, locations)
	}
}

// GetMyLocations retrieves all locations listed by the requesting renter
func GetMyLocations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		if kind != models.KindRenter {
			c.JSON(403, gin.H{"error": "Only renters have listed locations"})
			return
		}

		var locations []models.Location
		if err := db.Where("renter_id = ?", userID).Find(&locations).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch locations"})
			return
		}

		c.JSON(200, locations)
	}
}

// UpdateLocation edits a renter's own location
func UpdateLocation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		locationID := c.Param("id")

		var location models.Location
		if err := db.First(&location, locationID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Location not found"})
			return
		}

		if kind != models.KindRenter || location.RenterID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to edit this location"})
			return
		}

		var input struct {
			PlaceName *string   `json:"placeName"`
			Address   *string   `json:"address"`
			Price     *float64  `json:"price"`
			Amenities *[]string `json:"amenities"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.PlaceName != nil {
			location.PlaceName = *input.PlaceName
		}
		if input.Address != nil {
			location.Address = *input.Address
		}
		if input.Price != nil {
			location.Price = *input.Price
		}
		if input.Amenities != nil {
			location.SetAmenities(*input.Amenities)
		}

		if err := db.Save(&location).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update location"})
			return
		}

		c.JSON(200, location)
	}
}

// DeleteLocation removes a renter's location. Bookings that reference it
// keep working with a null location.
func DeleteLocation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)
		locationID := c.Param("id")

		var location models.Location
		if err := db.First(&location, locationID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Location not found"})
			return
		}

		if kind != models.KindRenter || location.RenterID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to delete this location"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Booking{}).
				Where("location_id = ?", location.ID).
				Update("location_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&location).Error
		})
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to delete location"})
			return
		}

		c.JSON(200, gin.H{"message": "Location successfully deleted"})
	}
}

// ToggleAvailabilityAjax flips a location's availability outside the booking
// lifecycle. The flip goes through the lifecycle service so it is audited.
func ToggleAvailabilityAjax(db *gorm.DB, svc *bookings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		locationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid location ID"})
			return
		}

		var location models.Location
		if err := db.First(&location, uint(locationID)).Error; err != nil {
			c.JSON(404, gin.H{"error": "Location not found"})
			return
		}
		if kind != models.KindRenter || location.RenterID != userID {
			c.JSON(403, gin.H{"error": "Unauthorized to toggle this location"})
			return
		}

		actor := fmt.Sprintf("%s:%d:toggle", kind, userID)
		updated, err := svc.ToggleAvailability(c.Request.Context(), uint(locationID), actor)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{
			"success":   true,
			"available": updated.Available,
		})
	}
}
