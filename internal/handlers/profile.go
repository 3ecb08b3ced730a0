package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"github.com/parkspot-ke/parkspot-backend/internal/services"
	"gorm.io/gorm"
)

// GetProfile retrieves the requesting user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		if kind == models.KindOwner {
			var owner models.Owner
			if err := db.First(&owner, userID).Error; err != nil {
				c.JSON(404, gin.H{"error": "User not found"})
				return
			}
			c.JSON(200, gin.H{
				"id":                     owner.ID,
				"name":                   owner.Name,
				"username":               owner.Username,
				"email":                  owner.Email,
				"bio":                    owner.Bio,
				"profilePic":             services.GetImageURL(owner.ProfilePic),
				"carModel":               owner.CarModel,
				"ratings":                owner.Ratings,
				"notificationPreference": owner.NotificationPreference,
				"paymentPreference":      owner.PaymentPreference,
				"userKind":               models.KindOwner,
			})
			return
		}

		var renter models.Renter
		if err := db.First(&renter, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}
		c.JSON(200, gin.H{
			"id":                     renter.ID,
			"name":                   renter.Name,
			"username":               renter.Username,
			"email":                  renter.Email,
			"bio":                    renter.Bio,
			"profilePic":             services.GetImageURL(renter.ProfilePic),
			"rentingPlace":           renter.RentingPlace,
			"placeType":              renter.PlaceType,
			"timing":                 renter.Timing,
			"price":                  renter.Price,
			"amenities":              renter.Amenities,
			"ratings":                renter.Ratings,
			"notificationPreference": renter.NotificationPreference,
			"paymentPreference":      renter.PaymentPreference,
			"userKind":               models.KindRenter,
		})
	}
}

type profileUpdateInput struct {
	Bio                    *string `json:"bio"`
	NotificationPreference *string `json:"notificationPreference"`
	PaymentPreference      *string `json:"paymentPreference"`
	CarModel               *string `json:"carModel"`
	FCMToken               *string `json:"fcmToken"`
}

// UpdateProfile updates the requesting user's profile information
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		var input profileUpdateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if kind == models.KindOwner {
			var owner models.Owner
			if err := db.First(&owner, userID).Error; err != nil {
				c.JSON(404, gin.H{"error": "User not found"})
				return
			}
			if input.Bio != nil {
				owner.Bio = *input.Bio
			}
			if input.NotificationPreference != nil {
				owner.NotificationPreference = *input.NotificationPreference
			}
			if input.PaymentPreference != nil {
				owner.PaymentPreference = *input.PaymentPreference
			}
			if input.CarModel != nil {
				owner.CarModel = *input.CarModel
			}
			if input.FCMToken != nil {
				owner.FCMToken = *input.FCMToken
			}
			if err := db.Save(&owner).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to update profile"})
				return
			}
			c.JSON(200, gin.H{"message": "Profile updated successfully"})
			return
		}

		var renter models.Renter
		if err := db.First(&renter, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}
		if input.Bio != nil {
			renter.Bio = *input.Bio
		}
		if input.NotificationPreference != nil {
			renter.NotificationPreference = *input.NotificationPreference
		}
		if input.PaymentPreference != nil {
			renter.PaymentPreference = *input.PaymentPreference
		}
		if input.FCMToken != nil {
			renter.FCMToken = *input.FCMToken
		}
		if err := db.Save(&renter).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}
		c.JSON(200, gin.H{"message": "Profile updated successfully"})
	}
}

// UploadProfilePicture stores a new profile image via the storage service
func UploadProfilePicture(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, kind := requester(c)

		file, err := c.FormFile("profilePic")
		if err != nil {
			c.JSON(400, gin.H{"error": "profilePic file is required"})
			return
		}

		path, err := services.UploadProfilePicture(file)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var updateErr error
		if kind == models.KindOwner {
			updateErr = db.Model(&models.Owner{}).Where("id = ?", userID).Update("profile_pic", path).Error
		} else {
			updateErr = db.Model(&models.Renter{}).Where("id = ?", userID).Update("profile_pic", path).Error
		}
		if updateErr != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile picture"})
			return
		}

		c.JSON(200, gin.H{"profilePic": services.GetImageURL(path)})
	}
}
