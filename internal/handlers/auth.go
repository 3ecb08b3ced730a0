package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"github.com/parkspot-ke/parkspot-backend/pkg/apperrors"
	"github.com/parkspot-ke/parkspot-backend/pkg/utils"
	"gorm.io/gorm"
)

type OwnerRegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	CarModel string `json:"carModel" binding:"required"`
}

// RegisterOwner creates a car owner account
func RegisterOwner(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input OwnerRegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var existing models.Owner
		if err := db.Where("email = ? OR username = ?", input.Email, input.Username).First(&existing).Error; err == nil {
			respondError(c, apperrors.ErrDuplicateIdentity)
			return
		}

		owner := models.Owner{
			Name:     input.Name,
			Username: input.Username,
			Email:    input.Email,
			Password: input.Password,
			CarModel: input.CarModel,
		}
		if err := owner.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if err := db.Create(&owner).Error; err != nil {
			respondError(c, apperrors.ErrDuplicateIdentity)
			return
		}

		c.JSON(201, gin.H{
			"message": "Registration successful",
			"user": gin.H{
				"id":       owner.ID,
				"name":     owner.Name,
				"username": owner.Username,
				"email":    owner.Email,
				"userKind": models.KindOwner,
			},
		})
	}
}

type RenterRegisterInput struct {
	Name         string   `json:"name" binding:"required"`
	Username     string   `json:"username" binding:"required"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"required,min=6"`
	RentingPlace string   `json:"rentingPlace" binding:"required"`
	Price        float64  `json:"price" binding:"required"`
	PlaceType    string   `json:"placeType" binding:"required,oneof=residential commercial"`
	Amenities    []string `json:"amenities"`
	Timing       string   `json:"timing" binding:"required"`
}

// RegisterRenter creates a renter account
func RegisterRenter(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RenterRegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var existing models.Renter
		if err := db.Where("email = ? OR username = ?", input.Email, input.Username).First(&existing).Error; err == nil {
			respondError(c, apperrors.ErrDuplicateIdentity)
			return
		}

		renter := models.Renter{
			Name:         input.Name,
			Username:     input.Username,
			Email:        input.Email,
			Password:     input.Password,
			RentingPlace: input.RentingPlace,
			Price:        input.Price,
			PlaceType:    input.PlaceType,
			Timing:       input.Timing,
		}
		renter.Amenities = joinAmenities(input.Amenities)
		if err := renter.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if err := db.Create(&renter).Error; err != nil {
			respondError(c, apperrors.ErrDuplicateIdentity)
			return
		}

		c.JSON(201, gin.H{
			"message": "Registration successful",
			"user": gin.H{
				"id":       renter.ID,
				"name":     renter.Name,
				"username": renter.Username,
				"email":    renter.Email,
				"userKind": models.KindRenter,
			},
		})
	}
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	UserKind string `json:"userKind" binding:"required,oneof=owner renter"`
}

// Login authenticates either participant kind and returns a JWT
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var (
			id           uint
			name         string
			passwordErr  error
			lookupFailed bool
		)

		switch models.ParticipantKind(input.UserKind) {
		case models.KindOwner:
			var owner models.Owner
			if err := db.Where("username = ?", input.Username).First(&owner).Error; err != nil {
				lookupFailed = true
			} else {
				id, name = owner.ID, owner.Name
				passwordErr = owner.CheckPassword(input.Password)
			}
		case models.KindRenter:
			var renter models.Renter
			if err := db.Where("username = ?", input.Username).First(&renter).Error; err != nil {
				lookupFailed = true
			} else {
				id, name = renter.ID, renter.Name
				passwordErr = renter.CheckPassword(input.Password)
			}
		}

		if lookupFailed || passwordErr != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(id, input.Username, models.ParticipantKind(input.UserKind))
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user": gin.H{
				"id":       id,
				"name":     name,
				"username": input.Username,
				"userKind": input.UserKind,
			},
		})
	}
}
