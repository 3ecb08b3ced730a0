package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/parkspot-ke/parkspot-backend/internal/bookings"
	"github.com/parkspot-ke/parkspot-backend/internal/database"
	"github.com/parkspot-ke/parkspot-backend/internal/handlers"
	"github.com/parkspot-ke/parkspot-backend/internal/messaging"
	"github.com/parkspot-ke/parkspot-backend/internal/middleware"
	"github.com/parkspot-ke/parkspot-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	// Initialize database with better error handling
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Firebase (optional - will log warning if not configured)
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Domain services
	lifecycle := bookings.NewService(db, hub)
	gateway := messaging.NewGateway(db, hub)

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve locally stored uploads
	r.Static("/uploads", "/app/uploads")

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/owner/register", handlers.RegisterOwner(db))
			auth.POST("/renter/register", handlers.RegisterRenter(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			// Profile routes
			protected.GET("/profile", handlers.GetProfile(db))
			protected.PUT("/profile", handlers.UpdateProfile(db))
			protected.POST("/profile/picture", handlers.UploadProfilePicture(db))

			// Location routes
			locations := protected.Group("/locations")
			{
				locations.GET("", handlers.GetAvailableLocations(db))
				locations.POST("", handlers.CreateLocation(db))
				locations.GET("/mine", handlers.GetMyLocations(db))
				locations.PUT("/:id", handlers.UpdateLocation(db))
				locations.DELETE("/:id", handlers.DeleteLocation(db))
			}
			protected.POST("/toggle_availability_ajax/:id", handlers.ToggleAvailabilityAjax(db, lifecycle))

			// Booking lifecycle routes
			protected.POST("/request_booking", handlers.RequestBooking(lifecycle))
			protected.POST("/update_booking_status/:id", handlers.UpdateBookingStatus(lifecycle))
			protected.POST("/process_payment/:id", handlers.ProcessPayment(lifecycle))
			protected.POST("/remove_booking/:id", handlers.RemoveBooking(lifecycle))
			protected.POST("/delete_booking/:id", handlers.DeleteBooking(lifecycle))
			protected.POST("/confirm_removal/:id", handlers.DeleteBooking(lifecycle))
			protected.POST("/complete_stay/:id", handlers.CompleteStay(lifecycle))
			protected.POST("/rate_booking/:id", handlers.RateBooking(lifecycle))
			protected.GET("/bookings/:id/status", handlers.GetBookingStatus(lifecycle))
			protected.GET("/bookings/owner", handlers.GetOwnerBookings(lifecycle))
			protected.GET("/bookings/renter", handlers.GetRenterBookings(lifecycle))
			protected.GET("/booking_history", handlers.GetBookingHistory(lifecycle))

			// Messaging routes
			protected.POST("/send_message", handlers.SendMessage(gateway))
			protected.POST("/reply_message/:id", handlers.ReplyMessage(gateway))
			protected.GET("/view_messages/:id", handlers.ViewMessages(gateway))
			protected.POST("/messages/:id/read", handlers.MarkMessageRead(gateway))
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
