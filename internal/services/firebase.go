package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var (
	// FirebaseApp is the Firebase app instance
	FirebaseApp *firebase.App
	// MessagingClient is the Firebase Cloud Messaging client
	MessagingClient *messaging.Client
)

// InitFirebase initializes Firebase Admin SDK
func InitFirebase() error {
	ctx := context.Background()

	// Check if Firebase is configured
	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil
	}

	// Initialize Firebase app
	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing firebase app: %v", err)
	}

	// Initialize messaging client
	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting messaging client: %v", err)
	}

	FirebaseApp = app
	MessagingClient = client

	log.Println("Firebase Cloud Messaging initialized successfully")
	return nil
}

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"` // Android notification channel
	Priority  string                 `json:"priority,omitempty"`  // high, normal, low
}

// SendNotificationToToken sends a notification to a specific FCM token
func SendNotificationToToken(ctx context.Context, token string, payload NotificationPayload) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notification.")
		return nil
	}
	if token == "" {
		return nil
	}

	// Convert data map to string map (required by FCM)
	dataStrings := make(map[string]string)
	for key, value := range payload.Data {
		switch v := value.(type) {
		case string:
			dataStrings[key] = v
		case int, int64, uint, float64, bool:
			dataStrings[key] = fmt.Sprintf("%v", v)
		default:
			jsonData, err := json.Marshal(v)
			if err != nil {
				log.Printf("Error marshaling data for key %s: %v", key, err)
				continue
			}
			dataStrings[key] = string(jsonData)
		}
	}

	channelID := payload.ChannelID
	if channelID == "" {
		channelID = "parkspot_default"
	}

	priority := messaging.PriorityHigh
	if payload.Priority == "normal" {
		priority = messaging.PriorityDefault
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  dataStrings,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:                 "default",
				ChannelID:             channelID,
				Priority:              priority,
				DefaultSound:          true,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:          "default",
					MutableContent: true,
				},
			},
		},
	}

	response, err := MessagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %v", err)
	}

	log.Printf("Successfully sent notification, response: %s", response)
	return nil
}

// SendBookingApprovedNotification notifies the car owner that a renter
// approved their booking request
func SendBookingApprovedNotification(ctx context.Context, ownerToken string, bookingID uint, placeName, date string) error {
	payload := NotificationPayload{
		Title: "Booking Approved!",
		Body:  fmt.Sprintf("Your booking for %s on %s was approved", placeName, date),
		Data: map[string]interface{}{
			"type":           "booking_approved",
			"bookingId":      bookingID,
			"placeName":      placeName,
			"date":           date,
			"notificationId": fmt.Sprintf("booking_approved_%d", bookingID),
		},
		ChannelID: "parkspot_bookings",
	}

	return SendNotificationToToken(ctx, ownerToken, payload)
}

// SendBookingRejectedNotification notifies the car owner of a rejection
func SendBookingRejectedNotification(ctx context.Context, ownerToken string, bookingID uint) error {
	payload := NotificationPayload{
		Title: "Booking Update",
		Body:  "Your booking request was rejected",
		Data: map[string]interface{}{
			"type":           "booking_rejected",
			"bookingId":      bookingID,
			"notificationId": fmt.Sprintf("booking_rejected_%d", bookingID),
		},
		ChannelID: "parkspot_bookings",
	}

	return SendNotificationToToken(ctx, ownerToken, payload)
}

// SendNewMessageNotification notifies a participant of an inbound chat message
func SendNewMessageNotification(ctx context.Context, receiverToken string, bookingID uint, senderName, preview string) error {
	payload := NotificationPayload{
		Title: fmt.Sprintf("New message from %s", senderName),
		Body:  preview,
		Data: map[string]interface{}{
			"type":      "new_message",
			"bookingId": bookingID,
		},
		ChannelID: "parkspot_chat",
	}

	return SendNotificationToToken(ctx, receiverToken, payload)
}
