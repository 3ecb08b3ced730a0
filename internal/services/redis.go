package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetLocationAvailability caches a location's availability flag
func SetLocationAvailability(ctx context.Context, locationID uint, available bool) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("location:availability:%d", locationID)
	value := "true"
	if !available {
		value = "false"
	}
	return RedisClient.Set(ctx, key, value, time.Hour).Err()
}

// GetLocationAvailability reads a location's cached availability flag
func GetLocationAvailability(ctx context.Context, locationID uint) (bool, error) {
	if RedisClient == nil {
		return false, redis.Nil
	}
	key := fmt.Sprintf("location:availability:%d", locationID)
	result, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result == "true", nil
}

// PublishBookingUpdate publishes a booking status change to Redis pub/sub
func PublishBookingUpdate(ctx context.Context, bookingID uint, status string, data map[string]interface{}) error {
	if RedisClient == nil {
		return nil
	}

	updateData := map[string]interface{}{
		"bookingId": bookingID,
		"status":    status,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "booking:updates", jsonData).Err()
}

// PublishChatMessage publishes a chat message to the booking's channel so
// any connected listener (other API instances, workers) can pick it up
func PublishChatMessage(ctx context.Context, bookingID uint, payload interface{}) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	channel := fmt.Sprintf("booking:chat:%d", bookingID)
	return RedisClient.Publish(ctx, channel, data).Err()
}
