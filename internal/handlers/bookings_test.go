package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parkspot-ke/parkspot-backend/internal/bookings"
	"github.com/parkspot-ke/parkspot-backend/internal/middleware"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
	"github.com/parkspot-ke/parkspot-backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	svc    *bookings.Service
	owner  models.Owner
	renter models.Renter
	loc    models.Location
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

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

	env := &testEnv{db: db, svc: bookings.NewService(db, nil)}

	env.owner = models.Owner{Name: "Otieno", Username: "otieno", Email: "otieno@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&env.owner).Error)
	env.renter = models.Renter{Name: "Wairimu", Username: "wairimu", Email: "wairimu@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&env.renter).Error)
	env.loc = models.Location{RenterID: env.renter.ID, PlaceName: "Westlands Yard", Address: "12 Waiyaki Way", Price: 100, Available: true}
	require.NoError(t, db.Create(&env.loc).Error)

	r := gin.New()
	auth := r.Group("/api/auth")
	{
		auth.POST("/owner/register", RegisterOwner(db))
		auth.POST("/renter/register", RegisterRenter(db))
		auth.POST("/login", Login(db))
	}
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/request_booking", RequestBooking(env.svc))
		protected.POST("/update_booking_status/:id", UpdateBookingStatus(env.svc))
		protected.POST("/process_payment/:id", ProcessPayment(env.svc))
		protected.POST("/toggle_availability_ajax/:id", ToggleAvailabilityAjax(db, env.svc))
	}
	env.router = r
	return env
}

func (e *testEnv) token(t *testing.T, kind models.ParticipantKind) string {
	t.Helper()
	var id uint
	var username string
	if kind == models.KindOwner {
		id, username = e.owner.ID, e.owner.Username
	} else {
		id, username = e.renter.ID, e.renter.Username
	}
	token, err := utils.GenerateToken(id, username, kind)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) pendingBooking(t *testing.T) *models.Booking {
	t.Helper()
	booking, err := e.svc.RequestBooking(context.Background(), bookings.Request{
		OwnerID:       e.owner.ID,
		RenterID:      e.renter.ID,
		LocationID:    e.loc.ID,
		PreferredDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Contact:       "0712345678",
	})
	require.NoError(t, err)
	return booking
}

func TestRequestBookingEndpoint(t *testing.T) {
	env := setupEnv(t)

	body := gin.H{
		"renterId":      env.renter.ID,
		"locationId":    env.loc.ID,
		"preferredDate": "2024-05-01",
		"contact":       "0712345678",
		"message":       "Need a spot",
	}

	t.Run("requires auth", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/request_booking", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("renters cannot request", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/request_booking", env.token(t, models.KindRenter), body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("owner creates pending booking", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/request_booking", env.token(t, models.KindOwner), body)
		require.Equal(t, http.StatusCreated, w.Code)

		var created models.Booking
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, models.BookingStatusPending, created.Status)
	})

	t.Run("bad date format", func(t *testing.T) {
		bad := gin.H{
			"renterId":      env.renter.ID,
			"locationId":    env.loc.ID,
			"preferredDate": "01/05/2024",
			"contact":       "0712345678",
		}
		w := env.do(t, http.MethodPost, "/api/request_booking", env.token(t, models.KindOwner), bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateBookingStatusEndpoint(t *testing.T) {
	env := setupEnv(t)
	booking := env.pendingBooking(t)
	path := fmt.Sprintf("/api/update_booking_status/%d", booking.ID)

	t.Run("owner side cannot decide", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindOwner), gin.H{"status": "Approved"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindRenter), gin.H{"status": "Cancelled"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("renter approves", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindRenter), gin.H{"status": "Approved"})
		require.Equal(t, http.StatusOK, w.Code)

		var updated models.Booking
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, models.BookingStatusApproved, updated.Status)
	})

	t.Run("second approval conflicts", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindRenter), gin.H{"status": "Approved"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestProcessPaymentEndpoint(t *testing.T) {
	env := setupEnv(t)
	booking := env.pendingBooking(t)
	path := fmt.Sprintf("/api/process_payment/%d", booking.ID)

	t.Run("missing method", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindOwner), gin.H{"amount": 100})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("participant pays once", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindOwner), gin.H{"paymentMethod": "mpesa", "amount": 100})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("second payment conflicts", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindRenter), gin.H{"paymentMethod": "mpesa", "amount": 100})
		assert.Equal(t, http.StatusConflict, w.Code)

		var stored models.Booking
		require.NoError(t, env.db.First(&stored, booking.ID).Error)
		assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	})

	t.Run("unknown booking", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/process_payment/9999", env.token(t, models.KindOwner), gin.H{"paymentMethod": "mpesa", "amount": 100})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestToggleAvailabilityAjaxEndpoint(t *testing.T) {
	env := setupEnv(t)
	path := fmt.Sprintf("/api/toggle_availability_ajax/%d", env.loc.ID)

	t.Run("owners cannot toggle", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindOwner), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("renter toggles off and back on", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, env.token(t, models.KindRenter), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success   bool `json:"success"`
			Available bool `json:"available"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.False(t, resp.Available)

		w = env.do(t, http.MethodPost, path, env.token(t, models.KindRenter), nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Available)

		// Each flip leaves an audit row.
		var events int64
		require.NoError(t, env.db.Model(&models.AvailabilityEvent{}).Where("location_id = ?", env.loc.ID).Count(&events).Error)
		assert.EqualValues(t, 2, events)
	})

	t.Run("unknown location", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/toggle_availability_ajax/9999", env.token(t, models.KindRenter), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
