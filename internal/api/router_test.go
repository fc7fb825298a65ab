package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"parking_lot/internal/api/handler"
	"parking_lot/internal/api/middleware"
	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
	"parking_lot/internal/repository/memory"
	"parking_lot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) (*gin.Engine, repository.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repository.Seed(context.Background(), store, repository.SeedData{
		SlotCount: 3,
		Admin: &domain.User{
			Email: "admin@parking.local", Username: "admin",
			Password: string(adminHash), Role: domain.RoleAdmin,
		},
	}))

	authService := service.NewAuthService(store.Users(), "test-secret", time.Hour)
	parkingService := service.NewParkingService(store, 30*time.Minute)
	userService := service.NewUserService(store)
	statsService := service.NewStatsService(store)
	authMw := middleware.NewAuthMiddleware(authService)

	router := SetupRouter(authService, parkingService, userService, statsService, authMw, handler.NewWebSocketManager())
	return router, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginAs(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp domain.AuthResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestAuthFlowAndRoleGuards(t *testing.T) {
	router, _ := newTestRouter(t)

	// Chưa có token thì không vào được API.
	w := doJSON(t, router, http.MethodGet, "/api/v1/slots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Đăng ký rồi đăng nhập.
	w = doJSON(t, router, http.MethodPost, "/auth/register", "", gin.H{
		"email": "driver@test.local", "username": "driver",
		"password": "matkhau123", "vehicle_number": "29A-123.45",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	userToken := loginAs(t, router, "driver@test.local", "matkhau123")

	// User thường xem được danh sách slot.
	w = doJSON(t, router, http.MethodGet, "/api/v1/slots", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []domain.Slot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
	assert.Len(t, slots, 3)

	// Nhưng bị chặn ở các route nhân viên/admin.
	w = doJSON(t, router, http.MethodGet, "/api/v1/slots/details", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin thì vào được.
	adminToken := loginAs(t, router, "admin@parking.local", "admin123")
	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	router, store := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/auth/register", "", gin.H{
		"email": "driver@test.local", "username": "driver",
		"password": "matkhau123", "vehicle_number": "29A-123.45",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	token := loginAs(t, router, "driver@test.local", "matkhau123")

	slots, err := store.Slots().FindAll(context.Background())
	require.NoError(t, err)
	slotID := slots[0].ID

	// Đặt chỗ.
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", token, gin.H{"slot_id": slotID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booking domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &booking))
	assert.Equal(t, domain.BookingPending, booking.Status)

	// Đặt chỗ thứ hai bị chặn 409.
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", token, gin.H{"slot_id": slots[1].ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Xe đến: check-in theo booking.
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings/"+strconv.Itoa(booking.ID)+"/check-in", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Phiên đỗ hiện tại trả về đủ booking/slot/log.
	w = doJSON(t, router, http.MethodGet, "/api/v1/parking/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session domain.ActiveSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, booking.ID, session.Booking.ID)
	assert.Equal(t, slotID, session.Slot.ID)

	// Xe ra.
	w = doJSON(t, router, http.MethodPost, "/api/v1/parking/exit/"+strconv.Itoa(slotID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/parking/session", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Lịch sử booking của chính mình.
	w = doJSON(t, router, http.MethodGet, "/api/v1/bookings/my", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, domain.BookingCompleted, history[0].Status)
}

