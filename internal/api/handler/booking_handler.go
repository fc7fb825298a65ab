package handler

import (
	"net/http"
	"strconv"

	"parking_lot/internal/domain"
	"parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	parkingService *service.ParkingService
	userService    *service.UserService
	statsService   *service.StatsService
	wsManager      *WebSocketManager
}

func NewBookingHandler(ps *service.ParkingService, us *service.UserService, ss *service.StatsService, wsm *WebSocketManager) *BookingHandler {
	return &BookingHandler{parkingService: ps, userService: us, statsService: ss, wsManager: wsm}
}

func (h *BookingHandler) notifySlots(c *gin.Context) {
	if h.wsManager == nil {
		return
	}
	slots, err := h.parkingService.ListSlots(c.Request.Context())
	if err != nil {
		return
	}
	h.wsManager.BroadcastSlotUpdate(slots)
}

func bookingIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking ID không hợp lệ"})
		return 0, false
	}
	return id, true
}

// POST /bookings
func (h *BookingHandler) BookSlot(c *gin.Context) {
	var dto domain.BookSlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	booking, err := actions.BookSlot(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err, "Không thể đặt chỗ")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusCreated, booking)
}

// DELETE /bookings/:id
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	if err := actions.CancelBooking(c.Request.Context(), bookingID); err != nil {
		respondError(c, err, "Không thể hủy đặt chỗ")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusOK, gin.H{"message": "Đã hủy đặt chỗ"})
}

// POST /bookings/:id/check-in (xe đến theo đặt chỗ trước)
func (h *BookingHandler) CheckInBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	if err := actions.CheckInBooking(c.Request.Context(), bookingID); err != nil {
		respondError(c, err, "Không thể check-in theo đặt chỗ")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusOK, gin.H{"message": "Check-in thành công"})
}

// POST /parking/check-in (đỗ xe trực tiếp, không đặt trước)
func (h *BookingHandler) CheckIn(c *gin.Context) {
	var dto domain.CheckInDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	booking, err := actions.CheckIn(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err, "Không thể check-in")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusCreated, booking)
}

// POST /parking/exit/:id (kết thúc phiên đỗ trên slot :id)
func (h *BookingHandler) Exit(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	if err := actions.Exit(c.Request.Context(), slotID); err != nil {
		respondError(c, err, "Không thể kết thúc phiên đỗ")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusOK, gin.H{"message": "Xe đã ra khỏi bãi"})
}

// GET /bookings/my
func (h *BookingHandler) MyBookings(c *gin.Context) {
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	bookings, err := actions.MyBookings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Lỗi khi lấy lịch sử đặt chỗ")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /parking/session (phiên đỗ hiện tại của người dùng)
func (h *BookingHandler) MySession(c *gin.Context) {
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	session, err := actions.MySession(c.Request.Context())
	if err != nil {
		respondError(c, err, "Lỗi khi lấy phiên đỗ hiện tại")
		return
	}
	c.JSON(http.StatusOK, session)
}
