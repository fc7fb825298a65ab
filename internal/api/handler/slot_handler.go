package handler

import (
	"net/http"
	"strconv"

	"parking_lot/internal/domain"
	"parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

type SlotHandler struct {
	parkingService *service.ParkingService
	userService    *service.UserService
	statsService   *service.StatsService
	wsManager      *WebSocketManager
}

func NewSlotHandler(ps *service.ParkingService, us *service.UserService, ss *service.StatsService, wsm *WebSocketManager) *SlotHandler {
	return &SlotHandler{parkingService: ps, userService: us, statsService: ss, wsManager: wsm}
}

// notifySlots đẩy snapshot slot mới nhất cho các dashboard sau một chuyển trạng thái.
func (h *SlotHandler) notifySlots(c *gin.Context) {
	if h.wsManager == nil {
		return
	}
	slots, err := h.parkingService.ListSlots(c.Request.Context())
	if err != nil {
		return
	}
	h.wsManager.BroadcastSlotUpdate(slots)
}

func slotIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slot ID không hợp lệ"})
		return 0, false
	}
	return id, true
}

// GET /slots
func (h *SlotHandler) GetSlots(c *gin.Context) {
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	slots, err := actions.ViewSlots(c.Request.Context())
	if err != nil {
		respondError(c, err, "Lỗi khi lấy danh sách chỗ đỗ")
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GET /slots/details (nhân viên/admin: kèm thông tin người đang đỗ)
func (h *SlotHandler) GetSlotDetails(c *gin.Context) {
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	details, err := actions.SlotDetails(c.Request.Context())
	if err != nil {
		respondError(c, err, "Lỗi khi lấy chi tiết chỗ đỗ")
		return
	}
	c.JSON(http.StatusOK, details)
}

// POST /slots (admin)
func (h *SlotHandler) AddSlots(c *gin.Context) {
	var dto domain.AddSlotsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	slots, err := actions.AddSlots(c.Request.Context(), dto.Count)
	if err != nil {
		respondError(c, err, "Không thể thêm chỗ đỗ")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusCreated, slots)
}

// DELETE /slots/:id (admin)
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	if err := actions.RemoveSlot(c.Request.Context(), slotID); err != nil {
		respondError(c, err, "Không thể xóa chỗ đỗ")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusNoContent, nil)
}

// PUT /slots/:id/maintenance (admin)
func (h *SlotHandler) SetMaintenance(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}
	var dto domain.SetMaintenanceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	if err := actions.SetMaintenance(c.Request.Context(), slotID, dto.Maintenance); err != nil {
		respondError(c, err, "Không thể đổi trạng thái bảo trì")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusOK, gin.H{"message": "Đã cập nhật trạng thái bảo trì"})
}

// POST /slots/:id/force-exit (admin)
func (h *SlotHandler) ForceExit(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	if err := actions.ForceExit(c.Request.Context(), slotID); err != nil {
		respondError(c, err, "Không thể kết thúc phiên đỗ")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusOK, gin.H{"message": "Đã kết thúc phiên đỗ"})
}

// POST /slots/:id/drive-in (nhân viên/admin: ghi nhận xe vãng lai)
func (h *SlotHandler) AssignDriveIn(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}
	var dto domain.DriveInDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	guest, booking, err := actions.AssignDriveIn(c.Request.Context(), slotID, dto)
	if err != nil {
		respondError(c, err, "Không thể ghi nhận xe vãng lai")
		return
	}
	h.notifySlots(c)
	c.JSON(http.StatusCreated, gin.H{"guest": guest, "booking": booking})
}
