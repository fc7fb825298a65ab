package handler

import (
	"net/http"
	"strconv"

	"parking_lot/internal/domain"
	"parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler: quản lý tài khoản, số liệu và nhật ký, chỉ cho admin.
type AdminHandler struct {
	parkingService *service.ParkingService
	userService    *service.UserService
	statsService   *service.StatsService
}

func NewAdminHandler(ps *service.ParkingService, us *service.UserService, ss *service.StatsService) *AdminHandler {
	return &AdminHandler{parkingService: ps, userService: us, statsService: ss}
}

// POST /admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var dto domain.CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	user, err := actions.CreateUser(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err, "Không thể tạo người dùng")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	users, err := actions.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Lỗi khi lấy danh sách người dùng")
		return
	}
	c.JSON(http.StatusOK, users)
}

// PUT /admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID không hợp lệ"})
		return
	}
	var dto domain.UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	user, err := actions.UpdateUser(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err, "Không thể cập nhật người dùng")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID không hợp lệ"})
		return
	}

	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	if err := actions.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err, "Không thể xóa người dùng")
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// GET /admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	stats, err := actions.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Lỗi khi tính số liệu")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /admin/logs
func (h *AdminHandler) GetLogs(c *gin.Context) {
	actions, ok := actionsFrom(c, h.parkingService, h.userService, h.statsService)
	if !ok {
		return
	}
	logs, err := actions.LogsDetailed(c.Request.Context())
	if err != nil {
		respondError(c, err, "Lỗi khi lấy nhật ký đỗ xe")
		return
	}
	c.JSON(http.StatusOK, logs)
}
