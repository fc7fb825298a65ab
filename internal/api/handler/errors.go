package handler

import (
	"errors"
	"net/http"

	"parking_lot/internal/api/middleware"
	"parking_lot/internal/repository"
	"parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError map các sentinel của tầng service sang HTTP status.
// fallback là message chung khi lỗi không thuộc nhóm nào (500).
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAuthorization):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidTransition), errors.Is(err, repository.ErrDuplicateEntry):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		// Bao gồm cả ErrConsistency: dữ liệu lệch là lỗi phía server.
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
	}
}

// actionsFrom dựng facade hành động cho actor của request hiện tại.
func actionsFrom(c *gin.Context, parking *service.ParkingService, users *service.UserService, stats *service.StatsService) (*service.Actions, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Thiếu thông tin xác thực"})
		return nil, false
	}
	return service.ActionsFor(actor, parking, users, stats), true
}
