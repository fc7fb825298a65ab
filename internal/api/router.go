package api

import (
	"parking_lot/internal/api/handler"
	"parking_lot/internal/api/middleware"
	"parking_lot/internal/domain"
	"parking_lot/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(as *service.AuthService, ps *service.ParkingService, us *service.UserService,
	ss *service.StatsService, authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint (không cần auth cho real-time connection)
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	staff := authMw.AuthorizeRole(domain.RoleEmployee, domain.RoleAdmin)
	adminOnly := authMw.AuthorizeRole(domain.RoleAdmin)

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		slotH := handler.NewSlotHandler(ps, us, ss, wsManager)
		slotRoutes := v1.Group("/slots")
		{
			slotRoutes.GET("", slotH.GetSlots)
			slotRoutes.GET("/details", staff, slotH.GetSlotDetails)
			slotRoutes.POST("", adminOnly, slotH.AddSlots)
			slotRoutes.DELETE("/:id", adminOnly, slotH.DeleteSlot)
			slotRoutes.PUT("/:id/maintenance", adminOnly, slotH.SetMaintenance)
			slotRoutes.POST("/:id/force-exit", adminOnly, slotH.ForceExit)
			slotRoutes.POST("/:id/drive-in", staff, slotH.AssignDriveIn)
		}

		bookingH := handler.NewBookingHandler(ps, us, ss, wsManager)
		bookingRoutes := v1.Group("/bookings")
		{
			bookingRoutes.POST("", bookingH.BookSlot)
			bookingRoutes.GET("/my", bookingH.MyBookings)
			bookingRoutes.DELETE("/:id", bookingH.CancelBooking)
			bookingRoutes.POST("/:id/check-in", bookingH.CheckInBooking)
		}

		parkingRoutes := v1.Group("/parking")
		{
			parkingRoutes.POST("/check-in", bookingH.CheckIn)
			parkingRoutes.POST("/exit/:id", bookingH.Exit)
			parkingRoutes.GET("/session", bookingH.MySession)
		}

		adminH := handler.NewAdminHandler(ps, us, ss)
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(adminOnly)
		{
			adminRoutes.POST("/users", adminH.CreateUser)
			adminRoutes.GET("/users", adminH.GetUsers)
			adminRoutes.PUT("/users/:id", adminH.UpdateUser)
			adminRoutes.DELETE("/users/:id", adminH.DeleteUser)
			adminRoutes.GET("/stats", adminH.GetStats)
			adminRoutes.GET("/logs", adminH.GetLogs)
		}
	}
	return r
}
