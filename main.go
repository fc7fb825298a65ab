package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking_lot/internal/api"
	"parking_lot/internal/api/handler"
	"parking_lot/internal/api/middleware"
	"parking_lot/internal/config"
	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
	"parking_lot/internal/repository/memory"
	"parking_lot/internal/repository/postgresql"
	"parking_lot/internal/service"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Setup Storage
	var store repository.Store
	switch cfg.DBDriver {
	case "memory":
		store = memory.NewStore()
		log.Println("Sử dụng storage in-memory (dành cho dev/test).")
	default:
		db, err := postgresql.NewDB(cfg)
		if err != nil {
			log.Fatalf("Không thể kết nối database: %v", err)
		}
		defer db.Close()
		log.Println("Đã kết nối database thành công!")

		if err := postgresql.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("Không thể khởi tạo schema: %v", err)
		}
		store = postgresql.NewStore(db)
	}

	// 3. Seed dữ liệu ban đầu (idempotent)
	adminPassword, err := bcrypt.GenerateFromPassword([]byte(getSeedAdminPassword()), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Không thể hash mật khẩu admin: %v", err)
	}
	seed := repository.SeedData{
		SlotCount: cfg.SeedSlots,
		Admin: &domain.User{
			Email:    "admin@parking.local",
			Username: "admin",
			Password: string(adminPassword),
			Role:     domain.RoleAdmin,
		},
	}
	if err := repository.Seed(context.Background(), store, seed); err != nil {
		log.Fatalf("Không thể seed dữ liệu ban đầu: %v", err)
	}

	// 4. Initialize Services
	authService := service.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTExpirationHours)
	parkingService := service.NewParkingService(store, cfg.BookingGracePeriod)
	userService := service.NewUserService(store)
	statsService := service.NewStatsService(store)

	// 5. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// init websocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket Manager đã được khởi động.")

	// 6. Chạy sweeper quét booking hết hạn ở background
	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	sweeper := service.NewExpirationSweeper(parkingService, cfg.SweepInterval)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Start(sweeperCtx)
	}()

	// 7. Setup HTTP Router
	router := api.SetupRouter(authService, parkingService, userService, statsService, authMiddleware, webSocketManager)

	// 8. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	cancelSweeper()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	select {
	case <-sweeperDone:
	case <-time.After(5 * time.Second):
		log.Println("Sweeper không dừng trong thời gian chờ.")
	}

	log.Println("Server đã tắt.")
}

func getSeedAdminPassword() string {
	if value, exists := os.LookupEnv("SEED_ADMIN_PASSWORD"); exists {
		return value
	}
	log.Println("Biến môi trường 'SEED_ADMIN_PASSWORD' không được đặt, sử dụng mật khẩu mặc định (chỉ dành cho dev).")
	return "admin123"
}
