package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBDriver   string // "postgres" hoặc "memory" (dành cho dev/test)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	JWTSecret          string
	JWTExpirationHours time.Duration

	BookingGracePeriod time.Duration // Thời gian ân hạn cho booking pending
	SweepInterval      time.Duration // Chu kỳ quét booking hết hạn
	SeedSlots          int           // Số chỗ đỗ khởi tạo khi database trống
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	graceMinutes, _ := strconv.Atoi(getEnv("BOOKING_GRACE_MINUTES", "30"))
	sweepSeconds, _ := strconv.Atoi(getEnv("SWEEP_INTERVAL_SECONDS", "60"))
	seedSlots, _ := strconv.Atoi(getEnv("SEED_SLOTS", "20"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parking"),
		DBPassword: getEnv("DB_PASSWORD", "parking"),
		DBName:     getEnv("DB_NAME", "parking_lot"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:          getEnv("JWT_SECRET", "doi-secret-nay-truoc-khi-deploy"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		BookingGracePeriod: time.Duration(graceMinutes) * time.Minute,
		SweepInterval:      time.Duration(sweepSeconds) * time.Second,
		SeedSlots:          seedSlots,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}
