package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingLog là một dòng nhật ký đỗ xe, chỉ ghi thêm (append-only):
// tạo lúc xe vào với OutTime null, cập nhật đúng một lần lúc xe ra.
// SlotNumber được sao chép lại để lịch sử vẫn đọc được sau khi slot bị xóa.
type ParkingLog struct {
	ID            int       `json:"id"`
	SlotID        int       `json:"slot_id"`
	SlotNumber    string    `json:"slot_number"`
	UserID        int       `json:"user_id"`
	VehicleNumber string    `json:"vehicle_number"`
	BookingID     int       `json:"booking_id"`
	InTime        time.Time `json:"in_time"`
	OutTime       null.Time `json:"out_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// DetailedLog là log kèm thông tin người dùng cho màn hình admin.
// User là "Walk-in/Unknown" nếu tài khoản đã bị xóa.
type DetailedLog struct {
	ID            int       `json:"id"`
	SlotNumber    string    `json:"slot_number"`
	VehicleNumber string    `json:"vehicle_number"`
	InTime        time.Time `json:"in_time"`
	OutTime       null.Time `json:"out_time"`
	User          UserInfo  `json:"user"`
}

type ChartData struct {
	Labels []string `json:"labels"` // Ngày, dạng "02/01"
	Data   []int    `json:"data"`   // Số xe (biển số duy nhất) mỗi ngày
}

type Stats struct {
	TotalSlots         int       `json:"total_slots"`
	OccupiedSlots      int       `json:"occupied_slots"`
	NonOccupiedSlots   int       `json:"non_occupied_slots"`
	ParksToday         int       `json:"parks_today"`
	AvgParkingDuration float64   `json:"avg_parking_duration"` // Phút, trung bình trên các phiên đã đóng
	ChartData          ChartData `json:"chart_data"`
}
