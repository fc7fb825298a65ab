package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type BookingStatus string

const (
	BookingPending        BookingStatus = "pending"
	BookingActive         BookingStatus = "active"
	BookingCompleted      BookingStatus = "completed"
	BookingCancelled      BookingStatus = "cancelled"
	BookingExpired        BookingStatus = "expired"
	BookingForceCompleted BookingStatus = "force_completed"
)

// bookingTransitions là bảng chuyển trạng thái cố định của booking.
// Các trạng thái không có trong bảng là trạng thái kết thúc.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingActive, BookingCancelled, BookingExpired},
	BookingActive:  {BookingCompleted, BookingForceCompleted},
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// IsLive: booking còn đang chiếm quyền đặt chỗ của người dùng
// (bất biến mỗi người chỉ có một booking pending/active).
func (s BookingStatus) IsLive() bool {
	return s == BookingPending || s == BookingActive
}

// Booking gắn một người dùng/xe với một chỗ đỗ.
// EndTime: với booking pending là hạn chót check-in (StartTime + grace period),
// với booking đã kết thúc là thời điểm xe ra thực tế.
type Booking struct {
	ID            int           `json:"id"`
	SlotID        int           `json:"slot_id"`
	UserID        int           `json:"user_id"`
	VehicleNumber string        `json:"vehicle_number"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       null.Time     `json:"end_time"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type BookSlotDTO struct {
	SlotID        int    `json:"slot_id" binding:"required"`
	VehicleNumber string `json:"vehicle_number,omitempty"` // Mặc định lấy từ hồ sơ người dùng
	StartTime     string `json:"start_time,omitempty"`     // RFC3339, mặc định là bây giờ
}

type CheckInDTO struct {
	SlotID        int    `json:"slot_id" binding:"required"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
}

type DriveInDTO struct {
	VehicleNumber string `json:"vehicle_number" binding:"required"`
	DriverName    string `json:"driver_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// ActiveSession là góc nhìn "phiên đỗ hiện tại" của một người dùng:
// booking active + slot đang chiếm + log đang mở, luôn nhất quán với nhau.
type ActiveSession struct {
	Booking Booking    `json:"booking"`
	Slot    Slot       `json:"slot"`
	Log     ParkingLog `json:"log"`
}
