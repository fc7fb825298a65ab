package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotBooked      SlotStatus = "booked" // Đang giữ chỗ cho một booking pending, chưa có xe
	SlotOccupied    SlotStatus = "occupied"
	SlotMaintenance SlotStatus = "maintenance"
)

// Slot là một chỗ đỗ vật lý. Bất biến:
//   - status == occupied  <=> UserID/CurrentVehicle/InTime khác null và CurrentBookingID
//     trỏ tới một booking đang active
//   - status == booked    <=> CurrentBookingID trỏ tới một booking pending, các trường
//     occupant còn lại là null
//   - các trạng thái khác: toàn bộ trường occupant là null
type Slot struct {
	ID               int         `json:"id"`
	Number           string      `json:"number"` // Số hiển thị, duy nhất: S1, S2, ...
	Status           SlotStatus  `json:"status"`
	UserID           null.Int    `json:"user_id"`
	CurrentVehicle   null.String `json:"current_vehicle"`
	InTime           null.Time   `json:"in_time"`
	CurrentBookingID null.Int    `json:"current_booking_id"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// SlotDetail bổ sung thông tin người đang đỗ cho màn hình nhân viên/admin.
type SlotDetail struct {
	Slot
	User *UserInfo `json:"user,omitempty"`
}

type AddSlotsDTO struct {
	Count int `json:"count" binding:"required"`
}

type SetMaintenanceDTO struct {
	Maintenance bool `json:"maintenance"`
}

type SlotDetailsResponse struct {
	Slots         []SlotDetail `json:"slots"`
	OccupiedSlots []SlotDetail `json:"occupied_slots"`
}
