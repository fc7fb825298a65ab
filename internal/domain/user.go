package domain

import "time"

type Role string

const (
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
	RoleGuest    Role = "guest" // Tài khoản tạm cho xe vãng lai do nhân viên ghi nhận
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEmployee, RoleAdmin, RoleGuest:
		return true
	}
	return false
}

// IsStaff: nhân viên và admin đều có quyền thao tác trên mọi chỗ đỗ.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

type User struct {
	ID            int       `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Password      string    `json:"-"` // Không bao giờ trả về password hash trong JSON
	Phone         string    `json:"phone,omitempty"`
	VehicleNumber string    `json:"vehicle_number,omitempty"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Actor là danh tính đã xác thực của request hiện tại (lấy từ JWT claims).
type Actor struct {
	ID            int    `json:"id"`
	Role          Role   `json:"role"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
}

type RegisterUserDTO struct {
	Email         string `json:"email" binding:"required,email"`
	Username      string `json:"username" binding:"required,min=3,max=50"`
	Password      string `json:"password" binding:"required,min=6,max=100"`
	Phone         string `json:"phone,omitempty"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
}

type LoginUserDTO struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token         string `json:"token"`
	UserID        int    `json:"user_id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
}

// DTO cho admin tạo/sửa người dùng
type CreateUserDTO struct {
	Email         string `json:"email" binding:"required,email"`
	Username      string `json:"username" binding:"required,min=3,max=50"`
	Password      string `json:"password" binding:"required,min=6,max=100"`
	Phone         string `json:"phone,omitempty"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
	Role          string `json:"role,omitempty"` // Mặc định "user"
}

type UpdateUserDTO struct {
	Email         string `json:"email,omitempty"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	Phone         string `json:"phone,omitempty"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
	Role          string `json:"role,omitempty"`
}

// UserInfo là thông tin công khai kèm theo slot/log khi trả về API.
type UserInfo struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
}
