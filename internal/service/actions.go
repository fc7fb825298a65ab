package service

import (
	"context"
	"fmt"
	"time"

	"parking_lot/internal/domain"
)

// UserActions là các thao tác mọi người dùng đã đăng nhập được phép làm.
type UserActions interface {
	ViewSlots(ctx context.Context) ([]domain.Slot, error)
	BookSlot(ctx context.Context, dto domain.BookSlotDTO) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID int) error
	CheckIn(ctx context.Context, dto domain.CheckInDTO) (*domain.Booking, error)
	CheckInBooking(ctx context.Context, bookingID int) error
	Exit(ctx context.Context, slotID int) error
	MyBookings(ctx context.Context) ([]domain.Booking, error)
	MySession(ctx context.Context) (*domain.ActiveSession, error)
}

// EmployeeActions bổ sung các thao tác vận hành bãi xe của nhân viên.
type EmployeeActions interface {
	UserActions
	SlotDetails(ctx context.Context) (*domain.SlotDetailsResponse, error)
	AssignDriveIn(ctx context.Context, slotID int, dto domain.DriveInDTO) (*domain.User, *domain.Booking, error)
}

// AdminActions bổ sung quản trị slot, tài khoản và số liệu.
type AdminActions interface {
	EmployeeActions
	AddSlots(ctx context.Context, count int) ([]domain.Slot, error)
	RemoveSlot(ctx context.Context, slotID int) error
	SetMaintenance(ctx context.Context, slotID int, on bool) error
	ForceExit(ctx context.Context, slotID int) error
	CreateUser(ctx context.Context, dto domain.CreateUserDTO) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id int, dto domain.UpdateUserDTO) (*domain.User, error)
	DeleteUser(ctx context.Context, id int) error
	Stats(ctx context.Context) (*domain.Stats, error)
	LogsDetailed(ctx context.Context) ([]domain.DetailedLog, error)
}

// Actions gắn một Actor đã xác thực với các service phía dưới. Middleware đã
// chặn theo role ở tầng route, nhưng từng method vẫn tự kiểm tra lại quyền:
// facade không tin rằng caller đã đi qua đúng route.
type Actions struct {
	actor   domain.Actor
	parking *ParkingService
	users   *UserService
	stats   *StatsService
}

var _ AdminActions = (*Actions)(nil)

// ActionsFor dựng facade cho request hiện tại. Giá trị trả về thỏa mãn
// AdminActions; caller thu hẹp xuống UserActions/EmployeeActions theo role.
func ActionsFor(actor domain.Actor, parking *ParkingService, users *UserService, stats *StatsService) *Actions {
	return &Actions{actor: actor, parking: parking, users: users, stats: stats}
}

func (a *Actions) requireStaff() error {
	if !a.actor.Role.IsStaff() {
		return fmt.Errorf("%w: cần quyền nhân viên", ErrAuthorization)
	}
	return nil
}

func (a *Actions) requireAdmin() error {
	if a.actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: cần quyền admin", ErrAuthorization)
	}
	return nil
}

// --- UserActions ---

// ViewSlots trả về danh sách slot không kèm thông tin người đỗ.
func (a *Actions) ViewSlots(ctx context.Context) ([]domain.Slot, error) {
	return a.parking.ListSlots(ctx)
}

func (a *Actions) BookSlot(ctx context.Context, dto domain.BookSlotDTO) (*domain.Booking, error) {
	vehicle := dto.VehicleNumber
	if vehicle == "" {
		vehicle = a.actor.VehicleNumber
	}
	start := time.Now().UTC()
	if dto.StartTime != "" {
		parsed, err := time.Parse(time.RFC3339, dto.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: start_time phải theo định dạng RFC3339", ErrValidation)
		}
		start = parsed
	}
	return a.parking.BookSlot(ctx, a.actor.ID, dto.SlotID, vehicle, start)
}

func (a *Actions) CancelBooking(ctx context.Context, bookingID int) error {
	return a.parking.CancelBooking(ctx, a.actor.ID, bookingID)
}

func (a *Actions) CheckIn(ctx context.Context, dto domain.CheckInDTO) (*domain.Booking, error) {
	vehicle := dto.VehicleNumber
	if vehicle == "" {
		vehicle = a.actor.VehicleNumber
	}
	return a.parking.CheckIn(ctx, a.actor.ID, dto.SlotID, vehicle, time.Now())
}

func (a *Actions) CheckInBooking(ctx context.Context, bookingID int) error {
	return a.parking.CheckInBooking(ctx, a.actor.ID, bookingID, time.Now())
}

func (a *Actions) Exit(ctx context.Context, slotID int) error {
	return a.parking.Exit(ctx, slotID, a.actor)
}

func (a *Actions) MyBookings(ctx context.Context) ([]domain.Booking, error) {
	return a.parking.GetBookingsForUser(ctx, a.actor.ID)
}

func (a *Actions) MySession(ctx context.Context) (*domain.ActiveSession, error) {
	return a.parking.GetActiveSession(ctx, a.actor.ID)
}

// --- EmployeeActions ---

func (a *Actions) SlotDetails(ctx context.Context) (*domain.SlotDetailsResponse, error) {
	if err := a.requireStaff(); err != nil {
		return nil, err
	}
	return a.parking.GetSlotDetails(ctx)
}

func (a *Actions) AssignDriveIn(ctx context.Context, slotID int, dto domain.DriveInDTO) (*domain.User, *domain.Booking, error) {
	if err := a.requireStaff(); err != nil {
		return nil, nil, err
	}
	return a.parking.AssignDriveIn(ctx, slotID, dto)
}

// --- AdminActions ---

func (a *Actions) AddSlots(ctx context.Context, count int) ([]domain.Slot, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	return a.parking.AddSlots(ctx, count)
}

func (a *Actions) RemoveSlot(ctx context.Context, slotID int) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.parking.RemoveSlot(ctx, slotID)
}

func (a *Actions) SetMaintenance(ctx context.Context, slotID int, on bool) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.parking.SetMaintenance(ctx, slotID, on)
}

func (a *Actions) ForceExit(ctx context.Context, slotID int) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.parking.ForceExit(ctx, slotID)
}

func (a *Actions) CreateUser(ctx context.Context, dto domain.CreateUserDTO) (*domain.User, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	return a.users.CreateUser(ctx, dto)
}

func (a *Actions) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	return a.users.GetUsers(ctx)
}

func (a *Actions) UpdateUser(ctx context.Context, id int, dto domain.UpdateUserDTO) (*domain.User, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	return a.users.UpdateUser(ctx, id, dto)
}

func (a *Actions) DeleteUser(ctx context.Context, id int) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.users.DeleteUser(ctx, a.actor.ID, id)
}

func (a *Actions) Stats(ctx context.Context) (*domain.Stats, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	return a.stats.GetStats(ctx)
}

func (a *Actions) LogsDetailed(ctx context.Context) ([]domain.DetailedLog, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	return a.parking.GetLogsDetailed(ctx)
}
