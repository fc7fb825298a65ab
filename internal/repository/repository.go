package repository

import (
	"context"
	"errors"
	"time"

	"parking_lot/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

type SlotRepository interface {
	CreateMany(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error)
	FindByID(ctx context.Context, id int) (*domain.Slot, error)
	FindAll(ctx context.Context) ([]domain.Slot, error)
	// MaxNumberSuffix trả về hậu tố số lớn nhất trong các số hiển thị "S<n>" (0 nếu chưa có slot).
	MaxNumberSuffix(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status domain.SlotStatus) (int, error)
	// UpdateIfStatus ghi toàn bộ trường mutable của slot, nhưng chỉ khi trạng thái
	// trong storage vẫn là expected. Trả về false nếu slot đã bị thay đổi bởi phiên khác.
	UpdateIfStatus(ctx context.Context, slot *domain.Slot, expected domain.SlotStatus) (bool, error)
	// DeleteIfRemovable xóa slot, nhưng chỉ khi nó đang available hoặc maintenance.
	// Trả về false nếu slot không tồn tại hoặc đang ở trạng thái khác.
	DeleteIfRemovable(ctx context.Context, id int) (bool, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	FindByID(ctx context.Context, id int) (*domain.Booking, error)
	// FindLiveByUserID tìm booking pending/active của người dùng (bất biến: tối đa một).
	FindLiveByUserID(ctx context.Context, userID int) (*domain.Booking, error)
	FindByUserID(ctx context.Context, userID int) ([]domain.Booking, error)
	FindExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	// UpdateStatusIf chuyển trạng thái chỉ khi trạng thái hiện tại vẫn là from
	// (optimistic concurrency cho sweeper). Trả về false nếu booking đã đổi trạng thái.
	UpdateStatusIf(ctx context.Context, id int, from, to domain.BookingStatus) (bool, error)
}

type LogRepository interface {
	Create(ctx context.Context, plog *domain.ParkingLog) (*domain.ParkingLog, error)
	FindOpenBySlotID(ctx context.Context, slotID int) (*domain.ParkingLog, error)
	FindOpenByBookingID(ctx context.Context, bookingID int) (*domain.ParkingLog, error)
	// Close ghi OutTime cho một dòng log đang mở, đúng một lần.
	Close(ctx context.Context, id int, outTime time.Time) error
	FindAll(ctx context.Context) ([]domain.ParkingLog, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	// AvgDurationMinutes tính thời gian đỗ trung bình (phút) trên các phiên đã đóng.
	AvgDurationMinutes(ctx context.Context) (float64, error)
	// DailyUniqueVehicles đếm số biển số duy nhất theo ngày (key "2006-01-02") kể từ since.
	DailyUniqueVehicles(ctx context.Context, since time.Time) (map[string]int, error)
}

// Store gom bốn collection và cung cấp transaction đa collection.
// Mọi chuyển trạng thái slot/booking/log phải chạy trong WithinTx: closure nhận một
// Store gắn với transaction, đọc lại trạng thái bên trong đó rồi mới ghi.
type Store interface {
	Users() UserRepository
	Slots() SlotRepository
	Bookings() BookingRepository
	Logs() LogRepository
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
