package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"
)

// Phân loại lỗi trả về cho tầng API. Handler map các sentinel này sang HTTP status.
var ErrValidation = errors.New("dữ liệu đầu vào không hợp lệ")
var ErrConflict = errors.New("trạng thái hiện tại không cho phép thao tác này")
var ErrAuthorization = errors.New("không có quyền thực hiện thao tác này")
var ErrInvalidTransition = errors.New("chuyển trạng thái booking không hợp lệ")
var ErrConsistency = errors.New("dữ liệu slot/booking/log không nhất quán")

// ParkingService là nơi duy nhất được phép ghi slot.Status, slot.CurrentBookingID
// và booking.Status. Mọi chuyển trạng thái chạy trong một transaction của Store:
// đọc lại trạng thái hiện hành bên trong transaction rồi mới ghi, để hai phiên
// client (hoặc sweeper) đua nhau không bao giờ áp dụng được một nửa thao tác.
type ParkingService struct {
	store       repository.Store
	gracePeriod time.Duration
}

func NewParkingService(store repository.Store, gracePeriod time.Duration) *ParkingService {
	return &ParkingService{store: store, gracePeriod: gracePeriod}
}

// transitionBooking áp bảng chuyển trạng thái cố định của booking.
func transitionBooking(booking *domain.Booking, to domain.BookingStatus) error {
	if !booking.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s (booking %d)", ErrInvalidTransition, booking.Status, to, booking.ID)
	}
	booking.Status = to
	return nil
}

// --- Quản lý slot (admin) ---

func (s *ParkingService) AddSlots(ctx context.Context, count int) ([]domain.Slot, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: số lượng chỗ đỗ phải là số nguyên dương, nhận được %d", ErrValidation, count)
	}

	var created []domain.Slot
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		maxSuffix, err := tx.Slots().MaxNumberSuffix(ctx)
		if err != nil {
			return err
		}
		slots := make([]domain.Slot, 0, count)
		for i := 1; i <= count; i++ {
			slots = append(slots, domain.Slot{
				Number: fmt.Sprintf("S%d", maxSuffix+i),
				Status: domain.SlotAvailable,
			})
		}
		created, err = tx.Slots().CreateMany(ctx, slots)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ParkingService) RemoveSlot(ctx context.Context, slotID int) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		// Chỉ xóa được slot trống hoặc đang bảo trì; điều kiện nằm ngay trong câu
		// DELETE để check-in song song không thể chen vào giữa. Slot occupied phải
		// force-exit trước; slot booked phải chờ hủy/hết hạn booking.
		ok, err := tx.Slots().DeleteIfRemovable(ctx, slotID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		slot, err := tx.Slots().FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: không thể xóa chỗ đỗ %s đang ở trạng thái %s", ErrConflict, slot.Number, slot.Status)
	})
}

func (s *ParkingService) SetMaintenance(ctx context.Context, slotID int, on bool) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		slot, err := tx.Slots().FindByID(ctx, slotID)
		if err != nil {
			return err
		}

		if on {
			if slot.Status != domain.SlotAvailable {
				return fmt.Errorf("%w: chỉ đưa được chỗ đỗ trống vào bảo trì, %s đang ở trạng thái %s", ErrConflict, slot.Number, slot.Status)
			}
			expected := slot.Status
			slot.Status = domain.SlotMaintenance
			ok, err := tx.Slots().UpdateIfStatus(ctx, slot, expected)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: chỗ đỗ %s vừa bị thay đổi bởi phiên khác", ErrConflict, slot.Number)
			}
			return nil
		}

		if slot.Status != domain.SlotMaintenance {
			return fmt.Errorf("%w: chỗ đỗ %s không ở trạng thái bảo trì", ErrConflict, slot.Number)
		}
		expected := slot.Status
		slot.Status = domain.SlotAvailable
		ok, err := tx.Slots().UpdateIfStatus(ctx, slot, expected)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: chỗ đỗ %s vừa bị thay đổi bởi phiên khác", ErrConflict, slot.Number)
		}
		return nil
	})
}

// --- Đặt chỗ trước (reservation với thời gian ân hạn) ---

// BookSlot giữ chỗ cho người dùng: tạo booking pending với hạn check-in
// startTime + gracePeriod và chuyển slot sang trạng thái booked.
func (s *ParkingService) BookSlot(ctx context.Context, userID int, slotID int, vehicleNumber string, startTime time.Time) (*domain.Booking, error) {
	if vehicleNumber == "" {
		return nil, fmt.Errorf("%w: thiếu biển số xe", ErrValidation)
	}

	var booking *domain.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		// Bất biến một-booking-mỗi-người: kiểm tra lại bên trong transaction.
		if _, err := tx.Bookings().FindLiveByUserID(ctx, userID); err == nil {
			return fmt.Errorf("%w: người dùng đã có booking đang hiệu lực", ErrConflict)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		slot, err := tx.Slots().FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != domain.SlotAvailable {
			return fmt.Errorf("%w: chỗ đỗ %s không còn trống (%s)", ErrConflict, slot.Number, slot.Status)
		}

		start := startTime.UTC()
		b := &domain.Booking{
			SlotID:        slotID,
			UserID:        userID,
			VehicleNumber: vehicleNumber,
			StartTime:     start,
			EndTime:       null.TimeFrom(start.Add(s.gracePeriod)),
			Status:        domain.BookingPending,
		}
		b, err = tx.Bookings().Create(ctx, b)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				return fmt.Errorf("%w: người dùng đã có booking đang hiệu lực", ErrConflict)
			}
			return err
		}

		slot.Status = domain.SlotBooked
		slot.CurrentBookingID = null.IntFrom(int64(b.ID))
		ok, err := tx.Slots().UpdateIfStatus(ctx, slot, domain.SlotAvailable)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: chỗ đỗ %s vừa được giữ bởi phiên khác", ErrConflict, slot.Number)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBooking hủy một booking pending. Chỉ chủ booking mới được hủy.
func (s *ParkingService) CancelBooking(ctx context.Context, userID int, bookingID int) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		booking, err := tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return fmt.Errorf("%w: booking %d không thuộc về người dùng này", ErrAuthorization, bookingID)
		}
		if err := transitionBooking(booking, domain.BookingCancelled); err != nil {
			return err
		}
		// Ghi có điều kiện từ pending: nếu check-in hoặc sweeper đã kịp chuyển
		// trạng thái ở phiên khác thì không được ghi đè booking đang active.
		ok, err := tx.Bookings().UpdateStatusIf(ctx, booking.ID, domain.BookingPending, domain.BookingCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: booking %d vừa bị thay đổi bởi phiên khác", ErrConflict, bookingID)
		}
		return s.releaseHold(ctx, tx, booking)
	})
}

// releaseHold trả slot đang giữ chỗ (booked) về available nếu nó vẫn trỏ tới booking này.
func (s *ParkingService) releaseHold(ctx context.Context, tx repository.Store, booking *domain.Booking) error {
	slot, err := tx.Slots().FindByID(ctx, booking.SlotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Slot đã bị xóa sau khi booking kết thúc; không còn gì để trả.
			return nil
		}
		return err
	}
	if slot.Status != domain.SlotBooked || !slot.CurrentBookingID.Valid || int(slot.CurrentBookingID.Int64) != booking.ID {
		return nil
	}
	slot.Status = domain.SlotAvailable
	slot.CurrentBookingID = null.Int{}
	ok, err := tx.Slots().UpdateIfStatus(ctx, slot, domain.SlotBooked)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: chỗ đỗ %s vừa bị thay đổi bởi phiên khác", ErrConflict, slot.Number)
	}
	return nil
}

// --- Check-in / check-out ---

// CheckIn là luồng đỗ xe trực tiếp: slot trống chuyển thẳng sang occupied,
// booking active được tạo cùng lúc với dòng log mở, tất cả trong một transaction.
func (s *ParkingService) CheckIn(ctx context.Context, userID int, slotID int, vehicleNumber string, inTime time.Time) (*domain.Booking, error) {
	if vehicleNumber == "" {
		return nil, fmt.Errorf("%w: thiếu biển số xe", ErrValidation)
	}

	var booking *domain.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Bookings().FindLiveByUserID(ctx, userID); err == nil {
			return fmt.Errorf("%w: người dùng đã có booking đang hiệu lực", ErrConflict)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		slot, err := tx.Slots().FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != domain.SlotAvailable {
			return fmt.Errorf("%w: chỗ đỗ %s không còn trống (%s)", ErrConflict, slot.Number, slot.Status)
		}

		in := inTime.UTC()
		b := &domain.Booking{
			SlotID:        slotID,
			UserID:        userID,
			VehicleNumber: vehicleNumber,
			StartTime:     in,
			Status:        domain.BookingActive,
		}
		b, err = tx.Bookings().Create(ctx, b)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				return fmt.Errorf("%w: người dùng đã có booking đang hiệu lực", ErrConflict)
			}
			return err
		}

		if err := s.occupySlot(ctx, tx, slot, b, in); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// occupySlot gắn occupant vào slot và mở dòng log, bên trong transaction đang chạy.
// expected là trạng thái slot tại thời điểm quyết định (available hoặc booked).
func (s *ParkingService) occupySlot(ctx context.Context, tx repository.Store, slot *domain.Slot, booking *domain.Booking, inTime time.Time) error {
	expected := slot.Status
	slot.Status = domain.SlotOccupied
	slot.UserID = null.IntFrom(int64(booking.UserID))
	slot.CurrentVehicle = null.StringFrom(booking.VehicleNumber)
	slot.InTime = null.TimeFrom(inTime)
	slot.CurrentBookingID = null.IntFrom(int64(booking.ID))
	ok, err := tx.Slots().UpdateIfStatus(ctx, slot, expected)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: chỗ đỗ %s vừa bị chiếm bởi phiên khác", ErrConflict, slot.Number)
	}

	_, err = tx.Logs().Create(ctx, &domain.ParkingLog{
		SlotID:        slot.ID,
		SlotNumber:    slot.Number,
		UserID:        booking.UserID,
		VehicleNumber: booking.VehicleNumber,
		BookingID:     booking.ID,
		InTime:        inTime,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return fmt.Errorf("%w: chỗ đỗ %s đã có phiên đỗ đang mở", ErrConflict, slot.Number)
		}
		return err
	}
	return nil
}

// CheckInBooking ghi nhận xe đến theo một booking pending: booking chuyển sang
// active, slot từ booked sang occupied, log được mở. Nếu đã quá hạn ân hạn thì
// booking bị đánh hết hạn ngay tại đây thay vì chờ sweeper.
func (s *ParkingService) CheckInBooking(ctx context.Context, userID int, bookingID int, inTime time.Time) error {
	var overdue bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		booking, err := tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return fmt.Errorf("%w: booking %d không thuộc về người dùng này", ErrAuthorization, bookingID)
		}
		if booking.Status != domain.BookingPending {
			return fmt.Errorf("%w: booking %d đang ở trạng thái %s", ErrConflict, bookingID, booking.Status)
		}

		in := inTime.UTC()
		if booking.EndTime.Valid && in.After(booking.EndTime.Time) {
			// Đánh hết hạn và trả slot ngay trong transaction này, rồi trả nil để
			// commit; lỗi conflict báo cho caller được dựng bên ngoài closure.
			if err := transitionBooking(booking, domain.BookingExpired); err != nil {
				return err
			}
			ok, err := tx.Bookings().UpdateStatusIf(ctx, booking.ID, domain.BookingPending, domain.BookingExpired)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: booking %d vừa bị thay đổi bởi phiên khác", ErrConflict, bookingID)
			}
			if err := s.releaseHold(ctx, tx, booking); err != nil {
				return err
			}
			overdue = true
			return nil
		}

		slot, err := tx.Slots().FindByID(ctx, booking.SlotID)
		if err != nil {
			return err
		}
		if slot.Status != domain.SlotBooked || !slot.CurrentBookingID.Valid || int(slot.CurrentBookingID.Int64) != booking.ID {
			log.Printf("Cảnh báo nhất quán: booking %d pending nhưng slot %d không giữ chỗ cho nó (status=%s)", booking.ID, slot.ID, slot.Status)
			return fmt.Errorf("%w: chỗ đỗ %s không còn giữ cho booking %d", ErrConsistency, slot.Number, booking.ID)
		}

		if err := transitionBooking(booking, domain.BookingActive); err != nil {
			return err
		}
		booking.StartTime = in
		booking.EndTime = null.Time{}
		if _, err := tx.Bookings().Update(ctx, booking); err != nil {
			return err
		}
		return s.occupySlot(ctx, tx, slot, booking, in)
	})
	if err != nil {
		return err
	}
	if overdue {
		return fmt.Errorf("%w: booking %d đã quá hạn check-in", ErrConflict, bookingID)
	}
	return nil
}

// Exit kết thúc một phiên đỗ trên slot occupied: đóng log, booking sang completed,
// xóa occupant khỏi slot. requester phải là chủ phiên đỗ hoặc nhân viên/admin.
func (s *ParkingService) Exit(ctx context.Context, slotID int, requester domain.Actor) error {
	return s.closeOccupancy(ctx, slotID, &requester, domain.BookingCompleted)
}

// ForceExit là quyền admin: kết thúc phiên đỗ vô điều kiện (force_completed),
// hoặc thu hồi một giữ chỗ pending (cancelled) để trả slot về available.
func (s *ParkingService) ForceExit(ctx context.Context, slotID int) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		slot, err := tx.Slots().FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		switch slot.Status {
		case domain.SlotOccupied:
			return s.closeOccupancyTx(ctx, tx, slot, nil, domain.BookingForceCompleted)
		case domain.SlotBooked:
			if !slot.CurrentBookingID.Valid {
				return fmt.Errorf("%w: chỗ đỗ %s booked nhưng không trỏ tới booking nào", ErrConsistency, slot.Number)
			}
			booking, err := tx.Bookings().FindByID(ctx, int(slot.CurrentBookingID.Int64))
			if err != nil {
				return err
			}
			if err := transitionBooking(booking, domain.BookingCancelled); err != nil {
				return err
			}
			ok, err := tx.Bookings().UpdateStatusIf(ctx, booking.ID, domain.BookingPending, domain.BookingCancelled)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: booking %d vừa bị thay đổi bởi phiên khác", ErrConflict, booking.ID)
			}
			return s.releaseHold(ctx, tx, booking)
		default:
			return fmt.Errorf("%w: chỗ đỗ %s đang ở trạng thái %s, không có gì để kết thúc", ErrConflict, slot.Number, slot.Status)
		}
	})
}

func (s *ParkingService) closeOccupancy(ctx context.Context, slotID int, requester *domain.Actor, target domain.BookingStatus) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		slot, err := tx.Slots().FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		return s.closeOccupancyTx(ctx, tx, slot, requester, target)
	})
}

// closeOccupancyTx là phần chung của Exit/ForceExit, chạy trong transaction đang mở.
// requester == nil nghĩa là bỏ qua kiểm tra quyền (force-exit của admin).
func (s *ParkingService) closeOccupancyTx(ctx context.Context, tx repository.Store, slot *domain.Slot, requester *domain.Actor, target domain.BookingStatus) error {
	if slot.Status != domain.SlotOccupied {
		return fmt.Errorf("%w: chỗ đỗ %s không có xe đang đỗ (%s)", ErrConflict, slot.Number, slot.Status)
	}
	if requester != nil && !requester.Role.IsStaff() {
		if !slot.UserID.Valid || int(slot.UserID.Int64) != requester.ID {
			return fmt.Errorf("%w: xe ở chỗ đỗ %s không thuộc về người dùng này", ErrAuthorization, slot.Number)
		}
	}
	if !slot.CurrentBookingID.Valid {
		log.Printf("Lỗi nhất quán: slot %d occupied nhưng không có currentBookingId", slot.ID)
		return fmt.Errorf("%w: chỗ đỗ %s occupied nhưng không trỏ tới booking nào", ErrConsistency, slot.Number)
	}

	booking, err := tx.Bookings().FindByID(ctx, int(slot.CurrentBookingID.Int64))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Lỗi nhất quán: slot %d trỏ tới booking %d không tồn tại", slot.ID, slot.CurrentBookingID.Int64)
			return fmt.Errorf("%w: booking gắn với chỗ đỗ %s không tồn tại", ErrConsistency, slot.Number)
		}
		return err
	}

	outTime := time.Now().UTC()
	if err := transitionBooking(booking, target); err != nil {
		return err
	}
	booking.EndTime = null.TimeFrom(outTime)
	if _, err := tx.Bookings().Update(ctx, booking); err != nil {
		return err
	}

	// Đóng dòng log đang mở. Không tìm thấy là lỗi nhất quán: trạng thái
	// slot/booking đã lệch khỏi nhật ký, phải báo to chứ không nuốt lặng.
	openLog, err := tx.Logs().FindOpenByBookingID(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Lỗi nhất quán: không có log đang mở cho booking %d (slot %d)", booking.ID, slot.ID)
			return fmt.Errorf("%w: không có log đang mở cho booking %d", ErrConsistency, booking.ID)
		}
		return err
	}
	if err := tx.Logs().Close(ctx, openLog.ID, outTime); err != nil {
		return err
	}

	slot.Status = domain.SlotAvailable
	slot.UserID = null.Int{}
	slot.CurrentVehicle = null.String{}
	slot.InTime = null.Time{}
	slot.CurrentBookingID = null.Int{}
	ok, err := tx.Slots().UpdateIfStatus(ctx, slot, domain.SlotOccupied)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: chỗ đỗ %s vừa bị thay đổi bởi phiên khác", ErrConflict, slot.Number)
	}
	return nil
}

// --- Xe vãng lai (drive-in) ---

// AssignDriveIn tạo danh tính guest tạm thời, booking active, chiếm slot và mở
// log trong đúng một transaction; nhân viên dùng khi có xe vào không đặt trước.
func (s *ParkingService) AssignDriveIn(ctx context.Context, slotID int, dto domain.DriveInDTO) (*domain.User, *domain.Booking, error) {
	if strings.TrimSpace(dto.VehicleNumber) == "" {
		return nil, nil, fmt.Errorf("%w: thiếu biển số xe", ErrValidation)
	}

	// Mật khẩu tạm, guest không bao giờ đăng nhập bằng tài khoản này.
	tempPassword, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		return nil, nil, fmt.Errorf("lỗi tạo mật khẩu guest: %w", err)
	}

	suffix := uuid.NewString()[:8]
	username := dto.DriverName
	if username == "" {
		username = fmt.Sprintf("Guest-%s-%s", strings.ReplaceAll(dto.VehicleNumber, " ", ""), suffix)
	}

	var guest *domain.User
	var booking *domain.Booking
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		slot, err := tx.Slots().FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != domain.SlotAvailable {
			return fmt.Errorf("%w: chỗ đỗ %s không còn trống (%s)", ErrConflict, slot.Number, slot.Status)
		}

		guest, err = tx.Users().Create(ctx, &domain.User{
			Email:         fmt.Sprintf("guest_%s@parking.local", suffix),
			Username:      username,
			Password:      string(tempPassword),
			Phone:         dto.Phone,
			VehicleNumber: dto.VehicleNumber,
			Role:          domain.RoleGuest,
		})
		if err != nil {
			return err
		}

		in := time.Now().UTC()
		booking, err = tx.Bookings().Create(ctx, &domain.Booking{
			SlotID:        slotID,
			UserID:        guest.ID,
			VehicleNumber: dto.VehicleNumber,
			StartTime:     in,
			Status:        domain.BookingActive,
		})
		if err != nil {
			return err
		}
		return s.occupySlot(ctx, tx, slot, booking, in)
	})
	if err != nil {
		return nil, nil, err
	}
	guest.Password = ""
	return guest, booking, nil
}

// --- Truy vấn ---

func (s *ParkingService) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	return s.store.Slots().FindAll(ctx)
}

func (s *ParkingService) GetSlotDetails(ctx context.Context) (*domain.SlotDetailsResponse, error) {
	slots, err := s.store.Slots().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	resp := &domain.SlotDetailsResponse{Slots: make([]domain.SlotDetail, 0, len(slots))}
	for _, slot := range slots {
		detail := domain.SlotDetail{Slot: slot}
		if slot.Status == domain.SlotOccupied && slot.UserID.Valid {
			user, err := s.store.Users().FindByID(ctx, int(slot.UserID.Int64))
			if err == nil {
				detail.User = &domain.UserInfo{
					Username:      user.Username,
					Email:         user.Email,
					Phone:         user.Phone,
					VehicleNumber: user.VehicleNumber,
				}
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
		resp.Slots = append(resp.Slots, detail)
		if slot.Status == domain.SlotOccupied {
			resp.OccupiedSlots = append(resp.OccupiedSlots, detail)
		}
	}
	return resp, nil
}

func (s *ParkingService) GetBookingsForUser(ctx context.Context, userID int) ([]domain.Booking, error) {
	return s.store.Bookings().FindByUserID(ctx, userID)
}

// GetActiveSession trả về phiên đỗ hiện tại của người dùng: booking active cùng
// slot và log đang mở. Thiếu bất kỳ mảnh nào là lỗi nhất quán, không trả nil lặng lẽ.
func (s *ParkingService) GetActiveSession(ctx context.Context, userID int) (*domain.ActiveSession, error) {
	booking, err := s.store.Bookings().FindLiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingActive {
		// Chỉ có booking pending: chưa có phiên đỗ vật lý.
		return nil, repository.ErrNotFound
	}

	slot, err := s.store.Slots().FindByID(ctx, booking.SlotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Lỗi nhất quán: booking %d active nhưng slot %d không tồn tại", booking.ID, booking.SlotID)
			return nil, fmt.Errorf("%w: slot của booking %d không tồn tại", ErrConsistency, booking.ID)
		}
		return nil, err
	}
	openLog, err := s.store.Logs().FindOpenByBookingID(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Lỗi nhất quán: booking %d active nhưng không có log đang mở", booking.ID)
			return nil, fmt.Errorf("%w: không có log đang mở cho booking %d", ErrConsistency, booking.ID)
		}
		return nil, err
	}

	return &domain.ActiveSession{Booking: *booking, Slot: *slot, Log: *openLog}, nil
}

func (s *ParkingService) GetLogsDetailed(ctx context.Context) ([]domain.DetailedLog, error) {
	logs, err := s.store.Logs().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	detailed := make([]domain.DetailedLog, 0, len(logs))
	for _, plog := range logs {
		d := domain.DetailedLog{
			ID:            plog.ID,
			SlotNumber:    plog.SlotNumber,
			VehicleNumber: plog.VehicleNumber,
			InTime:        plog.InTime,
			OutTime:       plog.OutTime,
			User:          domain.UserInfo{Username: "Walk-in/Unknown"},
		}
		user, err := s.store.Users().FindByID(ctx, plog.UserID)
		if err == nil {
			d.User = domain.UserInfo{
				Username:      user.Username,
				Email:         user.Email,
				Phone:         user.Phone,
				VehicleNumber: user.VehicleNumber,
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		detailed = append(detailed, d)
	}
	return detailed, nil
}
