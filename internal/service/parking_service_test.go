package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
	"parking_lot/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGracePeriod = 30 * time.Minute

func newTestService(t *testing.T) (*ParkingService, repository.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewParkingService(store, testGracePeriod), store
}

func seedTestSlots(t *testing.T, svc *ParkingService, count int) []domain.Slot {
	t.Helper()
	slots, err := svc.AddSlots(context.Background(), count)
	require.NoError(t, err)
	return slots
}

func seedTestUser(t *testing.T, store repository.Store, username string, role domain.Role) *domain.User {
	t.Helper()
	user, err := store.Users().Create(context.Background(), &domain.User{
		Email:         username + "@test.local",
		Username:      username,
		Password:      "hash-khong-quan-trong",
		VehicleNumber: "29A-" + username,
		Role:          role,
	})
	require.NoError(t, err)
	return user
}

func TestAddSlotsNumbersContinue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := seedTestSlots(t, svc, 3)
	assert.Equal(t, "S1", first[0].Number)
	assert.Equal(t, "S3", first[2].Number)

	more, err := svc.AddSlots(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "S4", more[0].Number)
	assert.Equal(t, "S5", more[1].Number)

	_, err = svc.AddSlots(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckInExitRoundTrip(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "driver", domain.RoleUser)

	inTime := time.Now().UTC().Add(-time.Hour)
	booking, err := svc.CheckIn(ctx, user.ID, slots[0].ID, "29A-123.45", inTime)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingActive, booking.Status)

	// Sau check-in: slot occupied với đầy đủ thông tin occupant và log đang mở.
	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupied, slot.Status)
	assert.Equal(t, int64(user.ID), slot.UserID.Int64)
	assert.Equal(t, "29A-123.45", slot.CurrentVehicle.String)
	assert.Equal(t, int64(booking.ID), slot.CurrentBookingID.Int64)

	openLog, err := store.Logs().FindOpenByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.ID, openLog.SlotID)
	assert.Equal(t, slot.Number, openLog.SlotNumber)
	assert.False(t, openLog.OutTime.Valid)

	session, err := svc.GetActiveSession(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, session.Booking.ID)
	assert.Equal(t, slot.ID, session.Slot.ID)

	// Exit: slot trống trở lại, booking completed, log đóng.
	actor := domain.Actor{ID: user.ID, Role: domain.RoleUser}
	require.NoError(t, svc.Exit(ctx, slot.ID, actor))

	slot, err = store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status)
	assert.False(t, slot.UserID.Valid)
	assert.False(t, slot.CurrentVehicle.Valid)
	assert.False(t, slot.InTime.Valid)
	assert.False(t, slot.CurrentBookingID.Valid)

	closed, err := store.Bookings().FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, closed.Status)
	assert.True(t, closed.EndTime.Valid)

	closedLog, err := store.Logs().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, closedLog, 1)
	assert.True(t, closedLog[0].OutTime.Valid)

	// Không còn phiên đỗ nào.
	_, err = svc.GetActiveSession(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckInOccupiedSlotRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	first := seedTestUser(t, store, "first", domain.RoleUser)
	second := seedTestUser(t, store, "second", domain.RoleUser)

	_, err := svc.CheckIn(ctx, first.ID, slots[0].ID, "29A-111.11", time.Now())
	require.NoError(t, err)

	_, err = svc.CheckIn(ctx, second.ID, slots[0].ID, "30B-222.22", time.Now())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestConcurrentCheckInSameSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)

	const racers = 8
	users := make([]*domain.User, racers)
	for i := 0; i < racers; i++ {
		users[i] = seedTestUser(t, store, "racer"+string(rune('a'+i)), domain.RoleUser)
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CheckIn(ctx, users[i].ID, slots[0].ID, "29A-000.00", time.Now())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, succeeded, "đúng một phiên check-in được chấp nhận")

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupied, slot.Status)
}

func TestBookSlotHoldsSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 2)
	user := seedTestUser(t, store, "booker", domain.RoleUser)
	other := seedTestUser(t, store, "other", domain.RoleUser)

	start := time.Now().UTC()
	booking, err := svc.BookSlot(ctx, user.ID, slots[0].ID, "29A-123.45", start)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, booking.Status)
	require.True(t, booking.EndTime.Valid)
	assert.WithinDuration(t, start.Add(testGracePeriod), booking.EndTime.Time, time.Second)

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotBooked, slot.Status)
	assert.Equal(t, int64(booking.ID), slot.CurrentBookingID.Int64)
	assert.False(t, slot.UserID.Valid, "giữ chỗ không gắn occupant vào slot")

	// Slot đang giữ chỗ thì người khác không đặt hay check-in được.
	_, err = svc.BookSlot(ctx, other.ID, slots[0].ID, "30B-222.22", start)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.CheckIn(ctx, other.ID, slots[0].ID, "30B-222.22", time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	// Người đã có booking sống không đặt thêm được chỗ khác.
	_, err = svc.BookSlot(ctx, user.ID, slots[1].ID, "29A-123.45", start)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelBookingReleasesSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "booker", domain.RoleUser)
	stranger := seedTestUser(t, store, "stranger", domain.RoleUser)

	booking, err := svc.BookSlot(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	// Người khác không hủy hộ được.
	err = svc.CancelBooking(ctx, stranger.ID, booking.ID)
	assert.ErrorIs(t, err, ErrAuthorization)

	require.NoError(t, svc.CancelBooking(ctx, user.ID, booking.ID))

	cancelled, err := store.Bookings().FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status)
	assert.False(t, slot.CurrentBookingID.Valid)

	// Hủy lần hai là chuyển trạng thái không hợp lệ.
	err = svc.CancelBooking(ctx, user.ID, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckInBookingActivates(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "booker", domain.RoleUser)

	booking, err := svc.BookSlot(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	arrival := time.Now().UTC().Add(10 * time.Minute)
	require.NoError(t, svc.CheckInBooking(ctx, user.ID, booking.ID, arrival))

	activated, err := store.Bookings().FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingActive, activated.Status)
	assert.Equal(t, arrival, activated.StartTime)
	assert.False(t, activated.EndTime.Valid, "hạn ân hạn được xóa khi booking active")

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupied, slot.Status)
	assert.Equal(t, int64(user.ID), slot.UserID.Int64)

	_, err = store.Logs().FindOpenByBookingID(ctx, booking.ID)
	assert.NoError(t, err)
}

func TestCheckInBookingAfterGraceExpires(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "latecomer", domain.RoleUser)

	// Booking bắt đầu từ 2 giờ trước: hạn ân hạn đã qua từ lâu.
	booking, err := svc.BookSlot(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)

	err = svc.CheckInBooking(ctx, user.ID, booking.ID, time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	expired, err := store.Bookings().FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingExpired, expired.Status)

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status, "slot được trả lại ngay khi phát hiện quá hạn")
}

func TestExitAuthorization(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	owner := seedTestUser(t, store, "owner", domain.RoleUser)
	stranger := seedTestUser(t, store, "stranger", domain.RoleUser)
	employee := seedTestUser(t, store, "employee", domain.RoleEmployee)

	_, err := svc.CheckIn(ctx, owner.ID, slots[0].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	// Người lạ không kết thúc được phiên đỗ của người khác.
	err = svc.Exit(ctx, slots[0].ID, domain.Actor{ID: stranger.ID, Role: domain.RoleUser})
	assert.ErrorIs(t, err, ErrAuthorization)

	// Nhân viên thì được.
	err = svc.Exit(ctx, slots[0].ID, domain.Actor{ID: employee.ID, Role: domain.RoleEmployee})
	assert.NoError(t, err)
}

func TestExitEmptySlotRejected(t *testing.T) {
	svc, store := newTestService(t)
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "driver", domain.RoleUser)

	err := svc.Exit(context.Background(), slots[0].ID, domain.Actor{ID: user.ID, Role: domain.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestForceExitOccupiedSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "driver", domain.RoleUser)

	booking, err := svc.CheckIn(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.ForceExit(ctx, slots[0].ID))

	forced, err := store.Bookings().FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingForceCompleted, forced.Status)

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status)

	// Force-exit slot trống là conflict.
	err = svc.ForceExit(ctx, slots[0].ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestForceExitRevokesHold(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "booker", domain.RoleUser)

	booking, err := svc.BookSlot(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.ForceExit(ctx, slots[0].ID))

	revoked, err := store.Bookings().FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, revoked.Status)

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status)
}

func TestRemoveSlotRules(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 2)
	user := seedTestUser(t, store, "driver", domain.RoleUser)

	_, err := svc.CheckIn(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	// Slot occupied không xóa được; log lịch sử vẫn giữ nguyên sau khi xóa slot trống.
	err = svc.RemoveSlot(ctx, slots[0].ID)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, svc.RemoveSlot(ctx, slots[1].ID))
	_, err = store.Slots().FindByID(ctx, slots[1].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMaintenanceRules(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 2)
	user := seedTestUser(t, store, "driver", domain.RoleUser)

	require.NoError(t, svc.SetMaintenance(ctx, slots[0].ID, true))

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotMaintenance, slot.Status)

	// Slot bảo trì không nhận xe và không đặt được.
	_, err = svc.CheckIn(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.BookSlot(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	// Slot occupied không đưa vào bảo trì được.
	_, err = svc.CheckIn(ctx, user.ID, slots[1].ID, "29A-123.45", time.Now())
	require.NoError(t, err)
	err = svc.SetMaintenance(ctx, slots[1].ID, true)
	assert.ErrorIs(t, err, ErrConflict)

	// Gỡ bảo trì trả slot về available.
	require.NoError(t, svc.SetMaintenance(ctx, slots[0].ID, false))
	slot, err = store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status)
}

func TestMaintenanceKeepsHold(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)
	user := seedTestUser(t, store, "booker", domain.RoleUser)

	booking, err := svc.BookSlot(ctx, user.ID, slots[0].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	// Slot đang giữ chỗ không đưa vào bảo trì được; hold phải còn nguyên.
	err = svc.SetMaintenance(ctx, slots[0].ID, true)
	assert.ErrorIs(t, err, ErrConflict)

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotBooked, slot.Status)
	require.True(t, slot.CurrentBookingID.Valid)
	assert.Equal(t, booking.ID, int(slot.CurrentBookingID.Int64))

	pending, err := store.Bookings().FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, pending.Status)
}

func TestAssignDriveIn(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 1)

	guest, booking, err := svc.AssignDriveIn(ctx, slots[0].ID, domain.DriveInDTO{
		VehicleNumber: "51G-999.99",
		DriverName:    "Nguyễn Văn A",
		Phone:         "0900000000",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, guest.Role)
	assert.Equal(t, "Nguyễn Văn A", guest.Username)
	assert.Empty(t, guest.Password)
	assert.Equal(t, domain.BookingActive, booking.Status)
	assert.Equal(t, guest.ID, booking.UserID)

	slot, err := store.Slots().FindByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupied, slot.Status)
	assert.Equal(t, "51G-999.99", slot.CurrentVehicle.String)

	_, err = store.Logs().FindOpenByBookingID(ctx, booking.ID)
	assert.NoError(t, err)

	// Thiếu biển số là lỗi validation.
	_, _, err = svc.AssignDriveIn(ctx, slots[0].ID, domain.DriveInDTO{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetSlotDetails(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	slots := seedTestSlots(t, svc, 3)
	user := seedTestUser(t, store, "driver", domain.RoleUser)

	_, err := svc.CheckIn(ctx, user.ID, slots[1].ID, "29A-123.45", time.Now())
	require.NoError(t, err)

	details, err := svc.GetSlotDetails(ctx)
	require.NoError(t, err)
	assert.Len(t, details.Slots, 3)
	require.Len(t, details.OccupiedSlots, 1)
	require.NotNil(t, details.OccupiedSlots[0].User)
	assert.Equal(t, "driver", details.OccupiedSlots[0].User.Username)
}
