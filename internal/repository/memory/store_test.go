package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		_, err := tx.Slots().CreateMany(ctx, []domain.Slot{{Number: "S1", Status: domain.SlotAvailable}})
		require.NoError(t, err)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	count, err := store.Slots().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "transaction thất bại không được để lại dữ liệu")
}

func TestWithinTxCommits(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		_, err := tx.Slots().CreateMany(ctx, []domain.Slot{
			{Number: "S1", Status: domain.SlotAvailable},
			{Number: "S2", Status: domain.SlotAvailable},
		})
		return err
	})
	require.NoError(t, err)

	slots, err := store.Slots().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestOneLiveBookingPerUser(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Bookings().Create(ctx, &domain.Booking{
		SlotID: 1, UserID: 7, VehicleNumber: "29A-111.11",
		StartTime: time.Now().UTC(), Status: domain.BookingPending,
	})
	require.NoError(t, err)

	// Booking sống thứ hai của cùng người dùng bị chặn như unique index bên postgres.
	_, err = store.Bookings().Create(ctx, &domain.Booking{
		SlotID: 2, UserID: 7, VehicleNumber: "29A-111.11",
		StartTime: time.Now().UTC(), Status: domain.BookingActive,
	})
	require.ErrorIs(t, err, repository.ErrDuplicateEntry)

	// Booking đã kết thúc không chặn booking mới.
	ok, err := store.Bookings().UpdateStatusIf(ctx, 1, domain.BookingPending, domain.BookingCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Bookings().Create(ctx, &domain.Booking{
		SlotID: 2, UserID: 7, VehicleNumber: "29A-111.11",
		StartTime: time.Now().UTC(), Status: domain.BookingPending,
	})
	assert.NoError(t, err)
}

func TestOneOpenLogPerSlot(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	in := time.Now().UTC()
	first, err := store.Logs().Create(ctx, &domain.ParkingLog{
		SlotID: 1, SlotNumber: "S1", UserID: 1, VehicleNumber: "29A-111.11", BookingID: 1, InTime: in,
	})
	require.NoError(t, err)

	_, err = store.Logs().Create(ctx, &domain.ParkingLog{
		SlotID: 1, SlotNumber: "S1", UserID: 2, VehicleNumber: "30B-222.22", BookingID: 2, InTime: in,
	})
	require.ErrorIs(t, err, repository.ErrDuplicateEntry)

	require.NoError(t, store.Logs().Close(ctx, first.ID, in.Add(time.Hour)))

	// Sau khi log cũ đóng, slot lại nhận log mở mới.
	_, err = store.Logs().Create(ctx, &domain.ParkingLog{
		SlotID: 1, SlotNumber: "S1", UserID: 2, VehicleNumber: "30B-222.22", BookingID: 2, InTime: in,
	})
	assert.NoError(t, err)
}

func TestLogCloseIsOneShot(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	in := time.Now().UTC()
	plog, err := store.Logs().Create(ctx, &domain.ParkingLog{
		SlotID: 1, SlotNumber: "S1", UserID: 1, VehicleNumber: "29A-111.11", BookingID: 1, InTime: in,
	})
	require.NoError(t, err)

	require.NoError(t, store.Logs().Close(ctx, plog.ID, in.Add(time.Hour)))
	err = store.Logs().Close(ctx, plog.ID, in.Add(2*time.Hour))
	assert.ErrorIs(t, err, repository.ErrNotFound, "log đã đóng không được đóng lại")
}

func TestMaxNumberSuffix(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	suffix, err := store.Slots().MaxNumberSuffix(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, suffix)

	_, err = store.Slots().CreateMany(ctx, []domain.Slot{
		{Number: "S1", Status: domain.SlotAvailable},
		{Number: "S12", Status: domain.SlotAvailable},
		{Number: "S3", Status: domain.SlotAvailable},
	})
	require.NoError(t, err)

	suffix, err = store.Slots().MaxNumberSuffix(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, suffix)
}

func TestUpdateIfStatusDetectsRace(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Slots().CreateMany(ctx, []domain.Slot{{Number: "S1", Status: domain.SlotAvailable}})
	require.NoError(t, err)
	slot := &created[0]

	slot.Status = domain.SlotOccupied
	ok, err := store.Slots().UpdateIfStatus(ctx, slot, domain.SlotAvailable)
	require.NoError(t, err)
	assert.True(t, ok)

	// Phiên thứ hai còn giữ hình ảnh cũ (available) phải bị từ chối.
	stale := *slot
	stale.Status = domain.SlotBooked
	ok, err = store.Slots().UpdateIfStatus(ctx, &stale, domain.SlotAvailable)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateStatusIfRejectsStaleCancel(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Bookings().Create(ctx, &domain.Booking{
		SlotID: 1, UserID: 7, VehicleNumber: "29A-111.11",
		StartTime: time.Now().UTC(), Status: domain.BookingPending,
	})
	require.NoError(t, err)

	ok, err := store.Bookings().UpdateStatusIf(ctx, created.ID, domain.BookingPending, domain.BookingActive)
	require.NoError(t, err)
	require.True(t, ok)

	// Lượt hủy còn giữ hình ảnh pending không được ghi đè booking đã active.
	ok, err = store.Bookings().UpdateStatusIf(ctx, created.ID, domain.BookingPending, domain.BookingCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Bookings().FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingActive, got.Status)
}

func TestDeleteIfRemovableGuardsStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Slots().CreateMany(ctx, []domain.Slot{
		{Number: "S1", Status: domain.SlotAvailable},
		{Number: "S2", Status: domain.SlotOccupied},
	})
	require.NoError(t, err)

	// Slot đang có xe không bị xóa cho dù lượt kiểm tra trước đó đọc trạng thái cũ.
	ok, err := store.Slots().DeleteIfRemovable(ctx, created[1].ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = store.Slots().FindByID(ctx, created[1].ID)
	require.NoError(t, err)

	ok, err = store.Slots().DeleteIfRemovable(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Slots().DeleteIfRemovable(ctx, created[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
