// Package memory cài đặt repository.Store hoàn toàn trong bộ nhớ.
// Dùng cho test và chế độ dev (DB_DRIVER=memory). Transaction được tuần tự hóa
// bằng một mutex duy nhất và chạy trên bản sao dữ liệu, nên WithinTx có đúng
// ngữ nghĩa all-or-nothing như bản postgres.
package memory

import (
	"context"
	"sync"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
)

type data struct {
	users    map[int]domain.User
	slots    map[int]domain.Slot
	bookings map[int]domain.Booking
	logs     map[int]domain.ParkingLog

	nextUserID    int
	nextSlotID    int
	nextBookingID int
	nextLogID     int
}

func newData() *data {
	return &data{
		users:         make(map[int]domain.User),
		slots:         make(map[int]domain.Slot),
		bookings:      make(map[int]domain.Booking),
		logs:          make(map[int]domain.ParkingLog),
		nextUserID:    1,
		nextSlotID:    1,
		nextBookingID: 1,
		nextLogID:     1,
	}
}

func (d *data) clone() *data {
	c := &data{
		users:         make(map[int]domain.User, len(d.users)),
		slots:         make(map[int]domain.Slot, len(d.slots)),
		bookings:      make(map[int]domain.Booking, len(d.bookings)),
		logs:          make(map[int]domain.ParkingLog, len(d.logs)),
		nextUserID:    d.nextUserID,
		nextSlotID:    d.nextSlotID,
		nextBookingID: d.nextBookingID,
		nextLogID:     d.nextLogID,
	}
	for id, u := range d.users {
		c.users[id] = u
	}
	for id, s := range d.slots {
		c.slots[id] = s
	}
	for id, b := range d.bookings {
		c.bookings[id] = b
	}
	for id, l := range d.logs {
		c.logs[id] = l
	}
	return c
}

type memStore struct {
	mu   *sync.RWMutex
	d    *data
	inTx bool
}

func NewStore() repository.Store {
	return &memStore{mu: &sync.RWMutex{}, d: newData()}
}

func (s *memStore) Users() repository.UserRepository       { return &memUserRepository{s: s} }
func (s *memStore) Slots() repository.SlotRepository       { return &memSlotRepository{s: s} }
func (s *memStore) Bookings() repository.BookingRepository { return &memBookingRepository{s: s} }
func (s *memStore) Logs() repository.LogRepository         { return &memLogRepository{s: s} }

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	// Chạy closure trên bản sao; chỉ khi thành công mới thay dữ liệu gốc.
	txData := s.d.clone()
	tx := &memStore{mu: s.mu, d: txData, inTx: true}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.d = txData
	return nil
}

// lock/rlock bảo vệ các thao tác đọc/ghi đơn lẻ ngoài transaction.
// Trong transaction thì mutex đã được giữ sẵn bởi WithinTx.
func (s *memStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}
