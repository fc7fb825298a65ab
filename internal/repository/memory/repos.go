package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
)

// --- Users ---

type memUserRepository struct {
	s *memStore
}

func (r *memUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	unlock := r.s.lock()
	defer unlock()

	for _, existing := range r.s.d.users {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("%w: email '%s' đã được đăng ký", repository.ErrDuplicateEntry, user.Email)
		}
		if existing.Username == user.Username {
			return nil, fmt.Errorf("%w: tên đăng nhập '%s' đã tồn tại", repository.ErrDuplicateEntry, user.Username)
		}
	}

	now := time.Now().UTC()
	user.ID = r.s.d.nextUserID
	r.s.d.nextUserID++
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.d.users[user.ID] = *user
	return user, nil
}

func (r *memUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	unlock := r.s.rlock()
	defer unlock()

	user, ok := r.s.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *memUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	unlock := r.s.rlock()
	defer unlock()

	for _, user := range r.s.d.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	unlock := r.s.rlock()
	defer unlock()

	users := make([]domain.User, 0, len(r.s.d.users))
	for _, user := range r.s.d.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memUserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	unlock := r.s.lock()
	defer unlock()

	existing, ok := r.s.d.users[user.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, other := range r.s.d.users {
		if other.ID == user.ID {
			continue
		}
		if other.Email == user.Email || other.Username == user.Username {
			return nil, fmt.Errorf("%w: email hoặc tên đăng nhập đã được sử dụng", repository.ErrDuplicateEntry)
		}
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	r.s.d.users[user.ID] = *user
	return user, nil
}

func (r *memUserRepository) Delete(ctx context.Context, id int) error {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.d.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.d.users, id)
	return nil
}

func (r *memUserRepository) Count(ctx context.Context) (int, error) {
	unlock := r.s.rlock()
	defer unlock()
	return len(r.s.d.users), nil
}

// --- Slots ---

type memSlotRepository struct {
	s *memStore
}

var numberSuffixRe = regexp.MustCompile(`\d+`)

func numberSuffix(number string) int {
	m := numberSuffixRe.FindString(number)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}

func (r *memSlotRepository) CreateMany(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error) {
	unlock := r.s.lock()
	defer unlock()

	for _, slot := range slots {
		for _, existing := range r.s.d.slots {
			if existing.Number == slot.Number {
				return nil, fmt.Errorf("%w: chỗ đỗ số '%s' đã tồn tại", repository.ErrDuplicateEntry, slot.Number)
			}
		}
	}

	now := time.Now().UTC()
	created := make([]domain.Slot, 0, len(slots))
	for _, slot := range slots {
		slot.ID = r.s.d.nextSlotID
		r.s.d.nextSlotID++
		slot.CreatedAt = now
		slot.UpdatedAt = now
		r.s.d.slots[slot.ID] = slot
		created = append(created, slot)
	}
	return created, nil
}

func (r *memSlotRepository) FindByID(ctx context.Context, id int) (*domain.Slot, error) {
	unlock := r.s.rlock()
	defer unlock()

	slot, ok := r.s.d.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &slot, nil
}

func (r *memSlotRepository) FindAll(ctx context.Context) ([]domain.Slot, error) {
	unlock := r.s.rlock()
	defer unlock()

	slots := make([]domain.Slot, 0, len(r.s.d.slots))
	for _, slot := range r.s.d.slots {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		si, sj := numberSuffix(slots[i].Number), numberSuffix(slots[j].Number)
		if si != sj {
			return si < sj
		}
		return slots[i].Number < slots[j].Number
	})
	return slots, nil
}

func (r *memSlotRepository) MaxNumberSuffix(ctx context.Context) (int, error) {
	unlock := r.s.rlock()
	defer unlock()

	max := 0
	for _, slot := range r.s.d.slots {
		if n := numberSuffix(slot.Number); n > max {
			max = n
		}
	}
	return max, nil
}

func (r *memSlotRepository) Count(ctx context.Context) (int, error) {
	unlock := r.s.rlock()
	defer unlock()
	return len(r.s.d.slots), nil
}

func (r *memSlotRepository) CountByStatus(ctx context.Context, status domain.SlotStatus) (int, error) {
	unlock := r.s.rlock()
	defer unlock()

	count := 0
	for _, slot := range r.s.d.slots {
		if slot.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *memSlotRepository) UpdateIfStatus(ctx context.Context, slot *domain.Slot, expected domain.SlotStatus) (bool, error) {
	unlock := r.s.lock()
	defer unlock()

	existing, ok := r.s.d.slots[slot.ID]
	if !ok || existing.Status != expected {
		return false, nil
	}
	slot.Number = existing.Number
	slot.CreatedAt = existing.CreatedAt
	slot.UpdatedAt = time.Now().UTC()
	r.s.d.slots[slot.ID] = *slot
	return true, nil
}

func (r *memSlotRepository) DeleteIfRemovable(ctx context.Context, id int) (bool, error) {
	unlock := r.s.lock()
	defer unlock()

	slot, ok := r.s.d.slots[id]
	if !ok {
		return false, nil
	}
	if slot.Status != domain.SlotAvailable && slot.Status != domain.SlotMaintenance {
		return false, nil
	}
	delete(r.s.d.slots, id)
	return true, nil
}

// --- Bookings ---

type memBookingRepository struct {
	s *memStore
}

func (r *memBookingRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	unlock := r.s.lock()
	defer unlock()

	// Mô phỏng unique index bookings_one_live_per_user của bản postgres.
	if booking.Status.IsLive() {
		for _, existing := range r.s.d.bookings {
			if existing.UserID == booking.UserID && existing.Status.IsLive() {
				return nil, fmt.Errorf("%w: người dùng %d đã có booking đang hiệu lực", repository.ErrDuplicateEntry, booking.UserID)
			}
		}
	}

	now := time.Now().UTC()
	booking.ID = r.s.d.nextBookingID
	r.s.d.nextBookingID++
	booking.CreatedAt = now
	booking.UpdatedAt = now
	r.s.d.bookings[booking.ID] = *booking
	return booking, nil
}

func (r *memBookingRepository) FindByID(ctx context.Context, id int) (*domain.Booking, error) {
	unlock := r.s.rlock()
	defer unlock()

	booking, ok := r.s.d.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &booking, nil
}

func (r *memBookingRepository) FindLiveByUserID(ctx context.Context, userID int) (*domain.Booking, error) {
	unlock := r.s.rlock()
	defer unlock()

	for _, booking := range r.s.d.bookings {
		if booking.UserID == userID && booking.Status.IsLive() {
			b := booking
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memBookingRepository) FindByUserID(ctx context.Context, userID int) ([]domain.Booking, error) {
	unlock := r.s.rlock()
	defer unlock()

	var bookings []domain.Booking
	for _, booking := range r.s.d.bookings {
		if booking.UserID == userID {
			bookings = append(bookings, booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID > bookings[j].ID })
	return bookings, nil
}

func (r *memBookingRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	unlock := r.s.rlock()
	defer unlock()

	var bookings []domain.Booking
	for _, booking := range r.s.d.bookings {
		if booking.Status == domain.BookingPending && booking.EndTime.Valid && booking.EndTime.Time.Before(now) {
			bookings = append(bookings, booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].EndTime.Time.Before(bookings[j].EndTime.Time) })
	return bookings, nil
}

func (r *memBookingRepository) Update(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	unlock := r.s.lock()
	defer unlock()

	existing, ok := r.s.d.bookings[booking.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	booking.CreatedAt = existing.CreatedAt
	booking.UpdatedAt = time.Now().UTC()
	r.s.d.bookings[booking.ID] = *booking
	return booking, nil
}

func (r *memBookingRepository) UpdateStatusIf(ctx context.Context, id int, from, to domain.BookingStatus) (bool, error) {
	unlock := r.s.lock()
	defer unlock()

	booking, ok := r.s.d.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	booking.UpdatedAt = time.Now().UTC()
	r.s.d.bookings[id] = booking
	return true, nil
}

// --- Logs ---

type memLogRepository struct {
	s *memStore
}

func (r *memLogRepository) Create(ctx context.Context, plog *domain.ParkingLog) (*domain.ParkingLog, error) {
	unlock := r.s.lock()
	defer unlock()

	// Mô phỏng unique index logs_one_open_per_slot.
	if !plog.OutTime.Valid {
		for _, existing := range r.s.d.logs {
			if existing.SlotID == plog.SlotID && !existing.OutTime.Valid {
				return nil, fmt.Errorf("%w: chỗ đỗ %d đã có log đang mở", repository.ErrDuplicateEntry, plog.SlotID)
			}
		}
	}

	plog.ID = r.s.d.nextLogID
	r.s.d.nextLogID++
	plog.CreatedAt = time.Now().UTC()
	r.s.d.logs[plog.ID] = *plog
	return plog, nil
}

func (r *memLogRepository) FindOpenBySlotID(ctx context.Context, slotID int) (*domain.ParkingLog, error) {
	unlock := r.s.rlock()
	defer unlock()

	for _, plog := range r.s.d.logs {
		if plog.SlotID == slotID && !plog.OutTime.Valid {
			l := plog
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memLogRepository) FindOpenByBookingID(ctx context.Context, bookingID int) (*domain.ParkingLog, error) {
	unlock := r.s.rlock()
	defer unlock()

	for _, plog := range r.s.d.logs {
		if plog.BookingID == bookingID && !plog.OutTime.Valid {
			l := plog
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memLogRepository) Close(ctx context.Context, id int, outTime time.Time) error {
	unlock := r.s.lock()
	defer unlock()

	plog, ok := r.s.d.logs[id]
	if !ok || plog.OutTime.Valid {
		return repository.ErrNotFound
	}
	plog.OutTime.SetValid(outTime.UTC())
	r.s.d.logs[id] = plog
	return nil
}

func (r *memLogRepository) FindAll(ctx context.Context) ([]domain.ParkingLog, error) {
	unlock := r.s.rlock()
	defer unlock()

	logs := make([]domain.ParkingLog, 0, len(r.s.d.logs))
	for _, plog := range r.s.d.logs {
		logs = append(logs, plog)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].InTime.After(logs[j].InTime) })
	return logs, nil
}

func (r *memLogRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	unlock := r.s.rlock()
	defer unlock()

	count := 0
	for _, plog := range r.s.d.logs {
		if !plog.InTime.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memLogRepository) AvgDurationMinutes(ctx context.Context) (float64, error) {
	unlock := r.s.rlock()
	defer unlock()

	var total float64
	var closed int
	for _, plog := range r.s.d.logs {
		if plog.OutTime.Valid {
			total += plog.OutTime.Time.Sub(plog.InTime).Minutes()
			closed++
		}
	}
	if closed == 0 {
		return 0, nil
	}
	return total / float64(closed), nil
}

func (r *memLogRepository) DailyUniqueVehicles(ctx context.Context, since time.Time) (map[string]int, error) {
	unlock := r.s.rlock()
	defer unlock()

	seen := make(map[string]map[string]bool)
	for _, plog := range r.s.d.logs {
		if plog.InTime.Before(since) {
			continue
		}
		day := plog.InTime.UTC().Format("2006-01-02")
		if seen[day] == nil {
			seen[day] = make(map[string]bool)
		}
		seen[day][plog.VehicleNumber] = true
	}

	counts := make(map[string]int, len(seen))
	for day, vehicles := range seen {
		counts[day] = len(vehicles)
	}
	return counts, nil
}
