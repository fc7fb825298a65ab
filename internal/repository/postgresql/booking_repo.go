package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
)

type pgBookingRepository struct {
	q querier
}

const bookingColumns = `id, slot_id, user_id, vehicle_number, start_time, end_time, status, created_at, updated_at`

func scanBookingRow(scan func(dest ...any) error) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := scan(&b.ID, &b.SlotID, &b.UserID, &b.VehicleNumber, &b.StartTime, &b.EndTime,
		&b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.StartTime = b.StartTime.In(time.UTC)
	if b.EndTime.Valid {
		b.EndTime.Time = b.EndTime.Time.In(time.UTC)
	}
	b.CreatedAt = b.CreatedAt.In(time.UTC)
	b.UpdatedAt = b.UpdatedAt.In(time.UTC)
	return b, nil
}

func (r *pgBookingRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	query := `INSERT INTO bookings (slot_id, user_id, vehicle_number, start_time, end_time, status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.q.QueryRowContext(ctx, query,
		booking.SlotID, booking.UserID, booking.VehicleNumber,
		booking.StartTime, booking.EndTime, booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			// Index bookings_one_live_per_user: người dùng đã có booking pending/active.
			return nil, fmt.Errorf("%w: người dùng %d đã có booking đang hiệu lực", repository.ErrDuplicateEntry, booking.UserID)
		}
		return nil, fmt.Errorf("BookingRepository.Create: %w", err)
	}
	booking.CreatedAt = booking.CreatedAt.In(time.UTC)
	booking.UpdatedAt = booking.UpdatedAt.In(time.UTC)
	return booking, nil
}

func (r *pgBookingRepository) FindByID(ctx context.Context, id int) (*domain.Booking, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	booking, err := scanBookingRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindByID: %w", err)
	}
	return booking, nil
}

func (r *pgBookingRepository) FindLiveByUserID(ctx context.Context, userID int) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE user_id = $1 AND status IN ($2, $3) LIMIT 1`
	row := r.q.QueryRowContext(ctx, query, userID, domain.BookingPending, domain.BookingActive)
	booking, err := scanBookingRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindLiveByUserID: %w", err)
	}
	return booking, nil
}

func (r *pgBookingRepository) FindByUserID(ctx context.Context, userID int) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY id DESC`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.FindByUserID: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBookingRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("BookingRepository.FindByUserID (scanning row): %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BookingRepository.FindByUserID (rows error): %w", err)
	}
	return bookings, nil
}

func (r *pgBookingRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE status = $1 AND end_time IS NOT NULL AND end_time < $2
	           ORDER BY end_time`
	rows, err := r.q.QueryContext(ctx, query, domain.BookingPending, now)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.FindExpiredPending: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBookingRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("BookingRepository.FindExpiredPending (scanning row): %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BookingRepository.FindExpiredPending (rows error): %w", err)
	}
	return bookings, nil
}

func (r *pgBookingRepository) Update(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	query := `UPDATE bookings
	           SET slot_id = $1, user_id = $2, vehicle_number = $3, start_time = $4,
	               end_time = $5, status = $6, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $7
	           RETURNING updated_at`
	err := r.q.QueryRowContext(ctx, query,
		booking.SlotID, booking.UserID, booking.VehicleNumber, booking.StartTime,
		booking.EndTime, booking.Status, booking.ID,
	).Scan(&booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.Update: %w", err)
	}
	booking.UpdatedAt = booking.UpdatedAt.In(time.UTC)
	return booking, nil
}

func (r *pgBookingRepository) UpdateStatusIf(ctx context.Context, id int, from, to domain.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = $1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $2 AND status = $3`
	result, err := r.q.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("BookingRepository.UpdateStatusIf: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("BookingRepository.UpdateStatusIf (checking rows affected): %w", err)
	}
	return rowsAffected == 1, nil
}
