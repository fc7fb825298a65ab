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

type pgLogRepository struct {
	q querier
}

const logColumns = `id, slot_id, slot_number, user_id, vehicle_number, booking_id, in_time, out_time, created_at`

func scanLogRow(scan func(dest ...any) error) (*domain.ParkingLog, error) {
	l := &domain.ParkingLog{}
	err := scan(&l.ID, &l.SlotID, &l.SlotNumber, &l.UserID, &l.VehicleNumber,
		&l.BookingID, &l.InTime, &l.OutTime, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.InTime = l.InTime.In(time.UTC)
	if l.OutTime.Valid {
		l.OutTime.Time = l.OutTime.Time.In(time.UTC)
	}
	l.CreatedAt = l.CreatedAt.In(time.UTC)
	return l, nil
}

func (r *pgLogRepository) Create(ctx context.Context, plog *domain.ParkingLog) (*domain.ParkingLog, error) {
	query := `INSERT INTO logs (slot_id, slot_number, user_id, vehicle_number, booking_id, in_time, out_time, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`
	err := r.q.QueryRowContext(ctx, query,
		plog.SlotID, plog.SlotNumber, plog.UserID, plog.VehicleNumber,
		plog.BookingID, plog.InTime, plog.OutTime,
	).Scan(&plog.ID, &plog.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			// Index logs_one_open_per_slot: slot này đã có một phiên đang mở.
			return nil, fmt.Errorf("%w: chỗ đỗ %d đã có log đang mở", repository.ErrDuplicateEntry, plog.SlotID)
		}
		return nil, fmt.Errorf("LogRepository.Create: %w", err)
	}
	plog.CreatedAt = plog.CreatedAt.In(time.UTC)
	return plog, nil
}

func (r *pgLogRepository) FindOpenBySlotID(ctx context.Context, slotID int) (*domain.ParkingLog, error) {
	query := `SELECT ` + logColumns + ` FROM logs WHERE slot_id = $1 AND out_time IS NULL`
	row := r.q.QueryRowContext(ctx, query, slotID)
	plog, err := scanLogRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("LogRepository.FindOpenBySlotID: %w", err)
	}
	return plog, nil
}

func (r *pgLogRepository) FindOpenByBookingID(ctx context.Context, bookingID int) (*domain.ParkingLog, error) {
	query := `SELECT ` + logColumns + ` FROM logs WHERE booking_id = $1 AND out_time IS NULL`
	row := r.q.QueryRowContext(ctx, query, bookingID)
	plog, err := scanLogRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("LogRepository.FindOpenByBookingID: %w", err)
	}
	return plog, nil
}

func (r *pgLogRepository) Close(ctx context.Context, id int, outTime time.Time) error {
	// Chỉ đóng được log đang mở: một dòng log không bao giờ bị ghi out_time hai lần.
	query := `UPDATE logs SET out_time = $1 WHERE id = $2 AND out_time IS NULL`
	result, err := r.q.ExecContext(ctx, query, outTime, id)
	if err != nil {
		return fmt.Errorf("LogRepository.Close: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("LogRepository.Close (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgLogRepository) FindAll(ctx context.Context) ([]domain.ParkingLog, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+logColumns+` FROM logs ORDER BY in_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("LogRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var logs []domain.ParkingLog
	for rows.Next() {
		plog, err := scanLogRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("LogRepository.FindAll (scanning row): %w", err)
		}
		logs = append(logs, *plog)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("LogRepository.FindAll (rows error): %w", err)
	}
	return logs, nil
}

func (r *pgLogRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM logs WHERE in_time >= $1`
	if err := r.q.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("LogRepository.CountSince: %w", err)
	}
	return count, nil
}

func (r *pgLogRepository) AvgDurationMinutes(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	query := `SELECT AVG(EXTRACT(EPOCH FROM (out_time - in_time)) / 60) FROM logs WHERE out_time IS NOT NULL`
	if err := r.q.QueryRowContext(ctx, query).Scan(&avg); err != nil {
		return 0, fmt.Errorf("LogRepository.AvgDurationMinutes: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

func (r *pgLogRepository) DailyUniqueVehicles(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `SELECT to_char(in_time AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(DISTINCT vehicle_number)
	           FROM logs WHERE in_time >= $1 GROUP BY day`
	rows, err := r.q.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("LogRepository.DailyUniqueVehicles: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("LogRepository.DailyUniqueVehicles (scanning row): %w", err)
		}
		counts[day] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("LogRepository.DailyUniqueVehicles (rows error): %w", err)
	}
	return counts, nil
}
