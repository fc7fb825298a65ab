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

type pgSlotRepository struct {
	q querier
}

const slotColumns = `id, number, status, user_id, current_vehicle, in_time, current_booking_id, created_at, updated_at`

func scanSlotRow(scan func(dest ...any) error) (*domain.Slot, error) {
	slot := &domain.Slot{}
	err := scan(&slot.ID, &slot.Number, &slot.Status, &slot.UserID, &slot.CurrentVehicle,
		&slot.InTime, &slot.CurrentBookingID, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	if slot.InTime.Valid {
		slot.InTime.Time = slot.InTime.Time.In(time.UTC)
	}
	return slot, nil
}

func (r *pgSlotRepository) CreateMany(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error) {
	created := make([]domain.Slot, 0, len(slots))
	for _, slot := range slots {
		query := `INSERT INTO slots (number, status, created_at, updated_at)
		           VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		           RETURNING ` + slotColumns
		row := r.q.QueryRowContext(ctx, query, slot.Number, slot.Status)
		s, err := scanSlotRow(row.Scan)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return nil, fmt.Errorf("%w: chỗ đỗ số '%s' đã tồn tại", repository.ErrDuplicateEntry, slot.Number)
			}
			return nil, fmt.Errorf("SlotRepository.CreateMany: %w", err)
		}
		created = append(created, *s)
	}
	return created, nil
}

func (r *pgSlotRepository) FindByID(ctx context.Context, id int) (*domain.Slot, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	slot, err := scanSlotRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByID: %w", err)
	}
	return slot, nil
}

func (r *pgSlotRepository) FindAll(ctx context.Context) ([]domain.Slot, error) {
	// Sắp theo hậu tố số của number để S2 đứng trước S10.
	query := `SELECT ` + slotColumns + ` FROM slots
	           ORDER BY NULLIF(regexp_replace(number, '\D', '', 'g'), '')::int NULLS LAST, number`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SlotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		slot, err := scanSlotRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("SlotRepository.FindAll (scanning row): %w", err)
		}
		slots = append(slots, *slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SlotRepository.FindAll (rows error): %w", err)
	}
	return slots, nil
}

func (r *pgSlotRepository) MaxNumberSuffix(ctx context.Context) (int, error) {
	var max sql.NullInt64
	query := `SELECT MAX(NULLIF(regexp_replace(number, '\D', '', 'g'), '')::int) FROM slots`
	if err := r.q.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("SlotRepository.MaxNumberSuffix: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

func (r *pgSlotRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("SlotRepository.Count: %w", err)
	}
	return count, nil
}

func (r *pgSlotRepository) CountByStatus(ctx context.Context, status domain.SlotStatus) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("SlotRepository.CountByStatus: %w", err)
	}
	return count, nil
}

func (r *pgSlotRepository) UpdateIfStatus(ctx context.Context, slot *domain.Slot, expected domain.SlotStatus) (bool, error) {
	query := `UPDATE slots
	           SET status = $1, user_id = $2, current_vehicle = $3, in_time = $4,
	               current_booking_id = $5, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $6 AND status = $7`
	result, err := r.q.ExecContext(ctx, query,
		slot.Status, slot.UserID, slot.CurrentVehicle, slot.InTime, slot.CurrentBookingID,
		slot.ID, expected,
	)
	if err != nil {
		return false, fmt.Errorf("SlotRepository.UpdateIfStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SlotRepository.UpdateIfStatus (checking rows affected): %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *pgSlotRepository) DeleteIfRemovable(ctx context.Context, id int) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM slots WHERE id = $1 AND status IN ($2, $3)`,
		id, domain.SlotAvailable, domain.SlotMaintenance)
	if err != nil {
		return false, fmt.Errorf("SlotRepository.DeleteIfRemovable: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SlotRepository.DeleteIfRemovable (checking rows affected): %w", err)
	}
	return rowsAffected > 0, nil
}
