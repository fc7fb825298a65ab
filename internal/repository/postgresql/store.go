package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"parking_lot/internal/repository"
)

// querier là phần giao của *sql.DB và *sql.Tx mà các repository cần,
// để cùng một code SQL chạy được cả ngoài lẫn trong transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pgStore struct {
	db *sql.DB // nil nếu store này đã gắn với một transaction
	q  querier
}

func NewStore(db *sql.DB) repository.Store {
	return &pgStore{db: db, q: db}
}

func (s *pgStore) Users() repository.UserRepository       { return &pgUserRepository{q: s.q} }
func (s *pgStore) Slots() repository.SlotRepository       { return &pgSlotRepository{q: s.q} }
func (s *pgStore) Bookings() repository.BookingRepository { return &pgBookingRepository{q: s.q} }
func (s *pgStore) Logs() repository.LogRepository         { return &pgLogRepository{q: s.q} }

func (s *pgStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.db == nil {
		// Đã ở trong transaction, chạy tiếp trên cùng transaction đó.
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lỗi mở transaction: %w", err)
	}

	txStore := &pgStore{q: tx}
	if err := fn(ctx, txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Lỗi rollback transaction: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lỗi commit transaction: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		vehicle_number TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS slots (
		id SERIAL PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'available',
		user_id INTEGER,
		current_vehicle TEXT,
		in_time TIMESTAMPTZ,
		current_booking_id INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id SERIAL PRIMARY KEY,
		slot_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		vehicle_number TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id SERIAL PRIMARY KEY,
		slot_id INTEGER NOT NULL,
		slot_number TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		vehicle_number TEXT NOT NULL,
		booking_id INTEGER NOT NULL,
		in_time TIMESTAMPTZ NOT NULL,
		out_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	// Mỗi người dùng tối đa một booking pending/active: database tự bảo vệ bất biến
	// này kể cả khi hai phiên client chen nhau qua được bước kiểm tra trong service.
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_one_live_per_user
		ON bookings (user_id) WHERE status IN ('pending', 'active')`,
	// Mỗi slot tối đa một dòng log đang mở (chống double check-in).
	`CREATE UNIQUE INDEX IF NOT EXISTS logs_one_open_per_slot
		ON logs (slot_id) WHERE out_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS bookings_user_status_idx ON bookings (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS bookings_status_end_time_idx ON bookings (status, end_time)`,
	`CREATE INDEX IF NOT EXISTS logs_in_time_idx ON logs (in_time)`,
}

// EnsureSchema tạo các bảng và index nếu chưa có. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("lỗi tạo schema: %w", err)
		}
	}
	return nil
}
