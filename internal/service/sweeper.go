package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
)

// ExpireOverdue quét các booking pending đã quá hạn check-in và đánh hết hạn
// từng cái trong một transaction riêng: một booking hỏng không chặn các booking
// còn lại. Trả về số booking đã hết hạn thành công.
func (s *ParkingService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.store.Bookings().FindExpiredPending(ctx, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("lỗi tìm booking quá hạn: %w", err)
	}

	expired := 0
	for _, booking := range overdue {
		booking := booking
		won := false
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
			// Chuyển có điều kiện: nếu người dùng vừa check-in hoặc hủy trong lúc
			// quét, booking không còn pending và sweeper nhường cuộc đua.
			ok, err := tx.Bookings().UpdateStatusIf(ctx, booking.ID, domain.BookingPending, domain.BookingExpired)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			booking.Status = domain.BookingExpired
			if err := s.releaseHold(ctx, tx, &booking); err != nil {
				return err
			}
			won = true
			return nil
		})
		if err != nil {
			log.Printf("Lỗi khi đánh hết hạn booking %d: %v", booking.ID, err)
			continue
		}
		if won {
			expired++
		}
	}
	return expired, nil
}

// ExpirationSweeper chạy ExpireOverdue định kỳ ở background.
type ExpirationSweeper struct {
	parkingService *ParkingService
	interval       time.Duration
}

func NewExpirationSweeper(parkingService *ParkingService, interval time.Duration) *ExpirationSweeper {
	return &ExpirationSweeper{parkingService: parkingService, interval: interval}
}

// Start chạy vòng lặp quét cho đến khi ctx bị hủy. Gọi trong goroutine riêng.
func (w *ExpirationSweeper) Start(ctx context.Context) {
	log.Printf("Sweeper hết hạn booking khởi động, chu kỳ %s", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweeper hết hạn booking dừng.")
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *ExpirationSweeper) sweepOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	count, err := w.parkingService.ExpireOverdue(sweepCtx, time.Now())
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Lỗi quét booking hết hạn: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Sweeper đã đánh hết hạn %d booking quá hạn check-in", count)
	}
}
