package repository

import (
	"context"
	"fmt"
	"log"

	"parking_lot/internal/domain"
)

// SeedData mô tả dữ liệu khởi tạo khi database còn trống.
// Admin.Password phải được hash sẵn ở tầng gọi.
type SeedData struct {
	SlotCount int
	Admin     *domain.User
}

// Seed khởi tạo dữ liệu ban đầu. Idempotent: quyết định seed bằng cách đếm bản
// ghi bên trong cùng transaction với việc ghi, nên chạy lại (hoặc nhiều tiến
// trình cùng khởi động) không tạo dữ liệu trùng.
func Seed(ctx context.Context, store Store, seed SeedData) error {
	return store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		slotCount, err := tx.Slots().Count(ctx)
		if err != nil {
			return fmt.Errorf("lỗi đếm slot khi seed: %w", err)
		}
		if slotCount == 0 && seed.SlotCount > 0 {
			slots := make([]domain.Slot, 0, seed.SlotCount)
			for i := 1; i <= seed.SlotCount; i++ {
				slots = append(slots, domain.Slot{
					Number: fmt.Sprintf("S%d", i),
					Status: domain.SlotAvailable,
				})
			}
			if _, err := tx.Slots().CreateMany(ctx, slots); err != nil {
				return fmt.Errorf("lỗi seed slot: %w", err)
			}
			log.Printf("Đã seed %d chỗ đỗ ban đầu.", seed.SlotCount)
		}

		if seed.Admin != nil {
			userCount, err := tx.Users().Count(ctx)
			if err != nil {
				return fmt.Errorf("lỗi đếm người dùng khi seed: %w", err)
			}
			if userCount == 0 {
				if _, err := tx.Users().Create(ctx, seed.Admin); err != nil {
					return fmt.Errorf("lỗi seed tài khoản admin: %w", err)
				}
				log.Printf("Đã seed tài khoản admin mặc định '%s'.", seed.Admin.Email)
			}
		}
		return nil
	})
}
