package service

import (
	"context"
	"errors"
	"fmt"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService: quản lý tài khoản, chỉ dành cho admin.
type UserService struct {
	store repository.Store
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) CreateUser(ctx context.Context, dto domain.CreateUserDTO) (*domain.User, error) {
	role := domain.RoleUser
	if dto.Role != "" {
		role = domain.Role(dto.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: vai trò %q không hợp lệ", ErrValidation, dto.Role)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("lỗi hash mật khẩu: %w", err)
	}

	user, err := s.store.Users().Create(ctx, &domain.User{
		Email:         dto.Email,
		Username:      dto.Username,
		Password:      string(hashedPassword),
		Phone:         dto.Phone,
		VehicleNumber: dto.VehicleNumber,
		Role:          role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *UserService) GetUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.Users().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*domain.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int, dto domain.UpdateUserDTO) (*domain.User, error) {
	var updated *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if dto.Email != "" {
			user.Email = dto.Email
		}
		if dto.Username != "" {
			user.Username = dto.Username
		}
		if dto.Phone != "" {
			user.Phone = dto.Phone
		}
		if dto.VehicleNumber != "" {
			user.VehicleNumber = dto.VehicleNumber
		}
		if dto.Role != "" {
			role := domain.Role(dto.Role)
			if !role.Valid() {
				return fmt.Errorf("%w: vai trò %q không hợp lệ", ErrValidation, dto.Role)
			}
			user.Role = role
		}
		if dto.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("lỗi hash mật khẩu: %w", err)
			}
			user.Password = string(hashed)
		}

		updated, err = tx.Users().Update(ctx, user)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				return ErrUserAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	updated.Password = ""
	return updated, nil
}

// DeleteUser xóa một tài khoản. Admin không xóa được chính mình, và không xóa
// được người đang có booking pending/active (phải kết thúc phiên đỗ trước).
func (s *UserService) DeleteUser(ctx context.Context, requesterID int, id int) error {
	if requesterID == id {
		return fmt.Errorf("%w: không thể tự xóa tài khoản của mình", ErrConflict)
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, id); err != nil {
			return err
		}
		if _, err := tx.Bookings().FindLiveByUserID(ctx, id); err == nil {
			return fmt.Errorf("%w: người dùng đang có booking hiệu lực, không thể xóa", ErrConflict)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return tx.Users().Delete(ctx, id)
	})
}
