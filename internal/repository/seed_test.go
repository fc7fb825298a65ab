package repository_test

import (
	"context"
	"testing"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
	"parking_lot/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	seed := repository.SeedData{
		SlotCount: 20,
		Admin: &domain.User{
			Email:    "admin@parking.local",
			Username: "admin",
			Password: "hash-da-duoc-tao-san",
			Role:     domain.RoleAdmin,
		},
	}

	require.NoError(t, repository.Seed(ctx, store, seed))
	require.NoError(t, repository.Seed(ctx, store, seed))

	slotCount, err := store.Slots().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, slotCount)

	userCount, err := store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, userCount)

	admin, err := store.Users().FindByEmail(ctx, "admin@parking.local")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestSeedSkipsNonEmptyStore(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.Slots().CreateMany(ctx, []domain.Slot{{Number: "S99", Status: domain.SlotAvailable}})
	require.NoError(t, err)
	_, err = store.Users().Create(ctx, &domain.User{
		Email: "boss@parking.local", Username: "boss", Password: "x", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	require.NoError(t, repository.Seed(ctx, store, repository.SeedData{
		SlotCount: 20,
		Admin:     &domain.User{Email: "admin@parking.local", Username: "admin", Password: "x", Role: domain.RoleAdmin},
	}))

	slotCount, err := store.Slots().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, slotCount, "store đã có slot thì không seed thêm")

	userCount, err := store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, userCount, "store đã có người dùng thì không seed admin")
}
