package users

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stonkshq/stonks/internal/database"
	"github.com/stonkshq/stonks/pkg/models"
)

func setupTestService(t *testing.T) (*Service, *database.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	store := database.NewStore(db)
	return NewService(zap.NewNop(), store), store
}

func TestCreateUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.UUID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "jane", user.Username)
	assert.True(t, user.Balance.IsZero())
	assert.Empty(t, user.Holdings)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		username string
		field    string
	}{
		{"email without at", "janeexample.com", "jane", "email"},
		{"email without domain", "jane@example", "jane", "email"},
		{"email with spaces", "jane doe@example.com", "jane", "email"},
		{"empty email", "", "jane", "email"},
		{"username with dash", "jane@example.com", "jane-doe", "username"},
		{"username with spaces", "jane@example.com", "jane doe", "username"},
		{"empty username", "jane@example.com", "", "username"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.email, tc.username)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tc.field, valErr.Field)
		})
	}
}

func TestCreateUserUniqueness(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "jane@example.com", "jane2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Create(ctx, "jane2@example.com", "jane")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGetUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.UUID)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUsers(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "john@example.com", "john")
	require.NoError(t, err)

	all, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.UUID, "jane@corp.com", "jane_d")
	require.NoError(t, err)
	assert.Equal(t, "jane@corp.com", updated.Email)
	assert.Equal(t, "jane_d", updated.Username)

	// Keeping your own identifiers is not a conflict.
	_, err = svc.Update(ctx, created.UUID, "jane@corp.com", "jane_d")
	require.NoError(t, err)

	_, err = svc.Update(ctx, uuid.New(), "ghost@example.com", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserConflicts(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)
	john, err := svc.Create(ctx, "john@example.com", "john")
	require.NoError(t, err)

	_, err = svc.Update(ctx, john.UUID, "jane@example.com", "john")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Update(ctx, john.UUID, "john@example.com", "jane")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestDeleteUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.UUID))
	_, err = svc.Get(ctx, created.UUID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, created.UUID), ErrNotFound)
}

func TestDeleteUserWithPendingOrdersRefused(t *testing.T) {
	svc, store := setupTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "jane@example.com", "jane")
	require.NoError(t, err)

	order := &models.Order{
		UUID:    uuid.New(),
		OwnerID: created.ID,
		Side:    models.OrderSideBuy,
		Symbol:  models.SymbolAAPL,
		Amount:  1,
		Bid:     decimal.RequireFromString("10"),
		Status:  models.OrderStatusPending,
	}
	require.NoError(t, store.CreateOrder(ctx, order))

	assert.ErrorIs(t, svc.Delete(ctx, created.UUID), ErrHasPendingOrders)

	// A settled book no longer blocks deletion.
	order.Status = models.OrderStatusComplete
	require.NoError(t, store.SaveOrder(ctx, order))
	require.NoError(t, svc.Delete(ctx, created.UUID))
}
