package orders

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

// stubAdmission approves or rejects every placement with a fixed result. The
// hook runs inside the check, where tests inject concurrent interleavings.
type stubAdmission struct {
	err   error
	hook  func(*models.Order)
	calls int
}

func (s *stubAdmission) CheckOrderPlacement(_ context.Context, order *models.Order) error {
	s.calls++
	if s.hook != nil {
		s.hook(order)
	}
	return s.err
}

func setupTestService(t *testing.T, admission AdmissionChecker) (*Service, *database.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	store := database.NewStore(db)
	return NewService(zap.NewNop(), store, admission), store
}

func createOwner(t *testing.T, store *database.Store) *models.User {
	t.Helper()

	user := &models.User{
		UUID:     uuid.New(),
		Email:    "jane@example.com",
		Username: "jane",
		Balance:  decimal.RequireFromString("1000"),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		Side:   "BUY",
		Symbol: "AAPL",
		Amount: 5,
		Bid:    decimal.RequireFromString("100"),
	}
}

func TestCreateOrder(t *testing.T) {
	admission := &stubAdmission{}
	svc, store := setupTestService(t, admission)
	ctx := context.Background()

	owner := createOwner(t, store)
	order, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, order.UUID)
	assert.Equal(t, models.OrderSideBuy, order.Side)
	assert.Equal(t, models.SymbolAAPL, order.Symbol)
	assert.Equal(t, int64(5), order.Amount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 1, admission.calls)

	stored, err := store.FindOrderByUUIDAndOwner(ctx, order.UUID, owner.UUID)
	require.NoError(t, err)
	assert.Equal(t, order.UUID, stored.UUID)
}

func TestCreateOrderUnknownOwner(t *testing.T) {
	svc, _ := setupTestService(t, &stubAdmission{})

	_, err := svc.Create(context.Background(), uuid.New(), validCreateRequest())
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestCreateOrderValidation(t *testing.T) {
	admission := &stubAdmission{}
	svc, store := setupTestService(t, admission)
	ctx := context.Background()
	owner := createOwner(t, store)

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"bad side", func(r *CreateRequest) { r.Side = "HOLD" }, "side"},
		{"lowercase side", func(r *CreateRequest) { r.Side = "buy" }, "side"},
		{"unknown symbol", func(r *CreateRequest) { r.Symbol = "GME" }, "symbol"},
		{"zero amount", func(r *CreateRequest) { r.Amount = 0 }, "amount"},
		{"negative amount", func(r *CreateRequest) { r.Amount = -3 }, "amount"},
		{"zero bid", func(r *CreateRequest) { r.Bid = decimal.Zero }, "bid"},
		{"negative bid", func(r *CreateRequest) { r.Bid = decimal.RequireFromString("-1") }, "bid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			_, err := svc.Create(ctx, owner.UUID, req)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tc.field, valErr.Field)
		})
	}

	// Rejected requests never reach the admission check or the store.
	assert.Equal(t, 0, admission.calls)
	orders, err := svc.List(ctx, owner.UUID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderRejectedByAdmission(t *testing.T) {
	admissionErr := fmt.Errorf("not coverable")
	svc, store := setupTestService(t, &stubAdmission{err: admissionErr})
	ctx := context.Background()
	owner := createOwner(t, store)

	_, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	assert.ErrorIs(t, err, admissionErr)

	orders, err := svc.List(ctx, owner.UUID)
	require.NoError(t, err)
	assert.Empty(t, orders, "rejected order must not be persisted")
}

func TestGetOrder(t *testing.T) {
	svc, store := setupTestService(t, &stubAdmission{})
	ctx := context.Background()
	owner := createOwner(t, store)

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner.UUID, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.UUID)

	_, err = svc.Get(ctx, owner.UUID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, uuid.New(), created.UUID)
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestGetOrderScopedToOwner(t *testing.T) {
	svc, store := setupTestService(t, &stubAdmission{})
	ctx := context.Background()
	owner := createOwner(t, store)

	other := &models.User{
		UUID:     uuid.New(),
		Email:    "john@example.com",
		Username: "john",
		Balance:  decimal.RequireFromString("1000"),
	}
	require.NoError(t, store.CreateUser(ctx, other))

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)

	// Another user cannot read someone else's order.
	_, err = svc.Get(ctx, other.UUID, created.UUID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrders(t *testing.T) {
	svc, store := setupTestService(t, &stubAdmission{})
	ctx := context.Background()
	owner := createOwner(t, store)

	orders, err := svc.List(ctx, owner.UUID)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)
	req := validCreateRequest()
	req.Symbol = "TSLA"
	_, err = svc.Create(ctx, owner.UUID, req)
	require.NoError(t, err)

	orders, err = svc.List(ctx, owner.UUID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestUpdateOrder(t *testing.T) {
	admission := &stubAdmission{}
	svc, store := setupTestService(t, admission)
	ctx := context.Background()
	owner := createOwner(t, store)

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, owner.UUID, created.UUID, UpdateRequest{
		Symbol: "MSFT",
		Amount: 3,
		Bid:    decimal.RequireFromString("250"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SymbolMSFT, updated.Symbol)
	assert.Equal(t, int64(3), updated.Amount)
	assert.True(t, updated.Bid.Equal(decimal.RequireFromString("250")))
	assert.Equal(t, 2, admission.calls, "update must be re-admitted")

	stored, err := store.FindOrderByUUIDAndOwner(ctx, created.UUID, owner.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.SymbolMSFT, stored.Symbol)
}

func TestUpdateOrderValidation(t *testing.T) {
	svc, store := setupTestService(t, &stubAdmission{})
	ctx := context.Background()
	owner := createOwner(t, store)

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner.UUID, created.UUID, UpdateRequest{
		Symbol: "GME",
		Amount: 3,
		Bid:    decimal.RequireFromString("250"),
	})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "symbol", valErr.Field)
}

func TestUpdateCompletedOrderRefused(t *testing.T) {
	svc, store := setupTestService(t, &stubAdmission{})
	ctx := context.Background()
	owner := createOwner(t, store)

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)
	created.Status = models.OrderStatusComplete
	require.NoError(t, store.SaveOrder(ctx, created))

	_, err = svc.Update(ctx, owner.UUID, created.UUID, UpdateRequest{
		Symbol: "MSFT",
		Amount: 3,
		Bid:    decimal.RequireFromString("250"),
	})
	assert.ErrorIs(t, err, ErrOrderComplete)
}

func TestUpdateOrderSettledMidFlight(t *testing.T) {
	admission := &stubAdmission{}
	svc, store := setupTestService(t, admission)
	ctx := context.Background()
	owner := createOwner(t, store)

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)

	// The broker settles the order after Update has read it but before the
	// write lands; the stale write must not drag the order back to PENDING.
	admission.hook = func(*models.Order) {
		settled, ferr := store.FindOrderByUUIDAndOwner(ctx, created.UUID, owner.UUID)
		require.NoError(t, ferr)
		settled.Status = models.OrderStatusComplete
		require.NoError(t, store.SaveOrder(ctx, settled))
	}

	_, err = svc.Update(ctx, owner.UUID, created.UUID, UpdateRequest{
		Symbol: "MSFT",
		Amount: 3,
		Bid:    decimal.RequireFromString("250"),
	})
	assert.ErrorIs(t, err, ErrOrderComplete)

	stored, err := store.FindOrderByUUIDAndOwner(ctx, created.UUID, owner.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusComplete, stored.Status)
	assert.Equal(t, models.SymbolAAPL, stored.Symbol, "stale fields must not land")
}

func TestDeleteOrder(t *testing.T) {
	svc, store := setupTestService(t, &stubAdmission{})
	ctx := context.Background()
	owner := createOwner(t, store)

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner.UUID, created.UUID))
	_, err = svc.Get(ctx, owner.UUID, created.UUID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCompletedOrderRefused(t *testing.T) {
	svc, store := setupTestService(t, &stubAdmission{})
	ctx := context.Background()
	owner := createOwner(t, store)

	created, err := svc.Create(ctx, owner.UUID, validCreateRequest())
	require.NoError(t, err)
	created.Status = models.OrderStatusComplete
	require.NoError(t, store.SaveOrder(ctx, created))

	assert.ErrorIs(t, svc.Delete(ctx, owner.UUID, created.UUID), ErrOrderComplete)
}
