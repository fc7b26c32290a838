package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stonkshq/stonks/pkg/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Store exposes the query/save operations for orders and users. All methods
// operate through the wrapped gorm handle, so a Store derived from a
// transaction scopes every operation to that transaction.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on top of the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn within a database transaction. The Store passed to fn
// is scoped to the transaction; a non-nil error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		return fn(&Store{db: txDB})
	})
}

// --- Orders ---

// FindAllPendingOrders returns every order still awaiting settlement.
func (s *Store) FindAllPendingOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Where("status = ?", models.OrderStatusPending).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to find pending orders: %w", err)
	}
	return orders, nil
}

// FindPendingBuyOrdersByOwner returns the owner's pending BUY orders, used to
// compute the balance already reserved by open orders.
func (s *Store) FindPendingBuyOrdersByOwner(ctx context.Context, ownerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND side = ?", ownerID, models.OrderStatusPending, models.OrderSideBuy).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending buy orders: %w", err)
	}
	return orders, nil
}

// FindPendingSellOrdersByOwner returns the owner's pending SELL orders for a
// symbol, used to compute the shares already committed to open orders.
func (s *Store) FindPendingSellOrdersByOwner(ctx context.Context, ownerID uint, symbol models.Symbol) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND side = ? AND symbol = ?",
			ownerID, models.OrderStatusPending, models.OrderSideSell, symbol).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending sell orders: %w", err)
	}
	return orders, nil
}

// FindOrderByUUID returns the order with the given public identifier.
func (s *Store) FindOrderByUUID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// FindOrderByUUIDAndOwner returns the order with the given UUID if it belongs
// to the given owner.
func (s *Store) FindOrderByUUIDAndOwner(ctx context.Context, orderUUID, ownerUUID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Joins("JOIN users ON users.id = orders.owner_id").
		Where("orders.uuid = ? AND users.uuid = ?", orderUUID, ownerUUID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// FindOrdersByOwner returns all orders belonging to the given owner.
func (s *Store) FindOrdersByOwner(ctx context.Context, ownerID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	return orders, nil
}

// CreateOrder inserts a new order.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// SaveOrder persists changes to an existing order.
func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// SaveOrderIfPending writes the order's mutable fields and status, but only
// while the stored row is still PENDING. It reports false when the order has
// settled or vanished in the meantime, so a stale in-memory copy can never
// overwrite a COMPLETE row.
func (s *Store) SaveOrderIfPending(ctx context.Context, order *models.Order) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("uuid = ? AND status = ?", order.UUID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"symbol": order.Symbol,
			"amount": order.Amount,
			"bid":    order.Bid,
			"status": order.Status,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to save order: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteOrderIfPending removes an order while it is still PENDING. It reports
// false when the order has already settled.
func (s *Store) DeleteOrderIfPending(ctx context.Context, order *models.Order) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("uuid = ? AND status = ?", order.UUID, models.OrderStatusPending).
		Delete(&models.Order{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete order: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountPendingOrdersByOwner returns how many orders the owner still has open.
func (s *Store) CountPendingOrdersByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("owner_id = ? AND status = ?", ownerID, models.OrderStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending orders: %w", err)
	}
	return count, nil
}

// --- Users ---

// FindUserByID returns the user with the given primary key, holdings included.
func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Holdings").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindUserByUUID returns the user with the given public identifier.
func (s *Store) FindUserByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Holdings").Where("uuid = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindUserByEmail returns the user with the given email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindUserByUsername returns the user with the given username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindAllUsers returns every user, holdings included.
func (s *Store) FindAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Preload("Holdings").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	return users, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// SaveUser persists changes to an existing user, including holdings.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(user).Error
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// DeleteUser removes a user and their holdings.
func (s *Store) DeleteUser(ctx context.Context, user *models.User) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("user_id = ?", user.ID).Delete(&models.Holding{}).Error; err != nil {
			return fmt.Errorf("failed to delete holdings: %w", err)
		}
		if err := tx.db.Delete(user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}
