// Package orders provides order management: creation, lookup, update, and
// deletion of limit orders. Prospective orders pass the broker's admission
// check before they are accepted.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stonkshq/stonks/internal/database"
	"github.com/stonkshq/stonks/pkg/models"
)

var (
	// ErrNotFound is returned when no order matches the given identifier.
	ErrNotFound = errors.New("order not found")
	// ErrOwnerNotFound is returned when the owner UUID matches no user.
	ErrOwnerNotFound = errors.New("order owner not found")
	// ErrOrderComplete is returned when modifying or deleting an order that
	// has already settled.
	ErrOrderComplete = errors.New("order is already complete")
)

// ValidationError is returned for malformed order fields.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// AdmissionChecker decides whether a prospective order is affordable or
// coverable by its owner. Implemented by the broker service.
type AdmissionChecker interface {
	CheckOrderPlacement(ctx context.Context, order *models.Order) error
}

// CreateRequest carries the fields of a new order.
type CreateRequest struct {
	Side   string
	Symbol string
	Amount int64
	Bid    decimal.Decimal
}

// UpdateRequest carries the mutable fields of a pending order.
type UpdateRequest struct {
	Symbol string
	Amount int64
	Bid    decimal.Decimal
}

// Service implements order CRUD operations.
type Service struct {
	logger    *zap.Logger
	store     *database.Store
	admission AdmissionChecker
}

// NewService creates a new order service.
func NewService(logger *zap.Logger, store *database.Store, admission AdmissionChecker) *Service {
	return &Service{logger: logger, store: store, admission: admission}
}

// Create validates and places a new PENDING order for the given owner.
func (s *Service) Create(ctx context.Context, ownerUUID uuid.UUID, req CreateRequest) (*models.Order, error) {
	owner, err := s.findOwner(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	side, err := models.ParseOrderSide(req.Side)
	if err != nil {
		return nil, &ValidationError{Field: "side", Value: req.Side}
	}
	symbol, err := models.ParseSymbol(req.Symbol)
	if err != nil {
		return nil, &ValidationError{Field: "symbol", Value: req.Symbol}
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := validateBid(req.Bid); err != nil {
		return nil, err
	}

	order := &models.Order{
		UUID:    uuid.New(),
		OwnerID: owner.ID,
		Side:    side,
		Symbol:  symbol,
		Amount:  req.Amount,
		Bid:     req.Bid,
		Status:  models.OrderStatusPending,
	}

	if err := s.admission.CheckOrderPlacement(ctx, order); err != nil {
		return nil, err
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order", order.UUID.String()),
		zap.String("owner", ownerUUID.String()),
		zap.String("side", string(side)),
		zap.String("symbol", string(symbol)),
		zap.Int64("amount", req.Amount),
		zap.String("bid", req.Bid.StringFixed(2)))
	return order, nil
}

// Get returns one of the owner's orders.
func (s *Service) Get(ctx context.Context, ownerUUID, orderUUID uuid.UUID) (*models.Order, error) {
	if _, err := s.findOwner(ctx, ownerUUID); err != nil {
		return nil, err
	}

	order, err := s.store.FindOrderByUUIDAndOwner(ctx, orderUUID, ownerUUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// List returns all of the owner's orders.
func (s *Service) List(ctx context.Context, ownerUUID uuid.UUID) ([]models.Order, error) {
	owner, err := s.findOwner(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}
	return s.store.FindOrdersByOwner(ctx, owner.ID)
}

// Update changes a pending order's symbol, amount, and bid. Completed orders
// are immutable.
func (s *Service) Update(ctx context.Context, ownerUUID, orderUUID uuid.UUID, req UpdateRequest) (*models.Order, error) {
	order, err := s.Get(ctx, ownerUUID, orderUUID)
	if err != nil {
		return nil, err
	}
	if !order.IsPending() {
		return nil, ErrOrderComplete
	}

	symbol, err := models.ParseSymbol(req.Symbol)
	if err != nil {
		return nil, &ValidationError{Field: "symbol", Value: req.Symbol}
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := validateBid(req.Bid); err != nil {
		return nil, err
	}

	order.Symbol = symbol
	order.Amount = req.Amount
	order.Bid = req.Bid

	// The reworked order must still be coverable; its own previous value is
	// excluded from the pending expenditure by UUID.
	if err := s.admission.CheckOrderPlacement(ctx, order); err != nil {
		return nil, err
	}

	// The write only lands while the row is still PENDING, so an update
	// racing a settlement cannot drag a COMPLETE order back.
	saved, err := s.store.SaveOrderIfPending(ctx, order)
	if err != nil {
		return nil, err
	}
	if !saved {
		return nil, ErrOrderComplete
	}
	return order, nil
}

// Delete removes a pending order. Completed orders cannot be deleted.
func (s *Service) Delete(ctx context.Context, ownerUUID, orderUUID uuid.UUID) error {
	order, err := s.Get(ctx, ownerUUID, orderUUID)
	if err != nil {
		return err
	}
	if !order.IsPending() {
		return ErrOrderComplete
	}

	deleted, err := s.store.DeleteOrderIfPending(ctx, order)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrOrderComplete
	}
	s.logger.Info("order deleted", zap.String("order", orderUUID.String()))
	return nil
}

func (s *Service) findOwner(ctx context.Context, ownerUUID uuid.UUID) (*models.User, error) {
	owner, err := s.store.FindUserByUUID(ctx, ownerUUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	return owner, nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return &ValidationError{Field: "amount", Value: fmt.Sprintf("%d", amount)}
	}
	return nil
}

func validateBid(bid decimal.Decimal) error {
	if bid.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "bid", Value: bid.String()}
	}
	return nil
}
