// Package broker implements the settlement engine: it admits prospective
// orders against the owner's free balance and holdings, and runs the
// background loop that settles pending orders once the polled market price
// satisfies their limit.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stonkshq/stonks/internal/database"
	"github.com/stonkshq/stonks/internal/marketdata"
	"github.com/stonkshq/stonks/pkg/metrics"
	"github.com/stonkshq/stonks/pkg/models"
)

// Service is the settlement engine. Start launches one background goroutine
// that ticks on a fixed interval; each tick builds a fresh price snapshot,
// loads all pending orders, and settles the ones whose limit is satisfied.
// Ticks never overlap, and Stop waits for the in-flight tick to finish.
type Service struct {
	logger       *zap.Logger
	store        *database.Store
	builder      *marketdata.SnapshotBuilder
	fee          Commission
	tickInterval time.Duration
	locks        *accountLocks

	// snapshot is the previous tick's prices, touched only by the scheduler
	// goroutine. Evaluations receive the fresh snapshot value explicitly.
	snapshot marketdata.Snapshot

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewService creates a settlement engine over the given store and snapshot
// builder.
func NewService(
	logger *zap.Logger,
	store *database.Store,
	builder *marketdata.SnapshotBuilder,
	commissionRate decimal.Decimal,
	tickInterval time.Duration,
) *Service {
	return &Service{
		logger:       logger,
		store:        store,
		builder:      builder,
		fee:          NewCommission(commissionRate),
		tickInterval: tickInterval,
		locks:        newAccountLocks(),
	}
}

// Fee returns the engine's commission calculator.
func (s *Service) Fee() Commission {
	return s.fee
}

// Start launches the settlement scheduler.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("broker service is already running")
	}

	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.isRunning = true
	go s.run()

	s.logger.Info("broker service started", zap.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop shuts the scheduler down gracefully: the in-flight tick runs to
// completion before Stop returns.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("broker service is not running")
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()

	<-done
	s.logger.Info("broker service stopped")
	return nil
}

func (s *Service) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	// First tick immediately rather than waiting a full interval.
	s.Tick(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Tick(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// Tick runs one settlement pass: build a snapshot, load all pending orders,
// and evaluate each. A failure on one order is logged and skipped; it never
// aborts the rest of the tick.
func (s *Service) Tick(ctx context.Context) {
	s.snapshot = s.builder.Build(ctx, s.snapshot)

	orders, err := s.store.FindAllPendingOrders(ctx)
	if err != nil {
		s.logger.Error("failed to load pending orders", zap.Error(err))
		return
	}
	metrics.PendingOrders.Set(float64(len(orders)))

	for i := range orders {
		if err := s.settle(ctx, &orders[i], s.snapshot); err != nil {
			metrics.SettlementErrors.Inc()
			s.logger.Error("failed to settle order",
				zap.String("order", orders[i].UUID.String()),
				zap.Error(err))
		}
	}

	metrics.SettlementTicks.Inc()
}

// CheckOrderPlacement validates that a prospective order is coverable by its
// owner right now: a BUY must fit in the balance left after the owner's other
// pending BUY orders, a SELL must not exceed the held shares. It reads the
// account under the owner's lock so it cannot race a concurrent settlement.
func (s *Service) CheckOrderPlacement(ctx context.Context, order *models.Order) error {
	lock := s.locks.get(order.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	owner, err := s.store.FindUserByID(ctx, order.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load order owner: %w", err)
	}

	switch order.Side {
	case models.OrderSideBuy:
		pending, err := s.pendingExpenditure(ctx, order.OwnerID, order.UUID)
		if err != nil {
			return err
		}
		available := owner.Balance.Sub(pending)
		cost := s.fee.OrderValue(order)
		if available.LessThan(cost) {
			return &InsufficientBalanceError{Required: cost, Available: available}
		}
	case models.OrderSideSell:
		reserved, err := s.pendingSellShares(ctx, order.OwnerID, order.Symbol, order.UUID)
		if err != nil {
			return err
		}
		available := owner.HeldShares(order.Symbol) - reserved
		if order.Amount > available {
			return &InsufficientStockError{Symbol: order.Symbol, Requested: order.Amount, Available: available}
		}
	}

	return nil
}

// settle evaluates one pending order against the snapshot and applies it if
// executable. The pending list was loaded outside the lock, so the order is
// re-read under the account lock along with the owner; an order that has
// settled, been reworked, or been cancelled in the meantime is skipped.
func (s *Service) settle(ctx context.Context, order *models.Order, snapshot marketdata.Snapshot) error {
	lock := s.locks.get(order.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.store.FindOrderByUUID(ctx, order.UUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to reload order: %w", err)
	}
	if !current.IsPending() {
		return nil
	}
	order = current

	owner, err := s.store.FindUserByID(ctx, order.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load order owner: %w", err)
	}

	available := decimal.Zero
	if order.Side == models.OrderSideBuy {
		pending, err := s.pendingExpenditure(ctx, order.OwnerID, order.UUID)
		if err != nil {
			return err
		}
		available = owner.Balance.Sub(pending)
	}

	if Evaluate(order, snapshot, available, s.fee) != Execute {
		return nil
	}

	// A SELL never settles more shares than the owner actually holds.
	if order.Side == models.OrderSideSell && owner.HeldShares(order.Symbol) < order.Amount {
		return nil
	}

	return s.apply(ctx, order, owner)
}

// apply executes an order: it mutates the owner's balance and holdings,
// marks the order COMPLETE, and persists both in one transaction. A
// persistence failure rolls the whole settlement back and leaves the order
// pending for the next tick.
func (s *Service) apply(ctx context.Context, order *models.Order, owner *models.User) error {
	switch order.Side {
	case models.OrderSideBuy:
		owner.AddShares(order.Symbol, order.Amount)
		owner.Balance = owner.Balance.Sub(s.fee.OrderValue(order))
	case models.OrderSideSell:
		owner.AddShares(order.Symbol, -order.Amount)
		owner.Balance = owner.Balance.Add(s.fee.SellProceeds(order))
	}
	order.Status = models.OrderStatusComplete

	err := s.store.Transaction(ctx, func(tx *database.Store) error {
		if err := tx.SaveUser(ctx, owner); err != nil {
			return err
		}
		settled, err := tx.SaveOrderIfPending(ctx, order)
		if err != nil {
			return err
		}
		if !settled {
			return fmt.Errorf("order is no longer pending")
		}
		return nil
	})
	if err != nil {
		order.Status = models.OrderStatusPending
		return fmt.Errorf("failed to persist settlement: %w", err)
	}

	metrics.OrdersSettled.WithLabelValues(string(order.Side)).Inc()
	s.logger.Info("order settled",
		zap.String("order", order.UUID.String()),
		zap.String("side", string(order.Side)),
		zap.String("symbol", string(order.Symbol)),
		zap.Int64("amount", order.Amount),
		zap.String("bid", order.Bid.StringFixed(2)),
		zap.String("balance", owner.Balance.StringFixed(2)))
	return nil
}

// pendingExpenditure returns the commission-adjusted value of the owner's
// pending BUY orders, excluding the order identified by exclude. This is the
// balance already spoken for by open orders.
func (s *Service) pendingExpenditure(ctx context.Context, ownerID uint, exclude uuid.UUID) (decimal.Decimal, error) {
	orders, err := s.store.FindPendingBuyOrdersByOwner(ctx, ownerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load pending buy orders: %w", err)
	}

	total := decimal.Zero
	for i := range orders {
		if orders[i].UUID == exclude {
			continue
		}
		total = total.Add(orders[i].Notional())
	}
	return s.fee.Apply(total), nil
}

// pendingSellShares returns the shares of symbol already committed to the
// owner's pending SELL orders, excluding the order identified by exclude.
func (s *Service) pendingSellShares(ctx context.Context, ownerID uint, symbol models.Symbol, exclude uuid.UUID) (int64, error) {
	orders, err := s.store.FindPendingSellOrdersByOwner(ctx, ownerID, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending sell orders: %w", err)
	}

	var total int64
	for i := range orders {
		if orders[i].UUID == exclude {
			continue
		}
		total += orders[i].Amount
	}
	return total, nil
}
