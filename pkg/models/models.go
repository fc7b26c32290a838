package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Symbol is a tradeable stock ticker. Trading is restricted to a fixed set.
type Symbol string

const (
	SymbolAAPL Symbol = "AAPL"
	SymbolMETA Symbol = "META"
	SymbolNVDA Symbol = "NVDA"
	SymbolAMZN Symbol = "AMZN"
	SymbolGOOG Symbol = "GOOG"
	SymbolTSLA Symbol = "TSLA"
	SymbolMSFT Symbol = "MSFT"
	SymbolJNJ  Symbol = "JNJ"
)

// Symbols returns all tradeable symbols.
func Symbols() []Symbol {
	return []Symbol{
		SymbolAAPL, SymbolMETA, SymbolNVDA, SymbolAMZN,
		SymbolGOOG, SymbolTSLA, SymbolMSFT, SymbolJNJ,
	}
}

// ParseSymbol converts a string into a Symbol, rejecting anything outside the
// tradeable set.
func ParseSymbol(s string) (Symbol, error) {
	for _, sym := range Symbols() {
		if string(sym) == s {
			return sym, nil
		}
	}
	return "", fmt.Errorf("invalid symbol: %q", s)
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// ParseOrderSide converts a string into an OrderSide.
func ParseOrderSide(s string) (OrderSide, error) {
	switch OrderSide(s) {
	case OrderSideBuy, OrderSideSell:
		return OrderSide(s), nil
	}
	return "", fmt.Errorf("invalid order side: %q", s)
}

// OrderStatus is the lifecycle state of an order. Orders are created PENDING
// and move to COMPLETE exactly once, when the broker settles them.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusComplete OrderStatus = "COMPLETE"
)

// User represents a trader with a cash balance and per-symbol holdings.
type User struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	UUID      uuid.UUID       `json:"uuid" gorm:"type:uuid;uniqueIndex;not null"`
	Email     string          `json:"email" gorm:"uniqueIndex;not null"`
	Username  string          `json:"username" gorm:"uniqueIndex;not null"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:decimal(10,2);not null;default:0"`
	Holdings  []Holding       `json:"holdings" gorm:"foreignKey:UserID"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HeldShares returns the number of shares of the given symbol the user holds.
func (u *User) HeldShares(symbol Symbol) int64 {
	for i := range u.Holdings {
		if u.Holdings[i].Symbol == symbol {
			return u.Holdings[i].Shares
		}
	}
	return 0
}

// AddShares increases the user's holding of symbol by n, creating the holding
// if it does not exist yet. A negative n decreases the holding.
func (u *User) AddShares(symbol Symbol, n int64) {
	for i := range u.Holdings {
		if u.Holdings[i].Symbol == symbol {
			u.Holdings[i].Shares += n
			return
		}
	}
	u.Holdings = append(u.Holdings, Holding{UserID: u.ID, Symbol: symbol, Shares: n})
}

// Holding is one row of a user's per-symbol share count.
type Holding struct {
	ID     uint   `json:"-" gorm:"primaryKey"`
	UserID uint   `json:"-" gorm:"not null;uniqueIndex:idx_holdings_user_symbol"`
	Symbol Symbol `json:"symbol" gorm:"not null;uniqueIndex:idx_holdings_user_symbol"`
	Shares int64  `json:"shares" gorm:"not null"`
}

// Order represents a limit order placed by a user. Bid is the unit price the
// trader is willing to accept; the commission surcharge is applied on top of
// it when the order settles.
type Order struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	UUID      uuid.UUID       `json:"uuid" gorm:"type:uuid;uniqueIndex;not null"`
	OwnerID   uint            `json:"-" gorm:"index;not null"`
	Owner     *User           `json:"-" gorm:"foreignKey:OwnerID"`
	Side      OrderSide       `json:"side" gorm:"not null"`
	Symbol    Symbol          `json:"symbol" gorm:"not null"`
	Amount    int64           `json:"amount" gorm:"not null"`
	Bid       decimal.Decimal `json:"bid" gorm:"type:decimal(18,2);not null"`
	Status    OrderStatus     `json:"status" gorm:"index;not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Notional returns the order's notional value before commission, bid * amount.
func (o *Order) Notional() decimal.Decimal {
	return o.Bid.Mul(decimal.NewFromInt(o.Amount))
}

// IsPending reports whether the order is still awaiting settlement.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}
