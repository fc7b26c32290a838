package broker

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stonkshq/stonks/pkg/models"
)

// InsufficientBalanceError is returned when a prospective BUY order costs
// more than the owner's balance net of their already-pending BUY orders.
type InsufficientBalanceError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: order costs %s but only %s is available",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// InsufficientStockError is returned when a prospective SELL order asks for
// more shares than the owner holds net of their other pending SELL orders.
type InsufficientStockError struct {
	Symbol    models.Symbol
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: cannot sell %d shares of %s, only %d available",
		e.Requested, e.Symbol, e.Available)
}
