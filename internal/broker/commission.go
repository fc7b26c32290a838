package broker

import (
	"github.com/shopspring/decimal"

	"github.com/stonkshq/stonks/pkg/models"
)

// Commission applies the broker's fixed multiplicative fee to trade values.
// All arithmetic stays in decimals; rounding happens only at the persistence
// and response boundaries.
type Commission struct {
	rate decimal.Decimal
}

// NewCommission creates a Commission with the given fractional rate
// (0.07 for 7%).
func NewCommission(rate decimal.Decimal) Commission {
	return Commission{rate: rate}
}

// Rate returns the fractional fee rate.
func (c Commission) Rate() decimal.Decimal {
	return c.rate
}

// Apply returns value * (1 + rate).
func (c Commission) Apply(value decimal.Decimal) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(1).Add(c.rate))
}

// OrderValue returns the commission-adjusted notional value of an order,
// applyCommission(bid * amount). This is the cash a BUY costs its owner.
func (c Commission) OrderValue(order *models.Order) decimal.Decimal {
	return c.Apply(order.Notional())
}

// SellProceeds returns the cash credited for an executed SELL: the
// commission-adjusted notional reduced by the fee rate,
// applyCommission(bid * amount) * (1 - rate).
func (c Commission) SellProceeds(order *models.Order) decimal.Decimal {
	return c.OrderValue(order).Mul(decimal.NewFromInt(1).Sub(c.rate))
}
