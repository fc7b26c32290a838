package broker

import (
	"github.com/shopspring/decimal"

	"github.com/stonkshq/stonks/internal/marketdata"
	"github.com/stonkshq/stonks/pkg/models"
)

// Decision is the outcome of evaluating a pending order against a snapshot.
type Decision int

const (
	// Wait leaves the order pending for a later tick.
	Wait Decision = iota
	// Execute settles the order at this tick.
	Execute
)

func (d Decision) String() string {
	if d == Execute {
		return "EXECUTE"
	}
	return "WAIT"
}

// Evaluate decides whether a pending order settles against the given price
// snapshot. It is a pure function: no side effects, no I/O.
//
// A BUY executes once the commission-adjusted bid has reached the market
// price and the owner's available balance (balance minus the value reserved
// by their other pending BUY orders) covers the order's full cost. A SELL
// executes while the market price has not exceeded the bid. A symbol
// missing from the snapshot always waits.
func Evaluate(order *models.Order, snapshot marketdata.Snapshot, available decimal.Decimal, fee Commission) Decision {
	market, ok := snapshot.Price(order.Symbol)
	if !ok {
		return Wait
	}

	switch order.Side {
	case models.OrderSideBuy:
		if fee.Apply(order.Bid).LessThan(market) {
			return Wait
		}
		if available.LessThan(fee.OrderValue(order)) {
			return Wait
		}
		return Execute
	case models.OrderSideSell:
		if order.Bid.LessThan(market) {
			return Wait
		}
		return Execute
	}

	return Wait
}
