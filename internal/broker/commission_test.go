package broker

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/stonkshq/stonks/pkg/models"
)

func newTestCommission(t *testing.T) Commission {
	t.Helper()
	return NewCommission(decimal.RequireFromString("0.07"))
}

func TestCommissionApply(t *testing.T) {
	fee := newTestCommission(t)

	got := fee.Apply(decimal.RequireFromString("100"))
	assert.True(t, got.Equal(decimal.RequireFromString("107")), "got %s", got)
}

func TestCommissionOrderValue(t *testing.T) {
	fee := newTestCommission(t)
	order := &models.Order{
		Side:   models.OrderSideBuy,
		Symbol: models.SymbolAAPL,
		Amount: 5,
		Bid:    decimal.RequireFromString("100"),
	}

	got := fee.OrderValue(order)
	assert.True(t, got.Equal(decimal.RequireFromString("535")), "got %s", got)
}

func TestCommissionSellProceeds(t *testing.T) {
	fee := newTestCommission(t)
	order := &models.Order{
		Side:   models.OrderSideSell,
		Symbol: models.SymbolAAPL,
		Amount: 5,
		Bid:    decimal.RequireFromString("100"),
	}

	// 500 * 1.07 * 0.93 = 497.55
	got := fee.SellProceeds(order)
	assert.True(t, got.Equal(decimal.RequireFromString("497.55")), "got %s", got)
}
