package broker

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/stonkshq/stonks/internal/marketdata"
	"github.com/stonkshq/stonks/pkg/models"
)

func buyOrder(bid string, amount int64) *models.Order {
	return &models.Order{
		Side:   models.OrderSideBuy,
		Symbol: models.SymbolAAPL,
		Amount: amount,
		Bid:    decimal.RequireFromString(bid),
	}
}

func sellOrder(bid string, amount int64) *models.Order {
	return &models.Order{
		Side:   models.OrderSideSell,
		Symbol: models.SymbolAAPL,
		Amount: amount,
		Bid:    decimal.RequireFromString(bid),
	}
}

func snapshotWith(price string) marketdata.Snapshot {
	return marketdata.Snapshot{
		models.SymbolAAPL: decimal.RequireFromString(price),
	}
}

func TestEvaluateBuyExecutes(t *testing.T) {
	fee := newTestCommission(t)
	order := buyOrder("100", 5)

	// Adjusted bid 107 covers market 90 and the owner has 1000 available
	// against a 535 cost.
	got := Evaluate(order, snapshotWith("90"), decimal.RequireFromString("1000"), fee)
	assert.Equal(t, Execute, got)
}

func TestEvaluateBuyWaitsWhenMarketAboveAdjustedBid(t *testing.T) {
	fee := newTestCommission(t)
	order := buyOrder("100", 5)

	// Market 120 > adjusted bid 107.
	got := Evaluate(order, snapshotWith("120"), decimal.RequireFromString("1000"), fee)
	assert.Equal(t, Wait, got)
}

func TestEvaluateBuyWaitsWhenUnderfunded(t *testing.T) {
	fee := newTestCommission(t)
	order := buyOrder("100", 5)

	// Cost is 535 but only 500 is available.
	got := Evaluate(order, snapshotWith("90"), decimal.RequireFromString("500"), fee)
	assert.Equal(t, Wait, got)
}

func TestEvaluateBuyExecutesAtExactCost(t *testing.T) {
	fee := newTestCommission(t)
	order := buyOrder("100", 5)

	got := Evaluate(order, snapshotWith("90"), decimal.RequireFromString("535"), fee)
	assert.Equal(t, Execute, got)
}

func TestEvaluateSellExecutesWhileBidCoversMarket(t *testing.T) {
	fee := newTestCommission(t)

	got := Evaluate(sellOrder("100", 5), snapshotWith("90"), decimal.Zero, fee)
	assert.Equal(t, Execute, got)

	got = Evaluate(sellOrder("100", 5), snapshotWith("100"), decimal.Zero, fee)
	assert.Equal(t, Execute, got)
}

func TestEvaluateSellWaitsWhenMarketAboveBid(t *testing.T) {
	fee := newTestCommission(t)

	got := Evaluate(sellOrder("100", 5), snapshotWith("110"), decimal.Zero, fee)
	assert.Equal(t, Wait, got)
}

func TestEvaluateWaitsOnMissingSymbol(t *testing.T) {
	fee := newTestCommission(t)
	order := buyOrder("100", 5)
	order.Symbol = models.SymbolTSLA

	got := Evaluate(order, snapshotWith("90"), decimal.RequireFromString("1000"), fee)
	assert.Equal(t, Wait, got)
}
