package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stonkshq/stonks/pkg/metrics"
	"github.com/stonkshq/stonks/pkg/models"
	"github.com/stonkshq/stonks/pkg/retry"
)

// Snapshot is one settlement tick's view of market prices. A snapshot is
// never mutated after Build returns it; each tick gets a fresh one.
type Snapshot map[models.Symbol]decimal.Decimal

// Price returns the snapshot price for a symbol and whether one is present.
func (s Snapshot) Price(symbol models.Symbol) (decimal.Decimal, bool) {
	price, ok := s[symbol]
	return price, ok
}

// quoteRetryDelay is the initial delay between quote retry attempts.
const quoteRetryDelay = 500 * time.Millisecond

// SnapshotBuilder assembles a price snapshot per settlement tick, retrying
// each symbol's quote a bounded number of times and degrading to the previous
// tick's price when the feed stays unavailable.
type SnapshotBuilder struct {
	client   QuoteClient
	symbols  []models.Symbol
	attempts int
	logger   *zap.Logger
}

// NewSnapshotBuilder creates a builder over the given quote client and
// symbol universe.
func NewSnapshotBuilder(client QuoteClient, symbols []models.Symbol, attempts int, logger *zap.Logger) *SnapshotBuilder {
	if attempts < 1 {
		attempts = 1
	}
	return &SnapshotBuilder{
		client:   client,
		symbols:  symbols,
		attempts: attempts,
		logger:   logger,
	}
}

// Build fetches a fresh price for every symbol. A symbol whose fetch fails
// after all retries falls back to its price in previous; with no previous
// price either, the symbol is omitted and its orders wait for the next tick.
func (b *SnapshotBuilder) Build(ctx context.Context, previous Snapshot) Snapshot {
	snapshot := make(Snapshot, len(b.symbols))

	for _, symbol := range b.symbols {
		var price decimal.Decimal
		err := retry.Do(ctx, b.attempts, quoteRetryDelay, func() error {
			p, qerr := b.client.Quote(ctx, symbol)
			if qerr != nil {
				return qerr
			}
			price = p
			return nil
		})
		if err == nil {
			snapshot[symbol] = price
			continue
		}

		metrics.QuoteFetchFailures.WithLabelValues(string(symbol)).Inc()

		if stale, ok := previous.Price(symbol); ok {
			b.logger.Warn("quote fetch failed, using previous price",
				zap.String("symbol", string(symbol)),
				zap.String("price", stale.String()),
				zap.Error(err))
			snapshot[symbol] = stale
			continue
		}

		b.logger.Warn("quote fetch failed with no previous price, omitting symbol",
			zap.String("symbol", string(symbol)),
			zap.Error(err))
	}

	return snapshot
}
