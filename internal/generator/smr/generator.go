// Package smr implements the stable-minus-risky order generator: long the
// decile with the lowest trailing annualized return, short the highest,
// capital split evenly between the legs, rebalanced at month ends.
package smr

import (
	"fmt"
	"math"
	"time"

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/generator/factor"
	"github.com/northquay/pharos/internal/indicator"
	"go.uber.org/zap"
)

const DefaultLookback = 60

// Generator ranks tickers by trailing annualized mean daily return on
// each month-end rebalance date. The lowest-return decile is the stable
// leg and is bought; the highest-return decile is the risky leg and is
// sold. Half the capital goes to each leg, divided evenly across the
// leg's members.
type Generator struct {
	index       string
	lookback    int
	capital     float64
	tradingDays int
	logger      *zap.Logger
}

// New creates a stable-minus-risky generator. The index ticker drives the
// rebalance calendar only; it is never ranked or traded.
func New(index string, lookback int, capital float64, logger ...*zap.Logger) (*Generator, error) {
	if index == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("calendar index ticker required"))
	}
	if capital <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("capital must be positive, got %f", capital))
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Generator{index: index, lookback: lookback, capital: capital, tradingDays: 252, logger: l}, nil
}

func (g *Generator) Name() string {
	return "stable_minus_risky"
}

func (g *Generator) Description() string {
	return fmt.Sprintf("Stable minus risky, %d-day trailing return rank, month-end rebalance", g.lookback)
}

// Generate walks the month-end rebalance schedule and emits the decile
// orders for each date. Rebalances with fewer than factor.MinBreadth
// scoreable tickers are skipped without error.
func (g *Generator) Generate(prices *core.PriceTable) ([]core.Order, error) {
	indexCol := prices.Column(g.index)
	if len(indexCol) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("index ticker %s not present in price data", g.index))
	}

	indexDates := make([]time.Time, len(indexCol))
	for i, p := range indexCol {
		indexDates[i] = p.Date
	}
	rebalances := factor.RebalanceDates(indexDates, g.lookback)

	returnsByTicker := make(map[string][]core.ReturnPoint)
	for _, ticker := range prices.Tickers() {
		if ticker == g.index {
			continue
		}
		returnsByTicker[ticker] = factor.DailyReturns(prices.Column(ticker))
	}

	var orders []core.Order
	for _, date := range rebalances {
		orders = append(orders, g.rebalance(prices, date, returnsByTicker)...)
	}
	return orders, nil
}

func (g *Generator) rebalance(prices *core.PriceTable, date time.Time, returnsByTicker map[string][]core.ReturnPoint) []core.Order {
	var ranked []factor.Ranked

	for _, ticker := range prices.Tickers() {
		returns, ok := returnsByTicker[ticker]
		if !ok {
			continue
		}
		if _, ok := prices.Price(date, ticker); !ok {
			continue
		}
		window, ok := factor.Trailing(returns, date, g.lookback)
		if !ok {
			continue
		}
		annualized := indicator.Mean(window) * float64(g.tradingDays)
		ranked = append(ranked, factor.Ranked{Ticker: ticker, Score: annualized})
	}

	if len(ranked) < factor.MinBreadth {
		g.logger.Debug("rebalance skipped, insufficient breadth",
			zap.String("date", date.Format("2006-01-02")),
			zap.Int("tickers", len(ranked)),
		)
		return nil
	}

	factor.Sort(ranked)
	decileSize := factor.DecileSize(len(ranked))
	stable := ranked[:decileSize]
	risky := ranked[len(ranked)-decileSize:]

	// Even split: half the capital per leg, no factor weighting.
	qty := int(math.Floor(g.capital / 2 / float64(decileSize)))
	if qty <= 0 {
		return nil
	}

	var orders []core.Order
	for _, r := range stable {
		orders = append(orders, core.Order{Date: date, Ticker: r.Ticker, Side: core.SideBuy, Quantity: qty})
	}
	for _, r := range risky {
		orders = append(orders, core.Order{Date: date, Ticker: r.Ticker, Side: core.SideSell, Quantity: qty})
	}
	return orders
}
