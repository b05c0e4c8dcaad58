// Package bab implements the betting-against-beta order generator: long
// the low-beta decile, short the high-beta decile, with beta-neutral
// capital weights, rebalanced at month ends.
package bab

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

// Generator ranks tickers by trailing beta against a designated market
// index on each month-end rebalance date. The low-beta decile is bought
// and the high-beta decile is sold, with the capital split weighted so
// the two legs' average betas offset.
type Generator struct {
	index    string
	lookback int
	capital  float64
	logger   *zap.Logger
}

// New creates a betting-against-beta generator. The index ticker and a
// positive capital are mandatory.
func New(index string, lookback int, capital float64, logger ...*zap.Logger) (*Generator, error) {
	if index == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("market index ticker required"))
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
	return &Generator{index: index, lookback: lookback, capital: capital, logger: l}, nil
}

func (g *Generator) Name() string {
	return "betting_against_beta"
}

func (g *Generator) Description() string {
	return fmt.Sprintf("Betting against beta, %d-day lookback vs %s, month-end rebalance", g.lookback, g.index)
}

// Generate walks the month-end rebalance schedule derived from the index
// calendar and emits the long/short decile orders for each date. A
// rebalance with fewer than factor.MinBreadth scoreable tickers is
// skipped without error; a zero index variance or a zero decile weight
// denominator aborts the run.
func (g *Generator) Generate(prices *core.PriceTable) ([]core.Order, error) {
	indexCol := prices.Column(g.index)
	if len(indexCol) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("index ticker %s not present in price data", g.index))
	}

	indexReturns := factor.DailyReturns(indexCol)
	indexByDate := make(map[time.Time]float64, len(indexReturns))
	for _, r := range indexReturns {
		indexByDate[r.Date] = r.Return
	}

	indexDates := make([]time.Time, len(indexCol))
	for i, p := range indexCol {
		indexDates[i] = p.Date
	}
	rebalances := factor.RebalanceDates(indexDates, g.lookback)

	// Per-ticker return series computed once, reused on every rebalance.
	returnsByTicker := make(map[string][]core.ReturnPoint)
	for _, ticker := range prices.Tickers() {
		if ticker == g.index {
			continue
		}
		returnsByTicker[ticker] = factor.DailyReturns(prices.Column(ticker))
	}

	var orders []core.Order
	for _, date := range rebalances {
		rebalanceOrders, err := g.rebalance(prices, date, returnsByTicker, indexByDate)
		if err != nil {
			return nil, err
		}
		orders = append(orders, rebalanceOrders...)
	}
	return orders, nil
}

func (g *Generator) rebalance(prices *core.PriceTable, date time.Time, returnsByTicker map[string][]core.ReturnPoint, indexByDate map[time.Time]float64) ([]core.Order, error) {
	var ranked []factor.Ranked

	for _, ticker := range prices.Tickers() {
		returns, ok := returnsByTicker[ticker]
		if !ok {
			continue // the index itself
		}
		// A ticker with no quote on the rebalance date cannot be traded.
		if _, ok := prices.Price(date, ticker); !ok {
			continue
		}
		xs, ys, ok := factor.TrailingAligned(returns, indexByDate, date, g.lookback)
		if !ok {
			continue // insufficient aligned observations, skip the ticker
		}
		indexVar := indicator.Variance(ys)
		if indexVar == 0 {
			return nil, core.WrapError(core.ErrZeroVariance,
				fmt.Errorf("index returns flat over %d days ending %s", g.lookback, date.Format("2006-01-02")))
		}
		beta := indicator.Covariance(xs, ys) / indexVar
		ranked = append(ranked, factor.Ranked{Ticker: ticker, Score: beta})
	}

	if len(ranked) < factor.MinBreadth {
		g.logger.Debug("rebalance skipped, insufficient breadth",
			zap.String("date", date.Format("2006-01-02")),
			zap.Int("tickers", len(ranked)),
		)
		return nil, nil
	}

	factor.Sort(ranked)
	decileSize := factor.DecileSize(len(ranked))
	low := ranked[:decileSize]
	high := ranked[len(ranked)-decileSize:]

	lowWeight, highWeight, err := legWeights(avgScore(low), avgScore(high))
	if err != nil {
		return nil, err
	}

	var orders []core.Order
	buyQty := int(math.Floor(g.capital * lowWeight / float64(decileSize)))
	sellQty := int(math.Floor(g.capital * highWeight / float64(decileSize)))
	if buyQty > 0 {
		for _, r := range low {
			orders = append(orders, core.Order{Date: date, Ticker: r.Ticker, Side: core.SideBuy, Quantity: buyQty})
		}
	}
	if sellQty > 0 {
		for _, r := range high {
			orders = append(orders, core.Order{Date: date, Ticker: r.Ticker, Side: core.SideSell, Quantity: sellQty})
		}
	}
	return orders, nil
}

// legWeights computes the beta-neutralizing capital split between the
// long (low beta) and short (high beta) legs. A zero denominator makes
// the split undefined and fails fast rather than dividing silently.
func legWeights(avgLow, avgHigh float64) (low, high float64, err error) {
	denom := avgLow + avgHigh
	if denom == 0 {
		return 0, 0, core.WrapError(core.ErrDegenerateWeights,
			fmt.Errorf("average decile betas sum to zero"))
	}
	return avgHigh / denom, avgLow / denom, nil
}

func avgScore(ranked []factor.Ranked) float64 {
	var sum float64
	for _, r := range ranked {
		sum += r.Score
	}
	return sum / float64(len(ranked))
}
