// Package perf converts a portfolio value series into standardized
// risk/return statistics.
package perf

import (
	"math"
	"time"

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/indicator"
)

const (
	DefaultRiskFreeRate = 0.0045
	DefaultTradingDays  = 252
)

// Engine computes performance statistics. The annualization convention
// and risk-free rate are explicit configuration rather than embedded
// constants, so the contract stays testable across conventions.
type Engine struct {
	RiskFreeRate float64 // Annual
	TradingDays  int
}

// NewEngine creates an Engine with the 252-trading-day convention and a
// 0.45% annual risk-free rate.
func NewEngine() *Engine {
	return &Engine{RiskFreeRate: DefaultRiskFreeRate, TradingDays: DefaultTradingDays}
}

// Report holds the computed statistics. Every field is a pointer: nil
// means "not computable" — no benchmark supplied, insufficient data, or
// a degenerate denominator.
type Report struct {
	DailyReturn      *float64 `json:"daily_return"`
	CumulativeReturn *float64 `json:"cumulative_return"`
	LogReturn        *float64 `json:"log_return"`
	Volatility       *float64 `json:"volatility"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	MaxDrawdown      *float64 `json:"max_drawdown"`
	VaR5             *float64 `json:"var_5"`

	// Benchmark-dependent, computed over the date-aligned intersection.
	InformationCoefficient *float64 `json:"information_coefficient"`
	Beta                   *float64 `json:"beta"`
	Alpha                  *float64 `json:"alpha"`
}

// Map flattens the report into the statistic-name form used at the
// serialization boundary.
func (r *Report) Map() map[string]*float64 {
	return map[string]*float64{
		"Daily Return":            r.DailyReturn,
		"Cumulative Return":       r.CumulativeReturn,
		"Log Return":              r.LogReturn,
		"Volatility":              r.Volatility,
		"Sharpe Ratio":            r.SharpeRatio,
		"Max Drawdown":            r.MaxDrawdown,
		"VaR 5%":                  r.VaR5,
		"Information Coefficient": r.InformationCoefficient,
		"Beta":                    r.Beta,
		"Alpha":                   r.Alpha,
	}
}

// Calculate produces a fresh report from a portfolio value series, its
// period-over-period returns, and an optional benchmark return series.
// Nothing is persisted between calls.
func (e *Engine) Calculate(values core.ValueSeries, returns, benchmark []core.ReturnPoint) *Report {
	report := &Report{}

	rs := make([]float64, len(returns))
	for i, r := range returns {
		rs[i] = r.Return
	}

	if len(rs) > 0 {
		report.DailyReturn = ptr(indicator.Mean(rs))

		cumulative := 1.0
		logSum := 0.0
		for _, r := range rs {
			cumulative *= 1 + r
			logSum += math.Log(1 + r)
		}
		report.CumulativeReturn = ptr(cumulative - 1)
		report.LogReturn = ptr(logSum / float64(len(rs)))

		if v, ok := indicator.Quantile(rs, 0.05); ok {
			report.VaR5 = ptr(v)
		}
	}

	annualize := math.Sqrt(float64(e.TradingDays))
	if len(rs) >= 2 {
		report.Volatility = ptr(indicator.StdDev(rs) * annualize)

		excess := make([]float64, len(rs))
		for i, r := range rs {
			excess[i] = r - e.RiskFreeRate/float64(e.TradingDays)
		}
		if sd := indicator.StdDev(excess); sd > 0 {
			report.SharpeRatio = ptr(indicator.Mean(excess) / sd * annualize)
		}
	}

	if dd, ok := maxDrawdown(values); ok {
		report.MaxDrawdown = ptr(dd)
	}

	if len(benchmark) > 0 {
		alignedR, alignedB := align(returns, benchmark)
		if corr, ok := indicator.Correlation(alignedR, alignedB); ok {
			report.InformationCoefficient = ptr(corr)
		}
		if bvar := indicator.Variance(alignedB); bvar > 0 {
			beta := indicator.Covariance(alignedR, alignedB) / bvar
			report.Beta = ptr(beta)
			days := float64(e.TradingDays)
			report.Alpha = ptr(indicator.Mean(alignedR)*days - beta*indicator.Mean(alignedB)*days)
		}
	}

	return report
}

// maxDrawdown returns the minimum of value/runningMax - 1 over the
// series. The running maximum uses only values observed so far.
func maxDrawdown(values core.ValueSeries) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	peak := values[0].Value
	minDD := 0.0
	for _, p := range values {
		if p.Value > peak {
			peak = p.Value
		}
		if peak == 0 {
			continue
		}
		if dd := p.Value/peak - 1; dd < minDD {
			minDD = dd
		}
	}
	return minDD, true
}

// align intersects two dated return series, producing parallel value
// slices over the dates common to both.
func align(a, b []core.ReturnPoint) ([]float64, []float64) {
	index := make(map[time.Time]float64, len(b))
	for _, p := range b {
		index[p.Date] = p.Return
	}
	var xs, ys []float64
	for _, p := range a {
		if v, ok := index[p.Date]; ok {
			xs = append(xs, p.Return)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

func ptr(v float64) *float64 {
	return &v
}
