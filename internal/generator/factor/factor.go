// Package factor holds the cross-sectional scaffolding shared by the
// rebalancing order generators: daily return series, month-end rebalance
// schedules, trailing lookback windows, and decile splits.
package factor

import (
	"sort"
	"time"

	"github.com/northquay/pharos/internal/core"
)

// MinBreadth is the minimum number of scoreable tickers required to form
// deciles on a rebalance date. Below it the rebalance is skipped entirely.
const MinBreadth = 20

// DailyReturns converts a price series into day-over-day fractional
// changes. Each return is stamped with the date it was observed on, so a
// series of n prices yields n-1 dated returns.
func DailyReturns(points []core.PricePoint) []core.ReturnPoint {
	if len(points) < 2 {
		return nil
	}
	out := make([]core.ReturnPoint, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Price
		if prev == 0 {
			continue
		}
		out = append(out, core.ReturnPoint{
			Date:   points[i].Date,
			Return: points[i].Price/prev - 1,
		})
	}
	return out
}

// MonthEnds returns the last date of each calendar month present in the
// ascending date slice.
func MonthEnds(dates []time.Time) []time.Time {
	var out []time.Time
	for i, d := range dates {
		last := i == len(dates)-1
		if !last {
			next := dates[i+1]
			if next.Year() == d.Year() && next.Month() == d.Month() {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// RebalanceDates produces the month-end schedule for a strategy whose
// clock is the index's trading calendar: month ends falling between the
// lookback-th index-return observation and the last available date. The
// k-th return observation lands on indexDates[k], since the first price
// has no predecessor.
func RebalanceDates(indexDates []time.Time, lookback int) []time.Time {
	if lookback <= 0 || len(indexDates) <= lookback {
		return nil
	}
	first := indexDates[lookback]
	var out []time.Time
	for _, d := range MonthEnds(indexDates) {
		if !d.Before(first) {
			out = append(out, d)
		}
	}
	return out
}

// Trailing extracts the last `lookback` return observations ending on or
// before `end`. The second return value is false when fewer observations
// are available; that is an expected, frequent condition and is reported
// as an absent result rather than an error.
func Trailing(returns []core.ReturnPoint, end time.Time, lookback int) ([]float64, bool) {
	if lookback <= 0 {
		return nil, false
	}
	last := len(returns) - 1
	for last >= 0 && returns[last].Date.After(end) {
		last--
	}
	if last+1 < lookback {
		return nil, false
	}
	out := make([]float64, lookback)
	for i := 0; i < lookback; i++ {
		out[i] = returns[last-lookback+1+i].Return
	}
	return out, true
}

// TrailingAligned extracts the last `lookback` pairs of (series, index)
// returns observed on common dates, ending on or before `end`. Both
// slices come back in chronological order. The third return value is
// false when fewer than `lookback` aligned observations exist.
func TrailingAligned(returns []core.ReturnPoint, index map[time.Time]float64, end time.Time, lookback int) ([]float64, []float64, bool) {
	if lookback <= 0 {
		return nil, nil, false
	}
	xs := make([]float64, lookback)
	ys := make([]float64, lookback)
	n := 0
	for i := len(returns) - 1; i >= 0 && n < lookback; i-- {
		if returns[i].Date.After(end) {
			continue
		}
		idx, ok := index[returns[i].Date]
		if !ok {
			continue
		}
		n++
		xs[lookback-n] = returns[i].Return
		ys[lookback-n] = idx
	}
	if n < lookback {
		return nil, nil, false
	}
	return xs, ys, true
}

// DecileSize returns max(1, floor(0.1*n)).
func DecileSize(n int) int {
	size := n / 10
	if size < 1 {
		size = 1
	}
	return size
}

// Ranked pairs a ticker with its factor score for one rebalance date.
type Ranked struct {
	Ticker string
	Score  float64
}

// Sort orders by score ascending, breaking ties by ticker so that a
// rebalance is deterministic regardless of map iteration order.
func Sort(ranked []Ranked) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})
}
