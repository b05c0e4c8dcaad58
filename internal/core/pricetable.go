package core

import (
	"sort"
	"time"
)

// PriceTable is an immutable in-memory table of adjusted close prices
// indexed by (trading date, ticker). All ticker columns share one date
// index; a (date, ticker) cell may be absent and must be checked before
// use, never defaulted to zero.
type PriceTable struct {
	dates   []time.Time
	tickers []string
	rows    []map[string]float64 // parallel to dates
	index   map[time.Time]int    // date -> row position
}

// NewPriceTable builds a table from per-ticker price series. Dates are
// normalized to UTC calendar days; the date index is the sorted union of
// all observation dates. Non-positive prices are dropped.
func NewPriceTable(series map[string][]PricePoint) *PriceTable {
	dateSet := make(map[time.Time]struct{})
	tickers := make([]string, 0, len(series))
	for ticker, points := range series {
		tickers = append(tickers, ticker)
		for _, p := range points {
			if p.Price > 0 {
				dateSet[Day(p.Date)] = struct{}{}
			}
		}
	}
	sort.Strings(tickers)

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[time.Time]int, len(dates))
	rows := make([]map[string]float64, len(dates))
	for i, d := range dates {
		index[d] = i
		rows[i] = make(map[string]float64)
	}

	for ticker, points := range series {
		for _, p := range points {
			if p.Price <= 0 {
				continue
			}
			rows[index[Day(p.Date)]][ticker] = p.Price
		}
	}

	return &PriceTable{dates: dates, tickers: tickers, rows: rows, index: index}
}

// Price returns the adjusted close for (date, ticker). The second return
// value is false when no observation exists for that cell.
func (t *PriceTable) Price(date time.Time, ticker string) (float64, bool) {
	i, ok := t.index[Day(date)]
	if !ok {
		return 0, false
	}
	price, ok := t.rows[i][ticker]
	return price, ok
}

// HasDate reports whether the table's date index contains the given date.
func (t *PriceTable) HasDate(date time.Time) bool {
	_, ok := t.index[Day(date)]
	return ok
}

// Dates returns the table's date index in ascending order. The returned
// slice is a copy and safe to modify.
func (t *PriceTable) Dates() []time.Time {
	out := make([]time.Time, len(t.dates))
	copy(out, t.dates)
	return out
}

// Tickers returns the table's ticker symbols in ascending order.
func (t *PriceTable) Tickers() []string {
	out := make([]string, len(t.tickers))
	copy(out, t.tickers)
	return out
}

// Column returns the price series of one ticker in date order, containing
// only the dates where the ticker has an observation.
func (t *PriceTable) Column(ticker string) []PricePoint {
	var out []PricePoint
	for i, d := range t.dates {
		if price, ok := t.rows[i][ticker]; ok {
			out = append(out, PricePoint{Date: d, Price: price})
		}
	}
	return out
}

// Len returns the number of dates in the index.
func (t *PriceTable) Len() int {
	return len(t.dates)
}
