package bab

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/generator"
)

var _ generator.Generator = (*Generator)(nil)

// indexPattern is a repeating daily return profile with nonzero variance.
var indexPattern = []float64{0.010, -0.020, 0.015, 0.005, -0.010, 0.020}

// buildTable constructs a price table where each ticker's daily returns
// are exactly beta times the index returns, so the trailing regression
// recovers the configured betas.
func buildTable(days int, betas map[string]float64) *core.PriceTable {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(map[string][]core.PricePoint, len(betas)+1)

	indexPrices := []core.PricePoint{{Date: start, Price: 100}}
	for i := 1; i < days; i++ {
		r := indexPattern[(i-1)%len(indexPattern)]
		indexPrices = append(indexPrices, core.PricePoint{
			Date:  start.AddDate(0, 0, i-1+1),
			Price: indexPrices[i-1].Price * (1 + r),
		})
	}
	// Keep all dates within one calendar month so exactly one month-end
	// rebalance exists.
	series["SPY"] = indexPrices

	for ticker, beta := range betas {
		prices := []core.PricePoint{{Date: start, Price: 100}}
		for i := 1; i < days; i++ {
			r := indexPattern[(i-1)%len(indexPattern)]
			prices = append(prices, core.PricePoint{
				Date:  start.AddDate(0, 0, i),
				Price: prices[i-1].Price * (1 + beta*r),
			})
		}
		series[ticker] = prices
	}
	return core.NewPriceTable(series)
}

func spreadBetas(n int, first, step float64) map[string]float64 {
	betas := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		betas[tickerName(i)] = first + step*float64(i)
	}
	return betas
}

func tickerName(i int) string {
	return string(rune('A'+i/10)) + string(rune('0'+i%10))
}

func TestNew_RequiresIndexAndCapital(t *testing.T) {
	if _, err := New("", 60, 50000); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing for empty index, got %v", err)
	}
	if _, err := New("SPY", 60, 0); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid for zero capital, got %v", err)
	}
}

func TestGenerate_IndexMissingFromTable(t *testing.T) {
	table := buildTable(12, spreadBetas(21, 0.5, 0.1))
	g, err := New("QQQ", 5, 30000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := g.Generate(table); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestGenerate_InsufficientBreadth_SkipsRebalance(t *testing.T) {
	// Five tickers with computable betas: below the 20-ticker floor, so
	// the rebalance produces no orders and no error.
	table := buildTable(12, spreadBetas(5, 0.5, 0.1))
	g, err := New("SPY", 5, 30000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	orders, err := g.Generate(table)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
}

func TestGenerate_DecileOrders(t *testing.T) {
	// 21 tickers, betas 0.5 .. 2.5 in steps of 0.1. Decile size is 2:
	// long the two lowest betas, short the two highest.
	table := buildTable(12, spreadBetas(21, 0.5, 0.1))
	g, err := New("SPY", 5, 30000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	orders, err := g.Generate(table)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(orders) != 4 {
		t.Fatalf("expected 2 buys + 2 sells, got %d orders: %v", len(orders), orders)
	}

	buys := map[string]int{}
	sells := map[string]int{}
	for _, o := range orders {
		switch o.Side {
		case core.SideBuy:
			buys[o.Ticker] = o.Quantity
		case core.SideSell:
			sells[o.Ticker] = o.Quantity
		}
		if !o.Date.Equal(time.Date(2023, 1, 13, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("order dated %v, want the month-end rebalance date", o.Date)
		}
	}

	for _, ticker := range []string{tickerName(0), tickerName(1)} {
		if _, ok := buys[ticker]; !ok {
			t.Errorf("low-beta ticker %s should be bought, buys=%v", ticker, buys)
		}
	}
	for _, ticker := range []string{tickerName(19), tickerName(20)} {
		if _, ok := sells[ticker]; !ok {
			t.Errorf("high-beta ticker %s should be sold, sells=%v", ticker, sells)
		}
	}

	// avgLow=0.55, avgHigh=2.45: lowWeight=2.45/3, highWeight=0.55/3.
	// buyQty = floor(30000*2.45/3/2) = 12250, sellQty = 2750, give or
	// take one share of floating point in the recovered betas.
	for ticker, qty := range buys {
		if math.Abs(float64(qty)-12250) > 1 {
			t.Errorf("buy quantity for %s = %d, want ~12250", ticker, qty)
		}
	}
	for ticker, qty := range sells {
		if math.Abs(float64(qty)-2750) > 1 {
			t.Errorf("sell quantity for %s = %d, want ~2750", ticker, qty)
		}
	}
}

func TestGenerate_ShortHistoryTickerExcluded(t *testing.T) {
	betas := spreadBetas(21, 0.5, 0.1)
	table := buildTable(12, betas)

	// A 22nd ticker with two observations cannot produce a lookback
	// window; it is skipped without breaking the rebalance.
	stub := map[string][]core.PricePoint{
		"ZZ": {
			{Date: time.Date(2023, 1, 12, 0, 0, 0, 0, time.UTC), Price: 50},
			{Date: time.Date(2023, 1, 13, 0, 0, 0, 0, time.UTC), Price: 51},
		},
	}
	for _, ticker := range table.Tickers() {
		stub[ticker] = table.Column(ticker)
	}
	table = core.NewPriceTable(stub)

	g, err := New("SPY", 5, 30000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	orders, err := g.Generate(table)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, o := range orders {
		if o.Ticker == "ZZ" {
			t.Errorf("ticker with insufficient history must not trade: %+v", o)
		}
	}
	if len(orders) != 4 {
		t.Errorf("expected 4 orders from the remaining universe, got %d", len(orders))
	}
}

func TestLegWeights(t *testing.T) {
	low, high, err := legWeights(0.55, 2.45)
	if err != nil {
		t.Fatalf("legWeights() error = %v", err)
	}
	if math.Abs(low-2.45/3.0) > 1e-12 || math.Abs(high-0.55/3.0) > 1e-12 {
		t.Errorf("weights = %f, %f; want %f, %f", low, high, 2.45/3.0, 0.55/3.0)
	}

	// Decile averages that cancel make the split undefined.
	if _, _, err := legWeights(-0.95, 0.95); !errors.Is(err, core.ErrDegenerateWeights) {
		t.Errorf("expected ErrDegenerateWeights, got %v", err)
	}
}

func TestGenerate_FlatIndex_ZeroVariance(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(map[string][]core.PricePoint)
	for i := 0; i < 21; i++ {
		var points []core.PricePoint
		for d := 0; d < 12; d++ {
			points = append(points, core.PricePoint{Date: start.AddDate(0, 0, d), Price: 100 + float64(i) + float64(d%3)})
		}
		series[tickerName(i)] = points
	}
	var flat []core.PricePoint
	for d := 0; d < 12; d++ {
		flat = append(flat, core.PricePoint{Date: start.AddDate(0, 0, d), Price: 100})
	}
	series["SPY"] = flat

	g, err := New("SPY", 5, 30000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := g.Generate(core.NewPriceTable(series)); !errors.Is(err, core.ErrZeroVariance) {
		t.Errorf("expected ErrZeroVariance, got %v", err)
	}
}
