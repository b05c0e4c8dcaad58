package meanrev

import (
	"testing"
	"time"

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/generator"
)

var _ generator.Generator = (*Generator)(nil)

func series(start time.Time, prices []float64) []core.PricePoint {
	points := make([]core.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = core.PricePoint{Date: start.AddDate(0, 0, i), Price: p}
	}
	return points
}

func TestGenerate_ShortSeriesEmitsNothing(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := core.NewPriceTable(map[string][]core.PricePoint{
		"AAPL": series(start, []float64{100, 101, 102}),
	})

	orders, err := New(100, 100).Generate(prices)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no orders for a series shorter than the window, got %d", len(orders))
	}
}

func TestGenerate_FirstOrderAtWindowBoundary(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 120)
	for i := range prices {
		prices[i] = 100 + float64(i%7) // oscillates, so both sides appear
	}
	table := core.NewPriceTable(map[string][]core.PricePoint{
		"AAPL": series(start, prices),
	})

	orders, err := New(100, 100).Generate(table)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(orders) != 21 {
		t.Fatalf("expected one order per date from the window boundary on, got %d", len(orders))
	}

	// First order lands exactly on the 100th observation (index 99).
	wantFirst := start.AddDate(0, 0, 99)
	if !orders[0].Date.Equal(wantFirst) {
		t.Errorf("first order dated %v, want %v", orders[0].Date, wantFirst)
	}
	for i := 1; i < len(orders); i++ {
		if !orders[i].Date.After(orders[i-1].Date) {
			t.Errorf("orders out of date order at %d", i)
		}
	}
}

func TestGenerate_SidesFollowTheAverage(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	table := core.NewPriceTable(map[string][]core.PricePoint{
		// window=3: avg at the 3rd point is 100; close 90 < 100 -> BUY.
		// Next avg is (100+90+130)/3 ~ 106.7; close 130 -> SELL.
		"AAPL": series(start, []float64{110, 100, 90, 130}),
	})

	orders, err := New(3, 50).Generate(table)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].Side != core.SideBuy {
		t.Errorf("orders[0].Side = %s, want BUY", orders[0].Side)
	}
	if orders[1].Side != core.SideSell {
		t.Errorf("orders[1].Side = %s, want SELL", orders[1].Side)
	}
	for _, o := range orders {
		if o.Quantity != 50 || o.Ticker != "AAPL" {
			t.Errorf("unexpected order %+v", o)
		}
	}
}

func TestGenerate_CloseEqualToAverageSells(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	table := core.NewPriceTable(map[string][]core.PricePoint{
		"AAPL": series(start, []float64{100, 100, 100}),
	})

	orders, err := New(3, 100).Generate(table)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(orders) != 1 || orders[0].Side != core.SideSell {
		t.Errorf("close equal to the average should SELL, got %v", orders)
	}
}

func TestGenerate_MultipleTickers(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	table := core.NewPriceTable(map[string][]core.PricePoint{
		"AAPL": series(start, []float64{100, 100, 90}),
		"MSFT": series(start, []float64{200, 200, 260}),
	})

	orders, err := New(3, 10).Generate(table)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected one order per ticker, got %d", len(orders))
	}
	// Tickers are walked in sorted order.
	if orders[0].Ticker != "AAPL" || orders[0].Side != core.SideBuy {
		t.Errorf("orders[0] = %+v", orders[0])
	}
	if orders[1].Ticker != "MSFT" || orders[1].Side != core.SideSell {
		t.Errorf("orders[1] = %+v", orders[1])
	}
}
