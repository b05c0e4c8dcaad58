package core

import (
	"math"
	"testing"
	"time"
)

func TestOrder_IsValid(t *testing.T) {
	o := Order{
		Date:     time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
		Ticker:   "AAPL",
		Side:     SideBuy,
		Quantity: 100,
	}

	if !o.IsValid() {
		t.Error("expected valid order")
	}

	invalid := []Order{
		{Ticker: "", Side: SideBuy, Quantity: 100},
		{Ticker: "AAPL", Side: SideBuy, Quantity: 0},
		{Ticker: "AAPL", Side: "HOLD", Quantity: 100},
	}
	for i, o := range invalid {
		if o.IsValid() {
			t.Errorf("order %d should be invalid", i)
		}
	}
}

func TestValueSeries_Returns(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	series := ValueSeries{
		{Date: base, Value: 100},
		{Date: base.AddDate(0, 0, 1), Value: 110},
		{Date: base.AddDate(0, 0, 2), Value: 99},
	}

	returns := series.Returns()
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0].Return-0.10) > 1e-12 {
		t.Errorf("returns[0] = %f, want 0.10", returns[0].Return)
	}
	if math.Abs(returns[1].Return-(-0.10)) > 1e-12 {
		t.Errorf("returns[1] = %f, want -0.10", returns[1].Return)
	}
	if !returns[0].Date.Equal(base.AddDate(0, 0, 1)) {
		t.Errorf("returns[0] carries wrong date: %v", returns[0].Date)
	}
}

func TestValueSeries_Returns_ShortSeries(t *testing.T) {
	if got := (ValueSeries{{Value: 100}}).Returns(); got != nil {
		t.Errorf("expected nil returns for single-point series, got %v", got)
	}
	if got := (ValueSeries{}).Returns(); got != nil {
		t.Errorf("expected nil returns for empty series, got %v", got)
	}
}

func TestValueSeries_Returns_ZeroValue(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	series := ValueSeries{
		{Date: base, Value: 0},
		{Date: base.AddDate(0, 0, 1), Value: 50},
	}
	if got := series.Returns(); len(got) != 0 {
		t.Errorf("change from zero value is undefined, got %v", got)
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	ts := time.Date(2023, 6, 15, 21, 30, 45, 123, loc)
	d := Day(ts)

	want := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Errorf("Day(%v) = %v, want %v", ts, d, want)
	}
}
