package core

import "time"

// Side represents the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order represents a single trade intent produced by a generator.
// Orders carrying the same date are applied in the sequence they appear.
type Order struct {
	Date     time.Time
	Ticker   string
	Side     Side
	Quantity int // Share count, always positive
}

// IsValid checks if the order has required fields.
func (o Order) IsValid() bool {
	return o.Ticker != "" && o.Quantity > 0 && (o.Side == SideBuy || o.Side == SideSell)
}

// PricePoint is one adjusted close observation for a ticker.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// ValuePoint is the marked-to-market portfolio value on one simulated date.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ValueSeries is an ordered portfolio value series, ascending in date.
type ValueSeries []ValuePoint

// ReturnPoint is a period-over-period fractional change observed on a date.
type ReturnPoint struct {
	Date   time.Time
	Return float64
}

// Returns computes the period-over-period fractional changes of the series.
// The result has one fewer entry than the series; the first value has no
// predecessor. A zero predecessor makes the change undefined and the entry
// is dropped.
func (s ValueSeries) Returns() []ReturnPoint {
	if len(s) < 2 {
		return nil
	}
	out := make([]ReturnPoint, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		prev := s[i-1].Value
		if prev == 0 {
			continue
		}
		out = append(out, ReturnPoint{
			Date:   s[i].Date,
			Return: s[i].Value/prev - 1,
		})
	}
	return out
}

// Day truncates a timestamp to its UTC calendar date. All dates flowing
// through the pipeline are normalized with it so lookups and equality
// checks ignore the time of day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
