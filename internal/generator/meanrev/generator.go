// Package meanrev implements a per-ticker mean reversion order generator:
// buy below the trailing moving average, sell at or above it.
package meanrev

import (
	"fmt"

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/indicator"
)

const (
	DefaultWindow   = 100
	DefaultQuantity = 100
)

// Generator emits one order per ticker per date once the trailing moving
// average is defined: BUY when the close is below it, SELL otherwise.
// Dates with fewer than `window` observations produce no order.
type Generator struct {
	window   int
	quantity int
}

// New creates a mean reversion generator. Non-positive parameters fall
// back to the defaults.
func New(window, quantity int) *Generator {
	if window <= 0 {
		window = DefaultWindow
	}
	if quantity <= 0 {
		quantity = DefaultQuantity
	}
	return &Generator{window: window, quantity: quantity}
}

func (g *Generator) Name() string {
	return "mean_reversion"
}

func (g *Generator) Description() string {
	return fmt.Sprintf("Mean reversion against the %d-day moving average", g.window)
}

// Generate walks each ticker's price series independently and
// concatenates the per-ticker order streams ticker by ticker. The
// simulator interleaves same-date orders by its own date index, so no
// global re-sort happens here; within one ticker the dates are ascending.
func (g *Generator) Generate(prices *core.PriceTable) ([]core.Order, error) {
	var orders []core.Order

	for _, ticker := range prices.Tickers() {
		points := prices.Column(ticker)
		if len(points) < g.window {
			continue
		}

		closes := make([]float64, len(points))
		for i, p := range points {
			closes[i] = p.Price
		}
		avg := indicator.SMA(closes, g.window)

		// avg[i] covers the window ending at points[i+window-1]; the
		// first order can appear on the window-th observation.
		for i, ma := range avg {
			point := points[i+g.window-1]
			side := core.SideSell
			if point.Price < ma {
				side = core.SideBuy
			}
			orders = append(orders, core.Order{
				Date:     point.Date,
				Ticker:   ticker,
				Side:     side,
				Quantity: g.quantity,
			})
		}
	}

	return orders, nil
}
