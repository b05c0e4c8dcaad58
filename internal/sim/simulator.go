package sim

import (
	"fmt"
	"time"

	"github.com/northquay/pharos/internal/core"
	"go.uber.org/zap"
)

// Policy selects how the simulator treats orders the portfolio cannot
// cover. The unconstrained policy permits negative cash and short
// positions; the checked policies reject the offending order and leave
// state untouched.
type Policy struct {
	CheckCash     bool // Reject a BUY when cash < price*quantity
	CheckHoldings bool // Reject a SELL when holdings < quantity
}

var (
	// Unconstrained permits negative cash and short positions, for
	// long/short backtests where margin is assumed.
	Unconstrained = Policy{}

	// Checked rejects buys beyond available cash and sells beyond
	// current holdings.
	Checked = Policy{CheckCash: true, CheckHoldings: true}
)

// String returns a short policy label for logs and run records.
func (p Policy) String() string {
	switch {
	case p.CheckCash && p.CheckHoldings:
		return "checked"
	case p.CheckCash:
		return "cash_checked"
	case p.CheckHoldings:
		return "holdings_checked"
	default:
		return "unconstrained"
	}
}

// ParsePolicy maps a policy label back to a Policy. The empty string
// means Checked.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "checked":
		return Checked, nil
	case "unconstrained":
		return Unconstrained, nil
	case "cash_checked":
		return Policy{CheckCash: true}, nil
	case "holdings_checked":
		return Policy{CheckHoldings: true}, nil
	default:
		return Policy{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown policy %q", name))
	}
}

// RejectReason identifies why an order was skipped.
type RejectReason string

const (
	ReasonInsufficientCash     RejectReason = "insufficient_cash"
	ReasonInsufficientHoldings RejectReason = "insufficient_holdings"
)

// Rejection is a per-order diagnostic surfaced to the caller. The run
// continues; prior state is preserved unchanged.
type Rejection struct {
	Order  core.Order
	Reason RejectReason
}

// Result holds the complete simulation output.
type Result struct {
	Series     core.ValueSeries
	Rejections []Rejection
}

// Simulator replays orders against a price table, maintaining cash and
// position state and marking the portfolio to market on every date.
type Simulator struct {
	policy Policy
	logger *zap.Logger
}

// New creates a Simulator with the given policy.
func New(policy Policy, logger ...*zap.Logger) *Simulator {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Simulator{policy: policy, logger: l}
}

// Run replays the orders chronologically against the price table starting
// from initialCash and returns the resulting portfolio value series.
//
// Each order is consumed exactly once on its own date; same-date orders
// are applied in input sequence order. An order dated outside the table's
// date index, or a missing price for an execution or valuation lookup,
// aborts the run: substituting a stale or zero price would silently
// corrupt every statistic derived from the series.
func (s *Simulator) Run(orders []core.Order, prices *core.PriceTable, initialCash float64) (*Result, error) {
	byDate := make(map[time.Time][]core.Order)
	for _, o := range orders {
		d := core.Day(o.Date)
		if !prices.HasDate(d) {
			return nil, core.WrapError(core.ErrPriceMissing,
				fmt.Errorf("order for %s dated %s outside price data", o.Ticker, d.Format("2006-01-02")))
		}
		byDate[d] = append(byDate[d], o)
	}

	cash := initialCash
	holdings := make(map[string]int)

	result := &Result{Series: make(core.ValueSeries, 0, prices.Len())}

	for _, date := range prices.Dates() {
		for _, order := range byDate[date] {
			price, ok := prices.Price(date, order.Ticker)
			if !ok {
				return nil, core.WrapError(core.ErrPriceMissing,
					fmt.Errorf("no price for %s on %s", order.Ticker, date.Format("2006-01-02")))
			}

			amount := price * float64(order.Quantity)
			switch order.Side {
			case core.SideBuy:
				if s.policy.CheckCash && cash < amount {
					s.reject(result, order, ReasonInsufficientCash)
					continue
				}
				cash -= amount
				holdings[order.Ticker] += order.Quantity
			case core.SideSell:
				if s.policy.CheckHoldings && holdings[order.Ticker] < order.Quantity {
					s.reject(result, order, ReasonInsufficientHoldings)
					continue
				}
				cash += amount
				holdings[order.Ticker] -= order.Quantity
			default:
				return nil, core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("unknown order side %q", order.Side))
			}
		}

		// Mark to market. A flat position contributes nothing and does
		// not require a quote.
		total := cash
		for ticker, quantity := range holdings {
			if quantity == 0 {
				continue
			}
			price, ok := prices.Price(date, ticker)
			if !ok {
				return nil, core.WrapError(core.ErrPriceMissing,
					fmt.Errorf("no valuation price for held ticker %s on %s", ticker, date.Format("2006-01-02")))
			}
			total += price * float64(quantity)
		}

		result.Series = append(result.Series, core.ValuePoint{Date: date, Value: total})
	}

	return result, nil
}

func (s *Simulator) reject(result *Result, order core.Order, reason RejectReason) {
	s.logger.Warn("order rejected",
		zap.String("date", core.Day(order.Date).Format("2006-01-02")),
		zap.String("ticker", order.Ticker),
		zap.String("side", string(order.Side)),
		zap.Int("quantity", order.Quantity),
		zap.String("reason", string(reason)),
	)
	result.Rejections = append(result.Rejections, Rejection{Order: order, Reason: reason})
}
