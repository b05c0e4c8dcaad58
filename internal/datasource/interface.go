// Package datasource defines the market data provider contract.
package datasource

import (
	"context"
	"time"

	"github.com/northquay/pharos/internal/core"
)

// Source fetches adjusted close prices for a set of symbols.
type Source interface {
	Name() string

	// FetchAdjClose returns a price table over [start, end]. Symbols
	// that fail to fetch are skipped; the table holds whatever was
	// retrieved. An error is returned only when nothing could be
	// fetched at all.
	FetchAdjClose(ctx context.Context, symbols []string, start, end time.Time) (*core.PriceTable, error)
}
