// Package store persists price data and backtest runs on local disk.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/northquay/pharos/internal/core"
)

// PriceRecord is the Parquet schema for adjusted close data.
type PriceRecord struct {
	Ticker    string  `parquet:"ticker"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	AdjClose  float64 `parquet:"adj_close"`
}

// PriceStore caches adjusted closes as one Parquet file per ticker.
// Layout: <DataDir>/<TICKER>.parquet
type PriceStore struct {
	DataDir string
}

// NewPriceStore creates a PriceStore rooted at the given data directory.
func NewPriceStore(dataDir string) *PriceStore {
	return &PriceStore{DataDir: dataDir}
}

// Write persists every ticker column of the table, merging with any
// existing records by date. New records win on conflict.
func (s *PriceStore) Write(table *core.PriceTable) error {
	for _, ticker := range table.Tickers() {
		points := table.Column(ticker)
		records := make([]PriceRecord, 0, len(points))
		for _, p := range points {
			records = append(records, PriceRecord{
				Ticker:    ticker,
				Timestamp: p.Date.UnixMilli(),
				AdjClose:  p.Price,
			})
		}

		path := s.path(ticker)
		existing, _ := readParquetFile[PriceRecord](path)
		merged := mergePriceRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing prices for %s: %w", ticker, err)
		}
	}
	return nil
}

// Read loads cached prices for the given tickers over [start, end] and
// assembles them into a price table. Tickers with no cached file are
// skipped; ErrNoData is returned when nothing was found.
func (s *PriceStore) Read(tickers []string, start, end time.Time) (*core.PriceTable, error) {
	start, end = core.Day(start), core.Day(end)

	series := make(map[string][]core.PricePoint, len(tickers))
	for _, ticker := range tickers {
		records, err := readParquetFile[PriceRecord](s.path(ticker))
		if err != nil {
			continue
		}
		var points []core.PricePoint
		for _, r := range records {
			d := core.Day(time.UnixMilli(r.Timestamp).UTC())
			if d.Before(start) || d.After(end) {
				continue
			}
			points = append(points, core.PricePoint{Date: d, Price: r.AdjClose})
		}
		if len(points) > 0 {
			series[ticker] = points
		}
	}

	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no cached prices for %d tickers", len(tickers)))
	}
	return core.NewPriceTable(series), nil
}

// Tickers lists all tickers with a cached price file.
func (s *PriceStore) Tickers() ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var tickers []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(tickers)
	return tickers, nil
}

func (s *PriceStore) path(ticker string) string {
	return filepath.Join(s.DataDir, strings.ToUpper(ticker)+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergePriceRecords deduplicates by (ticker, timestamp), preferring
// incoming records. Results are sorted by timestamp.
func mergePriceRecords(existing, incoming []PriceRecord) []PriceRecord {
	type key struct {
		ticker string
		ts     int64
	}
	seen := make(map[key]PriceRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Ticker, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Ticker, r.Timestamp}] = r
	}

	merged := make([]PriceRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
