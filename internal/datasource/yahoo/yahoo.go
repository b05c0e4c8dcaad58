// Package yahoo fetches adjusted close prices from the Yahoo Finance
// chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/northquay/pharos/internal/core"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches stock symbols like AAPL, MSFT, 600519.SH, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance data source
type Yahoo struct {
	client      *http.Client
	baseURL     string
	concurrency int
	logger      *zap.Logger
}

// New creates a new Yahoo source. concurrency bounds the number of
// symbols fetched in parallel.
func New(concurrency int, logger ...*zap.Logger) *Yahoo {
	log := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     defaultBaseURL,
		concurrency: concurrency,
		logger:      log,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// SetBaseURL overrides the chart API endpoint. Used in tests.
func (y *Yahoo) SetBaseURL(url string) {
	y.baseURL = url
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchAdjClose fetches daily adjusted closes for the given symbols
// and assembles them into a price table. Symbols that fail are logged
// and skipped; ErrNoData is returned when every symbol failed.
func (y *Yahoo) FetchAdjClose(ctx context.Context, symbols []string, start, end time.Time) (*core.PriceTable, error) {
	if len(symbols) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no symbols requested"))
	}

	var (
		mu     sync.Mutex
		series = make(map[string][]core.PricePoint, len(symbols))
		wg     sync.WaitGroup
		sem    = make(chan struct{}, y.concurrency)
	)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			points, err := y.fetchSymbol(ctx, symbol, start, end)
			if err != nil {
				y.logger.Warn("symbol fetch failed",
					zap.String("symbol", symbol),
					zap.Error(err))
				return
			}
			mu.Lock()
			series[symbol] = points
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no data fetched for %d symbols", len(symbols)))
	}

	y.logger.Info("fetched adjusted closes",
		zap.Int("requested", len(symbols)),
		zap.Int("fetched", len(series)))

	return core.NewPriceTable(series), nil
}

func (y *Yahoo) fetchSymbol(ctx context.Context, symbol string, start, end time.Time) ([]core.PricePoint, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	yahooSymbol := y.toYahooSymbol(symbol)

	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d&events=div%%7Csplit",
		y.baseURL, yahooSymbol, start.Unix(), end.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrSourceFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrSourceFailed,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.AdjClose) == 0 {
		return nil, fmt.Errorf("no adjclose indicator for symbol: %s", symbol)
	}
	closes := r.Indicators.AdjClose[0].AdjClose

	points := make([]core.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // Skip missing data
		}
		points = append(points, core.PricePoint{
			Date:  core.Day(time.Unix(int64(ts), 0).UTC()),
			Price: *closes[i],
		})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("empty series for symbol: %s", symbol)
	}

	return points, nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int      `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol string `json:"symbol"`
}

type indicators struct {
	AdjClose []adjCloseIndicator `json:"adjclose"`
}

type adjCloseIndicator struct {
	AdjClose []*float64 `json:"adjclose"`
}
