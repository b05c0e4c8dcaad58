package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/northquay/pharos/internal/config"
	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/generator/meanrev"
	"github.com/northquay/pharos/internal/metrics"
	"github.com/northquay/pharos/internal/store"
	"github.com/northquay/pharos/internal/storage/archive"
)

type stubSource struct {
	table *core.PriceTable
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) FetchAdjClose(_ context.Context, symbols []string, _, _ time.Time) (*core.PriceTable, error) {
	s.calls++
	if s.table == nil {
		return nil, core.ErrNoData
	}
	return s.table, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testTable() *core.PriceTable {
	start := day(2023, time.January, 2)
	mk := func(prices ...float64) []core.PricePoint {
		pts := make([]core.PricePoint, len(prices))
		for i, p := range prices {
			pts[i] = core.PricePoint{Date: start.AddDate(0, 0, i), Price: p}
		}
		return pts
	}
	return core.NewPriceTable(map[string][]core.PricePoint{
		"AAA": mk(100, 104, 96, 101, 93, 107, 99),
		"BBB": mk(50, 51, 49, 52, 48, 53, 50),
		"SPY": mk(400, 402, 398, 404, 396, 406, 401),
	})
}

func testApp(t *testing.T, src *stubSource) *App {
	t.Helper()
	cfg := config.Defaults()
	cfg.Backtest.InitialCash = 100000

	a := New(cfg, zap.NewNop())
	a.SetSource(src)
	a.SetMetrics(metrics.NewRegistry())
	a.RegisterGenerator(meanrev.New(3, 10))

	runs, err := store.NewRunStore(t.TempDir() + "/runs.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { runs.Close() })
	a.SetRunStore(runs)

	fs, err := archive.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a.SetArchiver(archive.NewArchiver(fs))

	return a
}

func TestRunBacktest_FullPipeline(t *testing.T) {
	src := &stubSource{table: testTable()}
	a := testApp(t, src)
	ctx := context.Background()

	result, err := a.RunBacktest(ctx, BacktestRequest{
		Strategy:  "mean_reversion",
		Symbols:   []string{"AAA", "BBB"},
		Start:     day(2023, time.January, 2),
		End:       day(2023, time.January, 8),
		Policy:    "checked",
		Benchmark: "SPY",
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}

	if result.Run.ID == "" {
		t.Error("run should have an ID after persistence")
	}
	if result.Run.Orders == 0 {
		t.Error("expected orders from mean reversion over the table")
	}
	if len(result.Series) != 7 {
		t.Errorf("series length = %d, want 7", len(result.Series))
	}
	if result.Run.Report == nil || result.Run.Report.CumulativeReturn == nil {
		t.Fatal("expected a computed report")
	}
	if result.Run.Report.Beta == nil {
		t.Error("expected beta with a benchmark present")
	}

	// Run must be retrievable from the store.
	got, err := a.Run(ctx, result.Run.ID)
	if err != nil {
		t.Fatalf("Run lookup: %v", err)
	}
	if got.Strategy != "mean_reversion" {
		t.Errorf("stored strategy = %s", got.Strategy)
	}

	// And the series must be archived.
	series, err := a.archiver.ReadSeries(ctx, result.Run.ID)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(series) != len(result.Series) {
		t.Errorf("archived series length = %d, want %d", len(series), len(result.Series))
	}
}

func TestRunBacktest_NoBenchmark(t *testing.T) {
	src := &stubSource{table: testTable()}
	a := testApp(t, src)

	result, err := a.RunBacktest(context.Background(), BacktestRequest{
		Strategy: "mean_reversion",
		Symbols:  []string{"AAA", "BBB", "SPY"},
		Start:    day(2023, time.January, 2),
		End:      day(2023, time.January, 8),
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if result.Run.Report.Beta != nil {
		t.Error("beta should be nil without a benchmark")
	}
}

func TestRunBacktest_UnknownStrategy(t *testing.T) {
	a := testApp(t, &stubSource{table: testTable()})

	_, err := a.RunBacktest(context.Background(), BacktestRequest{
		Strategy: "momentum",
		Symbols:  []string{"AAA"},
	})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestRunBacktest_BadPolicy(t *testing.T) {
	a := testApp(t, &stubSource{table: testTable()})

	_, err := a.RunBacktest(context.Background(), BacktestRequest{
		Strategy: "mean_reversion",
		Symbols:  []string{"AAA"},
		Policy:   "margin",
	})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestFetch_CachesPrices(t *testing.T) {
	src := &stubSource{table: testTable()}
	a := testApp(t, src)
	a.SetPriceStore(store.NewPriceStore(t.TempDir()))
	ctx := context.Background()

	start, end := day(2023, time.January, 2), day(2023, time.January, 8)
	if _, err := a.Fetch(ctx, []string{"AAA", "BBB", "SPY"}, start, end); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 source call, got %d", src.calls)
	}

	// Cached: a backtest over the same universe must not hit the source.
	_, err := a.RunBacktest(ctx, BacktestRequest{
		Strategy: "mean_reversion",
		Symbols:  []string{"AAA", "BBB", "SPY"},
		Start:    start,
		End:      end,
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected cache hit, source calls = %d", src.calls)
	}
}

func TestRegisterConfiguredGenerators(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backtest.Benchmark = "SPY"
	cfg.Strategies = map[string]config.StrategyConfig{
		"mean_reversion": {
			Enabled: true,
			Params:  map[string]any{"window": 50, "quantity": 200},
		},
		"betting_against_beta": {
			Enabled: true,
			Params:  map[string]any{"lookback": 90},
		},
		"stable_minus_risky": {
			Enabled: false,
		},
	}

	a := New(cfg, zap.NewNop())
	if err := a.RegisterConfiguredGenerators(); err != nil {
		t.Fatalf("RegisterConfiguredGenerators: %v", err)
	}

	names := a.Strategies()
	if len(names) != 2 {
		t.Fatalf("expected 2 strategies, got %v", names)
	}
	if names[0] != "betting_against_beta" || names[1] != "mean_reversion" {
		t.Errorf("unexpected strategies: %v", names)
	}
}

func TestRegisterConfiguredGenerators_Unknown(t *testing.T) {
	cfg := config.Defaults()
	cfg.Strategies = map[string]config.StrategyConfig{
		"momentum": {Enabled: true},
	}

	a := New(cfg, zap.NewNop())
	if err := a.RegisterConfiguredGenerators(); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestParamHelpers(t *testing.T) {
	params := map[string]any{
		"window":  float64(50), // viper decodes YAML numbers as float64
		"capital": 25000,
		"index":   "QQQ",
	}

	if got := intParam(params, "window", 100); got != 50 {
		t.Errorf("intParam window = %d, want 50", got)
	}
	if got := intParam(params, "missing", 100); got != 100 {
		t.Errorf("intParam default = %d, want 100", got)
	}
	if got := floatParam(params, "capital", 1); got != 25000 {
		t.Errorf("floatParam capital = %v, want 25000", got)
	}
	if got := stringParam(params, "index", "SPY"); got != "QQQ" {
		t.Errorf("stringParam index = %s, want QQQ", got)
	}
	if got := stringParam(params, "missing", "SPY"); got != "SPY" {
		t.Errorf("stringParam default = %s, want SPY", got)
	}
}
