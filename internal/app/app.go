// Package app wires data sources, order generators, the simulator, and
// persistence into the backtest pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/northquay/pharos/internal/config"
	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/datasource"
	"github.com/northquay/pharos/internal/generator"
	"github.com/northquay/pharos/internal/generator/bab"
	"github.com/northquay/pharos/internal/generator/factor"
	"github.com/northquay/pharos/internal/generator/meanrev"
	"github.com/northquay/pharos/internal/generator/smr"
	"github.com/northquay/pharos/internal/llm"
	"github.com/northquay/pharos/internal/metrics"
	"github.com/northquay/pharos/internal/perf"
	"github.com/northquay/pharos/internal/sim"
	"github.com/northquay/pharos/internal/store"
	"github.com/northquay/pharos/internal/storage/archive"
)

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	generators *generator.Registry
	engine     *perf.Engine

	source     datasource.Source
	prices     *store.PriceStore
	runs       *store.RunStore
	archiver   *archive.Archiver
	metrics    *metrics.Registry
	summarizer *llm.Summarizer
}

// New creates a new App instance. Data source, stores, archiver,
// metrics, and summarizer are attached with the Set* methods; the
// pipeline degrades gracefully when an optional dependency is absent.
func New(cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:        cfg,
		logger:     logger,
		generators: generator.NewRegistry(),
		engine:     perf.NewEngine(),
	}
}

// SetSource attaches the market data source.
func (a *App) SetSource(s datasource.Source) { a.source = s }

// SetPriceStore attaches the local price cache.
func (a *App) SetPriceStore(s *store.PriceStore) { a.prices = s }

// SetRunStore attaches the run history database.
func (a *App) SetRunStore(s *store.RunStore) { a.runs = s }

// SetArchiver attaches the artifact archiver.
func (a *App) SetArchiver(ar *archive.Archiver) { a.archiver = ar }

// SetMetrics attaches the Prometheus registry.
func (a *App) SetMetrics(m *metrics.Registry) { a.metrics = m }

// SetSummarizer attaches the LLM summarizer used for --explain.
func (a *App) SetSummarizer(s *llm.Summarizer) { a.summarizer = s }

// RegisterGenerator adds an order generator.
func (a *App) RegisterGenerator(g generator.Generator) {
	a.generators.Register(g)
}

// Strategies lists the registered generator names.
func (a *App) Strategies() []string {
	return a.generators.Names()
}

// RegisterConfiguredGenerators builds the built-in generators from the
// strategies section of the config. Disabled strategies are skipped.
func (a *App) RegisterConfiguredGenerators() error {
	for name, sc := range a.cfg.Strategies {
		if !sc.Enabled {
			continue
		}
		g, err := a.buildGenerator(name, sc.Params)
		if err != nil {
			return fmt.Errorf("building strategy %s: %w", name, err)
		}
		a.generators.Register(g)
		a.logger.Info("strategy registered", zap.String("strategy", name))
	}
	return nil
}

func (a *App) buildGenerator(name string, params map[string]any) (generator.Generator, error) {
	index := stringParam(params, "index", a.cfg.Backtest.Benchmark)
	capital := floatParam(params, "capital", a.cfg.Backtest.InitialCash)

	switch name {
	case "mean_reversion":
		return meanrev.New(
			intParam(params, "window", meanrev.DefaultWindow),
			intParam(params, "quantity", meanrev.DefaultQuantity),
		), nil
	case "betting_against_beta":
		return bab.New(index, intParam(params, "lookback", bab.DefaultLookback), capital, a.logger)
	case "stable_minus_risky":
		return smr.New(index, intParam(params, "lookback", smr.DefaultLookback), capital, a.logger)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown strategy %q", name))
	}
}

// BacktestRequest describes one backtest.
type BacktestRequest struct {
	Strategy    string    `json:"strategy"`
	Symbols     []string  `json:"symbols"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	InitialCash float64   `json:"initial_cash"`
	Policy      string    `json:"policy"`
	Benchmark   string    `json:"benchmark"`
	Explain     bool      `json:"explain"`
}

// BacktestResult is the full output of one backtest.
type BacktestResult struct {
	Run        store.Run        `json:"run"`
	Series     core.ValueSeries `json:"series"`
	Rejections []sim.Rejection  `json:"rejections,omitempty"`
	Summary    string           `json:"summary,omitempty"`
}

// RunBacktest executes the full pipeline: load prices, generate
// orders, simulate, score, persist.
func (a *App) RunBacktest(ctx context.Context, req BacktestRequest) (*BacktestResult, error) {
	started := time.Now()

	gen, ok := a.generators.Get(req.Strategy)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown strategy %q", req.Strategy))
	}

	policy, err := sim.ParsePolicy(req.Policy)
	if err != nil {
		return nil, err
	}

	initialCash := req.InitialCash
	if initialCash <= 0 {
		initialCash = a.cfg.Backtest.InitialCash
	}
	benchmark := req.Benchmark
	if benchmark == "" {
		benchmark = a.cfg.Backtest.Benchmark
	}

	symbols := req.Symbols
	if benchmark != "" && !contains(symbols, benchmark) {
		symbols = append(append([]string{}, symbols...), benchmark)
	}

	table, err := a.loadPrices(ctx, symbols, req.Start, req.End)
	if err != nil {
		a.recordBacktest(req.Strategy, "failed", started)
		return nil, err
	}

	orders, err := gen.Generate(table)
	if err != nil {
		a.recordBacktest(req.Strategy, "failed", started)
		return nil, err
	}
	if a.metrics != nil {
		for _, o := range orders {
			a.metrics.RecordOrder(gen.Name(), string(o.Side))
		}
	}

	simResult, err := sim.New(policy, a.logger).Run(orders, table, initialCash)
	if err != nil {
		a.recordBacktest(req.Strategy, "failed", started)
		return nil, err
	}
	if a.metrics != nil {
		for _, rej := range simResult.Rejections {
			a.metrics.RecordRejection(string(rej.Reason))
		}
	}

	var benchReturns []core.ReturnPoint
	if benchmark != "" {
		benchReturns = factor.DailyReturns(table.Column(benchmark))
	}
	report := a.engine.Calculate(simResult.Series, simResult.Series.Returns(), benchReturns)

	run := store.Run{
		Strategy:    gen.Name(),
		Start:       core.Day(req.Start),
		End:         core.Day(req.End),
		InitialCash: initialCash,
		FinalValue:  finalValue(simResult.Series, initialCash),
		Policy:      policy.String(),
		Orders:      len(orders),
		Rejected:    len(simResult.Rejections),
		Report:      report,
	}

	if a.runs != nil {
		if err := a.runs.Save(ctx, &run); err != nil {
			a.recordBacktest(req.Strategy, "failed", started)
			return nil, err
		}
	}
	if a.archiver != nil && run.ID != "" {
		if err := a.archiver.ArchiveRun(ctx, run.ID, simResult.Series, orders, report); err != nil {
			a.logger.Warn("archiving run failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	result := &BacktestResult{
		Run:        run,
		Series:     simResult.Series,
		Rejections: simResult.Rejections,
	}

	if req.Explain && a.summarizer != nil {
		summary, err := a.summarizer.Summarize(ctx, llm.RunSummary{
			Strategy:    run.Strategy,
			Start:       run.Start.Format("2006-01-02"),
			End:         run.End.Format("2006-01-02"),
			InitialCash: run.InitialCash,
			FinalValue:  run.FinalValue,
			Orders:      run.Orders,
			Rejected:    run.Rejected,
			Report:      report,
		})
		if err != nil {
			a.logger.Warn("summary failed", zap.Error(err))
		} else {
			result.Summary = summary
		}
	}

	a.recordBacktest(req.Strategy, "success", started)
	a.logger.Info("backtest complete",
		zap.String("strategy", run.Strategy),
		zap.String("run_id", run.ID),
		zap.Int("orders", run.Orders),
		zap.Int("rejected", run.Rejected),
		zap.Float64("final_value", run.FinalValue),
	)

	return result, nil
}

// Fetch retrieves prices from the data source and caches them.
func (a *App) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*core.PriceTable, error) {
	if a.source == nil {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("no data source configured"))
	}
	started := time.Now()

	table, err := a.source.FetchAdjClose(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		fetched := table.Tickers()
		for range fetched {
			a.metrics.RecordFetch(a.source.Name(), "success")
		}
		for i := len(fetched); i < len(symbols); i++ {
			a.metrics.RecordFetch(a.source.Name(), "failed")
		}
		a.metrics.RecordFetchDuration(time.Since(started).Seconds())
	}

	if a.prices != nil {
		if err := a.prices.Write(table); err != nil {
			return nil, fmt.Errorf("caching prices: %w", err)
		}
	}
	return table, nil
}

// loadPrices serves from the local cache first, falling back to the
// data source (and re-caching) on a miss.
func (a *App) loadPrices(ctx context.Context, symbols []string, start, end time.Time) (*core.PriceTable, error) {
	if a.prices != nil {
		table, err := a.prices.Read(symbols, start, end)
		if err == nil && len(table.Tickers()) == len(symbols) {
			return table, nil
		}
		if err != nil && !errors.Is(err, core.ErrNoData) {
			return nil, err
		}
	}
	return a.Fetch(ctx, symbols, start, end)
}

// Runs returns recent persisted runs.
func (a *App) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	if a.runs == nil {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("no run store configured"))
	}
	return a.runs.List(ctx, limit)
}

// Run returns one persisted run by ID.
func (a *App) Run(ctx context.Context, id string) (*store.Run, error) {
	if a.runs == nil {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("no run store configured"))
	}
	return a.runs.Get(ctx, id)
}

func (a *App) recordBacktest(strategy, status string, started time.Time) {
	if a.metrics != nil {
		a.metrics.RecordBacktest(strategy, status, time.Since(started).Seconds())
	}
}

func finalValue(series core.ValueSeries, initialCash float64) float64 {
	if len(series) == 0 {
		return initialCash
	}
	return series[len(series)-1].Value
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}
