package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/perf"
)

// Archiver persists per-run artifacts under runs/<id>/.
type Archiver struct {
	storage Storage
}

// NewArchiver wraps a storage backend.
func NewArchiver(storage Storage) *Archiver {
	return &Archiver{storage: storage}
}

// ArchiveRun writes the value series, orders, and metrics report for a
// run. A nil report is skipped.
func (a *Archiver) ArchiveRun(ctx context.Context, runID string, series core.ValueSeries, orders []core.Order, report *perf.Report) error {
	if err := a.writeJSON(ctx, runPath(runID, "series.json"), series); err != nil {
		return fmt.Errorf("archiving series: %w", err)
	}
	if err := a.writeJSON(ctx, runPath(runID, "orders.json"), orders); err != nil {
		return fmt.Errorf("archiving orders: %w", err)
	}
	if report != nil {
		if err := a.writeJSON(ctx, runPath(runID, "report.json"), report); err != nil {
			return fmt.Errorf("archiving report: %w", err)
		}
	}
	return nil
}

// ReadSeries loads the archived value series for a run.
func (a *Archiver) ReadSeries(ctx context.Context, runID string) (core.ValueSeries, error) {
	data, err := a.storage.Read(ctx, runPath(runID, "series.json"))
	if err != nil {
		return nil, fmt.Errorf("reading archived series: %w", err)
	}
	var series core.ValueSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("decoding archived series: %w", err)
	}
	return series, nil
}

// ReadReport loads the archived metrics report for a run.
func (a *Archiver) ReadReport(ctx context.Context, runID string) (*perf.Report, error) {
	data, err := a.storage.Read(ctx, runPath(runID, "report.json"))
	if err != nil {
		return nil, fmt.Errorf("reading archived report: %w", err)
	}
	var report perf.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding archived report: %w", err)
	}
	return &report, nil
}

// ListRuns returns the IDs of all archived runs.
func (a *Archiver) ListRuns(ctx context.Context) ([]string, error) {
	paths, err := a.storage.List(ctx, "runs")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, p := range paths {
		dir := path.Base(path.Dir(p))
		if dir != "runs" && !seen[dir] {
			seen[dir] = true
			ids = append(ids, dir)
		}
	}
	return ids, nil
}

func (a *Archiver) writeJSON(ctx context.Context, p string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return a.storage.Write(ctx, p, data)
}

func runPath(runID, name string) string {
	return path.Join("runs", runID, name)
}
