// Package api exposes the backtest pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/northquay/pharos/internal/api/job"
	"github.com/northquay/pharos/internal/api/response"
	"github.com/northquay/pharos/internal/app"
	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/metrics"
)

const backtestTimeout = 5 * time.Minute

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	MaxJobs     int
	MetricsPath string
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	app        *app.App
	jobs       *job.Store
	metrics    *metrics.Registry
}

// NewServer creates a new HTTP server around the application.
func NewServer(cfg Config, a *app.App, reg *metrics.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger:  logger,
		app:     a,
		jobs:    job.NewStore(cfg.MaxJobs),
		metrics: reg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	var handler http.Handler = mux
	if reg != nil {
		metricsPath := cfg.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		mux.Handle("GET "+metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		handler = metrics.HTTPMiddleware(reg)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the fully wrapped handler. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Strategy    string   `json:"strategy"`
	Symbols     []string `json:"symbols"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	InitialCash float64  `json:"initial_cash"`
	Policy      string   `json:"policy"`
	Benchmark   string   `json:"benchmark"`
	Explain     bool     `json:"explain"`
}

// handleBacktest starts an async backtest job.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	if req.Strategy == "" || len(req.Symbols) == 0 {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("strategy and symbols are required")))
		return
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}
	if end.Before(start) {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end %s before start %s", req.End, req.Start)))
		return
	}

	j := s.jobs.Create("backtest")
	jobID := j.ID

	go s.runBacktestJob(jobID, app.BacktestRequest{
		Strategy:    req.Strategy,
		Symbols:     req.Symbols,
		Start:       start,
		End:         end,
		InitialCash: req.InitialCash,
		Policy:      req.Policy,
		Benchmark:   req.Benchmark,
		Explain:     req.Explain,
	})

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": j.Status,
	})
}

func (s *Server) runBacktestJob(jobID string, req app.BacktestRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	s.jobs.Update(jobID, func(j *job.Job) { j.Status = job.StatusRunning })
	s.syncJobsGauge()

	result, err := s.app.RunBacktest(ctx, req)
	if err != nil {
		s.logger.Error("backtest job failed", zap.String("job_id", jobID), zap.Error(err))
		var coreErr *core.Error
		if !errors.As(err, &coreErr) {
			coreErr = core.WrapError(core.ErrBacktestFailed, err)
		}
		s.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = coreErr
		})
		s.syncJobsGauge()
		return
	}

	s.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = result
	})
	s.syncJobsGauge()
}

func (s *Server) syncJobsGauge() {
	if s.metrics != nil {
		s.metrics.SetJobsActive(s.jobs.Active())
	}
}

// handleJob returns the status of an async job.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// handleRuns lists recent persisted runs.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	fmt.Sscanf(r.URL.Query().Get("limit"), "%d", &limit)

	runs, err := s.app.Runs(r.Context(), limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.JSON(w, http.StatusOK, runs)
}

// handleRun returns one persisted run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.app.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	response.JSON(w, http.StatusOK, run)
}

// handleStrategies lists registered strategies.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.app.Strategies())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
