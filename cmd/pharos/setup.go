package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/northquay/pharos/internal/app"
	"github.com/northquay/pharos/internal/config"
	"github.com/northquay/pharos/internal/datasource/yahoo"
	"github.com/northquay/pharos/internal/llm"
	"github.com/northquay/pharos/internal/llm/factory"
	"github.com/northquay/pharos/internal/logger"
	"github.com/northquay/pharos/internal/storage/archive"
	"github.com/northquay/pharos/internal/store"
)

// loadConfig reads the config file, falling back to defaults when no
// file is given or the file cannot be read.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		if cfgFile != "" {
			return nil, err
		}
		log.Warn("no config file found, using defaults")
		cfg = config.Defaults()
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	return logger.Must(cfg.Logging.Level, cfg.Logging.Development)
}

// buildApp wires the full application: price source, stores, archive
// and the configured strategies.
func buildApp(cfg *config.Config, log *zap.Logger) (*app.App, error) {
	a := app.New(cfg, log)
	a.SetSource(yahoo.New(cfg.Datasource.Concurrency, log))
	a.SetPriceStore(store.NewPriceStore(cfg.Datasource.CacheDir))

	runs, err := store.NewRunStore(cfg.Storage.Runs.DSN)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	a.SetRunStore(runs)

	storage, err := buildArchiveStorage(cfg)
	if err != nil {
		return nil, err
	}
	if storage != nil {
		a.SetArchiver(archive.NewArchiver(storage))
	}

	if cfg.LLM.Provider != "" {
		provider, err := factory.New(cfg.LLM)
		if err != nil {
			return nil, err
		}
		a.SetSummarizer(llm.NewSummarizer(provider))
	}

	if err := a.RegisterConfiguredGenerators(); err != nil {
		return nil, err
	}
	return a, nil
}

func buildArchiveStorage(cfg *config.Config) (archive.Storage, error) {
	switch cfg.Storage.Archive.Type {
	case "":
		return nil, nil
	case "localfs":
		return archive.NewLocalFS(cfg.Storage.Archive.Path)
	case "s3":
		s3 := cfg.Storage.Archive.S3
		return archive.NewS3(archive.S3Config{
			Bucket:    s3.Bucket,
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Storage.Archive.Type)
	}
}
