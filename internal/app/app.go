// Package app wires the analysis service and its optional backends from
// configuration. Both binaries and the CLI build on it.
package app

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stockcover/internal/cache"
	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/drive"
	"github.com/andresuchdata/stockcover/internal/pipeline/coverage"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/andresuchdata/stockcover/internal/storage"
	"github.com/rs/zerolog/log"
)

// App holds the wired components. Storage and Drive are nil when not configured.
type App struct {
	Config   *config.Config
	Analysis *service.AnalysisService
	Cache    cache.ReportCache
	Storage  storage.ObjectStorage
	Drive    *drive.Service
}

// New builds the analysis service. Unreachable optional backends are logged
// and skipped so local analyses keep working.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	analyzer := coverage.NewAnalyzer(AnalyzerConfig(cfg.Analysis))

	defaults, err := defaultsFrom(cfg.Analysis)
	if err != nil {
		return nil, err
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("report cache unavailable, continuing without cache")
		reportCache = cache.NewNoopReportCache()
	}

	a := &App{
		Config:   cfg,
		Cache:    reportCache,
		Analysis: service.NewAnalysisService(analyzer, reportCache, defaults),
	}

	if cfg.Storage.Enabled() {
		store, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		a.Storage = store
		a.Analysis.RegisterFetcher("s3", service.StorageFetcher{Storage: store})
		log.Info().Str("driver", cfg.Storage.Driver).Str("bucket", store.Bucket()).Msg("object storage enabled")
	}

	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("google drive: %w", err)
		}
		a.Drive = driveService
		a.Analysis.RegisterFetcher("drive", driveService)
		log.Info().Msg("google drive enabled")
	}

	return a, nil
}

// AnalyzerConfig maps the engine tunables.
func AnalyzerConfig(cfg config.AnalysisConfig) coverage.Config {
	return coverage.Config{
		ScanDepth:         cfg.ScanDepth,
		FallbackStartRow:  cfg.FallbackStartRow,
		HeaderLookback:    cfg.HeaderLookback,
		ContentSampleRows: cfg.ContentSampleRows,
		ForecastHorizon:   cfg.ForecastHorizon,
	}
}

func defaultsFrom(cfg config.AnalysisConfig) (service.Defaults, error) {
	d := service.Defaults{DesiredPeriodDays: cfg.DesiredPeriodDays}
	if cfg.DefaultCategory != "" {
		c, ok := domain.ParseCategory(cfg.DefaultCategory)
		if !ok {
			return d, fmt.Errorf("ANALYSIS_DEFAULT_CATEGORY: unknown category %q", cfg.DefaultCategory)
		}
		d.Category = &c
	}
	return d, nil
}
