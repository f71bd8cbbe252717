package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcover/internal/cache"
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/pipeline/coverage"
	"github.com/andresuchdata/stockcover/internal/sheet"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentSources = 4

// Request is one analysis run: a stock snapshot and one or more outflow
// periods, oldest first.
type Request struct {
	Stock    Source
	Outflows []Source
	Options  domain.Options
	Refresh  bool // drop any cached report for these inputs and recompute
}

// Defaults fill options the request leaves unset.
type Defaults struct {
	Category          *domain.Category
	DesiredPeriodDays int
}

type AnalysisService struct {
	analyzer *coverage.Analyzer
	cache    cache.ReportCache
	fetchers map[string]Fetcher
	defaults Defaults
}

func NewAnalysisService(analyzer *coverage.Analyzer, cacheImpl cache.ReportCache, defaults Defaults) *AnalysisService {
	if analyzer == nil {
		analyzer = coverage.NewAnalyzer(coverage.DefaultConfig())
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &AnalysisService{
		analyzer: analyzer,
		cache:    cacheImpl,
		fetchers: map[string]Fetcher{"file": LocalFetcher{}},
		defaults: defaults,
	}
}

// RegisterFetcher makes references with the given scheme ("s3", "drive") resolvable.
func (s *AnalysisService) RegisterFetcher(scheme string, f Fetcher) {
	s.fetchers[scheme] = f
}

// Categories lists the category profiles.
func (s *AnalysisService) Categories() []domain.CategoryProfile {
	return domain.Profiles()
}

// Analyze resolves the sources, decodes them and runs the engine. Reports are
// cached by source content and options.
func (s *AnalysisService) Analyze(ctx context.Context, req Request) (*domain.Report, error) {
	if len(req.Outflows) == 0 {
		return nil, &domain.OptionsError{Field: "outflow", Reason: "at least one outflow sheet is required"}
	}
	opts := s.applyDefaults(req.Options)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	sources := append([]Source{req.Stock}, req.Outflows...)
	if err := s.resolve(ctx, sources); err != nil {
		return nil, err
	}

	digests := make([]string, len(sources))
	for i, src := range sources {
		digests[i] = cache.ContentDigest(src.Data)
	}
	key := cache.ReportKey(opts, digests[0], digests[1:]...)

	if req.Refresh {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			log.Warn().Err(err).Msg("analysis: cache invalidate failed")
		}
	} else if report, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		report.RunID = uuid.NewString()
		log.Info().Str("run_id", report.RunID).Str("cache_key", key).Msg("analysis: served from cache")
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analysis: cache get failed")
	}

	grids, err := s.decode(ctx, sources)
	if err != nil {
		return nil, err
	}

	report, err := s.analyzer.Analyze(coverage.Input{
		Stock:    grids[0],
		Outflows: grids[1:],
		Options:  opts,
	})
	if err != nil {
		return nil, err
	}
	report.RunID = uuid.NewString()
	logDiagnostics(report, time.Since(started))

	if err := s.cache.Set(ctx, key, report); err != nil {
		log.Warn().Err(err).Msg("analysis: cache set failed")
	}

	return report, nil
}

// ClearCache drops every cached report.
func (s *AnalysisService) ClearCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

// InspectResult is the schema of a single source with per-row hints.
type InspectResult struct {
	Name   string             `json:"name"`
	Kind   domain.SourceKind  `json:"kind"`
	Schema *coverage.Schema   `json:"schema,omitempty"`
	Error  string             `json:"error,omitempty"`
	Rows   []coverage.RowHint `json:"rows"`
}

// Inspect decodes one source and reports what the inferer sees in its first rows.
// Inference failures are returned in the result so the hints stay visible.
func (s *AnalysisService) Inspect(ctx context.Context, src Source, kind domain.SourceKind, rows int) (*InspectResult, error) {
	sources := []Source{src}
	if err := s.resolve(ctx, sources); err != nil {
		return nil, err
	}
	grids, err := s.decode(ctx, sources)
	if err != nil {
		return nil, err
	}

	g := grids[0]
	result := &InspectResult{Name: g.Name, Kind: kind, Rows: coverage.InspectGrid(g, kind, rows)}
	schema, err := s.analyzer.Inspect(g, kind, nil, nil)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Schema = &schema
	return result, nil
}

func (s *AnalysisService) applyDefaults(opts domain.Options) domain.Options {
	if opts.Category == nil && s.defaults.Category != nil {
		c := *s.defaults.Category
		opts.Category = &c
	}
	if opts.DesiredPeriodDays == nil && s.defaults.DesiredPeriodDays > 0 {
		d := s.defaults.DesiredPeriodDays
		opts.DesiredPeriodDays = &d
	}
	return opts
}

// resolve fetches the bytes of every referenced source in place.
func (s *AnalysisService) resolve(ctx context.Context, sources []Source) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSources)

	for i := range sources {
		if sources[i].Data != nil {
			continue
		}
		i := i
		g.Go(func() error {
			src := &sources[i]
			if src.Ref == "" {
				return &SourceError{Source: src.label(), Err: errors.New("no data and no reference")}
			}
			fetcher, ok := s.fetchers[scheme(src.Ref)]
			if !ok {
				return &SourceError{Source: src.Ref, Err: fmt.Errorf("unsupported reference scheme %q", scheme(src.Ref))}
			}
			name, data, err := fetcher.Fetch(ctx, src.Ref)
			if err != nil {
				return &SourceError{Source: src.Ref, Err: err}
			}
			if src.Name == "" {
				src.Name = name
			}
			src.Data = data
			return nil
		})
	}
	return g.Wait()
}

func (s *AnalysisService) decode(ctx context.Context, sources []Source) ([]sheet.Grid, error) {
	grids := make([]sheet.Grid, len(sources))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSources)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			grid, err := sheet.Decode(src.label(), src.Data)
			if err != nil {
				return &SourceError{Source: src.label(), Err: err}
			}
			grids[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grids, nil
}

func logDiagnostics(report *domain.Report, elapsed time.Duration) {
	d := report.Diagnostics
	event := log.Info().
		Str("run_id", report.RunID).
		Int("records", len(report.Records)).
		Int("needs_purchase", report.Summary.NeedsPurchase).
		Int("unmatched_stock", d.UnmatchedStock).
		Int("stock_start_row", d.Stock.StartRow).
		Str("stock_mapping", d.Stock.Mapping.String()).
		Dur("elapsed", elapsed)
	if d.Forecasted > 0 {
		event = event.Int("forecasted", d.Forecasted)
	}
	event.Msg("analysis: completed")

	for _, src := range append([]domain.SourceDiagnostics{d.Stock}, d.Outflow...) {
		if src.Dropped.Sum() == 0 {
			continue
		}
		log.Debug().
			Str("run_id", report.RunID).
			Str("source", src.Name).
			Str("kind", string(src.Kind)).
			Int("blank_code", src.Dropped.BlankCode).
			Int("total_rows", src.Dropped.Total).
			Int("duplicate", src.Dropped.Duplicate).
			Int("malformed_quantity", src.Dropped.MalformedQuantity).
			Int("negative_quantity", src.Dropped.NegativeQuantity).
			Msg("analysis: rows dropped")
	}
}
