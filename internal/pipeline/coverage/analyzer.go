package coverage

import (
	"strings"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/sheet"
)

// Analyzer runs the full pipeline: schema inference, extraction, join,
// projection and report assembly. It holds no per-run state and is safe for
// concurrent use.
type Analyzer struct {
	cfg      Config
	inferer  *SchemaInferer
	forecast Forecaster
}

func NewAnalyzer(cfg Config) *Analyzer {
	cfg = cfg.withDefaults()
	return &Analyzer{
		cfg:      cfg,
		inferer:  NewSchemaInferer(cfg),
		forecast: LinearTrend{MinPoints: 3},
	}
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze produces the report for one stock grid and its outflow grids.
func (a *Analyzer) Analyze(in Input) (*domain.Report, error) {
	opts := in.Options
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(in.Outflows) == 0 {
		return nil, &domain.OptionsError{Field: "outflow", Reason: "at least one outflow sheet is required"}
	}

	stock, stockDiag, err := a.read(in.Stock, domain.SourceStock, opts.StartRowStock, opts.MappingStock)
	if err != nil {
		return nil, err
	}

	periods := make([][]domain.ProductRecord, 0, len(in.Outflows))
	outflowDiags := make([]domain.SourceDiagnostics, 0, len(in.Outflows))
	for _, g := range in.Outflows {
		recs, diag, err := a.read(g, domain.SourceOutflow, opts.StartRowOutflow, opts.MappingOutflow)
		if err != nil {
			return nil, err
		}
		periods = append(periods, recs)
		outflowDiags = append(outflowDiags, diag)
	}

	joined, err := Join(stock, periods...)
	if err != nil {
		return nil, err
	}

	model := a.model(opts)
	records := make([]domain.AnalysisRecord, 0, len(joined))
	forecasted := 0
	for _, rec := range joined {
		rec := Classify(rec, model.Estimate(rec))
		if rec.Forecasted {
			forecasted++
		}
		records = append(records, rec)
	}

	report := Assemble(records, periodTotals(joined, periods))
	report.Diagnostics = domain.Diagnostics{
		Stock:          stockDiag,
		Outflow:        outflowDiags,
		Joined:         len(joined),
		UnmatchedStock: len(stock) - len(joined),
		Forecasted:     forecasted,
	}
	return report, nil
}

func (a *Analyzer) read(g sheet.Grid, kind domain.SourceKind, start *int, mapping *domain.ColumnMapping) ([]domain.ProductRecord, domain.SourceDiagnostics, error) {
	diag := domain.SourceDiagnostics{Name: g.Name, Kind: kind}
	schema, err := a.inferer.Resolve(g, kind, start, mapping)
	if err != nil {
		return nil, diag, err
	}

	ext := Extract(g, schema.StartRow, schema.Mapping, kind)
	diag.StartRow = schema.StartRow
	diag.StartDetector = schema.StartDetector
	diag.Mapping = schema.Mapping
	diag.RoleDetectors = schema.RoleDetectors
	diag.RowsScanned = ext.RowsScanned
	diag.Retained = len(ext.Records)
	diag.Dropped = ext.Dropped
	return ext.Records, diag, nil
}

func (a *Analyzer) model(opts domain.Options) DemandModel {
	base := NewLinearModel(opts)
	if !opts.Forecast {
		return base
	}
	return TrendModel{Base: base, Forecaster: a.forecast, Horizon: a.cfg.ForecastHorizon}
}

// periodTotals sums each period's outflow over the joined codes.
func periodTotals(joined []domain.JoinedRecord, periods [][]domain.ProductRecord) []float64 {
	codes := make(map[string]struct{}, len(joined))
	for _, j := range joined {
		codes[j.Code] = struct{}{}
	}
	totals := make([]float64, len(periods))
	for i, period := range periods {
		for _, rec := range period {
			if _, ok := codes[strings.TrimSpace(rec.Code)]; ok {
				totals[i] += rec.Quantity
			}
		}
	}
	return totals
}
