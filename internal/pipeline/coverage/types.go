// Package coverage reconciles a stock snapshot with outflow history and
// projects, per product, whether stock covers expected demand.
package coverage

import (
	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/sheet"
)

// Config holds the inference and projection tunables.
type Config struct {
	ScanDepth         int // rows scanned looking for the first data row
	FallbackStartRow  int // start row when no detector matches; negative disables it
	HeaderLookback    int // rows above the data examined for header keywords
	ContentSampleRows int // rows sampled by content-based column detection
	ForecastHorizon   int // months projected by the trend forecaster
}

// DefaultConfig returns the defaults used by the CLI and the HTTP server.
func DefaultConfig() Config {
	return Config{
		ScanDepth:         200,
		FallbackStartRow:  15,
		HeaderLookback:    30,
		ContentSampleRows: 50,
		ForecastHorizon:   3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScanDepth <= 0 {
		c.ScanDepth = d.ScanDepth
	}
	if c.HeaderLookback <= 0 {
		c.HeaderLookback = d.HeaderLookback
	}
	if c.ContentSampleRows <= 0 {
		c.ContentSampleRows = d.ContentSampleRows
	}
	if c.ForecastHorizon <= 0 {
		c.ForecastHorizon = d.ForecastHorizon
	}
	return c
}

// Input is one analysis run: a stock grid and one or more outflow period grids,
// oldest period first.
type Input struct {
	Stock    sheet.Grid
	Outflows []sheet.Grid
	Options  domain.Options
}

// Schema is the inferred (or overridden) reading plan for a grid.
type Schema struct {
	StartRow      int                    `json:"start_row"`
	StartDetector string                 `json:"start_detector"`
	HeaderRow     int                    `json:"header_row"` // -1 when no header row was recognized
	Mapping       domain.ColumnMapping   `json:"mapping"`
	RoleDetectors map[domain.Role]string `json:"role_detectors"`
}

// Extraction is the outcome of reading records from a grid.
type Extraction struct {
	Records     []domain.ProductRecord
	RowsScanned int
	Dropped     domain.DropCounts
}

// Estimate is the demand projection of one joined record.
type Estimate struct {
	ExpectedDemand    float64
	RunwayDays        float64
	SuggestedPurchase float64
	Forecasted        bool
}
