package domain

import (
	"encoding/json"
	"math"
)

// SourceKind tells the engine which spreadsheet a grid came from.
type SourceKind string

const (
	SourceStock   SourceKind = "stock"
	SourceOutflow SourceKind = "outflow"
)

// ProductRecord is one normalized row of a source spreadsheet.
type ProductRecord struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
}

// JoinedRecord is a product present in both the stock and outflow sets.
// Description and unit come from the stock side.
type JoinedRecord struct {
	Code               string    `json:"code"`
	Description        string    `json:"description"`
	Unit               string    `json:"unit"`
	StockQuantity      float64   `json:"stock_quantity"`
	MeanMonthlyOutflow float64   `json:"mean_monthly_outflow"`
	History            []float64 `json:"history,omitempty"` // outflow per period, in period order
}

// Days is a day count that may be +Inf. It encodes as JSON null when infinite.
type Days float64

// Infinite reports whether d is +Inf.
func (d Days) Infinite() bool {
	return math.IsInf(float64(d), 1)
}

func (d Days) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

func (d *Days) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Days(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Days(v)
	return nil
}

// AnalysisRecord is the final per-product row of a Report.
type AnalysisRecord struct {
	Code                      string      `json:"code"`
	Description               string      `json:"description"`
	Unit                      string      `json:"unit"`
	StockQuantity             float64     `json:"stock_quantity"`
	MeanMonthlyOutflow        float64     `json:"mean_monthly_outflow"`
	ExpectedDemand            float64     `json:"expected_demand"`
	EstimatedRunwayDays       Days        `json:"estimated_runway_days"`
	RemainingStock            float64     `json:"remaining_stock"` // stock left after one period of expected demand
	Status                    Status      `json:"status"`
	SuggestedPurchaseQuantity float64     `json:"suggested_purchase_quantity"`
	UrgencyBand               UrgencyBand `json:"urgency_band"`
	Forecasted                bool        `json:"forecasted,omitempty"`
}

// Summary holds the aggregate indicators of a Report.
type Summary struct {
	Total                int        `json:"total"`
	OK                   int        `json:"ok"`
	NeedsPurchase        int        `json:"needs_purchase"`
	Bands                BandCounts `json:"bands"`
	OKPercent            float64    `json:"ok_percent"`
	NeedsPurchasePercent float64    `json:"needs_purchase_percent"`
	TotalStock           float64    `json:"total_stock"`
	MeanOutflow          float64    `json:"mean_outflow"`
	LowStock             int        `json:"low_stock"`    // remaining stock below zero
	ExcessStock          int        `json:"excess_stock"` // runway above 180 days
}

type BandCounts struct {
	Critical int `json:"critical"`
	Watch    int `json:"watch"`
	Normal   int `json:"normal"`
	Excess   int `json:"excess"`
}

// StatusBreakdown aggregates records sharing a status.
type StatusBreakdown struct {
	Status       Status  `json:"status"`
	Items        int     `json:"items"`
	TotalStock   float64 `json:"total_stock"`
	TotalOutflow float64 `json:"total_outflow"`
	Percent      float64 `json:"percent"`
}

// RecommendationGroup is a titled, ranked slice of records.
type RecommendationGroup struct {
	Kind     RecommendationKind `json:"kind"`
	Title    string             `json:"title"`
	Count    int                `json:"count"`
	Examples []AnalysisRecord   `json:"examples"`
}

type RecommendationKind string

const (
	RecommendCriticalShortage RecommendationKind = "critical_shortage"
	RecommendExcessStock      RecommendationKind = "excess_stock"
	RecommendTopMovers        RecommendationKind = "top_movers"
)

// DropCounts tallies rows discarded during extraction.
type DropCounts struct {
	BlankCode         int `json:"blank_code"`
	Total             int `json:"total"`
	Duplicate         int `json:"duplicate"`
	MalformedQuantity int `json:"malformed_quantity"`
	NegativeQuantity  int `json:"negative_quantity"`
}

// Sum returns the number of dropped rows.
func (d DropCounts) Sum() int {
	return d.BlankCode + d.Total + d.Duplicate + d.MalformedQuantity + d.NegativeQuantity
}

// SourceDiagnostics describes how one grid was read.
type SourceDiagnostics struct {
	Name          string          `json:"name,omitempty"`
	Kind          SourceKind      `json:"kind"`
	StartRow      int             `json:"start_row"`
	StartDetector string          `json:"start_detector"`
	Mapping       ColumnMapping   `json:"mapping"`
	RoleDetectors map[Role]string `json:"role_detectors,omitempty"`
	RowsScanned   int             `json:"rows_scanned"`
	Retained      int             `json:"retained"`
	Dropped       DropCounts      `json:"dropped"`
}

// Diagnostics collects per-run accounting returned alongside a Report.
type Diagnostics struct {
	Stock          SourceDiagnostics   `json:"stock"`
	Outflow        []SourceDiagnostics `json:"outflow"`
	Joined         int                 `json:"joined"`
	UnmatchedStock int                 `json:"unmatched_stock"`
	Forecasted     int                 `json:"forecasted"`
}

// MalformedQuantities is the total of unparseable quantity cells across sources.
func (d Diagnostics) MalformedQuantities() int {
	n := d.Stock.Dropped.MalformedQuantity
	for _, o := range d.Outflow {
		n += o.Dropped.MalformedQuantity
	}
	return n
}

// Report is the engine output.
type Report struct {
	RunID           string                `json:"run_id,omitempty"`
	Records         []AnalysisRecord      `json:"records"`
	Summary         Summary               `json:"summary"`
	Breakdown       []StatusBreakdown     `json:"breakdown"`
	HighRisk        []AnalysisRecord      `json:"high_risk"`
	Overstock       []AnalysisRecord      `json:"overstock"`
	Recommendations []RecommendationGroup `json:"recommendations"`
	Seasonality     []float64             `json:"seasonality,omitempty"`
	Diagnostics     Diagnostics           `json:"diagnostics"`
}
