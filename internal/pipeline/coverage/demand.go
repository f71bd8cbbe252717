package coverage

import (
	"math"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	daysPerMonth      = 30
	patientsPerWeight = 1000
	demandFloor       = 0.5
)

var safetyMargin = decimal.RequireFromString("1.10")

// DemandModel projects demand, runway and purchase quantity for a joined record.
type DemandModel interface {
	Estimate(rec domain.JoinedRecord) Estimate
}

// LinearModel applies the category profile and optional patient volume to the
// historical mean and assumes constant daily depletion.
type LinearModel struct {
	Profile       domain.CategoryProfile
	PatientVolume *float64
	PeriodDays    int
}

// NewLinearModel builds the model described by the run options.
func NewLinearModel(opts domain.Options) LinearModel {
	return LinearModel{
		Profile:       opts.Profile(),
		PatientVolume: opts.PatientVolume,
		PeriodDays:    opts.PeriodDays(),
	}
}

// Estimate computes the projection of rec from its historical mean outflow.
func (m LinearModel) Estimate(rec domain.JoinedRecord) Estimate {
	return m.estimateFrom(rec.MeanMonthlyOutflow, rec.StockQuantity)
}

func (m LinearModel) estimateFrom(baseline, stock float64) Estimate {
	// 1. Expected monthly demand
	expected := m.ExpectedDemand(baseline)

	// 2. Runway = stock / daily demand
	runway := Runway(stock, expected)

	// 3. Purchase = (minimum stock + demand over the period - stock) x safety margin
	return Estimate{
		ExpectedDemand:    expected,
		RunwayDays:        runway,
		SuggestedPurchase: m.SuggestPurchase(stock, expected),
	}
}

// ExpectedDemand returns the monthly demand. Without a patient volume the
// historical mean is used as is; with one, demand is scaled by patients and
// seasonality but never drops below half the historical mean.
func (m LinearModel) ExpectedDemand(meanOutflow float64) float64 {
	if meanOutflow < 0 {
		meanOutflow = 0
	}
	if m.PatientVolume == nil {
		return meanOutflow
	}

	fromPatients := meanOutflow * (*m.PatientVolume / patientsPerWeight) * m.Profile.PatientWeight
	return math.Max(fromPatients*m.Profile.SeasonalMultiplier, meanOutflow*demandFloor)
}

// Runway returns the days stock lasts at expected/30 units a day, +Inf when
// there is no demand.
func Runway(stock, expected float64) float64 {
	if expected <= 0 {
		return math.Inf(1)
	}
	return stock / (expected / daysPerMonth)
}

// SuggestPurchase returns the quantity to buy, rounded to two decimals.
func (m LinearModel) SuggestPurchase(stock, expected float64) float64 {
	days := m.PeriodDays
	if days <= 0 {
		days = domain.DefaultDesiredPeriodDays
	}

	current := decimal.NewFromFloat(stock)
	minimum := current.Mul(decimal.NewFromFloat(m.Profile.MinimumStockFraction))
	periodDemand := decimal.NewFromFloat(expected).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(daysPerMonth))

	needed := minimum.Add(periodDemand).Sub(current)
	if needed.IsNegative() {
		needed = decimal.Zero
	}
	return needed.Mul(safetyMargin).Round(2).InexactFloat64()
}

// TrendModel replaces the historical mean with a forecast when the outflow
// history is long enough, then applies Base.
type TrendModel struct {
	Base       LinearModel
	Forecaster Forecaster
	Horizon    int
}

func (m TrendModel) Estimate(rec domain.JoinedRecord) Estimate {
	if m.Forecaster == nil {
		return m.Base.Estimate(rec)
	}
	projected, ok := m.Forecaster.Forecast(rec.History, m.Horizon)
	if !ok || len(projected) == 0 {
		return m.Base.Estimate(rec)
	}

	est := m.Base.estimateFrom(mean(projected), rec.StockQuantity)
	est.Forecasted = true
	return est
}
