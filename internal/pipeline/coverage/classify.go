package coverage

import (
	"github.com/andresuchdata/stockcover/internal/domain"
)

// Band thresholds in days of runway.
const (
	criticalBelow = -30
	normalUpTo    = 90
	excessRunway  = 180
)

// StatusFor returns needs purchase iff stock is strictly below expected demand.
func StatusFor(stock, expected float64) domain.Status {
	if stock < expected {
		return domain.StatusNeedsPurchase
	}
	return domain.StatusOK
}

// RemainingStock is the stock left after one period of expected demand.
// It is negative when the period is not covered.
func RemainingStock(stock, expected float64) float64 {
	return stock - expected
}

// BandFor buckets a runway: below -30 critical, [-30, 0) watch, [0, 90]
// normal, above 90 excess. An infinite runway is excess.
func BandFor(runway float64) domain.UrgencyBand {
	switch {
	case runway < criticalBelow:
		return domain.BandCritical
	case runway < 0:
		return domain.BandWatch
	case runway <= normalUpTo:
		return domain.BandNormal
	default:
		return domain.BandExcess
	}
}

// Classify turns a joined record and its estimate into a report row.
func Classify(rec domain.JoinedRecord, est Estimate) domain.AnalysisRecord {
	runway := roundFloat(est.RunwayDays, 2)
	return domain.AnalysisRecord{
		Code:                      rec.Code,
		Description:               rec.Description,
		Unit:                      rec.Unit,
		StockQuantity:             rec.StockQuantity,
		MeanMonthlyOutflow:        roundFloat(rec.MeanMonthlyOutflow, 4),
		ExpectedDemand:            roundFloat(est.ExpectedDemand, 4),
		EstimatedRunwayDays:       domain.Days(runway),
		RemainingStock:            roundFloat(RemainingStock(rec.StockQuantity, est.ExpectedDemand), 4),
		Status:                    StatusFor(rec.StockQuantity, est.ExpectedDemand),
		SuggestedPurchaseQuantity: est.SuggestedPurchase,
		UrgencyBand:               BandFor(runway),
		Forecasted:                est.Forecasted,
	}
}
