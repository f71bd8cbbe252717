package coverage

import (
	"sort"

	"github.com/andresuchdata/stockcover/internal/domain"
)

const (
	overstockFactor = 3
	seasonCycle     = 12
)

// Assemble orders the records and derives the aggregate sections of a report.
// Diagnostics and the run id are left to the caller.
func Assemble(records []domain.AnalysisRecord, periodTotals []float64) *domain.Report {
	sorted := append([]domain.AnalysisRecord{}, records...)
	SortRecords(sorted)

	return &domain.Report{
		Records:         sorted,
		Summary:         Summarize(sorted),
		Breakdown:       Breakdown(sorted),
		HighRisk:        HighRisk(sorted),
		Overstock:       Overstock(sorted),
		Recommendations: Recommend(sorted),
		Seasonality:     Seasonality(periodTotals),
	}
}

// SortRecords puts records needing purchase first, then orders by code.
func SortRecords(records []domain.AnalysisRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Status != b.Status {
			return a.Status == domain.StatusNeedsPurchase
		}
		return codeLess(a.Code, b.Code)
	})
}

func Summarize(records []domain.AnalysisRecord) domain.Summary {
	s := domain.Summary{Total: len(records)}
	outflow := 0.0
	for _, r := range records {
		if r.Status == domain.StatusNeedsPurchase {
			s.NeedsPurchase++
		} else {
			s.OK++
		}
		switch r.UrgencyBand {
		case domain.BandCritical:
			s.Bands.Critical++
		case domain.BandWatch:
			s.Bands.Watch++
		case domain.BandNormal:
			s.Bands.Normal++
		case domain.BandExcess:
			s.Bands.Excess++
		}
		if r.RemainingStock < 0 {
			s.LowStock++
		}
		if float64(r.EstimatedRunwayDays) > excessRunway {
			s.ExcessStock++
		}
		s.TotalStock += r.StockQuantity
		outflow += r.MeanMonthlyOutflow
	}

	s.OKPercent = percent(s.OK, s.Total)
	s.NeedsPurchasePercent = percent(s.NeedsPurchase, s.Total)
	s.TotalStock = roundFloat(s.TotalStock, 2)
	if s.Total > 0 {
		s.MeanOutflow = roundFloat(outflow/float64(s.Total), 2)
	}
	return s
}

// Breakdown aggregates records per status, needs purchase first. Statuses with
// no records are omitted.
func Breakdown(records []domain.AnalysisRecord) []domain.StatusBreakdown {
	order := []domain.Status{domain.StatusNeedsPurchase, domain.StatusOK}
	byStatus := make(map[domain.Status]*domain.StatusBreakdown, len(order))
	for _, r := range records {
		b, ok := byStatus[r.Status]
		if !ok {
			b = &domain.StatusBreakdown{Status: r.Status}
			byStatus[r.Status] = b
		}
		b.Items++
		b.TotalStock += r.StockQuantity
		b.TotalOutflow += r.MeanMonthlyOutflow
	}

	var out []domain.StatusBreakdown
	for _, status := range order {
		b, ok := byStatus[status]
		if !ok {
			continue
		}
		b.TotalStock = roundFloat(b.TotalStock, 2)
		b.TotalOutflow = roundFloat(b.TotalOutflow, 2)
		b.Percent = percent(b.Items, len(records))
		out = append(out, *b)
	}
	return out
}

// HighRisk lists records whose stock does not cover one period of expected
// demand, largest shortfall first.
func HighRisk(records []domain.AnalysisRecord) []domain.AnalysisRecord {
	out := filterRecords(records, func(r domain.AnalysisRecord) bool {
		return r.RemainingStock < 0
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].RemainingStock, out[j].RemainingStock
		if a != b {
			return a < b
		}
		return codeLess(out[i].Code, out[j].Code)
	})
	return nonNil(out)
}

// Overstock lists records holding more than three months of mean outflow,
// largest stock first.
func Overstock(records []domain.AnalysisRecord) []domain.AnalysisRecord {
	out := filterRecords(records, func(r domain.AnalysisRecord) bool {
		return r.StockQuantity > overstockFactor*r.MeanMonthlyOutflow
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StockQuantity != out[j].StockQuantity {
			return out[i].StockQuantity > out[j].StockQuantity
		}
		return codeLess(out[i].Code, out[j].Code)
	})
	return nonNil(out)
}

// Seasonality returns, for each position in a 12-period cycle, the mean
// relative deviation of the period total from the overall mean. It needs at
// least one complete cycle and only complete cycles are used.
func Seasonality(totals []float64) []float64 {
	cycles := len(totals) / seasonCycle
	if cycles == 0 {
		return nil
	}
	used := totals[:cycles*seasonCycle]
	avg := mean(used)
	if avg <= 0 {
		return nil
	}

	out := make([]float64, seasonCycle)
	for i, v := range used {
		out[i%seasonCycle] += (v - avg) / avg
	}
	for i := range out {
		out[i] = roundFloat(out[i]/float64(cycles), 4)
	}
	return out
}

func nonNil(records []domain.AnalysisRecord) []domain.AnalysisRecord {
	if records == nil {
		return []domain.AnalysisRecord{}
	}
	return records
}
