package coverage

import (
	"sort"

	"github.com/andresuchdata/stockcover/internal/domain"
)

const maxExamples = 5

// Recommend derives the ranked recommendation groups. Ties fall back to code
// order so the output is stable for a given input.
func Recommend(records []domain.AnalysisRecord) []domain.RecommendationGroup {
	var groups []domain.RecommendationGroup

	critical := filterRecords(records, func(r domain.AnalysisRecord) bool {
		return r.Status == domain.StatusNeedsPurchase
	})
	if len(critical) > 0 {
		sort.SliceStable(critical, func(i, j int) bool {
			a, b := float64(critical[i].EstimatedRunwayDays), float64(critical[j].EstimatedRunwayDays)
			if a != b {
				return a < b
			}
			return codeLess(critical[i].Code, critical[j].Code)
		})
		groups = append(groups, group(domain.RecommendCriticalShortage, "Critical shortages", critical, len(critical)))
	}

	excess := filterRecords(records, func(r domain.AnalysisRecord) bool {
		return float64(r.EstimatedRunwayDays) > excessRunway
	})
	if len(excess) > 0 {
		sort.SliceStable(excess, func(i, j int) bool {
			if excess[i].StockQuantity != excess[j].StockQuantity {
				return excess[i].StockQuantity > excess[j].StockQuantity
			}
			return codeLess(excess[i].Code, excess[j].Code)
		})
		groups = append(groups, group(domain.RecommendExcessStock, "Excess stock", excess, len(excess)))
	}

	movers := append([]domain.AnalysisRecord(nil), records...)
	sort.SliceStable(movers, func(i, j int) bool {
		if movers[i].MeanMonthlyOutflow != movers[j].MeanMonthlyOutflow {
			return movers[i].MeanMonthlyOutflow > movers[j].MeanMonthlyOutflow
		}
		return codeLess(movers[i].Code, movers[j].Code)
	})
	if len(movers) > maxExamples {
		movers = movers[:maxExamples]
	}
	groups = append(groups, group(domain.RecommendTopMovers, "Top movers", movers, len(movers)))

	return groups
}

func group(kind domain.RecommendationKind, title string, ranked []domain.AnalysisRecord, count int) domain.RecommendationGroup {
	examples := ranked
	if len(examples) > maxExamples {
		examples = examples[:maxExamples]
	}
	return domain.RecommendationGroup{
		Kind:     kind,
		Title:    title,
		Count:    count,
		Examples: append([]domain.AnalysisRecord{}, examples...),
	}
}

func filterRecords(records []domain.AnalysisRecord, keep func(domain.AnalysisRecord) bool) []domain.AnalysisRecord {
	var out []domain.AnalysisRecord
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
