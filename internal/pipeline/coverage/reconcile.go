package coverage

import (
	"strings"

	"github.com/andresuchdata/stockcover/internal/domain"
)

// Join matches stock records with outflow records by exact trimmed code.
// outflows holds one record set per period, oldest first; a code seen in
// several periods (or twice in one) gets the mean of its quantities and keeps
// the series in History. Output follows stock order.
func Join(stock []domain.ProductRecord, outflows ...[]domain.ProductRecord) ([]domain.JoinedRecord, error) {
	series := make(map[string][]float64)
	outflowCount := 0
	for _, period := range outflows {
		outflowCount += len(period)
		for _, rec := range period {
			key := strings.TrimSpace(rec.Code)
			series[key] = append(series[key], rec.Quantity)
		}
	}

	joined := make([]domain.JoinedRecord, 0, len(stock))
	emitted := make(map[string]struct{}, len(stock))
	for _, rec := range stock {
		key := strings.TrimSpace(rec.Code)
		history, ok := series[key]
		if !ok {
			continue
		}
		if _, dup := emitted[key]; dup {
			continue
		}
		emitted[key] = struct{}{}

		joined = append(joined, domain.JoinedRecord{
			Code:               key,
			Description:        rec.Description,
			Unit:               rec.Unit,
			StockQuantity:      rec.Quantity,
			MeanMonthlyOutflow: mean(history),
			History:            append([]float64(nil), history...),
		})
	}

	if len(joined) == 0 {
		return nil, &domain.NoOverlapError{StockCount: len(stock), OutflowCount: outflowCount}
	}
	return joined, nil
}
