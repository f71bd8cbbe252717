package coverage

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Forecaster projects the next horizon values of a monthly series. ok is false
// when the series is too short to fit.
type Forecaster interface {
	Forecast(history []float64, horizon int) (projected []float64, ok bool)
}

// LinearTrend fits an ordinary least squares line over the series index.
type LinearTrend struct {
	MinPoints int
}

func (f LinearTrend) Forecast(history []float64, horizon int) ([]float64, bool) {
	minPoints := f.MinPoints
	if minPoints < 2 {
		minPoints = 3
	}
	if len(history) < minPoints || horizon <= 0 {
		return nil, false
	}

	xs := make([]float64, len(history))
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, history, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return nil, false
	}

	projected := make([]float64, horizon)
	for i := range projected {
		x := float64(len(history) + i)
		projected[i] = math.Max(0, alpha+beta*x)
	}
	return projected, true
}
