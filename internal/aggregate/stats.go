package aggregate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CorrelationResult carries a Pearson coefficient with its two-sided
// p-value.
type CorrelationResult struct {
	R      float64 `json:"r"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// RegressionResult is an ordinary least-squares fit of y against x, with
// the slope's standard error and two-sided p-value, matching what a
// standard linregress call reports.
type RegressionResult struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	PValue    float64 `json:"p_value"`
	StdErr    float64 `json:"stderr"`
	N         int     `json:"n"`
}

var errTooFewPoints = errors.New("need at least 3 points")

func pearson(x, y []float64) (*CorrelationResult, error) {
	if len(x) != len(y) {
		return nil, errors.New("series lengths differ")
	}
	if len(x) < 3 {
		return nil, errTooFewPoints
	}
	r := stat.Correlation(x, y, nil)
	return &CorrelationResult{R: r, PValue: pValueOfR(r, len(x)), N: len(x)}, nil
}

func linearRegression(x, y []float64) (*RegressionResult, error) {
	if len(x) != len(y) {
		return nil, errors.New("series lengths differ")
	}
	n := len(x)
	if n < 3 {
		return nil, errTooFewPoints
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	r := stat.Correlation(x, y, nil)

	// Standard error of the slope from the residual variance.
	meanX := stat.Mean(x, nil)
	var sse, sxx float64
	for i := range x {
		resid := y[i] - (intercept + slope*x[i])
		sse += resid * resid
		dx := x[i] - meanX
		sxx += dx * dx
	}
	if sxx == 0 {
		return nil, errors.New("independent variable is constant")
	}
	stderr := math.Sqrt(sse / float64(n-2) / sxx)

	p := 1.0
	if stderr > 0 {
		t := math.Abs(slope / stderr)
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
		p = 2 * dist.Survival(t)
	}

	return &RegressionResult{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		PValue:    p,
		StdErr:    stderr,
		N:         n,
	}, nil
}

// pValueOfR converts a correlation coefficient to a two-sided p-value via
// the t transform.
func pValueOfR(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	denom := 1 - r*r
	if denom <= 0 {
		return 0
	}
	t := math.Abs(r) * math.Sqrt(float64(n-2)/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.Survival(t)
}
