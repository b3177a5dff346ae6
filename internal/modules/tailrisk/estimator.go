// Package tailrisk computes historical Value at Risk and Expected Shortfall
// from a portfolio return series.
package tailrisk

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultConfidence is the confidence level used when none is configured.
const DefaultConfidence = 0.95

// ErrEmptySample indicates there are no returns to estimate from.
var ErrEmptySample = errors.New("empty return sample")

// Result holds tail-risk estimates. Both VaR and ES are positive numbers
// representing magnitude of loss. ES is NaN when no observation falls
// strictly below the VaR threshold, an expected outcome for small or
// discrete samples rather than an error.
type Result struct {
	Confidence float64
	VaR        float64
	ES         float64
}

// Estimate computes historical VaR and ES at the given confidence level.
//
// VaR is the negative of the empirical quantile at 1-confidence, using the
// linearly interpolated quantile estimator (the 5th percentile for 95%
// confidence). ES is the negative mean of the observations strictly below
// that threshold; ties at the threshold stay out of the tail average.
func Estimate(sample []float64, confidence float64) (Result, error) {
	if len(sample) == 0 {
		return Result{}, ErrEmptySample
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultConfidence
	}

	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	threshold := interpolatedQuantile(sorted, 1-confidence)

	var tail []float64
	for _, r := range sorted {
		if r < threshold {
			tail = append(tail, r)
		}
	}

	es := math.NaN()
	if len(tail) > 0 {
		es = -floats.Sum(tail) / float64(len(tail))
	}

	return Result{
		Confidence: confidence,
		VaR:        -threshold,
		ES:         es,
	}, nil
}

// interpolatedQuantile returns the q-quantile of an ascending-sorted sample
// by linear interpolation between adjacent order statistics: the value at
// fractional index (n-1)·q. This is the estimator the historical workflow
// is calibrated against; gonum's stat.Quantile implements different
// cumulant conventions and is not interchangeable here.
func interpolatedQuantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	h := float64(n-1) * q
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
