// Package exposure fits a five-factor linear model to a fund's excess
// returns and decomposes performance into factor loadings and alpha.
package exposure

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantdesk/fundrisk/internal/modules/marketdata"
	"github.com/quantdesk/fundrisk/internal/modules/returns"
)

// NumFactors is the number of factor columns in the design matrix.
const NumFactors = 5

// MinObservations is the smallest sample accepted by Estimate. With five
// unknowns plus the separately computed alpha, anything smaller would give
// the solver room to return an unstable least-norm fit.
const MinObservations = 6

// FactorNames are the factor columns in design-matrix order.
var FactorNames = [NumFactors]string{"Mkt-RF", "SMB", "HML", "RMW", "CMA"}

// ErrNoOverlap indicates a fund shares no dates with the factor data.
var ErrNoOverlap = errors.New("no overlapping dates between fund returns and factor data")

// ErrInsufficientSample indicates too few aligned observations for a
// well-posed least-squares solve.
var ErrInsufficientSample = errors.New("insufficient observations for factor regression")

// Observation is one date where a fund return and factor data align.
// All values are decimal returns (the percent units of the factor store
// have already been converted).
type Observation struct {
	Date    string
	Excess  float64 // portfolio return minus risk-free rate
	Factors [NumFactors]float64
}

// Exposures is the fitted factor model for one fund.
type Exposures struct {
	Alpha float64
	Betas [NumFactors]float64
}

// AlignFactors joins a fund's portfolio returns with factor observations on
// exact date equality and converts factor values from the vendor's percent
// units to decimals (5.0 means 5%, combined as 0.05). The excess return is
// the portfolio return minus the decimal risk-free rate.
//
// Dates present on only one side are silently dropped from the join; a
// completely empty intersection returns ErrNoOverlap so the caller can skip
// the fund rather than abort the run.
func AlignFactors(fundReturns []returns.PortfolioReturn, factors []marketdata.FactorObservation) ([]Observation, error) {
	factorsByDate := make(map[string]marketdata.FactorObservation, len(factors))
	for _, f := range factors {
		factorsByDate[f.Date] = f
	}

	var obs []Observation
	for _, pr := range fundReturns {
		f, ok := factorsByDate[pr.Date]
		if !ok {
			continue
		}
		obs = append(obs, Observation{
			Date:   pr.Date,
			Excess: pr.Return - f.RF/100.0,
			Factors: [NumFactors]float64{
				f.MktRF / 100.0,
				f.SMB / 100.0,
				f.HML / 100.0,
				f.RMW / 100.0,
				f.CMA / 100.0,
			},
		})
	}

	if len(obs) == 0 {
		return nil, ErrNoOverlap
	}
	return obs, nil
}

// Estimate fits the factor model by ordinary least squares strictly through
// the origin: the design matrix holds only the five factor columns, no
// intercept. Alpha is then the mean residual y - Xβ, so betas capture only
// the directions the factors explain and alpha the average leftover return.
func Estimate(obs []Observation) (Exposures, error) {
	n := len(obs)
	if n < MinObservations {
		return Exposures{}, fmt.Errorf("%w: have %d, need at least %d", ErrInsufficientSample, n, MinObservations)
	}

	x := mat.NewDense(n, NumFactors, nil)
	y := mat.NewVecDense(n, nil)
	for i, o := range obs {
		for j := 0; j < NumFactors; j++ {
			x.Set(i, j, o.Factors[j])
		}
		y.SetVec(i, o.Excess)
	}

	// QR-based least-squares solve of the overdetermined system Xβ = y.
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return Exposures{}, fmt.Errorf("least-squares solve failed: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = y.AtVec(i) - fitted.AtVec(i)
	}

	var exp Exposures
	exp.Alpha = stat.Mean(residuals, nil)
	for j := 0; j < NumFactors; j++ {
		exp.Betas[j] = beta.AtVec(j)
	}
	return exp, nil
}
