package reports

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/quantdesk/fundrisk/internal/modules/exposure"
	"github.com/quantdesk/fundrisk/internal/modules/returns"
	"github.com/quantdesk/fundrisk/internal/modules/tailrisk"
)

const histogramBins = 50

// RenderFundCharts renders the three per-fund chart artifacts:
// cumulative-return curve, return-distribution histogram with the VaR
// threshold highlighted, and the factor-exposure bar chart.
//
// The caller treats a failure here as fund-local: the error is logged and
// the run continues with the remaining funds.
func (r *Renderer) RenderFundCharts(
	fundID int64,
	series []returns.PortfolioReturn,
	risk tailrisk.Result,
	exp exposure.Exposures,
) error {
	if err := r.renderCumulativeReturns(fundID, series); err != nil {
		return fmt.Errorf("cumulative returns chart: %w", err)
	}
	if err := r.renderReturnDistribution(fundID, series, risk); err != nil {
		return fmt.Errorf("return distribution chart: %w", err)
	}
	if err := r.renderFactorExposures(fundID, exp); err != nil {
		return fmt.Errorf("factor exposures chart: %w", err)
	}
	return nil
}

// CumulativeReturns converts a date-sorted log-return series into the
// cumulative simple-return curve exp(Σ r) - 1. Log returns sum across time,
// so the cumulative product collapses to a single exponential of the
// running sum.
func CumulativeReturns(series []returns.PortfolioReturn) []float64 {
	cumulative := make([]float64, len(series))
	sum := 0.0
	for i, pr := range series {
		sum += pr.Return
		cumulative[i] = math.Exp(sum) - 1
	}
	return cumulative
}

// renderCumulativeReturns plots the cumulative-return curve over the fund's
// sorted dates.
func (r *Renderer) renderCumulativeReturns(fundID int64, series []returns.PortfolioReturn) error {
	if len(series) == 0 {
		return fmt.Errorf("empty return series for fund %d", fundID)
	}

	dates := make([]string, len(series))
	for i, pr := range series {
		dates[i] = pr.Date
	}
	cumulative := CumulativeReturns(series)

	painter, err := charts.LineRender([][]float64{cumulative},
		charts.TitleTextOptionFunc(fmt.Sprintf("Cumulative Returns for Fund %d", fundID)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: dates, BoundaryGap: charts.FalseFlag(), SplitNumber: 8}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return err
	}

	return r.writeChart(fmt.Sprintf("fund%d_cumulative_returns.png", fundID), painter)
}

// renderReturnDistribution plots a histogram of the fund's returns. Bins
// lying entirely at or below -VaR are drawn as a separate "Tail" series so
// the risk threshold is visible; the VaR value itself goes in the subtitle.
func (r *Renderer) renderReturnDistribution(fundID int64, series []returns.PortfolioReturn, risk tailrisk.Result) error {
	if len(series) == 0 {
		return fmt.Errorf("empty return series for fund %d", fundID)
	}

	values := make([]float64, len(series))
	minV, maxV := series[0].Return, series[0].Return
	for i, pr := range series {
		values[i] = pr.Return
		if pr.Return < minV {
			minV = pr.Return
		}
		if pr.Return > maxV {
			maxV = pr.Return
		}
	}

	bins := histogramBins
	if len(values) < bins {
		bins = len(values)
	}
	width := (maxV - minV) / float64(bins)
	if width == 0 {
		// Degenerate constant series: one bin holds everything.
		bins = 1
		width = 1
	}

	labels := make([]string, bins)
	body := make([]float64, bins)
	tail := make([]float64, bins)
	threshold := -risk.VaR
	for i := 0; i < bins; i++ {
		lo := minV + float64(i)*width
		hi := lo + width
		labels[i] = fmt.Sprintf("%.4f", lo+width/2)
		count := 0.0
		for _, v := range values {
			if v >= lo && (v < hi || (i == bins-1 && v <= hi)) {
				count++
			}
		}
		if hi <= threshold {
			tail[i] = count
		} else {
			body[i] = count
		}
	}

	painter, err := charts.BarRender([][]float64{body, tail},
		charts.TitleTextOptionFunc(
			fmt.Sprintf("Return Distribution for Fund %d", fundID),
			fmt.Sprintf("VaR (%.0f%%) = %.4f", risk.Confidence*100, risk.VaR),
		),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, SplitNumber: 10}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"Returns", "Beyond VaR"}}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return err
	}

	return r.writeChart(fmt.Sprintf("fund%d_return_distribution.png", fundID), painter)
}

// renderFactorExposures plots the five betas as a bar chart.
func (r *Renderer) renderFactorExposures(fundID int64, exp exposure.Exposures) error {
	betas := make([]float64, exposure.NumFactors)
	labels := make([]string, exposure.NumFactors)
	for i := 0; i < exposure.NumFactors; i++ {
		betas[i] = exp.Betas[i]
		labels[i] = exposure.FactorNames[i]
	}

	painter, err := charts.BarRender([][]float64{betas},
		charts.TitleTextOptionFunc(fmt.Sprintf("Factor Exposures for Fund %d", fundID)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return err
	}

	return r.writeChart(fmt.Sprintf("fund%d_factor_exposures.png", fundID), painter)
}

func (r *Renderer) writeChart(filename string, painter *charts.Painter) error {
	buf, err := painter.Bytes()
	if err != nil {
		return fmt.Errorf("failed to render chart %s: %w", filename, err)
	}

	path := filepath.Join(r.resultsDir, filename)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write chart %s: %w", filename, err)
	}

	r.log.Debug().Str("path", path).Msg("Wrote chart")
	return nil
}
