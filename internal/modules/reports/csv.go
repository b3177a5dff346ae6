// Package reports renders the pipeline's output artifacts: tabular CSV
// files and per-fund PNG charts.
package reports

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/quantdesk/fundrisk/internal/modules/exposure"
	"github.com/quantdesk/fundrisk/internal/modules/returns"
)

// FundSummary is the one-row-per-fund risk summary.
type FundSummary struct {
	FundID   int64
	FundName string
	Alpha    float64
	Betas    [exposure.NumFactors]float64
	VaR      float64
	ES       float64 // NaN when undefined (no returns strictly below the VaR threshold)
}

// Renderer writes all artifacts into a results directory. It is the only
// component in the pipeline with side effects.
type Renderer struct {
	resultsDir string
	log        zerolog.Logger
}

// NewRenderer creates a renderer writing into resultsDir.
func NewRenderer(resultsDir string, log zerolog.Logger) *Renderer {
	return &Renderer{
		resultsDir: resultsDir,
		log:        log.With().Str("component", "reports").Logger(),
	}
}

// ResultsDir returns the directory artifacts are written to.
func (r *Renderer) ResultsDir() string {
	return r.resultsDir
}

// WritePortfolioReturns writes all funds' daily portfolio returns to
// portfolio_returns.csv.
func (r *Renderer) WritePortfolioReturns(portfolioReturns []returns.PortfolioReturn) error {
	path := filepath.Join(r.resultsDir, "portfolio_returns.csv")

	records := make([][]string, 0, len(portfolioReturns)+1)
	records = append(records, []string{"date", "fund_id", "portfolio_return"})
	for _, pr := range portfolioReturns {
		records = append(records, []string{
			pr.Date,
			strconv.FormatInt(pr.FundID, 10),
			formatFloat(pr.Return),
		})
	}

	if err := writeCSV(path, records); err != nil {
		return fmt.Errorf("failed to write portfolio returns: %w", err)
	}

	r.log.Info().Str("path", path).Int("rows", len(portfolioReturns)).Msg("Wrote portfolio returns")
	return nil
}

// WriteSummary writes one row per fund to summary_metrics.csv. An undefined
// Expected Shortfall is written as NaN, keeping the column numeric for
// downstream tooling.
func (r *Renderer) WriteSummary(summaries []FundSummary) error {
	path := filepath.Join(r.resultsDir, "summary_metrics.csv")

	records := make([][]string, 0, len(summaries)+1)
	records = append(records, []string{
		"fund_id", "fund_name", "alpha",
		"beta_mkt_rf", "beta_smb", "beta_hml", "beta_rmw", "beta_cma",
		"VaR_95", "ES_95",
	})
	for _, s := range summaries {
		row := []string{
			strconv.FormatInt(s.FundID, 10),
			s.FundName,
			formatFloat(s.Alpha),
		}
		for _, b := range s.Betas {
			row = append(row, formatFloat(b))
		}
		row = append(row, formatFloat(s.VaR), formatFloat(s.ES))
		records = append(records, row)
	}

	if err := writeCSV(path, records); err != nil {
		return fmt.Errorf("failed to write summary metrics: %w", err)
	}

	r.log.Info().Str("path", path).Int("funds", len(summaries)).Msg("Wrote summary metrics")
	return nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
