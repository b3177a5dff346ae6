// Package pipeline orchestrates the risk analysis batch: load inputs,
// derive return series, estimate exposures and tail risk per fund, and
// render the report artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantdesk/fundrisk/internal/modules/exposure"
	"github.com/quantdesk/fundrisk/internal/modules/marketdata"
	"github.com/quantdesk/fundrisk/internal/modules/reports"
	"github.com/quantdesk/fundrisk/internal/modules/returns"
	"github.com/quantdesk/fundrisk/internal/modules/tailrisk"
)

// Publisher uploads the finished results directory. Optional.
type Publisher interface {
	Publish(ctx context.Context, resultsDir, runID string) error
}

// Runner drives the whole pipeline. All stages are pure transformations
// over in-memory tables except the renderer, which writes files.
type Runner struct {
	priceRepo  *marketdata.PriceRepository
	factorRepo *marketdata.FactorRepository
	fundRepo   *marketdata.FundRepository
	renderer   *reports.Renderer
	publisher  Publisher // nil when publishing is not configured
	confidence float64
	log        zerolog.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(
	priceRepo *marketdata.PriceRepository,
	factorRepo *marketdata.FactorRepository,
	fundRepo *marketdata.FundRepository,
	renderer *reports.Renderer,
	publisher Publisher,
	confidence float64,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		priceRepo:  priceRepo,
		factorRepo: factorRepo,
		fundRepo:   fundRepo,
		renderer:   renderer,
		publisher:  publisher,
		confidence: confidence,
		log:        log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one batch pass and returns the per-fund summaries.
//
// Only a failure to read the input store or to write the tabular outputs is
// fatal. Everything else is fund-local: a fund with no factor-date overlap
// or too few aligned observations is skipped with a logged notice, and a
// chart rendering failure skips that fund's charts but keeps its summary
// row. There are no retries; this is a single-pass batch job.
func (r *Runner) Run(ctx context.Context) ([]reports.FundSummary, error) {
	runID := uuid.NewString()
	log := r.log.With().Str("run_id", runID).Logger()
	log.Info().Msg("Starting risk analysis run")

	prices, err := r.priceRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load asset prices: %w", err)
	}
	factors, err := r.factorRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load factor returns: %w", err)
	}
	funds, err := r.fundRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load funds: %w", err)
	}
	positions, err := r.fundRepo.GetAllPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	assetReturns := returns.CalculateAssetReturns(prices, log)
	portfolioReturns := returns.BuildPortfolioReturns(assetReturns, positions, log)

	log.Info().
		Int("price_rows", len(prices)).
		Int("asset_returns", len(assetReturns)).
		Int("portfolio_returns", len(portfolioReturns)).
		Int("funds", len(funds)).
		Msg("Derived return series")

	if err := r.renderer.WritePortfolioReturns(portfolioReturns); err != nil {
		return nil, err
	}

	summaries := make([]reports.FundSummary, 0, len(funds))
	for _, fund := range funds {
		summary, ok := r.analyzeFund(fund, portfolioReturns, factors, log)
		if ok {
			summaries = append(summaries, summary)
		}
	}

	if err := r.renderer.WriteSummary(summaries); err != nil {
		return nil, err
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, r.renderer.ResultsDir(), runID); err != nil {
			log.Error().Err(err).Msg("Failed to publish report archive")
		}
	}

	log.Info().Int("funds_analyzed", len(summaries)).Msg("Risk analysis run complete")
	return summaries, nil
}

// analyzeFund computes exposures and tail risk for one fund and renders its
// charts. Returns false when the fund must be skipped.
func (r *Runner) analyzeFund(
	fund marketdata.Fund,
	portfolioReturns []returns.PortfolioReturn,
	factors []marketdata.FactorObservation,
	log zerolog.Logger,
) (reports.FundSummary, bool) {
	series := returns.FilterFund(portfolioReturns, fund.ID)
	if len(series) == 0 {
		log.Warn().Int64("fund_id", fund.ID).Msg("No portfolio returns for fund, skipping")
		return reports.FundSummary{}, false
	}

	obs, err := exposure.AlignFactors(series, factors)
	if err != nil {
		if errors.Is(err, exposure.ErrNoOverlap) {
			log.Warn().Int64("fund_id", fund.ID).
				Msg("No overlapping dates between fund returns and factor data, skipping fund")
		} else {
			log.Error().Err(err).Int64("fund_id", fund.ID).Msg("Factor alignment failed, skipping fund")
		}
		return reports.FundSummary{}, false
	}

	exp, err := exposure.Estimate(obs)
	if err != nil {
		log.Warn().Err(err).Int64("fund_id", fund.ID).Msg("Factor regression not possible, skipping fund")
		return reports.FundSummary{}, false
	}

	// Tail risk runs on the raw (non-excess) return series.
	sample := make([]float64, len(series))
	for i, pr := range series {
		sample[i] = pr.Return
	}
	risk, err := tailrisk.Estimate(sample, r.confidence)
	if err != nil {
		log.Warn().Err(err).Int64("fund_id", fund.ID).Msg("Tail risk estimation failed, skipping fund")
		return reports.FundSummary{}, false
	}

	if err := r.renderer.RenderFundCharts(fund.ID, series, risk, exp); err != nil {
		// Fund-local: metrics stand, charts are skipped.
		log.Error().Err(err).Int64("fund_id", fund.ID).Msg("Chart rendering failed, skipping fund charts")
	}

	log.Info().
		Int64("fund_id", fund.ID).
		Int("observations", len(obs)).
		Float64("alpha", exp.Alpha).
		Float64("var", risk.VaR).
		Float64("es", risk.ES).
		Msg("Fund analyzed")

	return reports.FundSummary{
		FundID:   fund.ID,
		FundName: fund.Name,
		Alpha:    exp.Alpha,
		Betas:    exp.Betas,
		VaR:      risk.VaR,
		ES:       risk.ES,
	}, true
}
