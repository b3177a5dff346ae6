package pipeline

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/quantdesk/fundrisk/internal/modules/marketdata"
	"github.com/quantdesk/fundrisk/internal/modules/reports"
)

// seedTestStore populates an in-memory store with two funds. Fund 1 holds
// AAPL and AMZN, whose price history overlaps the factor calendar. Fund 2
// holds only ORCL, which trades on dates with no factor coverage at all.
func seedTestStore(t *testing.T, db *sql.DB) {
	t.Helper()

	require.NoError(t, marketdata.EnsureSchema(db))

	require.NoError(t, marketdata.SeedFunds(db, []marketdata.Fund{
		{ID: 1, Name: "Equity Hedge Fund"},
		{ID: 2, Name: "Legacy Fund"},
	}))
	require.NoError(t, marketdata.SeedPositions(db, []marketdata.Position{
		{FundID: 1, Asset: "AAPL", Quantity: 300},
		{FundID: 1, Asset: "AMZN", Quantity: 100},
		{FundID: 2, Asset: "ORCL", Quantity: 200},
	}))

	dates := []string{
		"2017-12-01", "2017-12-04", "2017-12-05", "2017-12-06",
		"2017-12-07", "2017-12-08", "2017-12-11", "2017-12-12",
	}
	aapl := []float64{171.05, 169.80, 169.64, 169.01, 169.32, 169.37, 172.67, 171.70}
	amzn := []float64{1162.35, 1133.95, 1141.57, 1152.35, 1159.79, 1162.00, 1168.92, 1165.08}

	var prices []marketdata.PriceObservation
	for i, d := range dates {
		prices = append(prices,
			marketdata.PriceObservation{Date: d, Asset: "AAPL", AdjClose: aapl[i]},
			marketdata.PriceObservation{Date: d, Asset: "AMZN", AdjClose: amzn[i]},
		)
	}
	// ORCL trades only on dates outside the factor calendar.
	prices = append(prices,
		marketdata.PriceObservation{Date: "2017-11-01", Asset: "ORCL", AdjClose: 50.10},
		marketdata.PriceObservation{Date: "2017-11-02", Asset: "ORCL", AdjClose: 50.65},
	)
	require.NoError(t, marketdata.SeedPrices(db, prices))

	// Compact vendor dates, percentage units, covering the seven return dates.
	require.NoError(t, marketdata.SeedFactors(db, []marketdata.FactorObservation{
		{Date: "20171204", MktRF: -0.11, SMB: 0.45, HML: 1.12, RMW: -0.23, CMA: 0.38, RF: 0.005},
		{Date: "20171205", MktRF: -0.38, SMB: -0.55, HML: 0.18, RMW: 0.31, CMA: -0.12, RF: 0.005},
		{Date: "20171206", MktRF: 0.02, SMB: -0.20, HML: -0.44, RMW: 0.15, CMA: 0.09, RF: 0.005},
		{Date: "20171207", MktRF: 0.33, SMB: 0.67, HML: -0.08, RMW: -0.41, CMA: 0.21, RF: 0.005},
		{Date: "20171208", MktRF: 0.56, SMB: -0.31, HML: 0.25, RMW: 0.18, CMA: -0.33, RF: 0.005},
		{Date: "20171211", MktRF: 0.29, SMB: 0.12, HML: -0.17, RMW: 0.27, CMA: 0.14, RF: 0.005},
		{Date: "20171212", MktRF: 0.18, SMB: 0.38, HML: 0.52, RMW: -0.09, CMA: -0.05, RF: 0.005},
	}))
}

func TestRunner_EndToEnd(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	seedTestStore(t, db)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	resultsDir := t.TempDir()

	runner := NewRunner(
		marketdata.NewPriceRepository(db, log),
		marketdata.NewFactorRepository(db, log),
		marketdata.NewFundRepository(db, log),
		reports.NewRenderer(resultsDir, log),
		nil,
		0.95,
		log,
	)

	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)

	// Fund 2 has returns but no factor-date overlap: skipped, not fatal.
	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, int64(1), s.FundID)
	assert.Equal(t, "Equity Hedge Fund", s.FundName)
	assert.Greater(t, s.VaR, 0.0)
	assert.GreaterOrEqual(t, s.ES, s.VaR)

	for _, name := range []string{
		"portfolio_returns.csv",
		"summary_metrics.csv",
		"fund1_cumulative_returns.png",
		"fund1_return_distribution.png",
		"fund1_factor_exposures.png",
	} {
		_, err := os.Stat(filepath.Join(resultsDir, name))
		assert.NoError(t, err, "missing artifact %s", name)
	}

	// The skipped fund leaves no chart artifacts behind.
	_, err = os.Stat(filepath.Join(resultsDir, "fund2_cumulative_returns.png"))
	assert.True(t, os.IsNotExist(err))
}

func readSummaryCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

// failingPublisher always fails its upload.
type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(ctx context.Context, resultsDir, runID string) error {
	p.calls++
	return errors.New("bucket unreachable")
}

func TestRunner_PublishFailureDoesNotFailRun(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	seedTestStore(t, db)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	resultsDir := t.TempDir()
	publisher := &failingPublisher{}

	runner := NewRunner(
		marketdata.NewPriceRepository(db, log),
		marketdata.NewFactorRepository(db, log),
		marketdata.NewFundRepository(db, log),
		reports.NewRenderer(resultsDir, log),
		publisher,
		0.95,
		log,
	)

	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, publisher.calls)
	require.Len(t, summaries, 1)
	_, err = os.Stat(filepath.Join(resultsDir, "summary_metrics.csv"))
	assert.NoError(t, err)
}

func TestRunner_ChartFailureKeepsSummaryRow(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	seedTestStore(t, db)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	resultsDir := t.TempDir()

	// Occupy the chart filename with a directory so the PNG write fails
	// while the CSV writes still succeed.
	require.NoError(t, os.Mkdir(filepath.Join(resultsDir, "fund1_cumulative_returns.png"), 0755))

	runner := NewRunner(
		marketdata.NewPriceRepository(db, log),
		marketdata.NewFactorRepository(db, log),
		marketdata.NewFundRepository(db, log),
		reports.NewRenderer(resultsDir, log),
		nil,
		0.95,
		log,
	)

	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)

	// The fund's metrics survive even though its charts could not be written.
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].FundID)
	assert.Greater(t, summaries[0].VaR, 0.0)

	records := readSummaryCSV(t, filepath.Join(resultsDir, "summary_metrics.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[1][0])
}

func TestRunner_EmptyStore(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, marketdata.EnsureSchema(db))

	log := zerolog.New(nil).Level(zerolog.Disabled)
	resultsDir := t.TempDir()

	runner := NewRunner(
		marketdata.NewPriceRepository(db, log),
		marketdata.NewFactorRepository(db, log),
		marketdata.NewFundRepository(db, log),
		reports.NewRenderer(resultsDir, log),
		nil,
		0.95,
		log,
	)

	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// The tabular outputs still exist, headers only.
	for _, name := range []string{"portfolio_returns.csv", "summary_metrics.csv"} {
		_, err := os.Stat(filepath.Join(resultsDir, name))
		assert.NoError(t, err)
	}
}
