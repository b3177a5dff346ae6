// Package returns derives daily log-return series from raw prices and
// aggregates them into per-fund portfolio returns.
package returns

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/quantdesk/fundrisk/internal/modules/marketdata"
)

// AssetReturn is one daily log return for a single asset.
type AssetReturn struct {
	Date   string
	Asset  string
	Return float64
}

// PortfolioReturn is one daily quantity-weighted return for a single fund.
type PortfolioReturn struct {
	Date   string
	FundID int64
	Return float64
}

// CalculateAssetReturns computes daily log returns per asset.
//
// Each asset's observations are sorted by date and ln(p[t]/p[t-1]) is taken
// over consecutive pairs; the first date per asset yields no return. Assets
// with fewer than two observations simply produce nothing. Gaps in the
// calendar are the caller's problem: no fill or calendar inference happens
// here.
func CalculateAssetReturns(prices []marketdata.PriceObservation, log zerolog.Logger) []AssetReturn {
	byAsset := make(map[string][]marketdata.PriceObservation)
	for _, p := range prices {
		byAsset[p.Asset] = append(byAsset[p.Asset], p)
	}

	assets := make([]string, 0, len(byAsset))
	for asset := range byAsset {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	var out []AssetReturn
	for _, asset := range assets {
		series := byAsset[asset]
		sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })

		if len(series) < 2 {
			log.Warn().Str("asset", asset).Int("observations", len(series)).
				Msg("Not enough price observations to compute returns")
			continue
		}

		for i := 1; i < len(series); i++ {
			prev := series[i-1].AdjClose
			curr := series[i].AdjClose
			if prev <= 0 || curr <= 0 {
				log.Warn().Str("asset", asset).Str("date", series[i].Date).
					Float64("prev", prev).Float64("curr", curr).
					Msg("Skipping non-positive price pair")
				continue
			}
			out = append(out, AssetReturn{
				Date:   series[i].Date,
				Asset:  asset,
				Return: math.Log(curr / prev),
			})
		}
	}

	return out
}
