package returns

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/quantdesk/fundrisk/internal/modules/marketdata"
)

// groupKey identifies one (date, fund) aggregation bucket.
type groupKey struct {
	date   string
	fundID int64
}

// accumulator carries the running sums for one bucket.
type accumulator struct {
	weightedSum float64
	quantitySum float64
}

// BuildPortfolioReturns combines asset returns with fund positions into one
// daily return series per fund.
//
// Returns are inner-joined to positions on asset, then reduced per
// (date, fund): Σ(return·quantity) / Σ(quantity). An asset with no return
// on a date contributes nothing, so a fund whose only present holding is
// missing that day drops the date entirely. The result is a quantity-
// weighted average return, not a dollar-weighted one; price levels play no
// part in the weighting.
//
// A bucket whose total quantity is zero has no defined return. Policy:
// the bucket is logged at warn level and excluded from the output so
// downstream statistics never see a NaN.
func BuildPortfolioReturns(assetReturns []AssetReturn, positions []marketdata.Position, log zerolog.Logger) []PortfolioReturn {
	positionsByAsset := make(map[string][]marketdata.Position)
	for _, p := range positions {
		positionsByAsset[p.Asset] = append(positionsByAsset[p.Asset], p)
	}

	groups := make(map[groupKey]*accumulator)
	for _, r := range assetReturns {
		for _, p := range positionsByAsset[r.Asset] {
			key := groupKey{date: r.Date, fundID: p.FundID}
			acc, ok := groups[key]
			if !ok {
				acc = &accumulator{}
				groups[key] = acc
			}
			acc.weightedSum += r.Return * p.Quantity
			acc.quantitySum += p.Quantity
		}
	}

	out := make([]PortfolioReturn, 0, len(groups))
	for key, acc := range groups {
		if acc.quantitySum == 0 {
			log.Warn().Str("date", key.date).Int64("fund_id", key.fundID).
				Msg("Zero total quantity for fund/date, excluding undefined portfolio return")
			continue
		}
		out = append(out, PortfolioReturn{
			Date:   key.date,
			FundID: key.fundID,
			Return: acc.weightedSum / acc.quantitySum,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].FundID < out[j].FundID
	})

	return out
}

// FilterFund extracts a single fund's series, sorted by date.
func FilterFund(portfolioReturns []PortfolioReturn, fundID int64) []PortfolioReturn {
	var out []PortfolioReturn
	for _, pr := range portfolioReturns {
		if pr.FundID == fundID {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
