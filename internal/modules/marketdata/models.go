// Package marketdata provides access to the four input relations of the risk
// store: factor returns, asset prices, funds and positions.
package marketdata

// PriceObservation is a single adjusted-close observation for an asset.
// Unique per (Date, Asset). Dates are ISO strings (YYYY-MM-DD).
type PriceObservation struct {
	Date     string
	Asset    string
	AdjClose float64
}

// FactorObservation is one day of Fama-French five-factor data.
// Dates are normalized to ISO form (YYYY-MM-DD) by the repository.
// Values are stored as percentages (0.05 means 0.05%); conversion to
// decimal form happens at the point of use, not here.
type FactorObservation struct {
	Date  string
	MktRF float64
	SMB   float64
	HML   float64
	RMW   float64
	CMA   float64
	RF    float64
}

// Fund is a static reference entity.
type Fund struct {
	ID   int64
	Name string
}

// Position defines a fund's holding in a single asset.
// Quantity may be zero (asset listed but unheld).
type Position struct {
	FundID   int64
	Asset    string
	Quantity float64
}
