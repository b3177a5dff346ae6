package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// FactorRepository reads Fama-French five-factor observations from the risk store.
type FactorRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewFactorRepository creates a new factor repository
func NewFactorRepository(db *sql.DB, log zerolog.Logger) *FactorRepository {
	return &FactorRepository{
		db:  db,
		log: log.With().Str("repo", "factors").Logger(),
	}
}

// GetAll returns all factor observations with dates normalized to ISO form.
// The vendor stores dates compactly (20171218); portfolio-return dates use
// dashed ISO strings (2017-12-18). The join downstream requires exact string
// equality, so normalization happens here, once, at load time. Rows whose
// date cannot be normalized are skipped with a warning.
//
// Values stay in the vendor's percentage units; exposure.AlignFactors
// converts them to decimals before any arithmetic with log returns.
func (r *FactorRepository) GetAll() ([]FactorObservation, error) {
	rows, err := r.db.Query(`SELECT date, mkt_rf, smb, hml, rmw, cma, rf
		FROM factor_returns
		ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query factor returns: %w", err)
	}
	defer rows.Close()

	var factors []FactorObservation
	for rows.Next() {
		var f FactorObservation
		if err := rows.Scan(&f.Date, &f.MktRF, &f.SMB, &f.HML, &f.RMW, &f.CMA, &f.RF); err != nil {
			return nil, fmt.Errorf("failed to scan factor observation: %w", err)
		}

		normalized, err := NormalizeFactorDate(f.Date)
		if err != nil {
			r.log.Warn().Err(err).Str("date", f.Date).Msg("Skipping factor row with unparseable date")
			continue
		}
		f.Date = normalized

		factors = append(factors, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating factor returns: %w", err)
	}

	r.log.Debug().Int("rows", len(factors)).Msg("Loaded factor returns")
	return factors, nil
}

// NormalizeFactorDate converts a compact calendar date (20171218) to ISO
// form (2017-12-18). Dates already in ISO form pass through unchanged.
func NormalizeFactorDate(date string) (string, error) {
	if len(date) == 10 && date[4] == '-' && date[7] == '-' {
		return date, nil
	}
	if len(date) != 8 {
		return "", fmt.Errorf("unexpected factor date %q", date)
	}
	for _, c := range date {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("unexpected factor date %q", date)
		}
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:8], nil
}
