package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// PriceRepository reads adjusted-close observations from the risk store.
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// GetAll returns all price observations in long form, ordered by asset then
// date so per-asset series come out contiguous and ascending.
func (r *PriceRepository) GetAll() ([]PriceObservation, error) {
	rows, err := r.db.Query(`SELECT date, asset, adj_close
		FROM asset_prices
		WHERE adj_close IS NOT NULL
		ORDER BY asset, date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset prices: %w", err)
	}
	defer rows.Close()

	var prices []PriceObservation
	for rows.Next() {
		var p PriceObservation
		if err := rows.Scan(&p.Date, &p.Asset, &p.AdjClose); err != nil {
			return nil, fmt.Errorf("failed to scan price observation: %w", err)
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset prices: %w", err)
	}

	r.log.Debug().Int("rows", len(prices)).Msg("Loaded asset prices")
	return prices, nil
}
