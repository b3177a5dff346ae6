package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// FundRepository reads funds and their positions from the risk store.
type FundRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *sql.DB, log zerolog.Logger) *FundRepository {
	return &FundRepository{
		db:  db,
		log: log.With().Str("repo", "funds").Logger(),
	}
}

// GetAll returns all funds ordered by id.
func (r *FundRepository) GetAll() ([]Fund, error) {
	rows, err := r.db.Query(`SELECT fund_id, fund_name FROM funds ORDER BY fund_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds: %w", err)
	}
	defer rows.Close()

	var funds []Fund
	for rows.Next() {
		var f Fund
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}

	r.log.Debug().Int("rows", len(funds)).Msg("Loaded funds")
	return funds, nil
}

// GetAllPositions returns all positions across funds.
func (r *FundRepository) GetAllPositions() ([]Position, error) {
	rows, err := r.db.Query(`SELECT fund_id, asset, quantity FROM positions ORDER BY fund_id, asset`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.FundID, &p.Asset, &p.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	r.log.Debug().Int("rows", len(positions)).Msg("Loaded positions")
	return positions, nil
}
