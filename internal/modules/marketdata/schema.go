package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/quantdesk/fundrisk/internal/database"
)

// Schema is the DDL for the four input relations.
// factor_returns dates are compact (YYYYMMDD); asset_prices dates are ISO.
const Schema = `
CREATE TABLE IF NOT EXISTS factor_returns (
	date TEXT PRIMARY KEY,
	mkt_rf REAL,
	smb REAL,
	hml REAL,
	rmw REAL,
	cma REAL,
	rf REAL
);

CREATE TABLE IF NOT EXISTS asset_prices (
	date TEXT,
	asset TEXT,
	open REAL,
	high REAL,
	low REAL,
	close REAL,
	adj_close REAL,
	volume REAL,
	PRIMARY KEY (date, asset)
);

CREATE TABLE IF NOT EXISTS funds (
	fund_id INTEGER PRIMARY KEY,
	fund_name TEXT
);

CREATE TABLE IF NOT EXISTS positions (
	fund_id INTEGER,
	asset TEXT,
	quantity REAL,
	FOREIGN KEY(fund_id) REFERENCES funds(fund_id)
);
`

// EnsureSchema creates the input relations if they do not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to apply risk store schema: %w", err)
	}
	return nil
}

// SeedFunds inserts funds within a single transaction.
func SeedFunds(db *sql.DB, funds []Fund) error {
	return database.WithTransaction(db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO funds (fund_id, fund_name) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare fund insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range funds {
			if _, err := stmt.Exec(f.ID, f.Name); err != nil {
				return fmt.Errorf("failed to insert fund %d: %w", f.ID, err)
			}
		}
		return nil
	})
}

// SeedPositions inserts positions within a single transaction.
func SeedPositions(db *sql.DB, positions []Position) error {
	return database.WithTransaction(db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO positions (fund_id, asset, quantity) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare position insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range positions {
			if _, err := stmt.Exec(p.FundID, p.Asset, p.Quantity); err != nil {
				return fmt.Errorf("failed to insert position %d/%s: %w", p.FundID, p.Asset, err)
			}
		}
		return nil
	})
}

// SeedPrices inserts adjusted-close observations. The remaining OHLCV
// columns are left NULL; only adj_close feeds the pipeline.
func SeedPrices(db *sql.DB, prices []PriceObservation) error {
	return database.WithTransaction(db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO asset_prices (date, asset, adj_close) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare price insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range prices {
			if _, err := stmt.Exec(p.Date, p.Asset, p.AdjClose); err != nil {
				return fmt.Errorf("failed to insert price %s/%s: %w", p.Date, p.Asset, err)
			}
		}
		return nil
	})
}

// SeedFactors inserts factor observations. Dates are stored in the compact
// form the factor vendor uses (YYYYMMDD); values are percentages.
func SeedFactors(db *sql.DB, factors []FactorObservation) error {
	return database.WithTransaction(db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO factor_returns (date, mkt_rf, smb, hml, rmw, cma, rf)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare factor insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range factors {
			if _, err := stmt.Exec(f.Date, f.MktRF, f.SMB, f.HML, f.RMW, f.CMA, f.RF); err != nil {
				return fmt.Errorf("failed to insert factor row %s: %w", f.Date, err)
			}
		}
		return nil
	})
}

// IllustrativeFunds returns the demonstration funds and positions used by
// the -seed command. The data is purely illustrative.
func IllustrativeFunds() ([]Fund, []Position) {
	funds := []Fund{
		{ID: 1, Name: "Equity Hedge Fund"},
		{ID: 2, Name: "Long/Short Fund"},
		{ID: 3, Name: "Tech Focused Fund"},
	}
	positions := []Position{
		{FundID: 1, Asset: "AAPL", Quantity: 300},
		{FundID: 1, Asset: "AMZN", Quantity: 100},
		{FundID: 1, Asset: "SPX", Quantity: 250},
		{FundID: 2, Asset: "AAPL", Quantity: 150},
		{FundID: 2, Asset: "AMZN", Quantity: 200},
		{FundID: 2, Asset: "SPX", Quantity: 300},
		{FundID: 3, Asset: "AAPL", Quantity: 500},
		{FundID: 3, Asset: "AMZN", Quantity: 0},
		{FundID: 3, Asset: "SPX", Quantity: 100},
	}
	return funds, positions
}
