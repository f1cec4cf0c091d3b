package investsight

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS portfolios (
			portfolio_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			base_currency TEXT NOT NULL DEFAULT 'USD',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS symbols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL UNIQUE,
			name TEXT,
			auto_update INTEGER DEFAULT 1
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id TEXT NOT NULL REFERENCES portfolios(portfolio_id) ON DELETE CASCADE,
			symbol_id INTEGER NOT NULL REFERENCES symbols(id),
			kind TEXT NOT NULL CHECK(kind IN ('BUY', 'SELL', 'DIVIDEND')),
			trade_date TEXT NOT NULL,
			quantity REAL NOT NULL CHECK(quantity > 0),
			price REAL NOT NULL CHECK(price >= 0),
			commission REAL NOT NULL DEFAULT 0 CHECK(commission >= 0),
			settlement_value REAL NOT NULL,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE INDEX IF NOT EXISTS idx_transactions_replay
		ON transactions(portfolio_id, trade_date, id)
	`); err != nil {
		return err
	}

	// Older databases predate the precomputed settlement value; backfill from
	// quantity*price so the replay never has to branch on missing values.
	hasSettlement, err := tableHasColumn(tx, "transactions", "settlement_value")
	if err != nil {
		return err
	}
	if !hasSettlement {
		if err := exec(tx, "ALTER TABLE transactions ADD COLUMN settlement_value REAL NOT NULL DEFAULT 0"); err != nil {
			return err
		}
		if err := exec(tx, "UPDATE transactions SET settlement_value = quantity * price WHERE settlement_value = 0"); err != nil {
			return err
		}
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS latest_prices (
			symbol_id INTEGER PRIMARY KEY REFERENCES symbols(id),
			price REAL NOT NULL CHECK(price >= 0),
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol_id INTEGER NOT NULL REFERENCES symbols(id),
			price_date TEXT NOT NULL,
			close REAL NOT NULL CHECK(close >= 0),
			UNIQUE(symbol_id, price_date)
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS dividend_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol_id INTEGER NOT NULL REFERENCES symbols(id),
			ex_date TEXT NOT NULL,
			amount_per_share REAL NOT NULL CHECK(amount_per_share >= 0),
			UNIQUE(symbol_id, ex_date)
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS ai_settings (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			provider TEXT NOT NULL DEFAULT 'openai',
			base_url TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS ai_insights (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id TEXT NOT NULL REFERENCES portfolios(portfolio_id) ON DELETE CASCADE,
			model TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	return tx.Commit()
}

func exec(tx *sql.Tx, query string) error {
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

func tableHasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
