package investsight

import (
	"fmt"
	"sort"
)

// SetLatestPrice upserts the live price for a symbol, creating the
// instrument row when needed. Used by both the market-data refresher and
// the manual price endpoint.
func (c *Core) SetLatestPrice(symbol string, price float64) error {
	if price < 0 {
		return NewError(ErrCodeValidation, "price must not be negative")
	}
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	symbolID, _, err := c.ensureInstrument(tx, symbol)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO latest_prices (symbol_id, price, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(symbol_id) DO UPDATE SET
			price = excluded.price,
			updated_at = CURRENT_TIMESTAMP
	`, symbolID, price); err != nil {
		return WrapError(ErrCodeDatabase, "upsert latest price", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.cache.invalidateAll()
	return nil
}

// GetLatestPrices returns the last known price per symbol.
func (c *Core) GetLatestPrices() (map[string]LatestPrice, error) {
	rows, err := c.db.Query(`
		SELECT s.symbol, lp.price, lp.updated_at
		FROM latest_prices lp
		JOIN symbols s ON s.id = lp.symbol_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]LatestPrice)
	for rows.Next() {
		var lp LatestPrice
		if err := rows.Scan(&lp.Symbol, &lp.Price, &lp.UpdatedAt); err != nil {
			return nil, err
		}
		result[lp.Symbol] = lp
	}
	return result, rows.Err()
}

// UpsertPriceHistory stores daily closes for a symbol, replacing any
// existing rows for the same dates.
func (c *Core) UpsertPriceHistory(symbol string, points []PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, pt := range points {
		if !isValidISODate(pt.Date) {
			return NewError(ErrCodeValidation, fmt.Sprintf("invalid price date: %s", pt.Date))
		}
		if pt.Price < 0 {
			return NewError(ErrCodeValidation, "price must not be negative")
		}
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	symbolID, _, err := c.ensureInstrument(tx, symbol)
	if err != nil {
		return err
	}
	for _, pt := range points {
		if _, err := tx.Exec(`
			INSERT INTO price_history (symbol_id, price_date, close)
			VALUES (?, ?, ?)
			ON CONFLICT(symbol_id, price_date) DO UPDATE SET close = excluded.close
		`, symbolID, pt.Date, pt.Price); err != nil {
			return WrapError(ErrCodeDatabase, "upsert price history", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.cache.invalidateAll()
	return nil
}

// GetPriceHistory returns daily closes for a symbol in an inclusive date
// range, ascending.
func (c *Core) GetPriceHistory(symbol, startDate, endDate string) ([]PricePoint, error) {
	normalized := normalizeSymbol(symbol)
	query := `
		SELECT ph.price_date, ph.close
		FROM price_history ph
		JOIN symbols s ON s.id = ph.symbol_id
		WHERE s.symbol = ?
	`
	params := []any{normalized}
	if startDate != "" {
		query += " AND ph.price_date >= ?"
		params = append(params, startDate)
	}
	if endDate != "" {
		query += " AND ph.price_date <= ?"
		params = append(params, endDate)
	}
	query += " ORDER BY ph.price_date ASC"

	rows, err := c.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var pt PricePoint
		if err := rows.Scan(&pt.Date, &pt.Price); err != nil {
			return nil, err
		}
		points = append(points, pt)
	}
	return points, rows.Err()
}

// priceBook answers "close on or before date" lookups for a set of symbols
// from preloaded, sorted history. The valuation loop calls it once per
// symbol per day, so the lookup memoizes per symbol: days walk forward,
// and the resolved index only ever advances.
type priceBook struct {
	history map[string][]PricePoint
	latest  map[string]LatestPrice
}

// loadPriceBook pulls the full history and latest prices for the given
// symbols in one pass.
func (c *Core) loadPriceBook(symbols []string) (*priceBook, error) {
	book := &priceBook{
		history: make(map[string][]PricePoint, len(symbols)),
		latest:  make(map[string]LatestPrice),
	}
	for _, symbol := range symbols {
		points, err := c.GetPriceHistory(symbol, "", "")
		if err != nil {
			return nil, err
		}
		book.history[symbol] = points
	}
	latest, err := c.GetLatestPrices()
	if err != nil {
		return nil, err
	}
	book.latest = latest
	return book, nil
}

// onOrBefore returns the most recent close at or before the given ISO date.
// ISO dates compare lexicographically, so this is a plain binary search.
func (b *priceBook) onOrBefore(symbol, date string) (float64, bool) {
	points := b.history[symbol]
	if len(points) == 0 {
		return 0, false
	}
	// First index with date strictly after the target.
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].Date > date
	})
	if idx == 0 {
		return 0, false
	}
	return points[idx-1].Price, true
}

// latestPrice returns the live quote for a symbol, if known.
func (b *priceBook) latestPrice(symbol string) (float64, bool) {
	lp, ok := b.latest[symbol]
	if !ok {
		return 0, false
	}
	return lp.Price, true
}
