package investsight

import "fmt"

// UpsertDividendHistory stores per-share dividend events for a symbol,
// replacing existing rows for the same ex-dates.
func (c *Core) UpsertDividendHistory(symbol string, events []DividendEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, ev := range events {
		if !isValidISODate(ev.ExDate) {
			return NewError(ErrCodeValidation, fmt.Sprintf("invalid ex-date: %s", ev.ExDate))
		}
		if ev.AmountPerShare < 0 {
			return NewError(ErrCodeValidation, "dividend amount must not be negative")
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
	for _, ev := range events {
		if _, err := tx.Exec(`
			INSERT INTO dividend_history (symbol_id, ex_date, amount_per_share)
			VALUES (?, ?, ?)
			ON CONFLICT(symbol_id, ex_date) DO UPDATE SET amount_per_share = excluded.amount_per_share
		`, symbolID, ev.ExDate, ev.AmountPerShare); err != nil {
			return WrapError(ErrCodeDatabase, "upsert dividend history", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.cache.invalidateAll()
	return nil
}

// GetDividendHistory returns dividend events for a symbol, ascending by
// ex-date.
func (c *Core) GetDividendHistory(symbol string) ([]DividendEvent, error) {
	rows, err := c.db.Query(`
		SELECT s.symbol, dh.ex_date, dh.amount_per_share
		FROM dividend_history dh
		JOIN symbols s ON s.id = dh.symbol_id
		WHERE s.symbol = ?
		ORDER BY dh.ex_date ASC
	`, normalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []DividendEvent
	for rows.Next() {
		var ev DividendEvent
		if err := rows.Scan(&ev.Symbol, &ev.ExDate, &ev.AmountPerShare); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// dividendBook attributes dividend cash per valuation day. For any
// instrument, explicitly recorded DIVIDEND ledger rows take precedence
// over the feed; the feed only applies to instruments whose ledger never
// records a dividend, using the position held at the ex-date.
type dividendBook struct {
	byDate        map[string][]DividendEvent
	ledgerSymbols map[string]bool
}

func (c *Core) loadDividendBook(symbols []string, ledger []Transaction) (*dividendBook, error) {
	book := &dividendBook{
		byDate:        make(map[string][]DividendEvent),
		ledgerSymbols: make(map[string]bool),
	}
	for _, t := range ledger {
		if t.Kind == KindDividend {
			book.ledgerSymbols[t.Symbol] = true
		}
	}
	for _, symbol := range symbols {
		if book.ledgerSymbols[symbol] {
			continue
		}
		events, err := c.GetDividendHistory(symbol)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			book.byDate[ev.ExDate] = append(book.byDate[ev.ExDate], ev)
		}
	}
	return book, nil
}

// feedCashOn returns the dividend cash implied by the feed for one day,
// priced against the positions held entering that day. Quantity is signed,
// so short positions owe the dividend.
func (b *dividendBook) feedCashOn(date string, positions map[string]*Position) float64 {
	total := 0.0
	for _, ev := range b.byDate[date] {
		p, ok := positions[ev.Symbol]
		if !ok || p.Quantity == 0 {
			continue
		}
		total += p.Quantity * ev.AmountPerShare
	}
	return total
}

// ledgerDividendCash extracts the cash of a DIVIDEND ledger row: the fixed
// settlement value net of any withholding recorded as commission.
func ledgerDividendCash(t Transaction) float64 {
	return t.SettlementValue.Float64() - t.Commission
}
