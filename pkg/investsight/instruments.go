package investsight

import (
	"database/sql"
	"fmt"
)

// ensureInstrument looks up or creates the symbols row for a ticker.
func (c *Core) ensureInstrument(tx *sql.Tx, symbol string) (int64, string, error) {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return 0, "", NewError(ErrCodeValidation, "symbol required")
	}

	var id int64
	err := tx.QueryRow("SELECT id FROM symbols WHERE symbol = ?", normalized).Scan(&id)
	if err == nil {
		return id, normalized, nil
	}
	if err != sql.ErrNoRows {
		return 0, "", err
	}

	result, err := tx.Exec("INSERT INTO symbols (symbol) VALUES (?)", normalized)
	if err != nil {
		return 0, "", err
	}
	newID, err := result.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	return newID, normalized, nil
}

// GetInstruments returns all known instruments.
func (c *Core) GetInstruments() ([]Instrument, error) {
	rows, err := c.db.Query("SELECT id, symbol, name, auto_update FROM symbols ORDER BY symbol")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Instrument
	for rows.Next() {
		var ins Instrument
		var name sql.NullString
		if err := rows.Scan(&ins.ID, &ins.Symbol, &name, &ins.AutoUpdate); err != nil {
			return nil, err
		}
		if name.Valid {
			ins.Name = &name.String
		}
		items = append(items, ins)
	}
	return items, rows.Err()
}

// UpdateInstrument updates instrument metadata.
func (c *Core) UpdateInstrument(symbol string, name *string, autoUpdate *int) error {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return NewError(ErrCodeValidation, "symbol required")
	}
	if name == nil && autoUpdate == nil {
		return NewError(ErrCodeValidation, "no fields to update")
	}

	query := "UPDATE symbols SET "
	params := []any{}
	if name != nil {
		query += "name = ?"
		params = append(params, *name)
	}
	if autoUpdate != nil {
		if len(params) > 0 {
			query += ", "
		}
		query += "auto_update = ?"
		params = append(params, *autoUpdate)
	}
	query += " WHERE symbol = ?"
	params = append(params, normalized)

	result, err := c.db.Exec(query, params...)
	if err != nil {
		return WrapError(ErrCodeDatabase, "update instrument", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewError(ErrCodeNotFound, fmt.Sprintf("instrument not found: %s", normalized))
	}
	return nil
}
