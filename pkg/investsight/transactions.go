package investsight

import (
	"database/sql"
	"fmt"
	"strings"
)

// validateTransactionRequest applies the hard-failure rules: genuinely
// invalid input is rejected before any computation or write proceeds.
// Over-selling is deliberately NOT checked here; the replay interprets it
// as a position flip.
func validateTransactionRequest(req AddTransactionRequest) error {
	if !isValidKind(req.Kind) {
		return NewError(ErrCodeValidation, fmt.Sprintf("invalid kind: %s", req.Kind))
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return NewError(ErrCodeValidation, "symbol required")
	}
	if req.Quantity <= 0 {
		return NewError(ErrCodeValidation, "quantity must be positive")
	}
	if req.Price < 0 {
		return NewError(ErrCodeValidation, "price must not be negative")
	}
	if req.Commission < 0 {
		return NewError(ErrCodeValidation, "commission must not be negative")
	}
	if req.SettlementValue != nil && *req.SettlementValue < 0 {
		return NewError(ErrCodeValidation, "settlement value must not be negative")
	}
	if req.TradeDate != "" && !isValidISODate(req.TradeDate) {
		return NewError(ErrCodeValidation, fmt.Sprintf("invalid trade_date: %s", req.TradeDate))
	}
	return nil
}

// AddTransaction records a ledger transaction and returns its ID.
// The base-currency settlement value is fixed here, once: a caller-supplied
// precomputed value wins, otherwise quantity*price. Downstream components
// never recompute it.
func (c *Core) AddTransaction(req AddTransactionRequest) (int64, error) {
	if err := validateTransactionRequest(req); err != nil {
		return 0, err
	}
	if err := c.requirePortfolio(req.PortfolioID); err != nil {
		return 0, err
	}
	if req.TradeDate == "" {
		req.TradeDate = todayISO()
	}

	settlement := req.Quantity * req.Price
	if req.SettlementValue != nil {
		settlement = *req.SettlementValue
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	symbolID, _, err := c.ensureInstrument(tx, req.Symbol)
	if err != nil {
		return 0, err
	}

	result, err := tx.Exec(`
		INSERT INTO transactions (
			portfolio_id, symbol_id, kind, trade_date,
			quantity, price, commission, settlement_value, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.PortfolioID,
		symbolID,
		req.Kind,
		req.TradeDate,
		req.Quantity,
		req.Price,
		req.Commission,
		settlement,
		nullString(req.Notes),
	)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert transaction", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	c.cache.invalidate(req.PortfolioID)
	return id, nil
}

const transactionSelect = `
	SELECT
		t.id, t.portfolio_id, t.symbol_id, t.kind, t.trade_date,
		t.quantity, t.price, t.commission, t.settlement_value, t.notes,
		t.created_at, t.updated_at, s.symbol, s.name
	FROM transactions t
	JOIN symbols s ON s.id = t.symbol_id
`

func scanTransaction(scan func(dest ...any) error) (Transaction, error) {
	var t Transaction
	var notes, createdAt, updatedAt, name sql.NullString
	err := scan(
		&t.ID, &t.PortfolioID, &t.SymbolID, &t.Kind, &t.TradeDate,
		&t.Quantity, &t.Price, &t.Commission, &t.SettlementValue, &notes,
		&createdAt, &updatedAt, &t.Symbol, &name,
	)
	if err != nil {
		return Transaction{}, err
	}
	if notes.Valid {
		t.Notes = &notes.String
	}
	if createdAt.Valid {
		t.CreatedAt = &createdAt.String
	}
	if updatedAt.Valid {
		t.UpdatedAt = &updatedAt.String
	}
	if name.Valid {
		t.Name = &name.String
	}
	return t, nil
}

// GetTransaction fetches a single transaction by ID; nil if not found.
func (c *Core) GetTransaction(id int64) (*Transaction, error) {
	row := c.db.QueryRow(transactionSelect+" WHERE t.id = ?", id)
	t, err := scanTransaction(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// GetTransactions returns transactions matching the filter, newest first.
func (c *Core) GetTransactions(filter TransactionFilter) ([]Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := strings.Builder{}
	query.WriteString(transactionSelect)
	query.WriteString(" WHERE 1=1")
	params := []any{}

	if filter.PortfolioID != "" {
		query.WriteString(" AND t.portfolio_id = ?")
		params = append(params, filter.PortfolioID)
	}
	if filter.Symbol != "" {
		query.WriteString(" AND s.symbol = ?")
		params = append(params, normalizeSymbol(filter.Symbol))
	}
	if filter.Kind != "" {
		query.WriteString(" AND t.kind = ?")
		params = append(params, filter.Kind)
	}
	if filter.StartDate != "" {
		query.WriteString(" AND t.trade_date >= ?")
		params = append(params, filter.StartDate)
	}
	if filter.EndDate != "" {
		query.WriteString(" AND t.trade_date <= ?")
		params = append(params, filter.EndDate)
	}

	query.WriteString(" ORDER BY t.trade_date DESC, t.id DESC LIMIT ? OFFSET ?")
	params = append(params, limit, offset)

	rows, err := c.db.Query(query.String(), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// ledgerForReplay loads a portfolio's full ledger in replay order:
// trade_date ascending, ties broken by insertion order.
func (c *Core) ledgerForReplay(portfolioID string) ([]Transaction, error) {
	rows, err := c.db.Query(
		transactionSelect+" WHERE t.portfolio_id = ? ORDER BY t.trade_date ASC, t.id ASC",
		portfolioID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// GetTransactionCount returns the count of transactions matching the filter.
func (c *Core) GetTransactionCount(filter TransactionFilter) (int, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT COUNT(*)
		FROM transactions t
		JOIN symbols s ON s.id = t.symbol_id
		WHERE 1=1
	`)
	params := []any{}

	if filter.PortfolioID != "" {
		query.WriteString(" AND t.portfolio_id = ?")
		params = append(params, filter.PortfolioID)
	}
	if filter.Symbol != "" {
		query.WriteString(" AND s.symbol = ?")
		params = append(params, normalizeSymbol(filter.Symbol))
	}
	if filter.Kind != "" {
		query.WriteString(" AND t.kind = ?")
		params = append(params, filter.Kind)
	}

	var count int
	if err := c.db.QueryRow(query.String(), params...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteTransaction deletes a transaction by ID.
func (c *Core) DeleteTransaction(id int64) (bool, error) {
	existing, err := c.GetTransaction(id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	result, err := c.db.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "delete transaction", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		c.cache.invalidate(existing.PortfolioID)
	}
	return affected > 0, nil
}
