package investsight

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreatePortfolio inserts a new portfolio and returns it.
func (c *Core) CreatePortfolio(name, baseCurrency string) (*Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(ErrCodeValidation, "portfolio name required")
	}
	baseCurrency = normalizeCurrency(baseCurrency)
	if baseCurrency == "" {
		baseCurrency = "USD"
	}
	if len(baseCurrency) != 3 {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("invalid base currency: %s", baseCurrency))
	}

	id := uuid.NewString()
	if _, err := c.db.Exec(
		"INSERT INTO portfolios (portfolio_id, name, base_currency) VALUES (?, ?, ?)",
		id, name, baseCurrency,
	); err != nil {
		return nil, WrapError(ErrCodeDatabase, "create portfolio", err)
	}
	return c.GetPortfolio(id)
}

// GetPortfolio fetches a portfolio by ID; nil if not found.
func (c *Core) GetPortfolio(id string) (*Portfolio, error) {
	row := c.db.QueryRow(
		"SELECT portfolio_id, name, base_currency, created_at FROM portfolios WHERE portfolio_id = ?",
		id,
	)
	var p Portfolio
	var createdAt sql.NullString
	if err := row.Scan(&p.PortfolioID, &p.Name, &p.BaseCurrency, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if createdAt.Valid {
		p.CreatedAt = &createdAt.String
	}
	return &p, nil
}

// GetPortfolios returns all portfolios ordered by creation time.
func (c *Core) GetPortfolios() ([]Portfolio, error) {
	rows, err := c.db.Query(
		"SELECT portfolio_id, name, base_currency, created_at FROM portfolios ORDER BY created_at, portfolio_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Portfolio
	for rows.Next() {
		var p Portfolio
		var createdAt sql.NullString
		if err := rows.Scan(&p.PortfolioID, &p.Name, &p.BaseCurrency, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			p.CreatedAt = &createdAt.String
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// DeletePortfolio removes a portfolio and its transactions.
func (c *Core) DeletePortfolio(id string) (bool, error) {
	result, err := c.db.Exec("DELETE FROM portfolios WHERE portfolio_id = ?", id)
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "delete portfolio", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		c.cache.invalidate(id)
	}
	return affected > 0, nil
}

// requirePortfolio returns a NOT_FOUND error when the portfolio is absent.
func (c *Core) requirePortfolio(id string) error {
	if strings.TrimSpace(id) == "" {
		return NewError(ErrCodeValidation, "portfolio_id required")
	}
	p, err := c.GetPortfolio(id)
	if err != nil {
		return err
	}
	if p == nil {
		return NewError(ErrCodeNotFound, fmt.Sprintf("portfolio not found: %s", id))
	}
	return nil
}
