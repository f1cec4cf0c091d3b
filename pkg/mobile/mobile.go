package mobile

import (
	"encoding/json"

	"investsight/pkg/investsight"
)

// Core wraps the InvestSight engine for gomobile bindings. All composite
// values cross the boundary as JSON strings.
type Core struct {
	core *investsight.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := investsight.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// CreatePortfolioJSON creates a portfolio and returns it as JSON.
func (c *Core) CreatePortfolioJSON(name, baseCurrency string) (string, error) {
	portfolio, err := c.core.CreatePortfolio(name, baseCurrency)
	if err != nil {
		return "", err
	}
	return marshalJSON(portfolio)
}

// GetPortfoliosJSON returns all portfolios as JSON.
func (c *Core) GetPortfoliosJSON() (string, error) {
	portfolios, err := c.core.GetPortfolios()
	if err != nil {
		return "", err
	}
	return marshalJSON(portfolios)
}

// DeletePortfolio removes a portfolio and its transactions.
func (c *Core) DeletePortfolio(id string) (bool, error) {
	return c.core.DeletePortfolio(id)
}

// AddTransactionJSON records a transaction from JSON and returns id JSON.
func (c *Core) AddTransactionJSON(portfolioID, payloadJSON string) (string, error) {
	var payload transactionPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", err
	}
	id, err := c.core.AddTransaction(investsight.AddTransactionRequest{
		PortfolioID:     portfolioID,
		Symbol:          payload.Symbol,
		Kind:            payload.Kind,
		TradeDate:       payload.TradeDate,
		Quantity:        payload.Quantity,
		Price:           payload.Price,
		Commission:      payload.Commission,
		SettlementValue: payload.SettlementValue,
		Notes:           payload.Notes,
	})
	if err != nil {
		return "", err
	}
	return marshalJSON(map[string]any{"id": id})
}

// GetTransactionsJSON queries transactions with optional filter JSON.
func (c *Core) GetTransactionsJSON(portfolioID, filterJSON string) (string, error) {
	filter := investsight.TransactionFilter{PortfolioID: portfolioID}
	if filterJSON != "" {
		var payload transactionFilterPayload
		if err := json.Unmarshal([]byte(filterJSON), &payload); err != nil {
			return "", err
		}
		filter.Symbol = payload.Symbol
		filter.Kind = payload.Kind
		filter.StartDate = payload.StartDate
		filter.EndDate = payload.EndDate
		filter.Limit = payload.Limit
		filter.Offset = payload.Offset
	}
	data, err := c.core.GetTransactions(filter)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// DeleteTransaction deletes a transaction by id.
func (c *Core) DeleteTransaction(id int64) (bool, error) {
	return c.core.DeleteTransaction(id)
}

// GetPositionsJSON returns replayed positions as JSON.
func (c *Core) GetPositionsJSON(portfolioID string) (string, error) {
	positions, err := c.core.ComputePositions(portfolioID)
	if err != nil {
		return "", err
	}
	return marshalJSON(positions)
}

// GetOverviewJSON returns the portfolio overview as JSON. asOf may be
// empty for today.
func (c *Core) GetOverviewJSON(portfolioID, asOf string) (string, error) {
	overview, err := c.core.GetOverview(portfolioID, asOf)
	if err != nil {
		return "", err
	}
	return marshalJSON(overview)
}

// GetPerformanceJSON returns the daily return series as JSON.
func (c *Core) GetPerformanceJSON(portfolioID, asOf string) (string, error) {
	result, err := c.core.GetPerformance(portfolioID, asOf)
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// GetMonthlyProfitsJSON returns the monthly profit decomposition as JSON.
func (c *Core) GetMonthlyProfitsJSON(portfolioID, asOf string) (string, error) {
	result, err := c.core.GetMonthlyProfits(portfolioID, asOf)
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// SetLatestPrice records a manual price for a symbol.
func (c *Core) SetLatestPrice(symbol string, price float64) error {
	return c.core.SetLatestPrice(symbol, price)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type transactionFilterPayload struct {
	Symbol    string `json:"symbol"`
	Kind      string `json:"kind"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

type transactionPayload struct {
	Symbol          string   `json:"symbol"`
	Kind            string   `json:"kind"`
	TradeDate       string   `json:"trade_date"`
	Quantity        float64  `json:"quantity"`
	Price           float64  `json:"price"`
	Commission      float64  `json:"commission"`
	SettlementValue *float64 `json:"settlement_value"`
	Notes           *string  `json:"notes"`
}
