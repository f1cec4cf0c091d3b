package investsight

// Transaction kinds. The ledger is a closed variant: every record is exactly
// one of these, and its base-currency settlement value is fixed at ingestion.
const (
	KindBuy      = "BUY"
	KindSell     = "SELL"
	KindDividend = "DIVIDEND"
)

var TransactionKinds = []string{KindBuy, KindSell, KindDividend}

// Portfolio represents one tracked portfolio ledger.
type Portfolio struct {
	PortfolioID  string  `json:"portfolio_id"`
	Name         string  `json:"name"`
	BaseCurrency string  `json:"base_currency"`
	CreatedAt    *string `json:"created_at"`
}

// Transaction represents an immutable ledger record with symbol metadata.
type Transaction struct {
	ID              int64   `json:"id"`
	PortfolioID     string  `json:"portfolio_id"`
	SymbolID        int64   `json:"symbol_id"`
	Symbol          string  `json:"symbol"`
	Name            *string `json:"name"`
	Kind            string  `json:"kind"`
	TradeDate       string  `json:"trade_date"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	Commission      float64 `json:"commission"`
	SettlementValue Amount  `json:"settlement_value"`
	Notes           *string `json:"notes"`
	CreatedAt       *string `json:"created_at"`
	UpdatedAt       *string `json:"updated_at"`
}

// AddTransactionRequest defines inputs to record a transaction.
type AddTransactionRequest struct {
	PortfolioID     string
	Symbol          string
	Kind            string
	TradeDate       string
	Quantity        float64
	Price           float64
	Commission      float64
	SettlementValue *float64
	Notes           *string
}

// Instrument represents instrument metadata.
type Instrument struct {
	ID         int64   `json:"id"`
	Symbol     string  `json:"symbol"`
	Name       *string `json:"name"`
	AutoUpdate int     `json:"auto_update"`
}

// Position is the derived per-instrument holding state at a point in the
// replay. Quantity is signed: positive long, negative short, zero flat.
// CostBasis is always >= 0: unrecovered capital for a long, the proceeds
// base for a short.
type Position struct {
	Quantity      float64 `json:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CostBasis     float64 `json:"cost_basis"`
	RealizedPnL   float64 `json:"realized_pnl"`
}

// DailyPoint is one derived valuation point per calendar day.
type DailyPoint struct {
	Date                string  `json:"date"`
	MarketValue         float64 `json:"market_value"`
	InvestedCapital     float64 `json:"invested_capital"`
	CumulativeReturnPct float64 `json:"cumulative_return_pct"`
	CumulativePnL       float64 `json:"cumulative_pnl"`
}

// PerformanceResult carries the daily series plus headline return figures.
type PerformanceResult struct {
	PortfolioID         string       `json:"portfolio_id"`
	AsOf                string       `json:"as_of"`
	ROIPct              float64      `json:"roi_pct"`
	AnnualizedReturnPct float64      `json:"annualized_return_pct"`
	Degraded            bool         `json:"degraded"`
	Points              []DailyPoint `json:"points"`
}

// InstrumentSnapshot is the live-priced per-instrument view in the overview.
type InstrumentSnapshot struct {
	Symbol         string   `json:"symbol"`
	Name           *string  `json:"name"`
	Quantity       float64  `json:"quantity"`
	AvgCost        float64  `json:"avg_cost"`
	CurrentPrice   *float64 `json:"current_price"`
	MarketValue    float64  `json:"market_value"`
	DailyChangePct *float64 `json:"daily_change_pct"`
	Profit         float64  `json:"profit"`
	ReturnPct      float64  `json:"return_pct"`
	SharePct       float64  `json:"share_pct"`
}

// Overview is the assembled summary consumed by the presentation layer.
type Overview struct {
	PortfolioID         string               `json:"portfolio_id"`
	AsOf                string               `json:"as_of"`
	TotalValue          float64              `json:"total_value"`
	DayChange           float64              `json:"day_change"`
	DayChangePct        float64              `json:"day_change_pct"`
	TotalProfit         float64              `json:"total_profit"`
	RealizedPnL         float64              `json:"realized_pnl"`
	UnrealizedPnL       float64              `json:"unrealized_pnl"`
	ROIPct              float64              `json:"roi_pct"`
	AnnualizedReturnPct float64              `json:"annualized_return_pct"`
	DividendTotal       float64              `json:"dividend_total"`
	Degraded            bool                 `json:"degraded"`
	Snapshots           []InstrumentSnapshot `json:"snapshots"`
}

// MonthlyProfit is one month of realized+unrealized profit plus dividends.
type MonthlyProfit struct {
	Month  string  `json:"month"`
	Profit float64 `json:"profit"`
}

// LatestPrice represents the last known price for an instrument.
type LatestPrice struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	UpdatedAt string  `json:"updated_at"`
}

// PricePoint is one day of close-price history.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// DividendEvent is one per-share dividend payment, base currency.
type DividendEvent struct {
	Symbol         string  `json:"symbol"`
	ExDate         string  `json:"ex_date"`
	AmountPerShare float64 `json:"amount_per_share"`
}

// TransactionFilter controls transaction queries.
type TransactionFilter struct {
	PortfolioID string
	Symbol      string
	Kind        string
	StartDate   string
	EndDate     string
	Limit       int
	Offset      int
}
