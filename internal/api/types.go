package api

type createPortfolioPayload struct {
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

type addTransactionPayload struct {
	Symbol          string   `json:"symbol"`
	Kind            string   `json:"kind"`
	TradeDate       string   `json:"trade_date"`
	Quantity        float64  `json:"quantity"`
	Price           float64  `json:"price"`
	Commission      float64  `json:"commission"`
	SettlementValue *float64 `json:"settlement_value"`
	Notes           *string  `json:"notes"`
}

type manualPricePayload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type updateInstrumentPayload struct {
	Name       *string `json:"name"`
	AutoUpdate *int    `json:"auto_update"`
}

type aiSettingsPayload struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
}

type generateInsightPayload struct {
	APIKey   string `json:"api_key"`
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
}
