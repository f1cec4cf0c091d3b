package investsight

// GetMonthlyProfits decomposes the portfolio's total profit into calendar
// months: each month contributes the change in cumulative P/L across it.
// The final month is re-anchored against the live-priced total so the
// column sum always reconciles with the overview's total profit.
func (c *Core) GetMonthlyProfits(portfolioID, asOf string) ([]MonthlyProfit, error) {
	if err := c.requirePortfolio(portfolioID); err != nil {
		return nil, err
	}
	asOf, err := resolveAsOf(asOf)
	if err != nil {
		return nil, err
	}

	state, err := c.computeDailyRecords(portfolioID, asOf)
	if err != nil {
		return nil, err
	}
	if len(state.Records) == 0 {
		return []MonthlyProfit{}, nil
	}

	// Last record of each month carries that month's closing cumulative P/L.
	var months []string
	monthEnd := make(map[string]float64)
	for _, rec := range state.Records {
		month := monthOf(rec.Date)
		if _, seen := monthEnd[month]; !seen {
			months = append(months, month)
		}
		monthEnd[month] = rec.CumulativePnL
	}

	results := make([]MonthlyProfit, 0, len(months))
	prev := 0.0
	runningSum := 0.0
	for _, month := range months {
		profit := monthEnd[month] - prev
		prev = monthEnd[month]
		results = append(results, MonthlyProfit{Month: month, Profit: round2(profit)})
		runningSum += results[len(results)-1].Profit
	}

	// Live quotes can move the headline total after the last series close;
	// fold the difference into the open month.
	liveProfit := c.liveTotalProfit(state)
	last := len(results) - 1
	results[last].Profit = round2(results[last].Profit + round2(liveProfit) - round2(runningSum))
	return results, nil
}

// liveTotalProfit recomputes total profit with live quotes where available,
// matching the overview's headline figure.
func (c *Core) liveTotalProfit(state *seriesState) float64 {
	unrealized := 0.0
	for symbol, p := range state.Book.open() {
		price, ok := 0.0, false
		if state.Prices != nil {
			price, ok = state.Prices.latestPrice(symbol)
		}
		if !ok {
			price = state.Resolved[symbol]
		}
		unrealized += p.UnrealizedPnL(price)
	}
	return state.Realized + unrealized + state.DividendTotal
}
