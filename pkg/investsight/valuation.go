package investsight

// dailyRecord is one day of replay output: end-of-day state plus the
// external cash flow that crossed the portfolio boundary during the day.
type dailyRecord struct {
	Date            string
	MarketValue     float64
	InvestedCapital float64
	// NetFlow is cash into the portfolio: buy cost (settlement plus
	// commission) minus sell proceeds (settlement net of commission)
	// minus dividend cash.
	NetFlow       float64
	DividendCash  float64
	CumulativePnL float64
	Degraded      bool
}

// seriesState is the full replay product consumed by the return and
// profit calculators.
type seriesState struct {
	Records       []dailyRecord
	Book          *positionBook
	Resolved      map[string]float64
	Realized      float64
	Unrealized    float64
	DividendTotal float64
	Degraded      bool
	FirstDate     string
	Prices        *priceBook
}

// computeDailyRecords replays the ledger day by day from the first trade
// date through asOf, valuing open positions with the price fallback chain:
// close on or before the day, then the last price the series itself
// resolved, then the most recent trade price, then zero with the day
// flagged degraded.
func (c *Core) computeDailyRecords(portfolioID, asOf string) (*seriesState, error) {
	ledger, err := c.ledgerForReplay(portfolioID)
	if err != nil {
		return nil, err
	}
	state := &seriesState{
		Resolved: make(map[string]float64),
		Book:     newPositionBook(c.actions, nil),
	}
	if len(ledger) == 0 {
		return state, nil
	}

	symbolSet := make(map[string]bool)
	var symbols []string
	for _, t := range ledger {
		if !symbolSet[t.Symbol] {
			symbolSet[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}

	prices, err := c.loadPriceBook(symbols)
	if err != nil {
		return nil, err
	}
	state.Prices = prices
	// Split inference needs the market close near each trade date; rebuild
	// the book with the lookup before any transaction is applied.
	state.Book = newPositionBook(c.actions, prices.onOrBefore)
	dividends, err := c.loadDividendBook(symbols, ledger)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]Transaction)
	for _, t := range ledger {
		byDate[t.TradeDate] = append(byDate[t.TradeDate], t)
	}

	firstDate := ledger[0].TradeDate
	state.FirstDate = firstDate
	if asOf < firstDate {
		return state, nil
	}

	lastTrade := make(map[string]float64)
	dividendCum := 0.0

	for day := firstDate; day <= asOf; day = nextDay(day) {
		// Feed dividends accrue to whoever holds entering the day.
		feedCash := dividends.feedCashOn(day, state.Book.open())

		netFlow := 0.0
		dayDividends := feedCash
		for _, t := range byDate[day] {
			switch t.Kind {
			case KindBuy:
				netFlow += t.SettlementValue.Float64() + t.Commission
			case KindSell:
				netFlow -= t.SettlementValue.Float64() - t.Commission
			case KindDividend:
				dayDividends += ledgerDividendCash(t)
			}
			if t.Kind != KindDividend && t.Price > 0 {
				lastTrade[t.Symbol] = t.Price
			}
			state.Book.apply(t)
		}
		// Dividend cash leaves the measured portfolio the day it lands.
		netFlow -= dayDividends
		dividendCum += dayDividends

		marketValue := 0.0
		unrealized := 0.0
		dayDegraded := false
		for symbol, p := range state.Book.open() {
			price, ok := prices.onOrBefore(symbol, day)
			if !ok {
				price, ok = state.Resolved[symbol]
			}
			if !ok {
				price, ok = lastTrade[symbol]
			}
			if !ok {
				dayDegraded = true
				price = 0
			}
			if ok && price > 0 {
				state.Resolved[symbol] = price
			}
			marketValue += p.MarketValue(price)
			unrealized += p.UnrealizedPnL(price)
		}

		realized := state.Book.totalRealized()
		state.Records = append(state.Records, dailyRecord{
			Date:            day,
			MarketValue:     marketValue,
			InvestedCapital: state.Book.totalCostBasis(),
			NetFlow:         netFlow,
			DividendCash:    dayDividends,
			CumulativePnL:   realized + unrealized + dividendCum,
			Degraded:        dayDegraded,
		})
		if dayDegraded {
			state.Degraded = true
		}
		state.Realized = realized
		state.Unrealized = unrealized
		state.DividendTotal = dividendCum
	}
	return state, nil
}

// resolveAsOf defaults an empty as-of to today and validates the format.
func resolveAsOf(asOf string) (string, error) {
	if asOf == "" {
		return todayISO(), nil
	}
	if !isValidISODate(asOf) {
		return "", NewError(ErrCodeValidation, "invalid as_of date: "+asOf)
	}
	return asOf, nil
}
