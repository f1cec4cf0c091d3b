package investsight

import "sort"

// GetOverview assembles the headline portfolio summary: one snapshot per
// instrument ever held (closed ones carry their realized profit at zero
// quantity), totals, day change, and the time-weighted return figures from
// the daily series.
func (c *Core) GetOverview(portfolioID, asOf string) (*Overview, error) {
	if err := c.requirePortfolio(portfolioID); err != nil {
		return nil, err
	}
	asOf, err := resolveAsOf(asOf)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.cache.getOverview(portfolioID, asOf); ok {
		return cached, nil
	}

	state, err := c.computeDailyRecords(portfolioID, asOf)
	if err != nil {
		return nil, err
	}

	names, err := c.instrumentNames()
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		PortfolioID: portfolioID,
		AsOf:        asOf,
		Degraded:    state.Degraded,
	}

	totalValue := 0.0
	dayChange := 0.0
	unrealized := 0.0
	var snapshots []InstrumentSnapshot

	for symbol, p := range state.Book.positions {
		snap := InstrumentSnapshot{
			Symbol:   symbol,
			Name:     names[symbol],
			Quantity: p.Quantity,
			AvgCost:  round2(p.AvgEntryPrice),
		}

		// Live quote first, then the series' own resolution for asOf.
		price, havePrice := 0.0, false
		if state.Prices != nil {
			price, havePrice = state.Prices.latestPrice(symbol)
		}
		if !havePrice {
			price, havePrice = state.Resolved[symbol]
		}
		if havePrice {
			snap.CurrentPrice = floatPtr(price)
		}

		if p.Quantity == 0 {
			// Historically held, now closed: the instrument stays visible
			// with its realized outcome and no market exposure.
			snap.Profit = round2(p.RealizedPnL)
			snapshots = append(snapshots, snap)
			continue
		}

		if !havePrice {
			overview.Degraded = true
		}

		value := p.MarketValue(price)
		posUnrealized := p.UnrealizedPnL(price)
		snap.MarketValue = round2(value)
		snap.Profit = round2(p.RealizedPnL + posUnrealized)
		if p.CostBasis > 0 {
			snap.ReturnPct = round2((p.RealizedPnL + posUnrealized) / p.CostBasis * 100)
		}

		if havePrice && state.Prices != nil {
			if prevClose, ok := state.Prices.onOrBefore(symbol, prevDay(asOf)); ok && prevClose > 0 {
				snap.DailyChangePct = floatPtr(round2((price - prevClose) / prevClose * 100))
				dayChange += p.Quantity * (price - prevClose)
			}
		}

		totalValue += value
		unrealized += posUnrealized
		snapshots = append(snapshots, snap)
	}

	if totalValue != 0 {
		for i := range snapshots {
			snapshots[i].SharePct = round2(snapshots[i].MarketValue / totalValue * 100)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].MarketValue != snapshots[j].MarketValue {
			return snapshots[i].MarketValue > snapshots[j].MarketValue
		}
		return snapshots[i].Symbol < snapshots[j].Symbol
	})

	_, roiPct := chainTWR(state.Records)

	overview.TotalValue = round2(totalValue)
	overview.DayChange = round2(dayChange)
	if base := totalValue - dayChange; base != 0 {
		overview.DayChangePct = round2(dayChange / base * 100)
	}
	overview.RealizedPnL = round2(state.Realized)
	overview.UnrealizedPnL = round2(unrealized)
	overview.DividendTotal = round2(state.DividendTotal)
	overview.TotalProfit = round2(state.Realized + unrealized + state.DividendTotal)
	overview.ROIPct = round2(roiPct)
	overview.AnnualizedReturnPct = round2(annualizedPct(roiPct, state.FirstDate, asOf))
	overview.Snapshots = snapshots

	c.cache.putOverview(portfolioID, asOf, overview)
	return overview, nil
}

// instrumentNames maps symbol to display name for snapshot assembly.
func (c *Core) instrumentNames() (map[string]*string, error) {
	instruments, err := c.GetInstruments()
	if err != nil {
		return nil, err
	}
	names := make(map[string]*string, len(instruments))
	for _, ins := range instruments {
		names[ins.Symbol] = ins.Name
	}
	return names, nil
}
