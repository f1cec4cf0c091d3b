package investsight

import "math"

// Annualization bounds. Extreme returns over short holding periods produce
// absurd compounding, so the cumulative return is clamped before
// exponentiation.
const (
	annualizeFloor = -0.9999
	annualizeCeil  = 10.0
)

// subPeriodReturn is the daily growth factor input for time-weighted
// chaining. The flow is treated as arriving at the start of the day: with
// an opening value the day's return is measured against it; a day that
// starts from nothing is measured against its own inflow.
func subPeriodReturn(beginValue, endValue, netFlow float64) float64 {
	if beginValue > 0 {
		return (endValue - netFlow - beginValue) / beginValue
	}
	if netFlow > 0 {
		return (endValue - netFlow) / netFlow
	}
	return 0
}

// chainTWR converts daily records into presentation points, compounding
// each day's sub-period return into a cumulative time-weighted figure.
// Returns the points and the final cumulative return percent.
func chainTWR(records []dailyRecord) ([]DailyPoint, float64) {
	points := make([]DailyPoint, 0, len(records))
	growth := 1.0
	prevValue := 0.0
	for _, rec := range records {
		r := subPeriodReturn(prevValue, rec.MarketValue, rec.NetFlow)
		growth *= 1 + r
		points = append(points, DailyPoint{
			Date:                rec.Date,
			MarketValue:         round2(rec.MarketValue),
			InvestedCapital:     round2(rec.InvestedCapital),
			CumulativeReturnPct: round2((growth - 1) * 100),
			CumulativePnL:       round2(rec.CumulativePnL),
		})
		prevValue = rec.MarketValue
	}
	return points, (growth - 1) * 100
}

// annualizedPct compounds a cumulative return over the holding period into
// a yearly rate. Periods shorter than a day count as one day, which keeps
// the exponent finite.
func annualizedPct(roiPct float64, startDate, endDate string) float64 {
	if startDate == "" {
		return 0
	}
	days := daysBetween(startDate, endDate, 1)
	ratio := roiPct / 100
	if ratio < annualizeFloor {
		ratio = annualizeFloor
	}
	if ratio > annualizeCeil {
		ratio = annualizeCeil
	}
	annualized := math.Pow(1+ratio, 365.0/float64(days)) - 1
	return annualized * 100
}

// GetPerformance computes the daily valuation series and time-weighted
// return figures for a portfolio through asOf (today when empty).
func (c *Core) GetPerformance(portfolioID, asOf string) (*PerformanceResult, error) {
	if err := c.requirePortfolio(portfolioID); err != nil {
		return nil, err
	}
	asOf, err := resolveAsOf(asOf)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.cache.getSeries(portfolioID, asOf); ok {
		return cached, nil
	}

	state, err := c.computeDailyRecords(portfolioID, asOf)
	if err != nil {
		return nil, err
	}

	points, roiPct := chainTWR(state.Records)
	result := &PerformanceResult{
		PortfolioID:         portfolioID,
		AsOf:                asOf,
		ROIPct:              round2(roiPct),
		AnnualizedReturnPct: round2(annualizedPct(roiPct, state.FirstDate, asOf)),
		Degraded:            state.Degraded,
		Points:              points,
	}
	c.cache.putSeries(portfolioID, asOf, result)
	return result, nil
}
