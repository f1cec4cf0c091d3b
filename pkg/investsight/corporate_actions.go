package investsight

import "math"

// Default thresholds for the ratio heuristic. A trade priced below ~55% of
// the market close near the trade date suggests the price feed has already
// applied a forward split the ledger missed; above ~165% suggests a reverse
// split. Ordinary market moves stay inside the band.
const (
	defaultSplitUpperRatio = 1.8
	defaultSplitLowerRatio = 0.6
)

// CorporateActionResolver infers unrecorded corporate actions during ledger
// replay. SplitFactor compares a trade's execution price against the market
// close on or before the trade date and returns the multiplier to apply to
// the held quantity before the trade executes, or 1 when no action is
// inferred. Replays that have no market close for the trade date never
// consult the resolver.
type CorporateActionResolver interface {
	SplitFactor(marketPrice, tradePrice float64) float64
}

// NopResolver never infers an action.
type NopResolver struct{}

func (NopResolver) SplitFactor(marketPrice, tradePrice float64) float64 { return 1 }

// RatioHeuristicResolver infers splits from the ratio between the market
// close near the trade date and the incoming trade price, snapping to the
// nearest whole split factor (2:1, 3:1, ...). It catches the window where a
// split has hit the market but the last stored close predates it: the trade
// executes at the post-split price while the reference close is still
// pre-split.
type RatioHeuristicResolver struct {
	upper float64
	lower float64
}

func NewRatioHeuristicResolver(upper, lower float64) *RatioHeuristicResolver {
	if upper <= 1 {
		upper = defaultSplitUpperRatio
	}
	if lower <= 0 || lower >= 1 {
		lower = defaultSplitLowerRatio
	}
	return &RatioHeuristicResolver{upper: upper, lower: lower}
}

func (r *RatioHeuristicResolver) SplitFactor(marketPrice, tradePrice float64) float64 {
	if marketPrice <= 0 || tradePrice <= 0 {
		return 1
	}
	ratio := marketPrice / tradePrice
	if ratio >= r.upper {
		// Forward split: shares multiply, price divides.
		factor := math.Round(ratio)
		if factor < 2 {
			factor = 2
		}
		return factor
	}
	if ratio <= r.lower {
		// Reverse split: shares divide.
		factor := math.Round(1 / ratio)
		if factor < 2 {
			factor = 2
		}
		return 1 / factor
	}
	return 1
}
