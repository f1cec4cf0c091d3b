package investsight

import "math"

// flatEpsilon bounds the residual quantity treated as a flat position.
// Replays accumulate float error; anything below this is zero.
const flatEpsilon = 1e-9

// positionBook replays a ledger into per-symbol position state. Quantity is
// signed: a SELL beyond the held quantity flips the position short, and a BUY
// beyond the short quantity flips it long. Cost basis stays non-negative in
// both directions.
type positionBook struct {
	positions map[string]*Position
	resolver  CorporateActionResolver
	// marketPrice answers "close on or before this date" for split
	// inference. A nil lookup disables inference entirely.
	marketPrice func(symbol, date string) (float64, bool)
}

func newPositionBook(resolver CorporateActionResolver, marketPrice func(symbol, date string) (float64, bool)) *positionBook {
	if resolver == nil {
		resolver = NopResolver{}
	}
	return &positionBook{
		positions:   make(map[string]*Position),
		resolver:    resolver,
		marketPrice: marketPrice,
	}
}

func (b *positionBook) position(symbol string) *Position {
	p, ok := b.positions[symbol]
	if !ok {
		p = &Position{}
		b.positions[symbol] = p
	}
	return p
}

// apply folds one ledger transaction into the book. Dividends carry no
// position effect; their cash lands in the return calculators.
func (b *positionBook) apply(t Transaction) {
	if t.Kind == KindDividend {
		return
	}
	p := b.position(t.Symbol)

	// Detect unrecorded splits before the trade touches the book: a trade
	// price wildly off the market close near the trade date is read as a
	// missed split and the held quantity is rescaled in place. With no
	// market close to compare against, no inference happens.
	if p.Quantity != 0 && t.Price > 0 && b.marketPrice != nil {
		if ref, ok := b.marketPrice(t.Symbol, t.TradeDate); ok && ref > 0 {
			if factor := b.resolver.SplitFactor(ref, t.Price); factor > 0 && factor != 1 {
				p.Quantity *= factor
				if math.Abs(p.Quantity) > flatEpsilon {
					p.AvgEntryPrice = p.CostBasis / math.Abs(p.Quantity)
				}
			}
		}
	}

	gross := t.SettlementValue.Float64()
	switch t.Kind {
	case KindBuy:
		p.applyBuy(t.Quantity, gross, t.Commission)
	case KindSell:
		p.applySell(t.Quantity, gross, t.Commission)
	}
	p.settle()
}

// applyBuy adds shares. Commission is part of the capital deployed, so it
// joins the cost basis on the long side and reduces realized profit when
// covering a short.
func (p *Position) applyBuy(quantity, gross, commission float64) {
	cost := gross + commission
	if p.Quantity >= 0 {
		p.Quantity += quantity
		p.CostBasis += cost
		return
	}

	short := -p.Quantity
	cover := math.Min(quantity, short)
	coverCost := cost * (cover / quantity)
	released := p.CostBasis * (cover / short)

	p.RealizedPnL += released - coverCost
	p.Quantity += cover
	p.CostBasis -= released

	if excess := quantity - cover; excess > flatEpsilon {
		// Full cover plus a fresh long lot from the remainder.
		p.Quantity = excess
		p.CostBasis = cost * (excess / quantity)
	}
}

// applySell removes shares, or opens/extends a short when the ledger sells
// more than it holds. Commission reduces the proceeds.
func (p *Position) applySell(quantity, gross, commission float64) {
	proceeds := gross - commission
	if p.Quantity <= 0 {
		p.Quantity -= quantity
		p.CostBasis += proceeds
		return
	}

	closeQty := math.Min(quantity, p.Quantity)
	closeProceeds := proceeds * (closeQty / quantity)
	released := p.CostBasis * (closeQty / p.Quantity)

	p.RealizedPnL += closeProceeds - released
	p.Quantity -= closeQty
	p.CostBasis -= released

	if excess := quantity - closeQty; excess > flatEpsilon {
		// Oversell: what remains opens a short at the sale price.
		p.Quantity = -excess
		p.CostBasis = proceeds * (excess / quantity)
	}
}

// settle snaps near-zero quantity to exactly flat and refreshes the
// derived average entry price.
func (p *Position) settle() {
	if math.Abs(p.Quantity) < flatEpsilon {
		p.Quantity = 0
		p.CostBasis = 0
		p.AvgEntryPrice = 0
		return
	}
	if p.CostBasis < 0 {
		p.CostBasis = 0
	}
	p.AvgEntryPrice = p.CostBasis / math.Abs(p.Quantity)
}

// MarketValue prices the position at the given per-share price.
func (p *Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// UnrealizedPnL is the gain embedded in the open position at the given
// price: value above basis for a long, proceeds above buy-back cost for
// a short.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Quantity == 0 {
		return 0
	}
	if p.Quantity > 0 {
		return p.Quantity*price - p.CostBasis
	}
	return p.CostBasis - (-p.Quantity)*price
}

// open returns the symbols with non-flat positions.
func (b *positionBook) open() map[string]*Position {
	result := make(map[string]*Position)
	for symbol, p := range b.positions {
		if p.Quantity != 0 {
			result[symbol] = p
		}
	}
	return result
}

// totalCostBasis is the invested capital across open positions.
func (b *positionBook) totalCostBasis() float64 {
	total := 0.0
	for _, p := range b.positions {
		if p.Quantity != 0 {
			total += p.CostBasis
		}
	}
	return total
}

func (b *positionBook) totalRealized() float64 {
	total := 0.0
	for _, p := range b.positions {
		total += p.RealizedPnL
	}
	return total
}

// ComputePositions replays the full ledger and returns per-symbol position
// state, flat positions included (their realized P/L still matters).
func (c *Core) ComputePositions(portfolioID string) (map[string]Position, error) {
	if err := c.requirePortfolio(portfolioID); err != nil {
		return nil, err
	}
	ledger, err := c.ledgerForReplay(portfolioID)
	if err != nil {
		return nil, err
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
	book := newPositionBook(c.actions, prices.onOrBefore)
	for _, t := range ledger {
		book.apply(t)
	}
	result := make(map[string]Position, len(book.positions))
	for symbol, p := range book.positions {
		result[symbol] = *p
	}
	return result, nil
}
