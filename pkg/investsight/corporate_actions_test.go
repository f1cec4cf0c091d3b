package investsight

import "testing"

func TestRatioHeuristicResolver(t *testing.T) {
	r := NewRatioHeuristicResolver(defaultSplitUpperRatio, defaultSplitLowerRatio)

	// Ordinary moves around the market close stay inside the band: no action.
	assertFloatEquals(t, r.SplitFactor(100, 95), 1, "small dip")
	assertFloatEquals(t, r.SplitFactor(100, 130), 1, "small rally")
	assertFloatEquals(t, r.SplitFactor(100, 60), 1, "at lower bound")

	// Trade at half the stored close: 2:1 forward split.
	assertFloatEquals(t, r.SplitFactor(100, 50), 2, "2:1 split")
	// Quarter price: 4:1.
	assertFloatEquals(t, r.SplitFactor(200, 50), 4, "4:1 split")

	// Trade at double the stored close: 1:2 reverse split.
	assertFloatEquals(t, r.SplitFactor(50, 100), 0.5, "1:2 reverse split")
	// Five-fold price: 1:5.
	assertFloatEquals(t, r.SplitFactor(20, 100), 0.2, "1:5 reverse split")

	// Degenerate inputs never infer an action.
	assertFloatEquals(t, r.SplitFactor(0, 100), 1, "no market price")
	assertFloatEquals(t, r.SplitFactor(100, 0), 1, "no trade price")
}

func TestNewRatioHeuristicResolver_RepairsBadThresholds(t *testing.T) {
	r := NewRatioHeuristicResolver(0.5, 2)
	// Defaults take over; half the close still reads as a 2:1 split.
	assertFloatEquals(t, r.SplitFactor(100, 50), 2, "defaulted thresholds")
}

func TestNopResolver(t *testing.T) {
	assertFloatEquals(t, NopResolver{}.SplitFactor(100, 1), 1, "nop never acts")
}

func TestCustomResolverDisablesSplitInference(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	// Reopen with a nop resolver on the same database.
	dbPath := core.DBPath()
	core.Close()
	core2, err := OpenWithOptions(Options{DBPath: dbPath, ActionResolver: NopResolver{}})
	assertNoError(t, err, "reopen with nop resolver")
	defer core2.Close()

	pid := testPortfolio(t, core2, "Main")
	testBuy(t, core2, pid, "AAPL", "2025-01-02", 10, 100)
	// The default resolver would read this trade, at half the stored
	// close, as a 2:1 split; the nop resolver must leave it alone.
	testPrices(t, core2, "AAPL", PricePoint{Date: "2025-01-02", Price: 100})
	testBuy(t, core2, pid, "AAPL", "2025-03-01", 10, 50)

	positions, err := core2.ComputePositions(pid)
	assertNoError(t, err, "compute positions")

	p := positions["AAPL"]
	// Without the heuristic this is just averaging down.
	assertFloatEquals(t, p.Quantity, 20, "no split adjustment")
	assertFloatEquals(t, p.CostBasis, 1500, "basis")
	assertFloatEquals(t, p.AvgEntryPrice, 75, "averaged-down cost")
}
