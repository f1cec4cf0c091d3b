package investsight

import "testing"

func setupOverviewFixture(t *testing.T, core *Core) string {
	t.Helper()
	pid := testPortfolio(t, core, "Main")
	testBuy(t, core, pid, "AAPL", "2025-01-02", 10, 100)
	testBuy(t, core, pid, "MSFT", "2025-01-02", 5, 200)
	testDividend(t, core, pid, "AAPL", "2025-01-15", 10, 2)
	testPrices(t, core, "AAPL",
		PricePoint{Date: "2025-01-02", Price: 100},
		PricePoint{Date: "2025-02-09", Price: 110},
		PricePoint{Date: "2025-02-10", Price: 112},
	)
	testPrices(t, core, "MSFT",
		PricePoint{Date: "2025-01-02", Price: 200},
		PricePoint{Date: "2025-02-09", Price: 210},
		PricePoint{Date: "2025-02-10", Price: 208},
	)
	return pid
}

func TestGetOverview_Totals(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := setupOverviewFixture(t, core)

	overview, err := core.GetOverview(pid, "2025-02-10")
	assertNoError(t, err, "get overview")

	assertFloatEquals(t, overview.TotalValue, 2160, "total value")
	assertFloatEquals(t, overview.UnrealizedPnL, 160, "unrealized")
	assertFloatEquals(t, overview.RealizedPnL, 0, "realized")
	assertFloatEquals(t, overview.DividendTotal, 20, "dividends")
	assertFloatEquals(t, overview.TotalProfit, 180, "total profit")
	if overview.Degraded {
		t.Error("expected non-degraded overview")
	}
}

func TestGetOverview_DayChange(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := setupOverviewFixture(t, core)

	overview, err := core.GetOverview(pid, "2025-02-10")
	assertNoError(t, err, "get overview")

	// AAPL +2 on 10 shares, MSFT -2 on 5 shares.
	assertFloatEquals(t, overview.DayChange, 10, "day change")
	assertFloatEquals(t, overview.DayChangePct, 0.47, "day change pct")
}

func TestGetOverview_SnapshotsSortedByValue(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := setupOverviewFixture(t, core)

	overview, err := core.GetOverview(pid, "2025-02-10")
	assertNoError(t, err, "get overview")

	if len(overview.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(overview.Snapshots))
	}
	if overview.Snapshots[0].Symbol != "AAPL" || overview.Snapshots[1].Symbol != "MSFT" {
		t.Fatalf("expected AAPL then MSFT, got %s then %s",
			overview.Snapshots[0].Symbol, overview.Snapshots[1].Symbol)
	}

	aapl := overview.Snapshots[0]
	assertFloatEquals(t, aapl.MarketValue, 1120, "aapl market value")
	assertFloatEquals(t, aapl.SharePct, 51.85, "aapl share pct")
	assertFloatEquals(t, aapl.Profit, 120, "aapl profit")
	assertFloatEquals(t, aapl.ReturnPct, 12, "aapl return pct")
	if aapl.DailyChangePct == nil {
		t.Fatal("expected aapl daily change")
	}
	assertFloatEquals(t, *aapl.DailyChangePct, 1.82, "aapl daily change pct")

	msft := overview.Snapshots[1]
	assertFloatEquals(t, msft.MarketValue, 1040, "msft market value")
	assertFloatEquals(t, msft.SharePct, 48.15, "msft share pct")
}

func TestGetOverview_LatestPriceWinsOverHistory(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := setupOverviewFixture(t, core)

	assertNoError(t, core.SetLatestPrice("AAPL", 120), "set latest price")

	overview, err := core.GetOverview(pid, "2025-02-10")
	assertNoError(t, err, "get overview")

	// AAPL valued at the live 120 instead of the 112 close.
	assertFloatEquals(t, overview.TotalValue, 2240, "total with live quote")
	aapl := overview.Snapshots[0]
	if aapl.CurrentPrice == nil {
		t.Fatal("expected current price")
	}
	assertFloatEquals(t, *aapl.CurrentPrice, 120, "live price used")
}

func TestGetOverview_LedgerDividendBeatsFeed(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	pid := setupOverviewFixture(t, core)

	// The feed says AAPL paid 3/share, but the ledger already records the
	// actual 2/share receipt; the feed row must be ignored for AAPL.
	assertNoError(t, core.UpsertDividendHistory("AAPL",
		[]DividendEvent{{ExDate: "2025-01-15", AmountPerShare: 3}}), "aapl feed")
	// MSFT has no ledger dividend, so its feed applies: 5 shares * 1.
	assertNoError(t, core.UpsertDividendHistory("MSFT",
		[]DividendEvent{{ExDate: "2025-02-01", AmountPerShare: 1}}), "msft feed")

	overview, err := core.GetOverview(pid, "2025-02-10")
	assertNoError(t, err, "get overview")

	assertFloatEquals(t, overview.DividendTotal, 25, "ledger precedence plus feed")
	assertFloatEquals(t, overview.TotalProfit, 185, "profit includes feed dividend")
}

func TestGetOverview_ClosedPositionStaysInSnapshots(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	pid := testPortfolio(t, core, "Main")
	testBuy(t, core, pid, "AAPL", "2025-01-02", 10, 100)
	testSell(t, core, pid, "AAPL", "2025-01-10", 10, 120)
	testPrices(t, core, "AAPL", PricePoint{Date: "2025-01-02", Price: 100})

	overview, err := core.GetOverview(pid, "2025-01-20")
	assertNoError(t, err, "get overview")

	// A sold-out instrument keeps its row: zero exposure, realized profit.
	if len(overview.Snapshots) != 1 {
		t.Fatalf("expected 1 snapshot for a closed position, got %d", len(overview.Snapshots))
	}
	snap := overview.Snapshots[0]
	if snap.Symbol != "AAPL" {
		t.Fatalf("unexpected snapshot symbol %s", snap.Symbol)
	}
	assertFloatEquals(t, snap.Quantity, 0, "closed quantity")
	assertFloatEquals(t, snap.MarketValue, 0, "closed market value")
	assertFloatEquals(t, snap.SharePct, 0, "closed share of portfolio")
	assertFloatEquals(t, snap.Profit, 200, "realized profit on the row")

	assertFloatEquals(t, overview.RealizedPnL, 200, "realized after close")
	assertFloatEquals(t, overview.TotalProfit, 200, "total profit after close")
	assertFloatEquals(t, overview.TotalValue, 0, "no open value")
	if overview.Degraded {
		t.Error("a closed position without a quote must not degrade the overview")
	}
}

func TestGetOverview_ClosedPositionDoesNotSkewTotals(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	pid := testPortfolio(t, core, "Main")
	testBuy(t, core, pid, "AAPL", "2025-01-02", 10, 100)
	testSell(t, core, pid, "AAPL", "2025-01-10", 10, 120)
	testBuy(t, core, pid, "MSFT", "2025-01-02", 5, 200)
	testPrices(t, core, "AAPL", PricePoint{Date: "2025-01-02", Price: 100})
	testPrices(t, core, "MSFT",
		PricePoint{Date: "2025-01-02", Price: 200},
		PricePoint{Date: "2025-01-20", Price: 210},
	)

	overview, err := core.GetOverview(pid, "2025-01-20")
	assertNoError(t, err, "get overview")

	if len(overview.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(overview.Snapshots))
	}
	// Open position first by market value, the closed one at the bottom.
	if overview.Snapshots[0].Symbol != "MSFT" || overview.Snapshots[1].Symbol != "AAPL" {
		t.Fatalf("expected MSFT then AAPL, got %s then %s",
			overview.Snapshots[0].Symbol, overview.Snapshots[1].Symbol)
	}
	assertFloatEquals(t, overview.Snapshots[0].SharePct, 100, "open position carries the portfolio")
	assertFloatEquals(t, overview.Snapshots[1].SharePct, 0, "closed position has no share")

	assertFloatEquals(t, overview.TotalValue, 1050, "only open value counts")
	// 200 realized on AAPL plus 50 unrealized on MSFT.
	assertFloatEquals(t, overview.TotalProfit, 250, "profit spans both rows")
}

func TestGetOverview_UnknownPortfolio(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := core.GetOverview("missing", "")
	assertErrorCode(t, err, ErrCodeNotFound, "missing portfolio")
}
