package investsight

import "testing"

func TestSetLatestPrice(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertNoError(t, core.SetLatestPrice("aapl", 187.5), "set price")
	assertNoError(t, core.SetLatestPrice("AAPL", 190.25), "overwrite price")

	latest, err := core.GetLatestPrices()
	assertNoError(t, err, "get latest prices")
	lp, ok := latest["AAPL"]
	if !ok {
		t.Fatal("expected AAPL latest price")
	}
	assertFloatEquals(t, lp.Price, 190.25, "last write wins")

	assertError(t, core.SetLatestPrice("AAPL", -1), "negative price rejected")
}

func TestUpsertPriceHistory(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertNoError(t, core.UpsertPriceHistory("AAPL", []PricePoint{
		{Date: "2025-01-02", Price: 100},
		{Date: "2025-01-03", Price: 101},
	}), "initial upsert")
	// Replacing an existing date.
	assertNoError(t, core.UpsertPriceHistory("AAPL", []PricePoint{
		{Date: "2025-01-03", Price: 102},
	}), "replace close")

	points, err := core.GetPriceHistory("AAPL", "", "")
	assertNoError(t, err, "get history")
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	assertFloatEquals(t, points[1].Price, 102, "replaced close")

	ranged, err := core.GetPriceHistory("AAPL", "2025-01-03", "2025-01-03")
	assertNoError(t, err, "ranged history")
	if len(ranged) != 1 {
		t.Errorf("expected 1 point in range, got %d", len(ranged))
	}

	err = core.UpsertPriceHistory("AAPL", []PricePoint{{Date: "bad", Price: 1}})
	assertErrorCode(t, err, ErrCodeValidation, "bad date rejected")
}

func TestPriceBookOnOrBefore(t *testing.T) {
	book := &priceBook{
		history: map[string][]PricePoint{
			"AAPL": {
				{Date: "2025-01-02", Price: 100},
				{Date: "2025-01-05", Price: 105},
				{Date: "2025-01-09", Price: 109},
			},
		},
	}

	// Exact date.
	price, ok := book.onOrBefore("AAPL", "2025-01-05")
	if !ok {
		t.Fatal("expected hit on exact date")
	}
	assertFloatEquals(t, price, 105, "exact date close")

	// Gap day resolves to the most recent earlier close.
	price, ok = book.onOrBefore("AAPL", "2025-01-07")
	if !ok {
		t.Fatal("expected hit inside gap")
	}
	assertFloatEquals(t, price, 105, "gap day close")

	// After the last close: forward fill.
	price, ok = book.onOrBefore("AAPL", "2025-02-01")
	if !ok {
		t.Fatal("expected hit after last close")
	}
	assertFloatEquals(t, price, 109, "forward-filled close")

	// Before the first close: no data.
	if _, ok := book.onOrBefore("AAPL", "2025-01-01"); ok {
		t.Error("expected miss before first close")
	}
	// Unknown symbol.
	if _, ok := book.onOrBefore("MSFT", "2025-01-05"); ok {
		t.Error("expected miss for unknown symbol")
	}
}

func TestDividendHistoryRoundTrip(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertNoError(t, core.UpsertDividendHistory("KO", []DividendEvent{
		{ExDate: "2025-03-14", AmountPerShare: 0.485},
		{ExDate: "2024-12-13", AmountPerShare: 0.485},
	}), "upsert dividends")

	events, err := core.GetDividendHistory("ko")
	assertNoError(t, err, "get dividends")
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ExDate != "2024-12-13" {
		t.Errorf("expected ascending ex-dates, got %s first", events[0].ExDate)
	}

	err = core.UpsertDividendHistory("KO", []DividendEvent{{ExDate: "2025-03-14", AmountPerShare: -1}})
	assertErrorCode(t, err, ErrCodeValidation, "negative amount rejected")
}
