package investsight

import (
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB creates a temporary database for testing and returns a Core
// instance. The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "investsight-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	core, err := Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// testPortfolio creates a portfolio and returns its ID.
func testPortfolio(t *testing.T, core *Core, name string) string {
	t.Helper()
	p, err := core.CreatePortfolio(name, "USD")
	if err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return p.PortfolioID
}

// testBuy records a BUY transaction on the given date.
func testBuy(t *testing.T, core *Core, portfolioID, symbol, date string, qty, price float64) int64 {
	t.Helper()
	id, err := core.AddTransaction(AddTransactionRequest{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Kind:        KindBuy,
		TradeDate:   date,
		Quantity:    qty,
		Price:       price,
	})
	if err != nil {
		t.Fatalf("failed to create test BUY transaction: %v", err)
	}
	return id
}

// testSell records a SELL transaction on the given date.
func testSell(t *testing.T, core *Core, portfolioID, symbol, date string, qty, price float64) int64 {
	t.Helper()
	id, err := core.AddTransaction(AddTransactionRequest{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Kind:        KindSell,
		TradeDate:   date,
		Quantity:    qty,
		Price:       price,
	})
	if err != nil {
		t.Fatalf("failed to create test SELL transaction: %v", err)
	}
	return id
}

// testDividend records a DIVIDEND transaction: qty shares at amount per share.
func testDividend(t *testing.T, core *Core, portfolioID, symbol, date string, qty, perShare float64) int64 {
	t.Helper()
	id, err := core.AddTransaction(AddTransactionRequest{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Kind:        KindDividend,
		TradeDate:   date,
		Quantity:    qty,
		Price:       perShare,
	})
	if err != nil {
		t.Fatalf("failed to create test DIVIDEND transaction: %v", err)
	}
	return id
}

// testPrices stores daily closes for a symbol.
func testPrices(t *testing.T, core *Core, symbol string, points ...PricePoint) {
	t.Helper()
	if err := core.UpsertPriceHistory(symbol, points); err != nil {
		t.Fatalf("failed to store test prices: %v", err)
	}
}

// floatEquals checks if two floats are approximately equal.
func floatEquals(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// assertFloatEquals fails the test if the floats are not approximately equal.
func assertFloatEquals(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if !floatEquals(got, want, 0.001) {
		t.Errorf("%s: got %.4f, want %.4f", msg, got, want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertError fails the test if err is nil.
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error but got nil", msg)
	}
}

// assertErrorCode fails the test if err does not carry the expected code.
func assertErrorCode(t *testing.T, err error, code ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error with code %s but got nil", msg, code)
	}
	if !IsErrorCode(err, code) {
		t.Errorf("%s: expected code %s, got error %v", msg, code, err)
	}
}
