package investsight

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// fakeDoer serves canned bodies keyed by URL substring.
type fakeDoer struct {
	bodies map[string]string
	status int
	calls  int
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	body := ""
	for substr, b := range f.bodies {
		if strings.Contains(req.URL.String(), substr) {
			body = b
			break
		}
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func testMarketData(client HTTPDoer) *marketData {
	return newMarketData(marketDataOptions{
		CacheTTL:      time.Minute,
		FailThreshold: 2,
		FailWindow:    time.Minute,
		Cooldown:      time.Minute,
		HTTPClient:    client,
	})
}

// Unix 1735776000 = 2025-01-02, 1735862400 = 2025-01-03.
const chartBody = `{"chart":{"result":[{
	"meta":{"regularMarketPrice":123.45},
	"timestamp":[1735776000,1735862400,1735948800],
	"indicators":{"quote":[{"close":[100.5,null,102.25]}]},
	"events":{"dividends":{"1735776000":{"amount":0.25,"date":1735776000}}}
}]}}`

func TestFetchQuote(t *testing.T) {
	doer := &fakeDoer{bodies: map[string]string{"/chart/AAPL": chartBody}}
	md := testMarketData(doer)

	price, err := md.fetchQuote(context.Background(), "aapl")
	assertNoError(t, err, "fetch quote")
	assertFloatEquals(t, price, 123.45, "regular market price")

	// Second call within the TTL serves from cache.
	_, err = md.fetchQuote(context.Background(), "AAPL")
	assertNoError(t, err, "cached quote")
	if doer.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", doer.calls)
	}
}

func TestFetchQuote_FallsBackToLastClose(t *testing.T) {
	body := `{"chart":{"result":[{
		"meta":{"regularMarketPrice":0},
		"timestamp":[1735776000],
		"indicators":{"quote":[{"close":[99.5]}]}
	}]}}`
	md := testMarketData(&fakeDoer{bodies: map[string]string{"/chart/": body}})

	price, err := md.fetchQuote(context.Background(), "AAPL")
	assertNoError(t, err, "fetch quote")
	assertFloatEquals(t, price, 99.5, "last close fallback")
}

func TestFetchQuote_NoData(t *testing.T) {
	md := testMarketData(&fakeDoer{bodies: map[string]string{"/chart/": `{"chart":{"result":[]}}`}})

	_, err := md.fetchQuote(context.Background(), "NOPE")
	if !errors.Is(err, ErrNoQuote) {
		t.Errorf("expected ErrNoQuote, got %v", err)
	}
}

func TestFetchDailyHistory_SkipsNullCloses(t *testing.T) {
	md := testMarketData(&fakeDoer{bodies: map[string]string{"/chart/AAPL": chartBody}})

	points, err := md.fetchDailyHistory(context.Background(), "AAPL", "1y")
	assertNoError(t, err, "fetch history")
	if len(points) != 2 {
		t.Fatalf("expected 2 points (null skipped), got %d", len(points))
	}
	if points[0].Date != "2025-01-02" {
		t.Errorf("expected 2025-01-02, got %s", points[0].Date)
	}
	assertFloatEquals(t, points[0].Price, 100.5, "first close")
	assertFloatEquals(t, points[1].Price, 102.25, "last close")
}

func TestFetchDividends(t *testing.T) {
	md := testMarketData(&fakeDoer{bodies: map[string]string{"/chart/KO": chartBody}})

	events, err := md.fetchDividends(context.Background(), "KO", "1y")
	assertNoError(t, err, "fetch dividends")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ExDate != "2025-01-02" {
		t.Errorf("expected ex-date 2025-01-02, got %s", events[0].ExDate)
	}
	assertFloatEquals(t, events[0].AmountPerShare, 0.25, "dividend amount")
}

func TestCircuitBreakerCoolsDownAfterFailures(t *testing.T) {
	doer := &fakeDoer{status: http.StatusBadGateway}
	md := testMarketData(doer)

	_, err := md.fetchQuote(context.Background(), "AAPL")
	assertError(t, err, "first failure")
	_, err = md.fetchQuote(context.Background(), "MSFT")
	assertError(t, err, "second failure")

	// Threshold reached: the third call short-circuits without a request.
	before := doer.calls
	_, err = md.fetchQuote(context.Background(), "NVDA")
	if !errors.Is(err, ErrSourceCoolingDown) {
		t.Errorf("expected ErrSourceCoolingDown, got %v", err)
	}
	if doer.calls != before {
		t.Errorf("expected no upstream call during cooldown, got %d extra", doer.calls-before)
	}
}

func TestRefreshMarketData(t *testing.T) {
	tmpCore, cleanup := setupTestDB(t)
	defer cleanup()
	dbPath := tmpCore.DBPath()
	tmpCore.Close()

	doer := &fakeDoer{bodies: map[string]string{"/chart/AAPL": chartBody}}
	core, err := OpenWithOptions(Options{DBPath: dbPath, HTTPClient: doer})
	assertNoError(t, err, "open with fake client")
	defer core.Close()

	pid := testPortfolio(t, core, "Main")
	testBuy(t, core, pid, "AAPL", "2025-01-02", 10, 100)

	result, err := core.RefreshMarketData(context.Background())
	assertNoError(t, err, "refresh")
	if len(result.Updated) != 1 || result.Updated[0] != "AAPL" {
		t.Fatalf("expected AAPL updated, got %+v", result)
	}

	latest, err := core.GetLatestPrices()
	assertNoError(t, err, "latest prices")
	assertFloatEquals(t, latest["AAPL"].Price, 123.45, "refreshed quote")

	history, err := core.GetPriceHistory("AAPL", "", "")
	assertNoError(t, err, "stored history")
	if len(history) != 2 {
		t.Errorf("expected 2 stored closes, got %d", len(history))
	}

	dividends, err := core.GetDividendHistory("AAPL")
	assertNoError(t, err, "stored dividends")
	if len(dividends) != 1 {
		t.Errorf("expected 1 stored dividend, got %d", len(dividends))
	}
}

func TestRefreshMarketData_SkipsAutoUpdateDisabled(t *testing.T) {
	tmpCore, cleanup := setupTestDB(t)
	defer cleanup()
	dbPath := tmpCore.DBPath()
	tmpCore.Close()

	doer := &fakeDoer{bodies: map[string]string{"/chart/": chartBody}}
	core, err := OpenWithOptions(Options{DBPath: dbPath, HTTPClient: doer})
	assertNoError(t, err, "open with fake client")
	defer core.Close()

	pid := testPortfolio(t, core, "Main")
	testBuy(t, core, pid, "AAPL", "2025-01-02", 10, 100)

	off := 0
	assertNoError(t, core.UpdateInstrument("AAPL", nil, &off), "disable auto update")

	result, err := core.RefreshMarketData(context.Background())
	assertNoError(t, err, "refresh")
	if len(result.Updated) != 0 {
		t.Errorf("expected no updates, got %+v", result.Updated)
	}
	if doer.calls != 0 {
		t.Errorf("expected no upstream calls, got %d", doer.calls)
	}
}
