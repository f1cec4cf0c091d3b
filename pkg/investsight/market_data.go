package investsight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Market data errors. Use errors.Is() to check for these conditions.
var (
	// ErrNoQuote indicates the data source returned no usable price.
	ErrNoQuote = errors.New("no quote available")
	// ErrSourceCoolingDown indicates the circuit breaker has the source
	// in cooldown after repeated failures.
	ErrSourceCoolingDown = errors.New("market data source cooling down")
)

// maxResponseSize limits external API responses to 1MB.
const maxResponseSize = 1 << 20

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%s?%s"

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type marketDataOptions struct {
	Logger        *slog.Logger
	CacheTTL      time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	HTTPTimeout   time.Duration
	HTTPClient    HTTPDoer // Optional: inject custom client for testing
}

// marketData fetches quotes, daily closes and dividend events from the
// Yahoo chart API, with a short-lived quote cache and a per-source circuit
// breaker so a flapping upstream cannot stall every request.
type marketData struct {
	logger        *slog.Logger
	client        HTTPDoer
	quotes        *gocache.Cache
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration

	circuitMu sync.Mutex
	breaker   map[string]*breakerState
}

type breakerState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

func newMarketData(opts marketDataOptions) *marketData {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.HTTPTimeout}
	}
	return &marketData{
		logger:        logger,
		client:        client,
		quotes:        gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		failThreshold: opts.FailThreshold,
		failWindow:    opts.FailWindow,
		cooldown:      opts.Cooldown,
		breaker:       map[string]*breakerState{},
	}
}

func (m *marketData) sourceAvailable(source string) bool {
	m.circuitMu.Lock()
	defer m.circuitMu.Unlock()
	state, ok := m.breaker[source]
	if !ok {
		return true
	}
	return time.Now().After(state.cooldownUntil)
}

func (m *marketData) recordFailure(source string) {
	m.circuitMu.Lock()
	defer m.circuitMu.Unlock()
	state := m.breaker[source]
	now := time.Now()
	if state == nil {
		state = &breakerState{firstFailAt: now}
		m.breaker[source] = state
	}
	if now.Sub(state.firstFailAt) > m.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= m.failThreshold {
		state.cooldownUntil = now.Add(m.cooldown)
		m.logger.Warn("market data source in cooldown", "source", source, "until", state.cooldownUntil)
	}
}

func (m *marketData) recordSuccess(source string) {
	m.circuitMu.Lock()
	defer m.circuitMu.Unlock()
	delete(m.breaker, source)
}

// Yahoo chart response shape, reduced to the fields used here.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (m *marketData) fetchChart(ctx context.Context, symbol, query string) (*yahooChart, error) {
	const source = "yahoo-chart"
	if !m.sourceAvailable(source) {
		return nil, ErrSourceCoolingDown
	}

	url := fmt.Sprintf(yahooChartURL, symbol, query)
	body, err := m.httpGet(ctx, url)
	if err != nil {
		m.recordFailure(source)
		return nil, err
	}
	var payload yahooChart
	if err := json.Unmarshal(body, &payload); err != nil {
		m.recordFailure(source)
		return nil, err
	}
	if payload.Chart.Error != nil {
		m.recordFailure(source)
		return nil, fmt.Errorf("chart error: %s", payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		m.recordFailure(source)
		return nil, ErrNoQuote
	}
	m.recordSuccess(source)
	return &payload, nil
}

// fetchQuote returns the live price for a symbol, serving from the quote
// cache within its TTL.
func (m *marketData) fetchQuote(ctx context.Context, symbol string) (float64, error) {
	symbol = normalizeSymbol(symbol)
	if v, ok := m.quotes.Get(symbol); ok {
		if price, ok := v.(float64); ok {
			return price, nil
		}
	}

	payload, err := m.fetchChart(ctx, symbol, "interval=1d&range=1d")
	if err != nil {
		return 0, err
	}
	result := payload.Chart.Result[0]
	price := result.Meta.RegularMarketPrice
	if price <= 0 {
		// Fall back to the last close in the quote block.
		for _, q := range result.Indicators.Quote {
			for i := len(q.Close) - 1; i >= 0; i-- {
				if q.Close[i] != nil && *q.Close[i] > 0 {
					price = *q.Close[i]
					break
				}
			}
		}
	}
	if price <= 0 {
		return 0, ErrNoQuote
	}
	m.quotes.SetDefault(symbol, price)
	return price, nil
}

// fetchDailyHistory returns daily closes for a symbol over the given Yahoo
// range string (e.g. "1y"), ascending. Null closes (market holidays) are
// skipped.
func (m *marketData) fetchDailyHistory(ctx context.Context, symbol, rng string) ([]PricePoint, error) {
	symbol = normalizeSymbol(symbol)
	if rng == "" {
		rng = "1y"
	}
	payload, err := m.fetchChart(ctx, symbol, "interval=1d&range="+rng)
	if err != nil {
		return nil, err
	}
	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, ErrNoQuote
	}
	closes := result.Indicators.Quote[0].Close

	var points []PricePoint
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		points = append(points, PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format(isoDateFormat),
			Price: *closes[i],
		})
	}
	return points, nil
}

// fetchDividends returns dividend events for a symbol over the given Yahoo
// range string, in no particular order.
func (m *marketData) fetchDividends(ctx context.Context, symbol, rng string) ([]DividendEvent, error) {
	symbol = normalizeSymbol(symbol)
	if rng == "" {
		rng = "1y"
	}
	payload, err := m.fetchChart(ctx, symbol, "interval=1d&range="+rng+"&events=div")
	if err != nil {
		return nil, err
	}
	result := payload.Chart.Result[0]

	var events []DividendEvent
	for _, div := range result.Events.Dividends {
		if div.Amount <= 0 {
			continue
		}
		events = append(events, DividendEvent{
			Symbol:         symbol,
			ExDate:         time.Unix(div.Date, 0).UTC().Format(isoDateFormat),
			AmountPerShare: div.Amount,
		})
	}
	return events, nil
}

func (m *marketData) httpGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

// RefreshResult summarizes one market data refresh pass.
type RefreshResult struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed"`
}

// RefreshMarketData pulls live quotes, daily closes and dividend events
// for every instrument with auto-update enabled. Per-symbol failures are
// collected rather than aborting the pass.
func (c *Core) RefreshMarketData(ctx context.Context) (*RefreshResult, error) {
	instruments, err := c.GetInstruments()
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{Failed: map[string]string{}}
	for _, ins := range instruments {
		if ins.AutoUpdate == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		price, err := c.market.fetchQuote(ctx, ins.Symbol)
		if err != nil {
			c.logger.Warn("quote refresh failed", "symbol", ins.Symbol, "err", err)
			result.Failed[ins.Symbol] = err.Error()
			continue
		}
		if err := c.SetLatestPrice(ins.Symbol, price); err != nil {
			result.Failed[ins.Symbol] = err.Error()
			continue
		}

		if history, err := c.market.fetchDailyHistory(ctx, ins.Symbol, "1y"); err != nil {
			c.logger.Warn("history refresh failed", "symbol", ins.Symbol, "err", err)
		} else if err := c.UpsertPriceHistory(ins.Symbol, history); err != nil {
			result.Failed[ins.Symbol] = err.Error()
			continue
		}

		if dividends, err := c.market.fetchDividends(ctx, ins.Symbol, "1y"); err != nil {
			c.logger.Warn("dividend refresh failed", "symbol", ins.Symbol, "err", err)
		} else if err := c.UpsertDividendHistory(ins.Symbol, dividends); err != nil {
			result.Failed[ins.Symbol] = err.Error()
			continue
		}

		result.Updated = append(result.Updated, ins.Symbol)
	}
	return result, nil
}

// FetchQuote exposes a one-off live quote lookup.
func (c *Core) FetchQuote(ctx context.Context, symbol string) (float64, error) {
	price, err := c.market.fetchQuote(ctx, symbol)
	if err != nil {
		return 0, WrapError(ErrCodeUpstream, "fetch quote", err)
	}
	return price, nil
}
