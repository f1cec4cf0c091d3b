package investsight

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// analyticsCache memoizes derived analytics (daily series, overviews) per
// portfolio. Any ledger or price write invalidates, so a short TTL is just
// a backstop against external database edits.
type analyticsCache struct {
	store *gocache.Cache
}

const (
	analyticsCacheTTL     = 5 * time.Minute
	analyticsCacheCleanup = 10 * time.Minute
)

func newAnalyticsCache() *analyticsCache {
	return &analyticsCache{
		store: gocache.New(analyticsCacheTTL, analyticsCacheCleanup),
	}
}

func seriesKey(portfolioID, asOf string) string   { return "series:" + portfolioID + ":" + asOf }
func overviewKey(portfolioID, asOf string) string { return "overview:" + portfolioID + ":" + asOf }

func (a *analyticsCache) getSeries(portfolioID, asOf string) (*PerformanceResult, bool) {
	v, ok := a.store.Get(seriesKey(portfolioID, asOf))
	if !ok {
		return nil, false
	}
	result, ok := v.(*PerformanceResult)
	return result, ok
}

func (a *analyticsCache) putSeries(portfolioID, asOf string, result *PerformanceResult) {
	a.store.SetDefault(seriesKey(portfolioID, asOf), result)
}

func (a *analyticsCache) getOverview(portfolioID, asOf string) (*Overview, bool) {
	v, ok := a.store.Get(overviewKey(portfolioID, asOf))
	if !ok {
		return nil, false
	}
	result, ok := v.(*Overview)
	return result, ok
}

func (a *analyticsCache) putOverview(portfolioID, asOf string, o *Overview) {
	a.store.SetDefault(overviewKey(portfolioID, asOf), o)
}

// invalidate drops every cached value for one portfolio.
func (a *analyticsCache) invalidate(portfolioID string) {
	for key := range a.store.Items() {
		if len(key) > 0 && containsPortfolio(key, portfolioID) {
			a.store.Delete(key)
		}
	}
}

// invalidateAll drops everything; price writes affect all portfolios.
func (a *analyticsCache) invalidateAll() {
	a.store.Flush()
}

func containsPortfolio(key, portfolioID string) bool {
	// Keys are "<kind>:<portfolio>:<asof>".
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			start = i + 1
			break
		}
	}
	end := start
	for end < len(key) && key[end] != ':' {
		end++
	}
	return key[start:end] == portfolioID
}
