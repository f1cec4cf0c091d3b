package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"investsight/pkg/investsight"
)

// RouterOptions configures the HTTP layer. The zero value is usable.
type RouterOptions struct {
	Logger      *slog.Logger
	CORSOrigins []string
	// DefaultAIKey is used for insight generation when the request does
	// not carry its own key. Comes from the environment, never stored.
	DefaultAIKey string
}

// NewRouter builds the HTTP API router.
func NewRouter(core *investsight.Core, opts RouterOptions) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoveryLoggingMiddleware(opts.Logger))
	r.Use(requestLoggingMiddleware(opts.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, defaultAIKey: opts.DefaultAIKey}

	r.Get("/api/health", h.health)

	r.Route("/api/portfolios", func(r chi.Router) {
		r.Get("/", h.getPortfolios)
		r.Post("/", h.createPortfolio)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getPortfolio)
			r.Delete("/", h.deletePortfolio)
			r.Get("/transactions", h.getTransactions)
			r.Post("/transactions", h.addTransaction)
			r.Get("/positions", h.getPositions)
			r.Get("/overview", h.getOverview)
			r.Get("/performance", h.getPerformance)
			r.Get("/monthly-profit", h.getMonthlyProfits)
			r.Post("/ai-insight", h.generateInsight)
			r.Get("/ai-insights", h.getInsights)
		})
	})

	r.Get("/api/transactions/{id}", h.getTransaction)
	r.Delete("/api/transactions/{id}", h.deleteTransaction)

	r.Post("/api/market-data/refresh", h.refreshMarketData)
	r.Post("/api/prices/manual", h.setManualPrice)
	r.Get("/api/prices/latest", h.getLatestPrices)
	r.Get("/api/prices/{symbol}/history", h.getPriceHistory)
	r.Get("/api/dividends/{symbol}", h.getDividendHistory)

	r.Get("/api/instruments", h.getInstruments)
	r.Put("/api/instruments/{symbol}", h.updateInstrument)

	r.Get("/api/ai/settings", h.getAISettings)
	r.Put("/api/ai/settings", h.setAISettings)

	return r
}

type handler struct {
	core         *investsight.Core
	defaultAIKey string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if setter, ok := w.(interface{ SetErrorMessage(string) }); ok {
		setter.SetErrorMessage(message)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
