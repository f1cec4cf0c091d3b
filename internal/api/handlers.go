package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"investsight/pkg/investsight"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getPortfolios(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetPortfolios()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) createPortfolio(w http.ResponseWriter, r *http.Request) {
	var payload createPortfolioPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	portfolio, err := h.core.CreatePortfolio(payload.Name, payload.BaseCurrency)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, portfolio)
}

func (h *handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	portfolio, err := h.core.GetPortfolio(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if portfolio == nil {
		writeErrorResponse(w, http.StatusNotFound, investsight.NewError(investsight.ErrCodeNotFound, "portfolio not found"))
		return
	}
	writeSuccess(w, portfolio)
}

func (h *handler) deletePortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.core.DeletePortfolio(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeErrorResponse(w, http.StatusNotFound, investsight.NewError(investsight.ErrCodeNotFound, "portfolio not found"))
		return
	}
	writeSuccessWithMessage(w, "portfolio deleted", nil)
}

func (h *handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := investsight.TransactionFilter{
		PortfolioID: chi.URLParam(r, "id"),
		Symbol:      query.Get("symbol"),
		Kind:        query.Get("kind"),
		StartDate:   query.Get("start_date"),
		EndDate:     query.Get("end_date"),
		Limit:       parseIntDefault(query.Get("limit"), 100),
		Offset:      parseIntDefault(query.Get("offset"), 0),
	}
	result, err := h.core.GetTransactions(filter)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	total, err := h.core.GetTransactionCount(filter)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, transactionsPage{
		Items:  result,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (h *handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var payload addTransactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	id, err := h.core.AddTransaction(investsight.AddTransactionRequest{
		PortfolioID:     chi.URLParam(r, "id"),
		Symbol:          payload.Symbol,
		Kind:            payload.Kind,
		TradeDate:       payload.TradeDate,
		Quantity:        payload.Quantity,
		Price:           payload.Price,
		Commission:      payload.Commission,
		SettlementValue: payload.SettlementValue,
		Notes:           payload.Notes,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	created, err := h.core.GetTransaction(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, created)
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	transaction, err := h.core.GetTransaction(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if transaction == nil {
		writeErrorResponse(w, http.StatusNotFound, investsight.NewError(investsight.ErrCodeNotFound, "transaction not found"))
		return
	}
	writeSuccess(w, transaction)
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	deleted, err := h.core.DeleteTransaction(id)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeErrorResponse(w, http.StatusNotFound, investsight.NewError(investsight.ErrCodeNotFound, "transaction not found"))
		return
	}
	writeSuccessWithMessage(w, "transaction deleted", nil)
}

func (h *handler) getPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.core.ComputePositions(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, positions)
}

func (h *handler) getOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.core.GetOverview(chi.URLParam(r, "id"), r.URL.Query().Get("as_of"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, overview)
}

func (h *handler) getPerformance(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetPerformance(chi.URLParam(r, "id"), r.URL.Query().Get("as_of"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getMonthlyProfits(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetMonthlyProfits(chi.URLParam(r, "id"), r.URL.Query().Get("as_of"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) refreshMarketData(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.RefreshMarketData(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) setManualPrice(w http.ResponseWriter, r *http.Request) {
	var payload manualPricePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	if err := h.core.SetLatestPrice(payload.Symbol, payload.Price); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccessWithMessage(w, "price updated", nil)
}

func (h *handler) getLatestPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.core.GetLatestPrices()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, prices)
}

func (h *handler) getPriceHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	points, err := h.core.GetPriceHistory(chi.URLParam(r, "symbol"), query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, points)
}

func (h *handler) getDividendHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.core.GetDividendHistory(chi.URLParam(r, "symbol"))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, events)
}

func (h *handler) getInstruments(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.core.GetInstruments()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, instruments)
}

func (h *handler) updateInstrument(w http.ResponseWriter, r *http.Request) {
	var payload updateInstrumentPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	if err := h.core.UpdateInstrument(chi.URLParam(r, "symbol"), payload.Name, payload.AutoUpdate); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccessWithMessage(w, "instrument updated", nil)
}

func (h *handler) getAISettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.core.GetAISettings()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, settings)
}

func (h *handler) setAISettings(w http.ResponseWriter, r *http.Request) {
	var payload aiSettingsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	settings, err := h.core.SetAISettings(investsight.AISettings{
		Provider: payload.Provider,
		BaseURL:  payload.BaseURL,
		Model:    payload.Model,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, settings)
}

func (h *handler) generateInsight(w http.ResponseWriter, r *http.Request) {
	var payload generateInsightPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err)
		return
	}
	apiKey := payload.APIKey
	if apiKey == "" {
		apiKey = h.defaultAIKey
	}
	insight, err := h.core.GenerateInsight(r.Context(), investsight.InsightRequest{
		PortfolioID: chi.URLParam(r, "id"),
		APIKey:      apiKey,
		Provider:    payload.Provider,
		BaseURL:     payload.BaseURL,
		Model:       payload.Model,
	})
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, insight)
}

func (h *handler) getInsights(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	insights, err := h.core.GetInsights(chi.URLParam(r, "id"), limit)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, insights)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

type transactionsPage struct {
	Items  []investsight.Transaction `json:"items"`
	Total  int                       `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}
