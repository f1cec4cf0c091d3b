package investsight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

const (
	aiRequestTimeout     = 5 * time.Minute
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	insightMaxTokens     = 2048
	insightTemperature   = 0.2
)

const insightSystemPrompt = `You are a portfolio analyst writing a concise plain-language briefing.
You receive a snapshot of one portfolio: positions, profit figures, return percentages and monthly profit history.
Write 3-6 short paragraphs covering overall performance, concentration and notable winners or losers.
Do not promise returns. Include a one-sentence risk note at the end. Output plain text, no markdown headings.`

// InsightRequest defines inputs for generating a portfolio insight.
// APIKey is used for the one request and never persisted.
type InsightRequest struct {
	PortfolioID string
	APIKey      string
	Provider    string // empty: use persisted settings
	BaseURL     string
	Model       string
}

// AIInsight is one stored generated briefing.
type AIInsight struct {
	ID          int64  `json:"id"`
	PortfolioID string `json:"portfolio_id"`
	Model       string `json:"model"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
}

type insightCompletionRequest struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// Seam for tests: swap out the provider round-trip.
var insightCompletion = requestInsightCompletion

// GenerateInsight builds a portfolio briefing with the configured model
// provider and stores the result.
func (c *Core) GenerateInsight(ctx context.Context, req InsightRequest) (*AIInsight, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, NewError(ErrCodeValidation, "api key required")
	}
	if err := c.requirePortfolio(req.PortfolioID); err != nil {
		return nil, err
	}

	settings, err := c.GetAISettings()
	if err != nil {
		return nil, err
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = settings.Provider
	}
	if _, ok := validAIProviders[provider]; !ok {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("unknown provider: %s", provider))
	}
	baseURL := trimTrailingSlash(req.BaseURL)
	if baseURL == "" {
		baseURL = settings.BaseURL
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = settings.Model
	}
	if model == "" {
		model = defaultAIModels[provider]
	}

	userPrompt, err := c.buildInsightPrompt(req.PortfolioID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, aiRequestTimeout)
	defer cancel()

	content, err := insightCompletion(ctx, insightCompletionRequest{
		Provider:     provider,
		BaseURL:      baseURL,
		APIKey:       req.APIKey,
		Model:        model,
		SystemPrompt: insightSystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return nil, WrapError(ErrCodeUpstream, "generate insight", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewError(ErrCodeUpstream, "model returned empty content")
	}

	result, err := c.db.Exec(
		"INSERT INTO ai_insights (portfolio_id, model, content) VALUES (?, ?, ?)",
		req.PortfolioID, model, content,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "save insight", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetInsight(id)
}

// GetInsight fetches one stored insight by ID; nil if not found.
func (c *Core) GetInsight(id int64) (*AIInsight, error) {
	row := c.db.QueryRow(
		"SELECT id, portfolio_id, model, content, created_at FROM ai_insights WHERE id = ?",
		id,
	)
	var ins AIInsight
	if err := row.Scan(&ins.ID, &ins.PortfolioID, &ins.Model, &ins.Content, &ins.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ins, nil
}

// GetInsights lists stored insights for a portfolio, newest first.
func (c *Core) GetInsights(portfolioID string, limit int) ([]AIInsight, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.Query(`
		SELECT id, portfolio_id, model, content, created_at
		FROM ai_insights
		WHERE portfolio_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, portfolioID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AIInsight
	for rows.Next() {
		var ins AIInsight
		if err := rows.Scan(&ins.ID, &ins.PortfolioID, &ins.Model, &ins.Content, &ins.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, ins)
	}
	return items, rows.Err()
}

// buildInsightPrompt renders the portfolio state the model will see.
func (c *Core) buildInsightPrompt(portfolioID string) (string, error) {
	overview, err := c.GetOverview(portfolioID, "")
	if err != nil {
		return "", err
	}
	monthly, err := c.GetMonthlyProfits(portfolioID, "")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio snapshot as of %s\n", overview.AsOf)
	fmt.Fprintf(&b, "Total value: %.2f, total profit: %.2f (realized %.2f, unrealized %.2f, dividends %.2f)\n",
		overview.TotalValue, overview.TotalProfit, overview.RealizedPnL, overview.UnrealizedPnL, overview.DividendTotal)
	fmt.Fprintf(&b, "Cumulative return: %.2f%%, annualized: %.2f%%\n", overview.ROIPct, overview.AnnualizedReturnPct)
	b.WriteString("\nPositions:\n")
	for _, snap := range overview.Snapshots {
		fmt.Fprintf(&b, "- %s: qty %.4f, avg cost %.2f, value %.2f (%.2f%% of portfolio), profit %.2f (%.2f%%)\n",
			snap.Symbol, snap.Quantity, snap.AvgCost, snap.MarketValue, snap.SharePct, snap.Profit, snap.ReturnPct)
	}
	if len(monthly) > 0 {
		b.WriteString("\nMonthly profit:\n")
		for _, m := range monthly {
			fmt.Fprintf(&b, "- %s: %.2f\n", m.Month, m.Profit)
		}
	}
	return b.String(), nil
}

// requestInsightCompletion dispatches one completion round-trip to the
// selected provider SDK.
func requestInsightCompletion(ctx context.Context, req insightCompletionRequest) (string, error) {
	switch req.Provider {
	case AIProviderOpenAI:
		return requestOpenAICompletion(ctx, req)
	case AIProviderAnthropic:
		return requestAnthropicCompletion(ctx, req)
	case AIProviderGemini:
		return requestGeminiCompletion(ctx, req)
	default:
		return "", fmt.Errorf("unknown provider: %s", req.Provider)
	}
}

func requestOpenAICompletion(ctx context.Context, req insightCompletionRequest) (string, error) {
	clientOpts := []option.RequestOption{option.WithAPIKey(req.APIKey)}
	if req.BaseURL != "" && req.BaseURL != defaultAIBaseURL {
		clientOpts = append(clientOpts, option.WithBaseURL(req.BaseURL))
	}
	client := openai.NewClient(clientOpts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func requestAnthropicCompletion(ctx context.Context, req insightCompletionRequest) (string, error) {
	clientOpts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(req.APIKey)}
	if req.BaseURL != "" && req.BaseURL != defaultAIBaseURL {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(req.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: insightMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func requestGeminiCompletion(ctx context.Context, req insightCompletionRequest) (string, error) {
	baseURL := req.BaseURL
	if baseURL == "" || baseURL == defaultAIBaseURL {
		baseURL = defaultGeminiBaseURL
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(req.APIKey),
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create gemini client failed: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature: genai.Ptr(float32(insightTemperature)),
	}
	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	return response.Text(), nil
}
