package investsight

import (
	"database/sql"
	"strings"
)

// AI providers.
const (
	AIProviderOpenAI    = "openai"
	AIProviderAnthropic = "anthropic"
	AIProviderGemini    = "gemini"
)

const defaultAIBaseURL = "https://api.openai.com/v1"

var validAIProviders = map[string]struct{}{
	AIProviderOpenAI:    {},
	AIProviderAnthropic: {},
	AIProviderGemini:    {},
}

var defaultAIModels = map[string]string{
	AIProviderOpenAI:    "gpt-4o-mini",
	AIProviderAnthropic: "claude-sonnet-4-20250514",
	AIProviderGemini:    "gemini-2.0-flash",
}

// AISettings holds the persisted insight-writer configuration. The API key
// is deliberately absent: it arrives per request or via environment and is
// never written to the database.
type AISettings struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
}

func defaultAISettings() AISettings {
	return AISettings{
		Provider: AIProviderOpenAI,
		BaseURL:  defaultAIBaseURL,
		Model:    "",
	}
}

func trimTrailingSlash(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), "/")
}

func normalizeAISettings(settings AISettings) AISettings {
	normalized := settings
	normalized.Provider = strings.ToLower(strings.TrimSpace(normalized.Provider))
	if _, ok := validAIProviders[normalized.Provider]; !ok {
		normalized.Provider = AIProviderOpenAI
	}
	normalized.BaseURL = trimTrailingSlash(normalized.BaseURL)
	if normalized.BaseURL == "" && normalized.Provider == AIProviderOpenAI {
		normalized.BaseURL = defaultAIBaseURL
	}
	normalized.Model = strings.TrimSpace(normalized.Model)
	return normalized
}

// GetAISettings returns persisted AI settings (never including an API key).
func (c *Core) GetAISettings() (AISettings, error) {
	settings := defaultAISettings()
	err := c.db.QueryRow(`
		SELECT provider, base_url, model
		FROM ai_settings
		WHERE id = 1
	`).Scan(&settings.Provider, &settings.BaseURL, &settings.Model)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return AISettings{}, err
	}
	return normalizeAISettings(settings), nil
}

// SetAISettings persists AI settings (never including an API key).
func (c *Core) SetAISettings(settings AISettings) (AISettings, error) {
	normalized := normalizeAISettings(settings)
	_, err := c.db.Exec(`
		INSERT INTO ai_settings (id, provider, base_url, model, updated_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			base_url = excluded.base_url,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`, normalized.Provider, normalized.BaseURL, normalized.Model)
	if err != nil {
		return AISettings{}, WrapError(ErrCodeDatabase, "save ai settings", err)
	}
	return normalized, nil
}
