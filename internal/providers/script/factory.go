package script

import (
	"fmt"
	"net/http"
	"strings"
)

// Config selects and configures a Generator.
type Config struct {
	Provider          string
	TemplatesPath     string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenAIOrg         string
	CountPromptTokens bool
	OllamaBaseURL     string
	OllamaModel       string
	HTTPClient        *http.Client
	OnUsage           func(Usage)
	OnFallback        func(reason string, err error)
	OnWarning         func(reason, detail string)
}

// New builds the configured generator. An OpenAI provider without an API key
// degrades to the static generator and reports the reason through OnFallback.
func New(cfg Config) (Generator, error) {
	catalog, err := LoadCatalog(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case openAIProviderName, "":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			if cfg.OnFallback != nil {
				cfg.OnFallback("missing_api_key", nil)
			}
			return NewStaticGenerator(), nil
		}
		return NewOpenAIGenerator(OpenAIOptions{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.OpenAIModel,
			BaseURL:           cfg.OpenAIBaseURL,
			Organization:      cfg.OpenAIOrg,
			HTTPClient:        cfg.HTTPClient,
			Catalog:           catalog,
			CountPromptTokens: cfg.CountPromptTokens,
			OnUsage:           cfg.OnUsage,
			OnWarning:         cfg.OnWarning,
		})
	case ollamaProviderName:
		return NewOllamaGenerator(OllamaOptions{
			BaseURL:    cfg.OllamaBaseURL,
			Model:      cfg.OllamaModel,
			HTTPClient: cfg.HTTPClient,
			Catalog:    catalog,
			OnUsage:    cfg.OnUsage,
		})
	case staticProviderName:
		return NewStaticGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown script provider %q", cfg.Provider)
	}
}
